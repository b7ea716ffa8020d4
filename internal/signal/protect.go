package signal

import (
	"context"
	"fmt"
)

// Handler is a synchronous fault callback (spec.md §3
// SignalHandlerRecord.handler).
type Handler func(cat Category) HandlerStatus

type frameKey struct{}

// frame is one entry of the per-goroutine protection-frame stack. Go has no
// native thread-local storage, so the stack is realized as an immutable
// chain carried through context.Context (spec.md §9 "Per-thread stacks" /
// SPEC_FULL.md's Go-realization note): Protect derives a child context
// carrying a new frame, and hands that child context to fn, so nested
// Protect calls made from within fn see the correct parent without any
// global mutable stack to leak across goroutines. Pop is implicit: once fn
// returns (by any means), the child context — and the frame it carried —
// simply falls out of scope.
type frame struct {
	prev    *frame
	flags   Flags
	handler Handler
	// currentSignal is this frame's saved CurrentSignal cell (spec.md §3
	// "Saved/restored across nested protection frames").
	currentSignal Category
}

func frameFromCtx(ctx context.Context) *frame {
	f, _ := ctx.Value(frameKey{}).(*frame)
	return f
}

// GetCurrentSignal implements spec.md §4.2's getCurrentSignal: the logical
// category of the signal currently being dispatched on this (goroutine's)
// frame chain, or CategoryNone.
func GetCurrentSignal(ctx context.Context) Category {
	if f := frameFromCtx(ctx); f != nil {
		return f.currentSignal
	}
	return CategoryNone
}

// unwindToken is panicked by a matched frame's ExceptionReturn to perform
// the non-local return to that exact Protect call (spec.md §9 "Non-local
// return from signal handler": Go's panic/recover is used verbatim as the
// portable realization of sigsetjmp/siglongjmp, since recover always
// restores the goroutine's own state — there is no separate "signal mask"
// to leak here, Go never imposes a blocking mask on the goroutine that
// calls Protect).
type unwindToken struct {
	target *frame
	cat    Category
}

// CanProtect implements spec.md §4.2's canProtect: reports whether the
// requested capability set is supported under the dispatcher's current
// options.
func (d *Dispatcher) CanProtect(flags Flags) bool {
	if flags.Ambiguous() {
		return false
	}
	if d.optionsSnapshot()&OptReducedSignalsSynchronous != 0 {
		return flags == 0
	}
	return true
}

// Protect implements spec.md §4.2's protect(): executes fn within a new
// protection frame covering the synchronous-fault categories named in
// flags. It returns ResultExceptionOccurred when a matched handler in the
// frame returns ExceptionReturn, ResultError on setup failure, and
// otherwise ResultOK with fn's own return value.
func (d *Dispatcher) Protect(ctx context.Context, fn func(ctx context.Context) (any, error), handler Handler, flags Flags) (Result, any, error) {
	if flags.Ambiguous() || flags.IsAsync() {
		return ResultError, nil, ErrAmbiguousFlags
	}
	if d.isShutdown() {
		return ResultError, nil, ErrShuttingDown
	}

	reduced := d.optionsSnapshot()&OptReducedSignalsSynchronous != 0
	if reduced {
		// spec.md §4.2 "Reduced-signals modes" / B4: run fn with no main
		// handler installed, regardless of flags.
		v, err := fn(ctx)
		return ResultOK, v, err
	}

	if flags.IsSync() {
		if err := d.ensureMainSyncHandlers(flags); err != nil {
			return ResultError, nil, err
		}
	}

	f := &frame{prev: frameFromCtx(ctx), flags: flags, handler: handler}
	childCtx := context.WithValue(ctx, frameKey{}, f)

	var (
		result = ResultOK
		value  any
		fnErr  error
	)

	func() {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			if tok, ok := r.(unwindToken); ok && tok.target == f {
				// This frame is the matched target: stop unwinding here.
				result = ResultExceptionOccurred
				f.currentSignal = CategoryNone
				return
			}
			if cat, ok := classifyRuntimePanic(r); ok {
				status, matched := d.dispatchToFrame(f, cat, handler)
				if matched {
					switch status {
					case ExceptionReturn:
						result = ResultExceptionOccurred
						f.currentSignal = CategoryNone
						return
					case CooperativeShutdown:
						d.cooperativeShutdown()
						result = ResultExceptionOccurred
						return
					case ContinueExecution:
						// A real Go runtime panic cannot resume execution
						// at the fault site; this is the documented
						// platform limitation (SPEC_FULL.md's
						// Go-realization note) — escalate exactly as
						// spec.md step 5 does for an unhandled signal.
						d.escalateUnhandled(cat)
						return
					case ContinueSearch:
						panic(r) // let the next outer frame try
					}
				}
				d.escalateUnhandled(cat)
				return
			}
			// Not a fault we classify: propagate untouched (a genuine
			// programmer assertion, per spec.md §7 "Pass assertion: fatal
			// process abort").
			panic(r)
		}()
		value, fnErr = fn(childCtx)
	}()

	return result, value, fnErr
}

// dispatchToFrame invokes handler if f's flags cover cat; collapsing SIGFPE
// sub-codes onto a single bit per spec.md §4.2 step 4 is already handled by
// classifyRuntimePanic / RaiseSynchronous mapping everything onto
// CategorySIGFPE.
func (d *Dispatcher) dispatchToFrame(f *frame, cat Category, handler Handler) (HandlerStatus, bool) {
	if !f.flags.covers(cat) {
		return ContinueSearch, false
	}
	f.currentSignal = cat
	return handler(cat), true
}

// RaiseSynchronous simulates an in-process synchronous fault of the given
// category without performing a real memory-unsafe operation, by walking
// the goroutine's Protect frame chain directly (spec.md E4's deterministic
// scenario; also used by cmd/omrjit's protect-demo). Unlike a real OS fault,
// this path can honor ContinueExecution, since no machine state was
// actually corrupted — RaiseSynchronous simply returns to its caller.
func (d *Dispatcher) RaiseSynchronous(ctx context.Context, cat Category) error {
	for f := frameFromCtx(ctx); f != nil; f = f.prev {
		if !f.flags.covers(cat) {
			continue
		}
		f.currentSignal = cat
		switch status := f.handler(cat); status {
		case ContinueSearch:
			continue
		case ContinueExecution:
			f.currentSignal = CategoryNone
			return nil
		case CooperativeShutdown:
			d.cooperativeShutdown()
			return nil
		case ExceptionReturn:
			panic(unwindToken{target: f, cat: cat})
		}
	}
	d.escalateUnhandled(cat)
	return nil
}

func classifyRuntimePanic(r any) (Category, bool) {
	if sf, ok := r.(syntheticFault); ok {
		return sf.cat, true
	}
	if _, ok := r.(error); ok {
		// A real Go runtime panic (nil dereference, integer divide by
		// zero, index out of range, ...) always satisfies the error
		// interface via runtime.Error; classify it generically since Go
		// offers no stable sub-code API for these beyond string sniffing.
		return classifyRuntimeError(fmt.Sprint(r))
	}
	return CategoryNone, false
}

// syntheticFault is an alternate, panic-based way to raise a synchronous
// signal (used by tests that want the full unwind path exercised rather
// than RaiseSynchronous's direct walk).
type syntheticFault struct{ cat Category }

func RaiseSynchronousPanic(cat Category) { panic(syntheticFault{cat: cat}) }
