package signal

import (
	"os"
	"os/signal"

	"golang.org/x/sys/unix"
)

// catToUnixSignal maps a Category onto its real POSIX signal number,
// grounded on golang.org/x/sys/unix's platform signal constants rather
// than syscall's narrower, partially-deprecated set.
func catToUnixSignal(cat Category) unix.Signal {
	switch cat {
	case CategorySIGSEGV:
		return unix.SIGSEGV
	case CategorySIGBUS:
		return unix.SIGBUS
	case CategorySIGILL:
		return unix.SIGILL
	case CategorySIGFPE:
		return unix.SIGFPE
	case CategorySIGTERM:
		return unix.SIGTERM
	case CategorySIGHUP:
		return unix.SIGHUP
	case CategorySIGINT:
		return unix.SIGINT
	case CategorySIGQUIT:
		return unix.SIGQUIT
	case CategorySIGALRM:
		return unix.SIGALRM
	case CategorySIGXFSZ:
		return unix.SIGXFSZ
	default:
		return 0
	}
}

func unixSignalToCategory(sig unix.Signal) (Category, bool) {
	for cat := CategorySIGSEGV; cat <= CategorySIGXFSZ; cat++ {
		if catToUnixSignal(cat) == sig {
			return cat, true
		}
	}
	return CategoryNone, false
}

// ensureOSListener starts, at most once per Dispatcher, the goroutine that
// bridges os/signal's channel delivery into the reporter's wakeup queue.
// It must hold registerMu.
func (d *Dispatcher) ensureOSListener() {
	if d.osListening {
		return
	}
	d.osListening = true
	d.osCh = make(chan os.Signal, 64)
	go func() {
		for sig := range d.osCh {
			if us, ok := sig.(unix.Signal); ok {
				if cat, ok := unixSignalToCategory(us); ok {
					d.onOSSignal(cat)
					continue
				}
			}
			// Fall back to matching by os.Signal's own identity for
			// signals delivered as syscall.Signal by the runtime.
			for cat := CategorySIGSEGV; cat <= CategorySIGXFSZ; cat++ {
				if sig.String() == catToUnixSignal(cat).String() {
					d.onOSSignal(cat)
					break
				}
			}
		}
	}()
}

// onOSSignal handles a signal delivered through os/signal's channel. Go's
// own runtime, not this goroutine, is what actually catches SIGSEGV/
// SIGBUS/SIGILL/SIGFPE faults arising from real memory-unsafe Go code —
// those surface as runtime panics inside the faulting goroutine and are
// classified by classifyRuntimePanic inside Protect's recover, which has
// the frame chain needed to run the matched handler in place. By the time
// a synchronous category reaches onOSSignal (explicit kill(2), or a
// fault the runtime chose to hand off because it didn't originate in Go
// code), there is no faulting goroutine's frame chain available here, so
// it is handled as unhandled-by-any-frame and escalated directly
// (SPEC_FULL.md's Go-realization note on the OS-channel path).
func (d *Dispatcher) onOSSignal(cat Category) {
	if cat.IsAsyncCategory() {
		d.postWakeup(cat)
		return
	}
	d.escalateUnhandled(cat)
}

// IsAsyncCategory reports whether cat belongs to the asynchronous set.
func (c Category) IsAsyncCategory() bool {
	switch c {
	case CategorySIGTERM, CategorySIGHUP, CategorySIGINT, CategorySIGQUIT, CategorySIGALRM, CategorySIGXFSZ:
		return true
	default:
		return false
	}
}

// ensureMainSyncHandlers implements spec.md §4.2's lazy main-handler
// installation for the synchronous categories named by flags (I-S1): the
// first Protect call requesting a category installs the shared main
// handler for it; later calls are no-ops.
func (d *Dispatcher) ensureMainSyncHandlers(flags Flags) error {
	d.registerMu.Lock()
	defer d.registerMu.Unlock()
	d.ensureOSListener()
	for _, cat := range flags.categories() {
		if !cat.IsSyncCategory() {
			continue
		}
		if st := d.syncInstalled[cat]; st != nil && st.installed {
			continue
		}
		st := &installState{}
		d.captureDisposition(cat, st)
		signal.Notify(d.osCh, catToUnixSignal(cat))
		st.installed = true
		d.syncInstalled[cat] = st
	}
	return nil
}

// ensureMainAsyncHandlers mirrors ensureMainSyncHandlers for the
// asynchronous categories named by flags.
func (d *Dispatcher) ensureMainAsyncHandlers(flags Flags) error {
	d.registerMu.Lock()
	defer d.registerMu.Unlock()
	d.ensureOSListener()
	for _, cat := range flags.categories() {
		if !cat.IsAsyncCategory() {
			continue
		}
		if cat == CategorySIGXFSZ && d.optionsSnapshot()&OptSIGXFSZ == 0 {
			return ErrUnsupportedSignal
		}
		if st := d.asyncInstalled[cat]; st != nil && st.installed {
			continue
		}
		st := &installState{}
		d.captureDisposition(cat, st)
		signal.Notify(d.osCh, catToUnixSignal(cat))
		st.installed = true
		d.asyncInstalled[cat] = st
	}
	return nil
}

// IsSyncCategory reports whether cat belongs to the synchronous set.
func (c Category) IsSyncCategory() bool {
	switch c {
	case CategorySIGSEGV, CategorySIGBUS, CategorySIGILL, CategorySIGFPE:
		return true
	default:
		return false
	}
}

func (d *Dispatcher) captureDisposition(cat Category, st *installState) {
	var old unix.Sigaction
	if err := unix.Sigaction(int(catToUnixSignal(cat)), nil, &old); err == nil {
		st.originalDisp = old
		st.originalCaptured = true
	}
}

func (d *Dispatcher) restoreDisposition(cat Category, st *installState) {
	signal.Stop(d.osCh)
	if st.originalCaptured {
		_ = unix.Sigaction(int(catToUnixSignal(cat)), &st.originalDisp, nil)
	}
}

// RegisterOSHandler implements spec.md §4.2's registerOSHandler, letting
// a pre-existing foreign handler be chained to when no dispatcher-level
// record claims a signal (P9 "cooperative foreign-signal chaining"). It sets
// the same foreign handler that the WithForeignHandler constructor option
// sets, replacing any earlier one; it installs no OS-level handler itself.
func (d *Dispatcher) RegisterOSHandler(fn func(Category) bool) {
	d.foreignHandler = fn
}

// IsMainSignalHandler reports whether this Dispatcher currently owns cat's
// main OS-level handler.
func (d *Dispatcher) IsMainSignalHandler(cat Category) bool {
	d.registerMu.Lock()
	defer d.registerMu.Unlock()
	if st := d.syncInstalled[cat]; st != nil && st.installed {
		return true
	}
	if st := d.asyncInstalled[cat]; st != nil && st.installed {
		return true
	}
	return false
}

// IsSignalIgnored reports whether cat's original disposition, captured at
// install time, was SIG_IGN. It reports false for a category this
// Dispatcher has not installed a handler for. The dispatcher's own
// chaining in escalateUnhandled does not consult it.
func (d *Dispatcher) IsSignalIgnored(cat Category) bool {
	d.registerMu.Lock()
	defer d.registerMu.Unlock()
	st := d.syncInstalled[cat]
	if st == nil {
		st = d.asyncInstalled[cat]
	}
	if st == nil || !st.originalCaptured {
		return false
	}
	return st.originalDisp.Handler == uintptr(unix.SIG_IGN)
}
