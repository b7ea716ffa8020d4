package signal

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/omr-go/jitcore/internal/obslog"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sys/unix"
)

// installState is the one-signal state machine of spec.md §4.2
// ("State machine (one signal)"): UNINSTALLED -> MAIN_INSTALLED,
// original-saved -> (shutdown) -> UNINSTALLED, original-restored.
type installState struct {
	installed        bool
	originalDisp     unix.Sigaction
	originalCaptured bool
}

// AsyncRecord is spec.md §3's AsyncHandlerRecord.
type AsyncRecord struct {
	id      AsyncHandlerID
	handler Handler
	flags   Flags
}

// Dispatcher is the process-wide signal dispatch core (spec.md §4.2). One
// Dispatcher should be created per process; cmd/omrjit owns its lifecycle.
// internal/config declares a TOML form of its options
// (config.DispatcherOptions), which nothing in this module applies to a
// Dispatcher.
type Dispatcher struct {
	registerMu sync.Mutex // "register" monitor: OS-handler installation + bitmasks
	syncInstalled  map[Category]*installState
	asyncInstalled map[Category]*installState

	asyncMu      sync.Mutex // "async" monitor: handler list + in-flight counter
	asyncCond    *sync.Cond
	asyncRecords []*AsyncRecord
	inFlight     int

	signalCounts [sigSlotCount]atomic.Int64

	wakeSem   *semaphore.Weighted // bounds concurrent async-handler goroutines
	wakeCond  *sync.Cond          // condvar fallback
	wakeMu    sync.Mutex
	wakeCount int
	pending   []Category

	shutdownMu sync.Mutex
	shuttingDown bool
	shutdownCh   chan struct{}
	reporterDone chan struct{}

	optionsMu sync.Mutex
	options   Options

	useCondvarReporter bool
	foreignHandler     func(Category) (defaultActionRequired bool)

	log *obslog.Logger

	osCh        chan os.Signal // real OS signals fed in by the platform listener
	osListening bool
}

const sigSlotCount = 16

// category <-> slot index for the atomic signalCounts array.
func slotOf(cat Category) int { return int(cat) }

// New constructs a Dispatcher. It performs no OS installation (spec.md
// §4.2 startup(): "Does not install any OS handler; installation is
// lazy").
func New(opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		syncInstalled:  map[Category]*installState{},
		asyncInstalled: map[Category]*installState{},
		log:            obslog.Nop(),
	}
	d.asyncCond = sync.NewCond(&d.asyncMu)
	d.wakeCond = sync.NewCond(&d.wakeMu)
	for _, o := range opts {
		o(d)
	}
	return d
}

// DispatcherOption configures a Dispatcher at construction.
type DispatcherOption func(*Dispatcher)

func WithLogger(l *obslog.Logger) DispatcherOption { return func(d *Dispatcher) { d.log = l } }
func WithCondvarReporter(v bool) DispatcherOption  { return func(d *Dispatcher) { d.useCondvarReporter = v } }
func WithForeignHandler(fn func(Category) bool) DispatcherOption {
	return func(d *Dispatcher) { d.foreignHandler = fn }
}

// Startup implements spec.md §4.2's startup(): allocates the reporter
// thread and synchronization primitives. Safe to call once per Dispatcher.
func (d *Dispatcher) Startup() {
	d.shutdownMu.Lock()
	d.shuttingDown = false
	d.shutdownCh = make(chan struct{})
	d.reporterDone = make(chan struct{})
	d.shutdownMu.Unlock()

	if !d.useCondvarReporter {
		d.wakeSem = semaphore.NewWeighted(1 << 30)
	}

	go d.reporterLoop()
}

// Shutdown implements spec.md §4.2's shutdown(): signals the reporter to
// exit, waits for it, and restores every OS disposition this Dispatcher
// overrode (I-S2 / P7).
func (d *Dispatcher) Shutdown() {
	d.shutdownMu.Lock()
	if d.shuttingDown {
		d.shutdownMu.Unlock()
		return
	}
	d.shuttingDown = true
	close(d.shutdownCh)
	d.shutdownMu.Unlock()

	d.postWakeup()
	<-d.reporterDone
	// Belt-and-braces with reporterLoop's own per-batch wg.Wait(): by the
	// time reporterDone closes every dispatched handler has already
	// returned, but this makes P7 ("no async handler runs after shutdown
	// completes") an explicit, checkable invariant rather than an implicit
	// consequence of reporterLoop's internal structure.
	d.WaitQuiescent()

	d.registerMu.Lock()
	defer d.registerMu.Unlock()
	for cat, st := range d.syncInstalled {
		d.restoreDisposition(cat, st)
	}
	for cat, st := range d.asyncInstalled {
		d.restoreDisposition(cat, st)
	}
	d.syncInstalled = map[Category]*installState{}
	d.asyncInstalled = map[Category]*installState{}
}

func (d *Dispatcher) isShutdown() bool {
	d.shutdownMu.Lock()
	defer d.shutdownMu.Unlock()
	return d.shuttingDown
}

// SetOptions implements spec.md §4.2's setOptions: OR-merges the global
// options mask. Switching into a reduced-signals mode fails if any handler
// is already installed.
func (d *Dispatcher) SetOptions(mask Options) error {
	d.optionsMu.Lock()
	defer d.optionsMu.Unlock()
	enteringReduced := mask&(OptReducedSignalsSynchronous|OptReducedSignalsAsynchronous) != 0 &&
		d.options&(OptReducedSignalsSynchronous|OptReducedSignalsAsynchronous) == 0
	if enteringReduced {
		d.registerMu.Lock()
		anyInstalled := len(d.syncInstalled) > 0 || len(d.asyncInstalled) > 0
		d.registerMu.Unlock()
		if anyInstalled {
			return ErrAlreadyInstalled
		}
	}
	d.options |= mask
	return nil
}

func (d *Dispatcher) optionsSnapshot() Options {
	d.optionsMu.Lock()
	defer d.optionsMu.Unlock()
	return d.options
}

func (d *Dispatcher) cooperativeShutdown() {
	d.log.Warn("cooperative shutdown requested by handler")
	d.Shutdown()
}

func (d *Dispatcher) escalateUnhandled(cat Category) {
	if d.optionsSnapshot()&OptNoChain == 0 && d.foreignHandler != nil {
		if defaultActionRequired := d.foreignHandler(cat); !defaultActionRequired {
			return
		}
	}
	d.log.Error("unhandled signal, aborting", "category", cat.String())
	abort()
}

// abort mirrors the source's abort(): it raises SIGABRT against this
// process, the faithful POSIX analogue of the C runtime's abort().
func abort() {
	_ = unix.Kill(unix.Getpid(), unix.SIGABRT)
	panic(fmt.Sprintf("signal: unhandled fault, aborted"))
}

// classifyRuntimeError maps a Go runtime panic's message onto a Category,
// since Go provides no stable sub-code API for these beyond the message
// text (SPEC_FULL.md's Go-realization note).
func classifyRuntimeError(msg string) (Category, bool) {
	switch {
	case strings.Contains(msg, "invalid memory address") || strings.Contains(msg, "nil pointer dereference"):
		return CategorySIGSEGV, true
	case strings.Contains(msg, "index out of range") || strings.Contains(msg, "slice bounds out of range"):
		return CategorySIGSEGV, true
	case strings.Contains(msg, "integer divide by zero"):
		return CategorySIGFPE, true
	case strings.Contains(msg, "invalid memory address or nil pointer dereference"):
		return CategorySIGSEGV, true
	default:
		return CategoryNone, false
	}
}
