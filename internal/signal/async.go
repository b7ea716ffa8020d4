package signal

import "sync/atomic"

// AsyncHandlerID identifies one registered async listener across repeated
// SetAsyncSignalHandler/SetSingleAsyncSignalHandler calls. It stands in for
// the source's (handler function pointer, handler_arg) identity pair used
// to find a caller's existing AsyncHandlerRecord: Go funcs are not
// comparable, so callers allocate an id once with NewAsyncHandlerID and
// pass it back on every later call for the same logical listener.
type AsyncHandlerID uint64

var asyncHandlerIDSeq atomic.Uint64

// NewAsyncHandlerID allocates a fresh identity for a registered async
// listener.
func NewAsyncHandlerID() AsyncHandlerID {
	return AsyncHandlerID(asyncHandlerIDSeq.Add(1))
}

// SetAsyncSignalHandler implements spec.md §4.2's setAsyncSignalHandler:
// register, update, or remove the async record identified by id. flags==0
// removes the record; otherwise flags is unioned into the record's
// existing mask and handler replaces the stored callback (R1:
// set(id,F) then set(id,0) leaves the list as it was before the first
// call, modulo the main-handler install, which persists).
func (d *Dispatcher) SetAsyncSignalHandler(id AsyncHandlerID, handler Handler, flags Flags) error {
	if flags.Ambiguous() || flags.IsSync() {
		return ErrAmbiguousFlags
	}
	if d.isShutdown() {
		return ErrShuttingDown
	}
	if flags != 0 {
		if d.optionsSnapshot()&OptReducedSignalsAsynchronous != 0 {
			return ErrUnsupportedSignal
		}
		if err := d.ensureMainAsyncHandlers(flags); err != nil {
			return err
		}
	}

	d.withQuiescentAsyncLock(func() {
		for i, r := range d.asyncRecords {
			if r.id != id {
				continue
			}
			if flags == 0 {
				d.asyncRecords = append(d.asyncRecords[:i], d.asyncRecords[i+1:]...)
			} else {
				r.handler = handler
				r.flags |= flags
			}
			return
		}
		if flags != 0 {
			d.asyncRecords = append(d.asyncRecords, &AsyncRecord{id: id, handler: handler, flags: flags})
		}
	})
	return nil
}

// SetSingleAsyncSignalHandler is spec.md §4.2's narrower variant: flags must
// be exactly one async bit, or zero. Associating a non-zero flags with id
// clears that same bit from every other record's mask — removing any
// record whose mask becomes empty as a result — so at most one record ever
// covers a given category (B2: one signal, one async callback).
func (d *Dispatcher) SetSingleAsyncSignalHandler(id AsyncHandlerID, flags Flags, handler Handler) error {
	if flags != 0 && (!flags.isSingleSignalBit() || !flags.IsAsync()) {
		return ErrSingleFlagRequired
	}
	if d.isShutdown() {
		return ErrShuttingDown
	}
	if flags != 0 {
		if err := d.ensureMainAsyncHandlers(flags); err != nil {
			return err
		}
	}

	d.withQuiescentAsyncLock(func() {
		found := false
		kept := d.asyncRecords[:0]
		for _, r := range d.asyncRecords {
			if r.id == id {
				found = true
				if flags == 0 {
					continue // removed
				}
				r.handler = handler
				r.flags |= flags
			} else if flags != 0 {
				r.flags &^= flags // one signal belongs to only one handler
				if r.flags == 0 {
					continue // bit-clearing left this record empty
				}
			}
			kept = append(kept, r)
		}
		d.asyncRecords = kept
		if !found && flags != 0 {
			d.asyncRecords = append(d.asyncRecords, &AsyncRecord{id: id, handler: handler, flags: flags})
		}
	})
	return nil
}

// recordsFor returns a snapshot of the async records covering cat, taken
// under asyncMu so the reporter never races a concurrent
// SetAsyncSignalHandler (P6).
func (d *Dispatcher) recordsFor(cat Category) []*AsyncRecord {
	d.asyncMu.Lock()
	defer d.asyncMu.Unlock()
	var out []*AsyncRecord
	for _, r := range d.asyncRecords {
		if r.flags.covers(cat) {
			out = append(out, r)
		}
	}
	return out
}

// beginDispatch/endDispatch track the in-flight async-handler count so
// Shutdown, WaitQuiescent, and the registration ops can wait for
// quiescence (spec.md I-S5 / P7 "no async handler runs after shutdown
// completes").
func (d *Dispatcher) beginDispatch() {
	d.asyncMu.Lock()
	d.inFlight++
	d.asyncMu.Unlock()
}

func (d *Dispatcher) endDispatch() {
	d.asyncMu.Lock()
	d.inFlight--
	if d.inFlight == 0 {
		d.asyncCond.Broadcast()
	}
	d.asyncMu.Unlock()
}

// withQuiescentAsyncLock implements spec.md §4.2's I-S5 clause shared by
// setAsyncSignalHandler/setSingleAsyncSignalHandler ("wait until no signals
// are being reported" before touching the list): it blocks until the
// in-flight count drops to zero and runs fn while still holding asyncMu, so
// no dispatch can begin between the wait and the mutation.
func (d *Dispatcher) withQuiescentAsyncLock(fn func()) {
	d.asyncMu.Lock()
	for d.inFlight > 0 {
		d.asyncCond.Wait()
	}
	fn()
	d.asyncMu.Unlock()
}

// WaitQuiescent blocks until no async handler is currently executing. It is
// what the registration ops build on internally, and is also exposed for
// tests exercising shutdown ordering (B2/B3).
func (d *Dispatcher) WaitQuiescent() {
	d.withQuiescentAsyncLock(func() {})
}
