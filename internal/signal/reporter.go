package signal

import (
	"context"
	"sync"
)

// postWakeup enqueues cats (zero or more) for the reporter goroutine and
// wakes it. Called with no arguments by Shutdown purely to force the
// reporter's wait loop to re-check isShutdown.
func (d *Dispatcher) postWakeup(cats ...Category) {
	d.wakeMu.Lock()
	d.wakeCount += len(cats)
	d.pending = append(d.pending, cats...)
	d.wakeMu.Unlock()
	d.wakeCond.Signal()
}

// reporterLoop is the dedicated reporter thread of spec.md §4.2 ("the
// reporter thread, never the signal context itself, invokes async
// handlers"). SPEC_FULL.md's Open Question decision keeps both historical
// reporter-loop shapes rather than collapsing them:
//
//   - condvar variant (useCondvarReporter=true): handles exactly one
//     pending category per wakeup, then re-waits — handlers for distinct
//     signals never run concurrently with each other.
//   - semaphore variant (default): drains the whole pending batch at
//     once, running each category's handlers in its own goroutine bounded
//     by wakeSem, a golang.org/x/sync/semaphore.Weighted.
func (d *Dispatcher) reporterLoop() {
	defer close(d.reporterDone)
	for {
		d.wakeMu.Lock()
		for len(d.pending) == 0 {
			if d.isShutdown() {
				d.wakeMu.Unlock()
				return
			}
			d.wakeCond.Wait()
		}

		if d.useCondvarReporter {
			cat := d.pending[0]
			d.pending = d.pending[1:]
			d.wakeMu.Unlock()
			d.runHandlersFor(cat)
			continue
		}

		batch := d.pending
		d.pending = nil
		d.wakeMu.Unlock()

		var wg sync.WaitGroup
		for _, cat := range batch {
			cat := cat
			if err := d.wakeSem.Acquire(context.Background(), 1); err != nil {
				continue
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer d.wakeSem.Release(1)
				d.runHandlersFor(cat)
			}()
		}
		wg.Wait()
	}
}

// runHandlersFor invokes every async record covering cat (P6: all of them
// run, none inline in the signal-delivery context itself since by the
// time the reporter runs, the real OS handler has long since returned).
func (d *Dispatcher) runHandlersFor(cat Category) {
	d.signalCounts[slotOf(cat)].Add(1)
	for _, rec := range d.recordsFor(cat) {
		d.beginDispatch()
		status := rec.handler(cat)
		d.endDispatch()
		if status == CooperativeShutdown {
			d.cooperativeShutdown()
			return
		}
	}
}

// SignalCount reports how many times cat has reached the reporter, for
// tests and diagnostics (not part of the dispatch algorithm itself).
func (d *Dispatcher) SignalCount(cat Category) int64 {
	return d.signalCounts[slotOf(cat)].Load()
}
