package signal

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newAsyncTestDispatcher(t *testing.T) *Dispatcher {
	d := New()
	d.Startup()
	t.Cleanup(d.Shutdown)
	return d
}

// TestSetSingleAsyncSignalHandlerClearsBitFromFanOutRecord is the B2
// regression this review flagged: a pre-existing multi-category fan-out
// record must lose exactly the stolen bit, not keep it, and exactly one
// record must cover the stolen category afterward.
func TestSetSingleAsyncSignalHandlerClearsBitFromFanOutRecord(t *testing.T) {
	d := newAsyncTestDispatcher(t)

	fanOutID := NewAsyncHandlerID()
	require.NoError(t, d.SetAsyncSignalHandler(fanOutID, func(cat Category) HandlerStatus {
		return ContinueSearch
	}, FlagTERM|FlagHUP))

	singleID := NewAsyncHandlerID()
	require.NoError(t, d.SetSingleAsyncSignalHandler(singleID, FlagTERM, func(cat Category) HandlerStatus {
		return ContinueSearch
	}))

	d.asyncMu.Lock()
	defer d.asyncMu.Unlock()

	coveringTerm := 0
	var fanOutRecord *AsyncRecord
	for _, r := range d.asyncRecords {
		if r.flags.covers(CategorySIGTERM) {
			coveringTerm++
		}
		if r.id == fanOutID {
			fanOutRecord = r
		}
	}
	require.Equal(t, 1, coveringTerm, "exactly one record must cover SIGTERM after SetSingleAsyncSignalHandler (B2)")
	require.NotNil(t, fanOutRecord, "fan-out record must survive, only lose the stolen bit")
	require.Equal(t, FlagHUP, fanOutRecord.flags, "fan-out record must keep SIGHUP but lose SIGTERM")
}

// TestSetSingleAsyncSignalHandlerDropsRecordEmptiedByBitClear covers the
// case where stealing the only bit a record has leaves it empty, and that
// empty record is removed rather than left dangling.
func TestSetSingleAsyncSignalHandlerDropsRecordEmptiedByBitClear(t *testing.T) {
	d := newAsyncTestDispatcher(t)

	singleHolderID := NewAsyncHandlerID()
	require.NoError(t, d.SetAsyncSignalHandler(singleHolderID, func(cat Category) HandlerStatus {
		return ContinueSearch
	}, FlagTERM))

	newHolderID := NewAsyncHandlerID()
	require.NoError(t, d.SetSingleAsyncSignalHandler(newHolderID, FlagTERM, func(cat Category) HandlerStatus {
		return ContinueSearch
	}))

	d.asyncMu.Lock()
	defer d.asyncMu.Unlock()
	for _, r := range d.asyncRecords {
		require.NotEqual(t, singleHolderID, r.id, "record emptied by bit-clearing must be removed")
	}
}

// TestSetAsyncSignalHandlerRoundTripIsIdentity is spec.md R1: set(h,F) then
// set(h,0) must leave the record list as if the first call never happened.
func TestSetAsyncSignalHandlerRoundTripIsIdentity(t *testing.T) {
	d := newAsyncTestDispatcher(t)

	other := NewAsyncHandlerID()
	require.NoError(t, d.SetAsyncSignalHandler(other, func(cat Category) HandlerStatus {
		return ContinueSearch
	}, FlagHUP))

	before := snapshotAsyncRecords(d)

	id := NewAsyncHandlerID()
	require.NoError(t, d.SetAsyncSignalHandler(id, func(cat Category) HandlerStatus {
		return ContinueSearch
	}, FlagTERM))
	require.NoError(t, d.SetAsyncSignalHandler(id, nil, 0))

	after := snapshotAsyncRecords(d)
	require.Equal(t, before, after, "set(h,F) then set(h,0) must leave the list unchanged")
}

// TestSetAsyncSignalHandlerUnionsRepeatedFlags covers R1's companion case:
// two calls naming distinct flags for the same id produce one record with
// the union of both masks, not two records.
func TestSetAsyncSignalHandlerUnionsRepeatedFlags(t *testing.T) {
	d := newAsyncTestDispatcher(t)

	id := NewAsyncHandlerID()
	handler := func(cat Category) HandlerStatus { return ContinueSearch }
	require.NoError(t, d.SetAsyncSignalHandler(id, handler, FlagTERM))
	require.NoError(t, d.SetAsyncSignalHandler(id, handler, FlagHUP))

	d.asyncMu.Lock()
	defer d.asyncMu.Unlock()

	var matches []*AsyncRecord
	for _, r := range d.asyncRecords {
		if r.id == id {
			matches = append(matches, r)
		}
	}
	require.Len(t, matches, 1, "repeated registration for the same id must update one record, not append another")
	require.Equal(t, FlagTERM|FlagHUP, matches[0].flags)
}

// asyncRecordShape is AsyncRecord minus its Handler func field: func values
// are only ever deeply-equal to nil per reflect.DeepEqual, so comparing
// snapshots that embed a Handler would always report "changed" even when
// nothing did. id and flags are what R1's "byte-identical" claim is really
// about.
type asyncRecordShape struct {
	id    AsyncHandlerID
	flags Flags
}

func snapshotAsyncRecords(d *Dispatcher) []asyncRecordShape {
	d.asyncMu.Lock()
	defer d.asyncMu.Unlock()
	out := make([]asyncRecordShape, len(d.asyncRecords))
	for i, r := range d.asyncRecords {
		out[i] = asyncRecordShape{id: r.id, flags: r.flags}
	}
	return out
}
