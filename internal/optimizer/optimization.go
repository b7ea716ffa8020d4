// Package optimizer implements the optimization orchestrator and strategy
// engine (spec.md Component O / "§4.1 Optimizer Orchestrator"): it sequences
// optimizations over an IR, materializes and invalidates analysis results on
// demand, and reports phase transitions, without implementing any
// optimization itself.
package optimizer

import "github.com/omr-go/jitcore/internal/ir"

// Capability is the set of requirement/behavior flags an Optimization
// declares, consulted by the orchestrator's analysis-materialization and
// complexity-gating logic (spec.md §3).
type Capability uint32

const (
	RequiresStructure Capability = 1 << iota
	RequiresUseDefsLocal
	RequiresUseDefsGlobal
	RequiresValueNumberingLocal
	RequiresValueNumberingGlobal
	MaintainsUseDefs
	DoesNotRequireAliasSets
	DoesNotRequireTrees
	PrefersGlobalUseDefs
	PrefersGlobalValueNumbering
	LoadsAsDefsInUseDefs
	CannotOmitTrivialDefs
	SupportsIlGenLevel
	DoNotSetFrequencies
	CanAddSymRef
	AccurateNodeCountRequired
)

func (c Capability) has(f Capability) bool { return c&f != 0 }

// OptID is a dense integer identifier for an optimization or a group. The
// id's value does not decide which it names: a strategy Entry is a group
// when its Sub strategy is non-nil (see Entry.IsGroup), and the well-known
// EachLocalAnalysisPassGroupID is negative.
type OptID int

// Optimization is a named, addressable transform descriptor: the template
// from which a fresh Pass is instantiated once per performOptimization call
// that actually runs it.
type Optimization struct {
	ID           OptID
	Name         string
	Factory      ir.Factory
	Capabilities Capability

	// Per-compilation mutable state (spec.md §3).
	requested       bool
	blockRequested  map[int]bool
	lastRun         bool
	trace           bool
}

func NewOptimization(id OptID, name string, factory ir.Factory, caps Capability) *Optimization {
	return &Optimization{ID: id, Name: name, Factory: factory, Capabilities: caps, blockRequested: map[int]bool{}}
}

func (o *Optimization) Requested() bool   { return o.requested }
func (o *Optimization) SetRequested(v bool) { o.requested = v }

func (o *Optimization) LastRun() bool     { return o.lastRun }
func (o *Optimization) SetLastRun()       { o.lastRun = true }

func (o *Optimization) Trace() bool       { return o.trace }
func (o *Optimization) SetTrace(v bool)   { o.trace = v }

func (o *Optimization) RequestBlock(b ir.Block) { o.blockRequested[b.ID()] = true }
func (o *Optimization) ClearBlock(b ir.Block)   { delete(o.blockRequested, b.ID()) }
func (o *Optimization) BlockRequested(b ir.Block) bool { return o.blockRequested[b.ID()] }
func (o *Optimization) HasPendingBlocks() bool  { return len(o.blockRequested) > 0 }
func (o *Optimization) PendingBlockCount() int  { return len(o.blockRequested) }
