// Package ir defines the boundary between the optimizer orchestrator and the
// IR/CFG/symbol collaborators it drives. None of these types implement an
// optimization; they describe the contract a real compiler front end would
// satisfy so the orchestrator in internal/optimizer can be built, tested, and
// driven without depending on any particular IR representation.
package ir

// Hotness is the compilation tier a method is being compiled at.
type Hotness int

const (
	HotnessCold Hotness = iota
	HotnessWarm
	HotnessHot
	HotnessVeryHot
	HotnessScorching
)

// FailureKind classifies a typed compilation failure raised through
// Compilation.FailCompilation.
type FailureKind int

const (
	// FailureExcessiveComplexity is raised when block/loop thresholds are
	// exceeded and no override option is set.
	FailureExcessiveComplexity FailureKind = iota
	// FailureInsufficientlyAggressive is raised when a hotness re-evaluation
	// demands recompilation at a higher tier.
	FailureInsufficientlyAggressive
	// FailureCompilationInterrupted is raised when a pass observes a
	// cancellation request.
	FailureCompilationInterrupted
)

// Block is one basic block of a method's control-flow graph.
type Block interface {
	// ID is a dense, stable identifier for the block within its CFG.
	ID() int

	// IsExtendedBlockHeader reports whether this block is the header of its
	// own extended (linear fall-through) block, the granularity at which
	// per-block optimization passes are invoked.
	IsExtendedBlockHeader() bool

	// IsLive reports whether the block still exists in the CFG (it may have
	// been removed by a prior pass but still be reachable through a stale
	// reference held by an optimization's per-block requested set).
	IsLive() bool
}

// Structure is the hierarchical region decomposition of a CFG, built on
// demand by the orchestrator when a pass declares RequiresStructure.
type Structure interface {
	LoopCount() int
	BlockCount() int
}

// CFG is the control-flow graph of one method.
type CFG interface {
	FirstBlock() Block
	// NextBlock returns the block following b in layout order, or nil at the
	// end of the graph.
	NextBlock(b Block) Block

	MayHaveLoops() bool

	// RemoveUnreachableBlocks prunes blocks no longer reachable from the
	// entry and returns the number of blocks removed.
	RemoveUnreachableBlocks() int

	// MightHaveUnreachableBlocks reports whether the last mutation could
	// have disconnected a block, gating step 13 of performOptimization.
	MightHaveUnreachableBlocks() bool

	SetFrequencies()
	HasFrequencies() bool

	Structure() Structure
	SetStructure(Structure)

	NodeCount() int
	SymRefCount() int

	VisitCount() int
	ResetVisitCounts()
}

// SymRef is one entry of a symbol reference table.
type SymRef interface {
	Index() int
}

// SymRefTable is the per-compilation symbol reference table.
type SymRefTable interface {
	Len() int
	ForEach(func(SymRef))
}

// AliasBuilder constructs alias information from the current symref table.
type AliasBuilder interface {
	CreateAliasInfo()
}

// TreeTop is one statement-level tree root within a method body.
type TreeTop interface {
	Next() TreeTop
}

// MethodSymbol is the method being compiled.
type MethodSymbol interface {
	FirstTreeTop() TreeTop
	FlowGraph() CFG
	HasEscapeAnalysisOpportunities() bool
	HasMethodHandleInvokes() bool
	HasVectorAPI() bool
	MayContainMonitors() bool
	HasNews() bool
}

// Compilation is the per-method compilation context.
type Compilation interface {
	IsOutermostMethod() bool
	GetOption(name string) bool
	IsProfilingCompilation() bool
	IsNotJitProfiling() bool
	IsOptServer() bool
	IsClassLoadPhase() bool
	MethodHotness() Hotness
	IsAOT() bool
	IsQuickStart() bool
	IsAggressiveLiveness() bool

	ReportAnalysisPhase(name string)
	ReportOptimizationPhase(name string)

	// ShouldBeInterrupted polls an outer cancellation predicate; the
	// orchestrator calls this after every pass.
	ShouldBeInterrupted() bool

	// FailCompilation raises a typed, fatal-to-the-compilation failure; by
	// contract it never returns (callers should treat it like a panic and
	// the orchestrator recovers it at the optimize() boundary).
	FailCompilation(kind FailureKind, msg string)

	AliasBuilder() AliasBuilder
	SymRefTable() SymRefTable
}

// PassManager is the narrow view of the orchestrator a Pass is allowed to
// see: enough to read compilation/method state, nothing that would let a
// pass reach into orchestrator-private scheduling state.
type PassManager interface {
	Compilation() Compilation
	Method() MethodSymbol
	Trace(format string, args ...any)

	// RequestBlockReentry marks b as still pending for the currently running
	// optimization, so that an enclosing eachLocalAnalysisPass-style group
	// re-enters its body for another iteration (spec.md §4.1 step 4).
	RequestBlockReentry(b Block)
}

// Pass is one instantiated optimization transform. The individual
// optimizations (inliner, value propagation, register allocator, ...) are
// out of scope for this module; Pass is the opaque contract the orchestrator
// drives them through.
type Pass interface {
	ShouldPerform() bool

	PrePerform() error
	Perform() error
	PostPerform() error

	PrePerformOnBlocks() error
	PostPerformOnBlocks() error
	PerformOnBlock(b Block) error
}

// Factory produces a fresh Pass instance bound to the given PassManager.
type Factory func(mgr PassManager) Pass
