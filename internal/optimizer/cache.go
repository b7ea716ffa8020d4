package optimizer

import "github.com/omr-go/jitcore/internal/ir"

// UseDefInfo is the orchestrator-owned use-def analysis result (spec.md §3).
type UseDefInfo struct {
	HasGlobalDefs  bool
	HasLoadsAsDefs bool
}

// ValueNumberInfo is the orchestrator-owned value-numbering result.
type ValueNumberInfo struct {
	HasGlobals bool
	HashBased  bool
}

// symRefSnapshot is an identity-mapping snapshot of the symref table,
// rebuilt whenever the symref count changes (spec.md §3).
type symRefSnapshot struct {
	count int
}

// AnalysisCache holds every per-compilation analysis result the
// orchestrator materializes on demand and invalidates according to
// spec.md's invariants I-O2..I-O4. It is per-compilation, never shared
// (spec.md §5).
type AnalysisCache struct {
	aliasSetsValid bool

	useDefs    *UseDefInfo
	valueNums  *ValueNumberInfo
	symRefs    *symRefSnapshot
	structure  ir.Structure

	loopCount, blockCount int
	structureBuilt        bool

	// nearLoopThreshold is set once, on first structure build, if the loop
	// count is within loopThresholdMargin of the configured limit; it
	// disables loop-creating passes for the remainder of the compilation
	// (spec.md §4.1 "Analysis materialization" / SPEC_FULL.md's
	// supplemented-feature note).
	nearLoopThreshold bool

	lastNodeCount, lastSymRefCount int
}

// loopThresholdMargin is carried forward from
// original_source/compiler/optimizer/OMROptimizer.cpp verbatim (see
// DESIGN.md and SPEC_FULL.md's "Supplemented features").
const loopThresholdMargin = 25

func NewAnalysisCache() *AnalysisCache {
	return &AnalysisCache{}
}

func (c *AnalysisCache) InvalidateAliasSets()    { c.aliasSetsValid = false }
func (c *AnalysisCache) InvalidateUseDefs()      { c.useDefs = nil }
func (c *AnalysisCache) InvalidateValueNumbers() { c.valueNums = nil }
func (c *AnalysisCache) InvalidateSymRefTable()  { c.symRefs = nil }
func (c *AnalysisCache) InvalidateStructure()    { c.structure = nil; c.structureBuilt = false }

func (c *AnalysisCache) AliasSetsValid() bool      { return c.aliasSetsValid }
func (c *AnalysisCache) UseDefs() *UseDefInfo       { return c.useDefs }
func (c *AnalysisCache) ValueNumbers() *ValueNumberInfo { return c.valueNums }
func (c *AnalysisCache) Structure() ir.Structure     { return c.structure }
func (c *AnalysisCache) NearLoopThreshold() bool     { return c.nearLoopThreshold }

// RebuildAliasSets is invoked on demand when a pass requires alias sets and
// the cache is stale.
func (c *AnalysisCache) RebuildAliasSets(comp ir.Compilation) {
	comp.AliasBuilder().CreateAliasInfo()
	c.aliasSetsValid = true
}

// RebuildSymRefSnapshot rebuilds the identity snapshot (I-O4).
func (c *AnalysisCache) RebuildSymRefSnapshot(cfg ir.CFG) {
	c.symRefs = &symRefSnapshot{count: cfg.SymRefCount()}
}

// RebuildUseDefs rebuilds use-def info honoring the global/local preference
// parameters spec.md §4.1 lists (requiresGlobals, prefersGlobals,
// loadsAsDefs, cannotOmitTrivialDefs are folded into the Capability bitset
// by the caller).
func (c *AnalysisCache) RebuildUseDefs(global, loadsAsDefs bool) {
	c.useDefs = &UseDefInfo{HasGlobalDefs: global, HasLoadsAsDefs: loadsAsDefs}
}

// RebuildValueNumbers rebuilds value-number info; hashBased selects between
// the two flavors spec.md §4.1 names (partition-based / hash-based).
func (c *AnalysisCache) RebuildValueNumbers(global, hashBased bool) {
	c.valueNums = &ValueNumberInfo{HasGlobals: global, HashBased: hashBased}
}

// RebuildStructure runs the region-discovery algorithm (via the CFG's own
// builder, since structure computation over IR primitives is out of this
// module's scope per spec.md §1/§6) and, on first build only, caches loop
// and block counts and evaluates the near-threshold flag.
func (c *AnalysisCache) RebuildStructure(cfg ir.CFG, build func() ir.Structure, loopLimit int) {
	s := build()
	cfg.SetStructure(s)
	c.structure = s
	if !c.structureBuilt {
		c.structureBuilt = true
		c.loopCount = s.LoopCount()
		c.blockCount = s.BlockCount()
		if loopLimit > 0 && loopLimit-c.loopCount <= loopThresholdMargin {
			c.nearLoopThreshold = true
		}
	}
}

func (c *AnalysisCache) LoopCount() int  { return c.loopCount }
func (c *AnalysisCache) BlockCount() int { return c.blockCount }

// reconcileAfterPass is the single post-pass invalidation routine spec.md §9
// calls for: it implements I-O3 and I-O4 from the node/symref count deltas
// performOptimization observes around a pass invocation.
func (c *AnalysisCache) reconcileAfterPass(caps Capability, deltaNodes, deltaSymRefs int) {
	if deltaNodes > 0 {
		c.InvalidateValueNumbers()
		if !caps.has(MaintainsUseDefs) {
			c.InvalidateUseDefs()
		}
	}
	if deltaSymRefs > 0 {
		c.InvalidateSymRefTable()
		c.InvalidateAliasSets()
	}
	if caps.has(CanAddSymRef) && deltaSymRefs == 0 {
		// A pass capable of adding symrefs that didn't this time still
		// leaves the snapshot valid; nothing to do.
		_ = caps
	}
}
