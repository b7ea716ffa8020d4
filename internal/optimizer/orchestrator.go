package optimizer

import (
	"fmt"
	"regexp"
	"sync"

	"github.com/omr-go/jitcore/internal/ir"
	"github.com/omr-go/jitcore/internal/obslog"
)

// Thresholds gates the complexity check of spec.md §4.1 step 10.
type Thresholds struct {
	MaxBlocksCold, MaxLoopsCold int
	MaxBlocksHot, MaxLoopsHot   int
	// MaxBlocksOptServer/MaxLoopsOptServer grant the higher opt-server limit
	// spec.md §4.1 step 10 calls out ("higher limits at hot tiers or for
	// opt-server configurations").
	MaxBlocksOptServer, MaxLoopsOptServer int
}

// DefaultThresholds mirrors typical JIT tiering limits; internal/config
// loads overrides from TOML.
var DefaultThresholds = Thresholds{
	MaxBlocksCold: 2000, MaxLoopsCold: 200,
	MaxBlocksHot: 8000, MaxLoopsHot: 800,
	MaxBlocksOptServer: 20000, MaxLoopsOptServer: 2000,
}

func (t Thresholds) limitsFor(comp ir.Compilation) (blocks, loops int) {
	if comp.IsOptServer() {
		return t.MaxBlocksOptServer, t.MaxLoopsOptServer
	}
	if comp.MethodHotness() >= ir.HotnessHot {
		return t.MaxBlocksHot, t.MaxLoopsHot
	}
	return t.MaxBlocksCold, t.MaxLoopsCold
}

// Catalog is the registry of known optimizations and groups a caller builds
// once and shares across compilations (the Optimization structs carry
// per-compilation mutable state themselves only in the sense that each
// createOptimizer call should be given its own Catalog.Clone() if reused
// concurrently, matching spec.md §5's "per compilation" note for mutable
// opt state).
type Catalog struct {
	opts map[OptID]*Optimization
}

func NewCatalog() *Catalog { return &Catalog{opts: map[OptID]*Optimization{}} }

func (c *Catalog) Register(o *Optimization) { c.opts[o.ID] = o }

func (c *Catalog) Clone() *Catalog {
	n := NewCatalog()
	for id, o := range c.opts {
		clone := *o
		clone.blockRequested = map[int]bool{}
		for k, v := range o.blockRequested {
			clone.blockRequested[k] = v
		}
		n.opts[id] = &clone
	}
	return n
}

// Optimizer drives one Strategy over one method's IR. It is single-threaded
// per compilation; distinct compilations may use distinct Optimizers
// concurrently (spec.md §5).
type Optimizer struct {
	comp     ir.Compilation
	method   ir.MethodSymbol
	cfg      ir.CFG
	strategy Strategy
	isIlGen  bool
	osr      OSRMode

	catalog     *Catalog
	groupState  map[OptID]*Optimization
	cache       *AnalysisCache
	thresholds  Thresholds
	complexityOverride bool

	globalIndex int
	firstIndex, lastIndex int

	enabledRegex, disabledRegex, breakOnRegex *regexp.Regexp

	log *obslog.Logger
}

// Option configures an Optimizer at construction time.
type Option func(*Optimizer)

func WithThresholds(t Thresholds) Option        { return func(o *Optimizer) { o.thresholds = t } }
func WithComplexityOverride(v bool) Option      { return func(o *Optimizer) { o.complexityOverride = v } }
func WithOSRMode(m OSRMode) Option              { return func(o *Optimizer) { o.osr = m } }
func WithIndexRange(first, last int) Option     { return func(o *Optimizer) { o.firstIndex, o.lastIndex = first, last } }
func WithEnabledRegex(re *regexp.Regexp) Option { return func(o *Optimizer) { o.enabledRegex = re } }
func WithDisabledRegex(re *regexp.Regexp) Option { return func(o *Optimizer) { o.disabledRegex = re } }
func WithBreakOnRegex(re *regexp.Regexp) Option { return func(o *Optimizer) { o.breakOnRegex = re } }
func WithLogger(l *obslog.Logger) Option        { return func(o *Optimizer) { o.log = l } }

// ilGenStrategy is the fixed strategy used when isIlGen=true; every entry
// must name a pass declaring SupportsIlGenLevel (spec.md §4.1
// createOptimizer).
var ilGenStrategy = Strategy{
	Run(0, Always, PostFlagNone),
}

// CreateOptimizer implements spec.md §4.1's createOptimizer. strategy is
// nil to request the IL-gen strategy (only valid with isIlGen=true), or the
// caller-supplied strategy otherwise.
func CreateOptimizer(comp ir.Compilation, method ir.MethodSymbol, catalog *Catalog, isIlGen bool, strategy Strategy, opts ...Option) (*Optimizer, error) {
	o := &Optimizer{
		comp:       comp,
		method:     method,
		cfg:        method.FlowGraph(),
		catalog:    catalog,
		groupState: map[OptID]*Optimization{},
		cache:      NewAnalysisCache(),
		thresholds: DefaultThresholds,
		isIlGen:    isIlGen,
		lastIndex:  1<<31 - 1,
		log:        obslog.Nop(),
	}
	for _, opt := range opts {
		opt(o)
	}

	if isIlGen {
		for _, e := range ilGenStrategy {
			if e.IsGroup() {
				continue
			}
			target, ok := catalog.opts[e.OptID]
			if !ok || !target.Capabilities.has(SupportsIlGenLevel) {
				return nil, fmt.Errorf("%w: IL-gen strategy references optimization %d lacking SupportsIlGenLevel", ErrInvalidStrategy, e.OptID)
			}
		}
		o.strategy = ilGenStrategy
	} else if strategy != nil {
		o.strategy = strategy
	} else {
		return nil, fmt.Errorf("%w: no strategy supplied and isIlGen=false", ErrInvalidStrategy)
	}
	return o, nil
}

var (
	currentOptimizerMu sync.Mutex
	currentOptimizer   = map[ir.Compilation]*Optimizer{}
)

// Optimize implements spec.md §4.1's optimize(): runs the strategy end to
// end, making this Optimizer the current one on the compilation and
// restoring the previous on return (P1: optimizers nest).
func (o *Optimizer) Optimize() (err error) {
	currentOptimizerMu.Lock()
	previous := currentOptimizer[o.comp]
	currentOptimizer[o.comp] = o
	currentOptimizerMu.Unlock()
	defer func() {
		currentOptimizerMu.Lock()
		currentOptimizer[o.comp] = previous
		currentOptimizerMu.Unlock()
	}()

	defer func() {
		if r := recover(); r != nil {
			if cf, ok := r.(*ir.CompilationFailure); ok {
				err = &Failure{cf}
				return
			}
			panic(r)
		}
	}()

	_, err = o.runStrategy(o.strategy)
	return err
}

// CurrentOptimizer returns the innermost Optimizer currently running on
// comp, or nil.
func CurrentOptimizer(comp ir.Compilation) *Optimizer {
	currentOptimizerMu.Lock()
	defer currentOptimizerMu.Unlock()
	return currentOptimizer[comp]
}

func (o *Optimizer) runStrategy(s Strategy) (cost int, err error) {
	for _, e := range s {
		c, err := o.performOptimization(e)
		cost += c
		if err != nil {
			return cost, err
		}
	}
	return cost, nil
}

// lookupOrCreateGroupState returns the Optimization-shaped bookkeeping
// record used to evaluate a group entry's own guard (spec.md §4.1 step 2
// applies uniformly to groups and primitives).
func (o *Optimizer) lookupOrCreateGroupState(id OptID) *Optimization {
	if g, ok := o.groupState[id]; ok {
		return g
	}
	g := NewOptimization(id, fmt.Sprintf("group#%d", id), nil, 0)
	o.groupState[id] = g
	return g
}

func (o *Optimizer) guardContext(opt *Optimization) guardContext {
	return guardContext{opt: opt, method: o.method, cfg: o.cfg, comp: o.comp, osr: o.osr}
}

// anyPendingBlocksAmong reports whether any primitive optimization entry
// within sub still has a non-empty per-block requested set, used by the
// eachLocalAnalysisPass re-entry rule (spec.md §4.1 step 4).
func (o *Optimizer) anyPendingBlocksAmong(sub Strategy) bool {
	for _, e := range sub {
		if e.IsGroup() {
			if o.anyPendingBlocksAmong(e.Sub) {
				return true
			}
			continue
		}
		if opt, ok := o.catalog.opts[e.OptID]; ok && opt.HasPendingBlocks() {
			return true
		}
	}
	return false
}

// performOptimization implements spec.md §4.1's 15-step algorithm.
func (o *Optimizer) performOptimization(entry Entry) (cost int, err error) {
	o.globalIndex++
	idx := o.globalIndex

	if entry.IsGroup() {
		return o.performGroup(entry, idx)
	}

	opt, ok := o.catalog.opts[entry.OptID]
	if !ok {
		return 0, fmt.Errorf("optimizer: unknown optimization id %d", entry.OptID)
	}

	// I-O1: a pass whose last-run flag is already set never runs again.
	if opt.LastRun() {
		return 0, nil
	}

	gctx := o.guardContext(opt)
	shouldRun, onlyOnEnabledBlocks := entry.Guard.evaluate(gctx)
	mustBeDone := entry.Guard.mustBeDone() || entry.PostFlag&PostFlagMustBeDone != 0
	markLastRun := entry.Guard.marksLastRun() || entry.PostFlag&PostFlagMarkLastRun != 0

	if !shouldRun {
		if opt.HasPendingBlocks() {
			return 0, fmt.Errorf("optimizer: assertion failed: %s disabled with %d blocks still requested", opt.Name, opt.PendingBlockCount())
		}
		return 0, nil
	}

	if (idx < o.firstIndex || idx > o.lastIndex) && !mustBeDone {
		return 0, nil
	}

	if o.disabledRegex != nil && o.disabledRegex.MatchString(opt.Name) {
		return 0, nil
	}
	if o.enabledRegex != nil && !o.enabledRegex.MatchString(opt.Name) {
		return 0, nil
	}

	pm := &passManager{o: o, opt: opt}
	pass := opt.Factory(pm)

	if !pass.ShouldPerform() {
		return 0, nil
	}

	o.materializeAnalyses(opt.Capabilities)

	if !o.cfg.HasFrequencies() && !opt.Capabilities.has(DoNotSetFrequencies) {
		o.cfg.SetFrequencies()
	}

	if opt.Capabilities.has(RequiresStructure) {
		blockLimit, loopLimit := o.thresholds.limitsFor(o.comp)
		if (blockLimit > 0 && o.cache.BlockCount() > blockLimit) || (loopLimit > 0 && o.cache.LoopCount() > loopLimit) {
			if !o.complexityOverride {
				o.comp.ReportOptimizationPhase(opt.Name + ":excessive-complexity")
				return 0, newFailure(ir.FailureExcessiveComplexity, "%s: blocks=%d loops=%d exceeds limits %d/%d", opt.Name, o.cache.BlockCount(), o.cache.LoopCount(), blockLimit, loopLimit)
			}
		}
	}

	o.comp.ReportOptimizationPhase(opt.Name)
	o.log.Info("performing optimization", "name", opt.Name, "index", idx, "trace", opt.Trace())

	nodesBefore, symRefsBefore := o.cfg.NodeCount(), o.cfg.SymRefCount()

	if onlyOnEnabledBlocks {
		if err := pass.PrePerformOnBlocks(); err != nil {
			return 0, err
		}
		if opt.PendingBlockCount() == 0 {
			for b := o.cfg.FirstBlock(); b != nil; b = o.cfg.NextBlock(b) {
				opt.RequestBlock(b)
			}
		}
		for _, b := range o.requestedLiveHeaders(opt) {
			opt.ClearBlock(b)
			if err := pass.PerformOnBlock(b); err != nil {
				return 0, err
			}
		}
		if err := pass.PostPerformOnBlocks(); err != nil {
			return 0, err
		}
	} else {
		if err := pass.PrePerform(); err != nil {
			return 0, err
		}
		if err := pass.Perform(); err != nil {
			return 0, err
		}
		if err := pass.PostPerform(); err != nil {
			return 0, err
		}
	}

	if markLastRun {
		opt.SetLastRun()
	}

	deltaNodes := o.cfg.NodeCount() - nodesBefore
	deltaSymRefs := o.cfg.SymRefCount() - symRefsBefore
	o.cache.reconcileAfterPass(opt.Capabilities, deltaNodes, deltaSymRefs)

	const visitCountHighWaterMark = 1 << 20
	if o.cfg.VisitCount() > visitCountHighWaterMark {
		o.cfg.ResetVisitCounts()
	}

	if o.cfg.MightHaveUnreachableBlocks() {
		o.cfg.RemoveUnreachableBlocks()
	}

	if o.comp.ShouldBeInterrupted() {
		return 1, newFailure(ir.FailureCompilationInterrupted, "%s: cancellation requested", opt.Name)
	}

	cost = 1
	if deltaNodes < 0 {
		deltaNodes = -deltaNodes
	}
	cost += deltaNodes
	return cost, nil
}

// requestedLiveHeaders snapshots the currently-requested, live,
// extended-block-header blocks before iterating, so that a pass calling
// RequestBlockReentry during PerformOnBlock affects only the *next* group
// iteration, not this one.
func (o *Optimizer) requestedLiveHeaders(opt *Optimization) []ir.Block {
	var out []ir.Block
	for b := o.cfg.FirstBlock(); b != nil; b = o.cfg.NextBlock(b) {
		if opt.BlockRequested(b) && b.IsLive() && b.IsExtendedBlockHeader() {
			out = append(out, b)
		}
	}
	return out
}

func (o *Optimizer) performGroup(entry Entry, idx int) (cost int, err error) {
	group := o.lookupOrCreateGroupState(entry.OptID)
	gctx := o.guardContext(group)
	shouldRun, _ := entry.Guard.evaluate(gctx)
	mustBeDone := entry.Guard.mustBeDone() || entry.PostFlag&PostFlagMustBeDone != 0
	if !shouldRun {
		return 0, nil
	}
	if (idx < o.firstIndex || idx > o.lastIndex) && !mustBeDone {
		return 0, nil
	}

	if entry.OptID != EachLocalAnalysisPassGroupID {
		return o.runStrategy(entry.Sub)
	}

	var total int
	for iteration := 1; ; iteration++ {
		c, err := o.runStrategy(entry.Sub)
		total += c
		if err != nil {
			return total, err
		}
		if !o.anyPendingBlocksAmong(entry.Sub) {
			break
		}
		if iteration >= maxLocalAnalysisIterations {
			break
		}
	}
	return total, nil
}

// materializeAnalyses implements spec.md §4.1's "Analysis materialization"
// rules (step 8).
func (o *Optimizer) materializeAnalyses(caps Capability) {
	if !caps.has(DoesNotRequireAliasSets) && !o.cache.AliasSetsValid() {
		o.cache.RebuildAliasSets(o.comp)
	}

	requiresStructure := caps.has(RequiresStructure)
	if requiresStructure && o.cache.Structure() == nil {
		_, loopLimit := o.thresholds.limitsFor(o.comp)
		o.cache.RebuildStructure(o.cfg, func() ir.Structure {
			if b, ok := o.cfg.(interface{ BuildStructure() ir.Structure }); ok {
				return b.BuildStructure()
			}
			return o.cfg.Structure()
		}, loopLimit)
	}

	requiresGlobalUD := caps.has(RequiresUseDefsGlobal)
	requiresLocalUD := caps.has(RequiresUseDefsLocal)
	prefersGlobalUD := caps.has(PrefersGlobalUseDefs)
	loadsAsDefs := caps.has(LoadsAsDefsInUseDefs)
	if requiresGlobalUD || requiresLocalUD {
		ud := o.cache.UseDefs()
		stale := ud == nil ||
			(requiresGlobalUD && !ud.HasGlobalDefs) ||
			(loadsAsDefs && !ud.HasLoadsAsDefs) ||
			(prefersGlobalUD && !ud.HasGlobalDefs)
		if stale {
			o.cache.RebuildUseDefs(requiresGlobalUD || prefersGlobalUD, loadsAsDefs)
		}
	}

	requiresGlobalVN := caps.has(RequiresValueNumberingGlobal)
	requiresLocalVN := caps.has(RequiresValueNumberingLocal)
	prefersGlobalVN := caps.has(PrefersGlobalValueNumbering)
	if requiresGlobalVN || requiresLocalVN {
		vn := o.cache.ValueNumbers()
		stale := vn == nil ||
			(requiresGlobalVN && !vn.HasGlobals) ||
			(prefersGlobalVN && !vn.HasGlobals)
		if stale {
			o.cache.RebuildValueNumbers(requiresGlobalVN || prefersGlobalVN, false)
		}
	}
}

// passManager is the ir.PassManager implementation handed to each
// instantiated Pass.
type passManager struct {
	o   *Optimizer
	opt *Optimization
}

func (p *passManager) Compilation() ir.Compilation { return p.o.comp }
func (p *passManager) Method() ir.MethodSymbol     { return p.o.method }
func (p *passManager) Trace(format string, args ...any) {
	if p.opt.Trace() {
		p.o.log.Info("trace:"+p.opt.Name, "msg", fmt.Sprintf(format, args...))
	}
}
func (p *passManager) RequestBlockReentry(b ir.Block) { p.opt.RequestBlock(b) }

var _ ir.PassManager = (*passManager)(nil)
