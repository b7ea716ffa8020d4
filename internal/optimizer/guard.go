package optimizer

import "github.com/omr-go/jitcore/internal/ir"

// Guard is a predicate consulted once per strategy entry (spec.md §4.1 step
// 2 / I-O5). The full enumeration mirrors spec.md §3's "Recognized guards".
type Guard int

const (
	Always Guard = iota
	IfLoops
	IfNoLoops
	IfMoreThanOneBlock
	IfOneBlock
	IfLoopsMarkLastRun
	IfProfiling
	IfNotProfiling
	IfNotJitProfiling
	IfNews
	IfOptServer
	IfMonitors
	IfEnabledAndMonitors
	IfEnabledAndOptServer
	IfNotClassLoadPhase
	IfNotClassLoadPhaseAndNotProfiling
	IfEnabled
	IfEnabledAndLoops
	IfEnabledAndMoreThanOneBlock
	IfEnabledAndMoreThanOneBlockMarkLastRun
	IfEnabledAndNoLoops
	IfEnabledAndProfiling
	IfEnabledAndNotProfiling
	IfEnabledAndNotJitProfiling
	IfEnabledMarkLastRun
	IfNoLoopsOREnabledAndLoops
	IfLoopsAndNotProfiling
	MustBeDoneGuard
	IfFullInliningUnderOSRDebug
	IfNotFullInliningUnderOSRDebug
	IfOSR
	IfVoluntaryOSR
	IfInvoluntaryOSR
	IfAOTAndEnabled
	IfMethodHandleInvokes
	IfNotQuickStart
	IfEAOpportunities
	IfEAOpportunitiesAndNotOptServer
	IfEAOpportunitiesMarkLastRun
	IfAggressiveLiveness
	IfVectorAPI
	MarkLastRunGuard
)

// OSRMode describes the outer driver's OSR disposition for this
// compilation; it is read-only context the guards below consult (it is not
// itself part of ir.Compilation since OSR is a driver-level concept layered
// on top of the IR/CFG contracts in §6).
type OSRMode int

const (
	OSRNone OSRMode = iota
	OSRVoluntary
	OSRInvoluntary
	OSRFullInliningUnderDebug
)

// guardContext bundles everything a guard predicate needs to consult: the
// optimization's own requested state, method/CFG shape, and compilation
// flags. Re-checking per block is signaled via onlyOnEnabledBlocks.
type guardContext struct {
	opt      *Optimization
	method   ir.MethodSymbol
	cfg      ir.CFG
	comp     ir.Compilation
	osr      OSRMode
}

// evaluate returns whether the guarded entry should run, and whether
// per-block re-checking ("only on enabled blocks") applies.
func (g Guard) evaluate(ctx guardContext) (shouldRun, onlyOnEnabledBlocks bool) {
	enabled := ctx.opt.Requested()
	loops := ctx.cfg != nil && ctx.cfg.MayHaveLoops()
	moreThanOneBlock := countBlocks(ctx.cfg) > 1

	switch g {
	case Always, MustBeDoneGuard, MarkLastRunGuard:
		return true, false
	case IfLoops, IfLoopsMarkLastRun:
		return loops, false
	case IfNoLoops:
		return !loops, false
	case IfMoreThanOneBlock:
		return moreThanOneBlock, false
	case IfOneBlock:
		return !moreThanOneBlock, false
	case IfProfiling:
		return ctx.comp.IsProfilingCompilation(), false
	case IfNotProfiling:
		return !ctx.comp.IsProfilingCompilation(), false
	case IfNotJitProfiling:
		return ctx.comp.IsNotJitProfiling(), false
	case IfNews:
		return ctx.method.HasNews(), false
	case IfOptServer:
		return ctx.comp.IsOptServer(), false
	case IfMonitors:
		return ctx.method.MayContainMonitors(), false
	case IfEnabledAndMonitors:
		return enabled && ctx.method.MayContainMonitors(), false
	case IfEnabledAndOptServer:
		return enabled && ctx.comp.IsOptServer(), false
	case IfNotClassLoadPhase:
		return !ctx.comp.IsClassLoadPhase(), false
	case IfNotClassLoadPhaseAndNotProfiling:
		return !ctx.comp.IsClassLoadPhase() && !ctx.comp.IsProfilingCompilation(), false
	case IfEnabled, IfEnabledMarkLastRun:
		return enabled, true
	case IfEnabledAndLoops:
		return enabled && loops, true
	case IfEnabledAndMoreThanOneBlock, IfEnabledAndMoreThanOneBlockMarkLastRun:
		return enabled && moreThanOneBlock, true
	case IfEnabledAndNoLoops:
		return enabled && !loops, true
	case IfEnabledAndProfiling:
		return enabled && ctx.comp.IsProfilingCompilation(), true
	case IfEnabledAndNotProfiling:
		return enabled && !ctx.comp.IsProfilingCompilation(), true
	case IfEnabledAndNotJitProfiling:
		return enabled && ctx.comp.IsNotJitProfiling(), true
	case IfNoLoopsOREnabledAndLoops:
		return !loops || (enabled && loops), false
	case IfLoopsAndNotProfiling:
		return loops && !ctx.comp.IsProfilingCompilation(), false
	case IfFullInliningUnderOSRDebug:
		return ctx.osr == OSRFullInliningUnderDebug, false
	case IfNotFullInliningUnderOSRDebug:
		return ctx.osr != OSRFullInliningUnderDebug, false
	case IfOSR:
		return ctx.osr != OSRNone, false
	case IfVoluntaryOSR:
		return ctx.osr == OSRVoluntary, false
	case IfInvoluntaryOSR:
		return ctx.osr == OSRInvoluntary, false
	case IfAOTAndEnabled:
		return ctx.comp.IsAOT() && enabled, false
	case IfMethodHandleInvokes:
		return ctx.method.HasMethodHandleInvokes(), false
	case IfNotQuickStart:
		return !ctx.comp.IsQuickStart(), false
	case IfEAOpportunities:
		return ctx.method.HasEscapeAnalysisOpportunities(), false
	case IfEAOpportunitiesAndNotOptServer:
		return ctx.method.HasEscapeAnalysisOpportunities() && !ctx.comp.IsOptServer(), false
	case IfEAOpportunitiesMarkLastRun:
		return ctx.method.HasEscapeAnalysisOpportunities(), false
	case IfAggressiveLiveness:
		return ctx.comp.IsAggressiveLiveness(), false
	case IfVectorAPI:
		return ctx.method.HasVectorAPI(), false
	default:
		return false, false
	}
}

// marksLastRun reports whether this guard alone implies MarkLastRun
// post-processing (some guards bundle the effect into their name rather
// than requiring the separate postFlag, per spec.md §3).
func (g Guard) marksLastRun() bool {
	switch g {
	case IfLoopsMarkLastRun, IfEnabledMarkLastRun, IfEnabledAndMoreThanOneBlockMarkLastRun,
		IfEAOpportunitiesMarkLastRun, MarkLastRunGuard:
		return true
	default:
		return false
	}
}

func (g Guard) mustBeDone() bool { return g == MustBeDoneGuard }

func countBlocks(cfg ir.CFG) int {
	if cfg == nil {
		return 0
	}
	n := 0
	for b := cfg.FirstBlock(); b != nil; b = cfg.NextBlock(b) {
		n++
	}
	return n
}
