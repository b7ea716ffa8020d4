package optimizer_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/omr-go/jitcore/internal/ir"
	"github.com/omr-go/jitcore/internal/ir/sample"
	"github.com/omr-go/jitcore/internal/optimizer"
)

func newFoldableCompilation(t *testing.T) (*sample.Compilation, *sample.Method, *sample.CFG) {
	t.Helper()
	symRefs := sample.NewSymRefTable()
	comp := sample.NewCompilation(symRefs)
	cfg := sample.NewCFG(symRefs)
	b := cfg.AddBlock()

	lhs := &sample.Node{Op: sample.OpConst, Value: 2}
	rhs := &sample.Node{Op: sample.OpConst, Value: 3}
	b.AddNode(lhs)
	b.AddNode(rhs)
	b.AddNode(&sample.Node{Op: sample.OpAdd, Children: []int{0, 1}})

	method := sample.NewMethod(cfg)
	return comp, method, cfg
}

// TestTreeSimplificationFoldsConstants matches spec.md's E1 scenario: an
// Always-guarded pass runs and strictly shrinks the node count.
func TestTreeSimplificationFoldsConstants(t *testing.T) {
	comp, method, cfg := newFoldableCompilation(t)

	catalog := optimizer.NewCatalog()
	catalog.Register(optimizer.NewOptimization(1, "treeSimplification", sample.NewTreeSimplification, 0))

	strategy := optimizer.Strategy{optimizer.Run(1, optimizer.Always, optimizer.PostFlagNone)}
	opt, err := optimizer.CreateOptimizer(comp, method, catalog, false, strategy)
	require.NoError(t, err)

	before := cfg.NodeCount()
	require.NoError(t, opt.Optimize())
	after := cfg.NodeCount()

	require.Less(t, after, before)
	require.Contains(t, comp.Phases, "opt:treeSimplification")
}

// TestLoopGuardSuppressesInstantiation matches spec.md's E2 scenario: a
// false guard must prevent the pass factory from ever being invoked.
func TestLoopGuardSuppressesInstantiation(t *testing.T) {
	comp, method, _ := newFoldableCompilation(t) // no loops in this CFG

	invoked := false
	factory := func(mgr ir.PassManager) ir.Pass {
		invoked = true
		return sample.NewLoopGuardDemo(mgr)
	}
	catalog := optimizer.NewCatalog()
	catalog.Register(optimizer.NewOptimization(1, "loopGuardDemo", factory, 0))

	strategy := optimizer.Strategy{optimizer.Run(1, optimizer.IfLoops, optimizer.PostFlagNone)}
	opt, err := optimizer.CreateOptimizer(comp, method, catalog, false, strategy)
	require.NoError(t, err)
	require.NoError(t, opt.Optimize())
	require.False(t, invoked, "guard evaluating false must suppress pass instantiation entirely")
}

// TestEachLocalAnalysisPassCapsAtFiveIterations matches spec.md's E3
// scenario: a pass that keeps requesting re-entry never runs a sixth time.
func TestEachLocalAnalysisPassCapsAtFiveIterations(t *testing.T) {
	comp, method, _ := newFoldableCompilation(t)

	invocations := 0
	inner := sample.NewLocalAnalysisDemo(100) // always wants more rounds
	factory := func(mgr ir.PassManager) ir.Pass {
		invocations++
		return inner(mgr)
	}
	opt := optimizer.NewOptimization(1, "localAnalysisDemo", factory, 0)
	opt.SetRequested(true) // IfEnabled requires this to run at all

	catalog := optimizer.NewCatalog()
	catalog.Register(opt)

	sub := optimizer.Strategy{optimizer.Run(1, optimizer.IfEnabled, optimizer.PostFlagNone)}
	strategy := optimizer.Strategy{
		optimizer.Group(optimizer.EachLocalAnalysisPassGroupID, optimizer.Always, optimizer.PostFlagNone, sub),
	}
	o, err := optimizer.CreateOptimizer(comp, method, catalog, false, strategy)
	require.NoError(t, err)
	require.NoError(t, o.Optimize())
	require.Equal(t, 5, invocations, "eachLocalAnalysisPass must cap at the 5-iteration limit")
}

func TestCreateOptimizerRejectsMissingStrategy(t *testing.T) {
	comp, method, _ := newFoldableCompilation(t)
	catalog := optimizer.NewCatalog()

	_, err := optimizer.CreateOptimizer(comp, method, catalog, false, nil)
	require.ErrorIs(t, err, optimizer.ErrInvalidStrategy)
}

func TestCreateOptimizerRejectsIlGenStrategyMissingCapability(t *testing.T) {
	comp, method, _ := newFoldableCompilation(t)
	catalog := optimizer.NewCatalog()
	catalog.Register(optimizer.NewOptimization(0, "ilgenPass", sample.NewTreeSimplification, 0)) // lacks SupportsIlGenLevel

	_, err := optimizer.CreateOptimizer(comp, method, catalog, true, nil)
	require.ErrorIs(t, err, optimizer.ErrInvalidStrategy)
}

func TestCurrentOptimizerTracksNesting(t *testing.T) {
	comp, method, _ := newFoldableCompilation(t)
	catalog := optimizer.NewCatalog()
	catalog.Register(optimizer.NewOptimization(1, "treeSimplification", sample.NewTreeSimplification, 0))
	strategy := optimizer.Strategy{optimizer.Run(1, optimizer.Always, optimizer.PostFlagNone)}

	require.Nil(t, optimizer.CurrentOptimizer(comp))
	opt, err := optimizer.CreateOptimizer(comp, method, catalog, false, strategy)
	require.NoError(t, err)
	require.NoError(t, opt.Optimize())
	require.Nil(t, optimizer.CurrentOptimizer(comp))
}
