package optimizer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/omr-go/jitcore/internal/ir/sample"
)

func TestGuardIfLoopsReadsCFGShape(t *testing.T) {
	symRefs := sample.NewSymRefTable()
	comp := sample.NewCompilation(symRefs)
	cfg := sample.NewCFG(symRefs)
	cfg.AddBlock()

	opt := NewOptimization(1, "x", nil, 0)
	ctx := guardContext{opt: opt, cfg: cfg, comp: comp}

	should, onBlocks := IfLoops.evaluate(ctx)
	require.False(t, should)
	require.False(t, onBlocks)
}

func TestGuardIfEnabledRequiresPriorRequest(t *testing.T) {
	opt := NewOptimization(1, "x", nil, 0)
	ctx := guardContext{opt: opt}

	should, onBlocks := IfEnabled.evaluate(ctx)
	require.False(t, should)
	require.True(t, onBlocks)

	opt.SetRequested(true)
	should, _ = IfEnabled.evaluate(ctx)
	require.True(t, should)
}

func TestGuardAlwaysNeverGatesOnBlocks(t *testing.T) {
	should, onBlocks := Always.evaluate(guardContext{opt: NewOptimization(1, "x", nil, 0)})
	require.True(t, should)
	require.False(t, onBlocks)
}

func TestGuardMarksLastRun(t *testing.T) {
	require.True(t, IfLoopsMarkLastRun.marksLastRun())
	require.True(t, IfEnabledMarkLastRun.marksLastRun())
	require.False(t, Always.marksLastRun())
}

func TestGuardMustBeDoneOnlyForMustBeDoneGuard(t *testing.T) {
	require.True(t, MustBeDoneGuard.mustBeDone())
	require.False(t, Always.mustBeDone())
}
