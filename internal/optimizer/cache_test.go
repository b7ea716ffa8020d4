package optimizer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/omr-go/jitcore/internal/ir"
	"github.com/omr-go/jitcore/internal/ir/sample"
)

type fakeStructure struct{ loops, blocks int }

func (s fakeStructure) LoopCount() int  { return s.loops }
func (s fakeStructure) BlockCount() int { return s.blocks }

func TestRebuildStructureSetsNearLoopThresholdOnce(t *testing.T) {
	c := NewAnalysisCache()
	cfg := sample.NewCFG(sample.NewSymRefTable())
	s := fakeStructure{loops: 180, blocks: 10}

	c.RebuildStructure(cfg, func() ir.Structure { return s }, 200) // limit 200, within the 25-margin of 180

	require.True(t, c.NearLoopThreshold())
	require.Equal(t, 180, c.LoopCount())

	// A second rebuild with a structure further from the limit must not
	// clear the once-set flag (it is latched for the compilation's life).
	c.RebuildStructure(cfg, func() ir.Structure { return fakeStructure{loops: 1, blocks: 1} }, 200)
	require.True(t, c.NearLoopThreshold())
}

func TestReconcileAfterPassInvalidatesOnNodeDelta(t *testing.T) {
	c := NewAnalysisCache()
	c.RebuildUseDefs(true, false)
	c.valueNums = &ValueNumberInfo{HasGlobals: true}

	c.reconcileAfterPass(0, 3, 0)

	require.Nil(t, c.ValueNumbers(), "node growth must invalidate value numbers")
	require.Nil(t, c.UseDefs(), "node growth must invalidate use-defs absent MaintainsUseDefs")
}

func TestReconcileAfterPassPreservesUseDefsWhenMaintained(t *testing.T) {
	c := NewAnalysisCache()
	c.RebuildUseDefs(true, false)

	c.reconcileAfterPass(MaintainsUseDefs, 2, 0)

	require.NotNil(t, c.UseDefs(), "MaintainsUseDefs capability must preserve use-defs across node growth")
}

func TestReconcileAfterPassInvalidatesAliasSetsOnSymRefDelta(t *testing.T) {
	c := NewAnalysisCache()
	c.aliasSetsValid = true

	c.reconcileAfterPass(0, 0, 1)

	require.False(t, c.AliasSetsValid())
}
