package sample

import "github.com/omr-go/jitcore/internal/ir"

// The passes in this file are test/demo fixtures for internal/optimizer's
// orchestrator tests and the cmd/omrjit CLI demo. They are intentionally
// trivial stand-ins for the real optimization catalog (inliner, value
// propagation, register allocator, ...), which spec.md §1 places out of
// scope.

// TreeSimplification folds `add(const, const)` into a single const node,
// mirroring spec.md's E1 scenario.
type TreeSimplification struct {
	mgr     ir.PassManager
	Folded  int
}

func NewTreeSimplification(mgr ir.PassManager) ir.Pass { return &TreeSimplification{mgr: mgr} }

func (p *TreeSimplification) ShouldPerform() bool      { return true }
func (p *TreeSimplification) PrePerform() error        { return nil }
func (p *TreeSimplification) PostPerform() error       { return nil }
func (p *TreeSimplification) PrePerformOnBlocks() error  { return nil }
func (p *TreeSimplification) PostPerformOnBlocks() error { return nil }
func (p *TreeSimplification) PerformOnBlock(ir.Block) error { return nil }

func (p *TreeSimplification) Perform() error {
	cfg := p.mgr.Method().FlowGraph().(*CFG)
	for _, b := range cfg.blocks {
		if !b.live {
			continue
		}
		b.Nodes = foldBlock(b.Nodes)
	}
	return nil
}

// foldBlock replaces any add(const, const) node with a single const node and
// drops its (now-dead) children, returning the compacted node slice. Node
// count strictly decreases whenever a fold fires, matching spec.md's E1
// expectation. This demo fixture does not renumber remaining Children
// indices after compaction; it is exercised only by single-fold test blocks.
func foldBlock(nodes []*Node) []*Node {
	removed := make(map[int]bool, len(nodes))
	for _, n := range nodes {
		if n.Op != OpAdd || len(n.Children) != 2 {
			continue
		}
		lhs, rhs := nodes[n.Children[0]], nodes[n.Children[1]]
		if lhs.Op != OpConst || rhs.Op != OpConst {
			continue
		}
		n.Op = OpConst
		n.Value = lhs.Value + rhs.Value
		removed[n.Children[0]] = true
		removed[n.Children[1]] = true
		n.Children = nil
	}
	out := make([]*Node, 0, len(nodes))
	for i, n := range nodes {
		if !removed[i] {
			out = append(out, n)
		}
	}
	return out
}

// LoopGuardDemo is a no-op pass used only to prove that a guard can suppress
// instantiation entirely (spec.md's E2 scenario): the orchestrator must
// never call NewLoopGuardDemo when its guard (IfLoops) evaluates false.
type LoopGuardDemo struct{ mgr ir.PassManager }

func NewLoopGuardDemo(mgr ir.PassManager) ir.Pass { return &LoopGuardDemo{mgr: mgr} }

func (p *LoopGuardDemo) ShouldPerform() bool        { return true }
func (p *LoopGuardDemo) PrePerform() error          { return nil }
func (p *LoopGuardDemo) Perform() error             { return nil }
func (p *LoopGuardDemo) PostPerform() error         { return nil }
func (p *LoopGuardDemo) PrePerformOnBlocks() error  { return nil }
func (p *LoopGuardDemo) PostPerformOnBlocks() error { return nil }
func (p *LoopGuardDemo) PerformOnBlock(ir.Block) error { return nil }

// LocalAnalysisDemo requests its own blocks again for a fixed number of
// rounds, to exercise the eachLocalAnalysisPass 5-iteration cap (spec.md's
// E3 scenario).
type LocalAnalysisDemo struct {
	mgr          ir.PassManager
	Rounds       int
	RoundsToKeep int // request re-entry while Rounds < RoundsToKeep
}

func NewLocalAnalysisDemo(roundsToKeep int) ir.Factory {
	return func(mgr ir.PassManager) ir.Pass {
		return &LocalAnalysisDemo{mgr: mgr, RoundsToKeep: roundsToKeep}
	}
}

func (p *LocalAnalysisDemo) ShouldPerform() bool { return true }
func (p *LocalAnalysisDemo) PrePerform() error   { return nil }
func (p *LocalAnalysisDemo) Perform() error      { return nil }
func (p *LocalAnalysisDemo) PostPerform() error  { return nil }
func (p *LocalAnalysisDemo) PrePerformOnBlocks() error  { return nil }
func (p *LocalAnalysisDemo) PostPerformOnBlocks() error { return nil }

func (p *LocalAnalysisDemo) PerformOnBlock(b ir.Block) error {
	p.Rounds++
	if p.Rounds < p.RoundsToKeep {
		p.mgr.RequestBlockReentry(b)
	}
	return nil
}
