package sample

import "github.com/omr-go/jitcore/internal/ir"

// structure is a trivial region decomposition: it only records the counts
// the orchestrator's complexity gate needs (spec.md's structure tree is
// otherwise opaque to the orchestrator).
type structure struct {
	loopCount, blockCount int
}

func (s *structure) LoopCount() int  { return s.loopCount }
func (s *structure) BlockCount() int { return s.blockCount }

// CFG is a flat, ordered list of blocks with successor edges.
type CFG struct {
	blocks          []*Block
	frequenciesSet  bool
	structureTree   ir.Structure
	nodeCountCache  int
	symRefs         *SymRefTable
	visitCount      int
	mightBeUnreach  bool
}

func NewCFG(symRefs *SymRefTable) *CFG {
	return &CFG{symRefs: symRefs}
}

// AddBlock appends a new live block and returns it. The first block added is
// the entry block; every block added is marked an extended-block header.
func (c *CFG) AddBlock() *Block {
	b := &Block{id: len(c.blocks), live: true, extended: true}
	c.blocks = append(c.blocks, b)
	return b
}

func (c *CFG) FirstBlock() ir.Block {
	for _, b := range c.blocks {
		if b.live {
			return b
		}
	}
	return nil
}

func (c *CFG) NextBlock(cur ir.Block) ir.Block {
	b := cur.(*Block)
	for i := b.id + 1; i < len(c.blocks); i++ {
		if c.blocks[i].live {
			return c.blocks[i]
		}
	}
	return nil
}

func (c *CFG) MayHaveLoops() bool {
	for _, b := range c.blocks {
		if b.loop {
			return true
		}
	}
	return false
}

func (c *CFG) RemoveUnreachableBlocks() int {
	reachable := make(map[int]bool)
	var walk func(b *Block)
	walk = func(b *Block) {
		if reachable[b.id] {
			return
		}
		reachable[b.id] = true
		for _, s := range b.succ {
			walk(s)
		}
	}
	if first := c.FirstBlock(); first != nil {
		walk(first.(*Block))
	}
	removed := 0
	for _, b := range c.blocks {
		if b.live && !reachable[b.id] {
			b.live = false
			removed++
		}
	}
	c.mightBeUnreach = false
	return removed
}

func (c *CFG) MightHaveUnreachableBlocks() bool { return c.mightBeUnreach }

// MarkMightHaveUnreachableBlocks lets a pass declare that a branch it folded
// may have disconnected a successor. None of the sample passes call it.
func (c *CFG) MarkMightHaveUnreachableBlocks() { c.mightBeUnreach = true }

func (c *CFG) SetFrequencies()     { c.frequenciesSet = true }
func (c *CFG) HasFrequencies() bool { return c.frequenciesSet }

func (c *CFG) Structure() ir.Structure { return c.structureTree }
func (c *CFG) SetStructure(s ir.Structure) { c.structureTree = s }

// BuildStructure is the region-discovery algorithm the orchestrator invokes
// on demand (step 8). For this reference IR it is a direct count rather than
// a real interval/loop decomposition.
func (c *CFG) BuildStructure() ir.Structure {
	loops := 0
	for _, b := range c.blocks {
		if b.live && b.loop {
			loops++
		}
	}
	live := 0
	for _, b := range c.blocks {
		if b.live {
			live++
		}
	}
	s := &structure{loopCount: loops, blockCount: live}
	c.SetStructure(s)
	return s
}

func (c *CFG) NodeCount() int {
	n := 0
	for _, b := range c.blocks {
		if b.live {
			n += len(b.Nodes)
		}
	}
	return n
}

func (c *CFG) SymRefCount() int { return c.symRefs.Len() }

func (c *CFG) VisitCount() int        { return c.visitCount }
func (c *CFG) IncrementVisitCount()   { c.visitCount++ }
func (c *CFG) ResetVisitCounts()      { c.visitCount = 0 }

var _ ir.CFG = (*CFG)(nil)
