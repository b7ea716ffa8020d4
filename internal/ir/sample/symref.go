package sample

import "github.com/omr-go/jitcore/internal/ir"

type symRef struct{ index int }

func (s symRef) Index() int { return s.index }

// SymRefTable is a flat, append-only symbol reference table.
type SymRefTable struct {
	refs []symRef
}

func NewSymRefTable() *SymRefTable { return &SymRefTable{} }

func (t *SymRefTable) Len() int { return len(t.refs) }

func (t *SymRefTable) ForEach(fn func(ir.SymRef)) {
	for _, r := range t.refs {
		fn(r)
	}
}

// Create appends a fresh symref and returns its index.
func (t *SymRefTable) Create() int {
	idx := len(t.refs)
	t.refs = append(t.refs, symRef{index: idx})
	return idx
}

// AliasBuilder is a no-op alias-info builder sufficient to exercise the
// orchestrator's alias-set invalidation/rebuild bookkeeping.
type AliasBuilder struct {
	Built int
}

func (a *AliasBuilder) CreateAliasInfo() { a.Built++ }

var (
	_ ir.SymRefTable  = (*SymRefTable)(nil)
	_ ir.AliasBuilder = (*AliasBuilder)(nil)
)
