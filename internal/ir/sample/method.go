package sample

import "github.com/omr-go/jitcore/internal/ir"

type treeTop struct {
	block *Block
	next  *treeTop
}

func (t *treeTop) Next() ir.TreeTop {
	if t.next == nil {
		return nil
	}
	return t.next
}

// Method is a minimal ir.MethodSymbol backed by a CFG.
type Method struct {
	CFG                   *CFG
	firstTop              *treeTop
	escapeOpportunities   bool
	methodHandleInvokes   bool
	vectorAPI             bool
	monitors              bool
	news                  bool
}

func NewMethod(cfg *CFG) *Method {
	m := &Method{CFG: cfg}
	var prev *treeTop
	for _, b := range cfg.blocks {
		tt := &treeTop{block: b}
		if prev == nil {
			m.firstTop = tt
		} else {
			prev.next = tt
		}
		prev = tt
	}
	return m
}

func (m *Method) FirstTreeTop() ir.TreeTop {
	if m.firstTop == nil {
		return nil
	}
	return m.firstTop
}
func (m *Method) FlowGraph() ir.CFG                     { return m.CFG }
func (m *Method) HasEscapeAnalysisOpportunities() bool { return m.escapeOpportunities }
func (m *Method) HasMethodHandleInvokes() bool         { return m.methodHandleInvokes }
func (m *Method) HasVectorAPI() bool                   { return m.vectorAPI }
func (m *Method) MayContainMonitors() bool              { return m.monitors }
func (m *Method) HasNews() bool                         { return m.news }

// SetShape lets tests/CLI demo toggle the program-shape predicates the
// guards in internal/optimizer consult.
func (m *Method) SetShape(escape, mhInvokes, vectorAPI, monitors, news bool) {
	m.escapeOpportunities = escape
	m.methodHandleInvokes = mhInvokes
	m.vectorAPI = vectorAPI
	m.monitors = monitors
	m.news = news
}

var _ ir.MethodSymbol = (*Method)(nil)
