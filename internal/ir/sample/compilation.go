package sample

import "github.com/omr-go/jitcore/internal/ir"

// Compilation is a minimal ir.Compilation. Every predicate defaults to the
// "cold compile, no profiling, single method" shape; tests and the CLI demo
// flip individual fields to exercise specific guards.
type Compilation struct {
	Outermost       bool
	Options         map[string]bool
	Profiling       bool
	NotJitProfiling bool
	OptServer       bool
	ClassLoadPhase  bool
	Hotness         ir.Hotness
	AOT             bool
	QuickStart      bool
	AggressiveLive  bool
	Interrupted     bool

	aliasBuilder *AliasBuilder
	symRefs      *SymRefTable

	Phases []string // recorded analysis/optimization phase names, for tests
}

func NewCompilation(symRefs *SymRefTable) *Compilation {
	return &Compilation{
		Outermost:    true,
		Options:      map[string]bool{},
		aliasBuilder: &AliasBuilder{},
		symRefs:      symRefs,
	}
}

func (c *Compilation) IsOutermostMethod() bool        { return c.Outermost }
func (c *Compilation) GetOption(name string) bool     { return c.Options[name] }
func (c *Compilation) IsProfilingCompilation() bool   { return c.Profiling }
func (c *Compilation) IsNotJitProfiling() bool        { return c.NotJitProfiling }
func (c *Compilation) IsOptServer() bool              { return c.OptServer }
func (c *Compilation) IsClassLoadPhase() bool         { return c.ClassLoadPhase }
func (c *Compilation) MethodHotness() ir.Hotness      { return c.Hotness }
func (c *Compilation) IsAOT() bool                    { return c.AOT }
func (c *Compilation) IsQuickStart() bool             { return c.QuickStart }
func (c *Compilation) IsAggressiveLiveness() bool     { return c.AggressiveLive }

func (c *Compilation) ReportAnalysisPhase(name string)      { c.Phases = append(c.Phases, "analysis:"+name) }
func (c *Compilation) ReportOptimizationPhase(name string)  { c.Phases = append(c.Phases, "opt:"+name) }

func (c *Compilation) ShouldBeInterrupted() bool { return c.Interrupted }

func (c *Compilation) FailCompilation(kind ir.FailureKind, msg string) {
	panic(&ir.CompilationFailure{Kind: kind, Message: msg})
}

func (c *Compilation) AliasBuilder() ir.AliasBuilder { return c.aliasBuilder }
func (c *Compilation) SymRefTable() ir.SymRefTable   { return c.symRefs }

var _ ir.Compilation = (*Compilation)(nil)
