package optimizer

import (
	"errors"
	"fmt"

	"github.com/omr-go/jitcore/internal/ir"
)

// ErrInvalidStrategy is returned by createOptimizer when a custom strategy
// cannot be decoded (spec.md §7 "Configuration: invalid custom strategy →
// refuse to construct").
var ErrInvalidStrategy = errors.New("optimizer: invalid custom strategy")

// Failure wraps an *ir.CompilationFailure recovered at the optimize()
// boundary, satisfying the standard error interface so callers can use
// errors.As to recover the original typed failure.
type Failure struct {
	*ir.CompilationFailure
}

func (f *Failure) Unwrap() error { return f.CompilationFailure }

func newFailure(kind ir.FailureKind, format string, args ...any) *Failure {
	return &Failure{&ir.CompilationFailure{Kind: kind, Message: fmt.Sprintf(format, args...)}}
}
