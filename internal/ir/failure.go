package ir

import "fmt"

// CompilationFailure is the typed, fatal-to-the-compilation error that
// Compilation.FailCompilation raises. It is the idiomatic Go analogue of the
// source's typed C++ exceptions: FailCompilation panics with a
// *CompilationFailure, and the orchestrator's optimize() is the only place
// that recovers it, re-surfacing it as a normal Go error to its caller.
type CompilationFailure struct {
	Kind    FailureKind
	Message string
}

func (f *CompilationFailure) Error() string {
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

func (k FailureKind) String() string {
	switch k {
	case FailureExcessiveComplexity:
		return "ExcessiveComplexity"
	case FailureInsufficientlyAggressive:
		return "InsufficientlyAggressiveCompilation"
	case FailureCompilationInterrupted:
		return "CompilationInterrupted"
	default:
		return "UnknownFailure"
	}
}
