package layers

import (
	"errors"
	"fmt"
)

// ConstructionError represents a failure of a provider's own build logic.
type ConstructionError struct {
	Provider string
	Err      error
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("construction failed for provider %s: %v", e.Provider, e.Err)
}

func (e *ConstructionError) Unwrap() error {
	return e.Err
}

// CyclicDependencyError represents a provider observed in-flight during its
// own resolution chain.
type CyclicDependencyError struct {
	Provider string
}

func (e *CyclicDependencyError) Error() string {
	return fmt.Sprintf("cyclic dependency detected for provider: %s", e.Provider)
}

// ConstructionCancelledError represents an in-flight construction that was
// aborted before completing.
type ConstructionCancelledError struct {
	Provider string
	Err      error
}

func (e *ConstructionCancelledError) Error() string {
	return fmt.Sprintf("construction cancelled for provider %s: %v", e.Provider, e.Err)
}

func (e *ConstructionCancelledError) Unwrap() error {
	return e.Err
}

// RuntimeClosedError represents an operation attempted after the runtime
// handle was torn down.
type RuntimeClosedError struct{}

func (e *RuntimeClosedError) Error() string {
	return "runtime is closed"
}

// ScopeClosedError represents a finalizer registration attempted after the
// scope was drained.
type ScopeClosedError struct{}

func (e *ScopeClosedError) Error() string {
	return "scope is closed"
}

// FinalizerError represents a finalizer failure during scope close.
type FinalizerError struct {
	Err error
}

func (e *FinalizerError) Error() string {
	return fmt.Sprintf("finalizer failed: %v", e.Err)
}

func (e *FinalizerError) Unwrap() error {
	return e.Err
}

// UnknownProviderError represents a read of a provider that has no settled
// instance in the context.
type UnknownProviderError struct {
	Provider string
}

func (e *UnknownProviderError) Error() string {
	return fmt.Sprintf("no constructed instance for provider: %s", e.Provider)
}

// TypeMismatchError represents a type assertion failure on a resolved
// instance.
type TypeMismatchError struct {
	Provider string
	Expected string
	Got      string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("type mismatch for provider %s: expected %s, got %s", e.Provider, e.Expected, e.Got)
}

// isRuntimeError reports whether err already carries this package's failure
// taxonomy, in which case it propagates to dependents unchanged.
func isRuntimeError(err error) bool {
	var (
		construction *ConstructionError
		cyclic       *CyclicDependencyError
		cancelled    *ConstructionCancelledError
	)
	return errors.As(err, &construction) || errors.As(err, &cyclic) || errors.As(err, &cancelled)
}
