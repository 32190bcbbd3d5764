package layers

import (
	"context"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Finalizer releases one resource acquired during construction.
type Finalizer func(ctx context.Context) error

// Scope tracks the finalizers for resources acquired during construction.
// Registration is append-only while the scope is open; Close drains the
// stack in strict reverse order exactly once. A resource is owned by the
// scope that acquired it, never by the providers that depend on it.
type Scope struct {
	mu         sync.Mutex
	finalizers []Finalizer
	closed     bool
	log        *zap.Logger
}

// ScopeOption configures a scope at creation.
type ScopeOption func(*Scope)

// WithScopeLogger sets the sink that finalizer failures are reported to.
func WithScopeLogger(l *zap.Logger) ScopeOption {
	return func(s *Scope) {
		if l != nil {
			s.log = l
		}
	}
}

// NewScope returns an open scope with no finalizers.
func NewScope(opts ...ScopeOption) *Scope {
	s := &Scope{log: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Defer registers fn to run when the scope closes, before every finalizer
// registered earlier than it. Returns ScopeClosedError once the scope has
// been drained.
func (s *Scope) Defer(fn Finalizer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return &ScopeClosedError{}
	}
	s.finalizers = append(s.finalizers, fn)
	return nil
}

// Closed reports whether the scope has been drained.
func (s *Scope) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close runs every registered finalizer in reverse registration order. A
// failing finalizer does not stop the drain: every remaining finalizer
// still runs, each failure is logged, and all failures are reported
// together. Only the first Close drains; later calls return nil.
func (s *Scope) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	finalizers := s.finalizers
	s.finalizers = nil
	s.mu.Unlock()

	var errs error
	for i := len(finalizers) - 1; i >= 0; i-- {
		if err := finalizers[i](ctx); err != nil {
			s.log.Error("finalizer failed", zap.Error(err))
			errs = multierr.Append(errs, &FinalizerError{Err: err})
		}
	}
	return errs
}
