package layers

import (
	"context"
	"errors"
	"sync"
)

// Memoized is an explicitly memoized provider bound to a scope: the first
// Get constructs, every later Get returns the cached result. The cell keeps
// its own memo table, so the instance is shared across otherwise-separate
// builds nested in the same scope, independent of any enclosing build's
// table.
type Memoized struct {
	provider *Provider
	scope    *Scope

	mu       sync.Mutex
	settled  bool
	instance any
	err      error
}

// Memoize binds p to scope. Finalizers for the constructed instance land on
// scope and run when that scope closes.
func Memoize(p *Provider, scope *Scope) *Memoized {
	return &Memoized{provider: p, scope: scope}
}

// Get returns the memoized instance, constructing it on first use. A failed
// construction settles the cell: later Gets return the same error without
// retrying. Cancellation is the exception; it leaves the cell unsettled.
func (m *Memoized) Get(ctx context.Context) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.settled {
		return m.instance, m.err
	}

	services, _, err := Build(ctx, m.provider, WithScope(m.scope))
	if err == nil {
		m.instance, m.err = services.Get(m.provider)
	} else {
		m.err = err
	}
	if m.err != nil && (errors.Is(m.err, context.Canceled) || errors.Is(m.err, context.DeadlineExceeded)) {
		err := m.err
		m.err = nil
		return nil, err
	}
	m.settled = true
	return m.instance, m.err
}
