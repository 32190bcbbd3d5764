package layers

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Operation runs application logic against the realized services of a
// runtime execution.
type Operation func(ctx context.Context, services *Context) (any, error)

// Runtime is a long-lived handle over one persistent memo table and one
// persistent scope. The first Execute constructs whatever the root graph
// reaches; later Executes reuse every constructed instance verbatim, with
// no provider reconstructed across calls. Close tears everything down
// exactly once, regardless of how many executions used the services.
type Runtime struct {
	root   *Provider
	memo   *MemoTable
	scope  *Scope
	logger *zap.Logger

	mu     sync.RWMutex
	closed bool
}

// RuntimeOption configures a runtime at creation.
type RuntimeOption func(*Runtime)

// WithRuntimeLogger sets the sink that finalizer failures are reported to
// when the runtime closes.
func WithRuntimeLogger(l *zap.Logger) RuntimeOption {
	return func(r *Runtime) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRuntime returns a runtime handle for root. Nothing is constructed
// until the first Execute.
func NewRuntime(root *Provider, opts ...RuntimeOption) *Runtime {
	r := &Runtime{
		root:   root,
		memo:   NewMemoTable(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.scope = NewScope(WithScopeLogger(r.logger))
	return r
}

// Execute builds the root graph against the persistent memo table and runs
// op with the realized services. After Close it fails with
// RuntimeClosedError.
func (r *Runtime) Execute(ctx context.Context, op Operation) (any, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return nil, &RuntimeClosedError{}
	}

	services, _, err := Build(ctx, r.root, WithMemoTable(r.memo), WithScope(r.scope), WithLogger(r.logger))
	if err != nil {
		return nil, err
	}
	return op(ctx, services)
}

// Close drains the persistent scope in reverse registration order. Only the
// first Close drains; later calls return nil.
func (r *Runtime) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	return r.scope.Close(ctx)
}
