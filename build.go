package layers

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type buildOptions struct {
	memo   *MemoTable
	scope  *Scope
	logger *zap.Logger
}

// BuildOption configures a single build.
type BuildOption func(*buildOptions)

// WithMemoTable makes the build construct into (and reuse hits from) an
// inherited table instead of a fresh one.
func WithMemoTable(m *MemoTable) BuildOption {
	return func(o *buildOptions) {
		o.memo = m
	}
}

// WithScope registers finalizers into an existing scope. The caller keeps
// ownership of its teardown; Build will not close it on failure.
func WithScope(s *Scope) BuildOption {
	return func(o *buildOptions) {
		o.scope = s
	}
}

// WithLogger sets the sink that finalizer failures are reported to.
func WithLogger(l *zap.Logger) BuildOption {
	return func(o *buildOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// Build resolves root and everything reachable from it, constructing each
// distinct provider at most once. Providers not reachable from root are
// never constructed. It returns the realized service context together with
// the scope holding every acquired resource; the caller closes the scope
// when done with the services. If the build fails, a scope created by Build
// itself is closed before returning so that already-acquired resources do
// not leak.
func Build(ctx context.Context, root *Provider, opts ...BuildOption) (*Context, *Scope, error) {
	o := buildOptions{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	memo := o.memo
	if memo == nil {
		memo = NewMemoTable()
	}
	scope := o.scope
	ownScope := scope == nil
	if ownScope {
		scope = NewScope(WithScopeLogger(o.logger))
	}

	b := &builder{memo: memo, scope: scope}
	if _, err := b.resolve(ctx, root, nil); err != nil {
		if ownScope {
			if cerr := scope.Close(ctx); cerr != nil {
				o.logger.Error("teardown after failed build", zap.Error(cerr))
			}
		}
		return nil, nil, err
	}
	return &Context{memo: memo, b: b}, scope, nil
}

// builder walks a provider graph under one memo table. Resolution is
// demand-driven, so construction order is topological without an explicit
// sort.
type builder struct {
	memo  *MemoTable
	scope *Scope
}

func (b *builder) resolve(ctx context.Context, p *Provider, chain *resolutionPath) (any, error) {
	return b.memo.getOrBuild(ctx, p, chain, func() (any, error) {
		next := &resolutionPath{id: p.id, next: chain}

		switch {
		case p.sequential:
			for _, dep := range p.deps {
				if _, err := b.resolve(ctx, dep, next); err != nil {
					return nil, err
				}
			}
		case len(p.deps) == 1:
			if _, err := b.resolve(ctx, p.deps[0], next); err != nil {
				return nil, err
			}
		case len(p.deps) > 1:
			g, gctx := errgroup.WithContext(ctx)
			for _, dep := range p.deps {
				dep := dep
				g.Go(func() error {
					_, err := b.resolve(gctx, dep, next)
					return err
				})
			}
			if err := g.Wait(); err != nil {
				return nil, err
			}
		}

		if p.build == nil {
			// Grouping node: its only output is its constituents.
			return nil, nil
		}
		instance, err := p.build(ctx, &Context{memo: b.memo, b: b, chain: next}, b.scope)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			if isRuntimeError(err) {
				return nil, err
			}
			return nil, &ConstructionError{Provider: p.name, Err: err}
		}
		return instance, nil
	})
}
