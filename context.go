package layers

import (
	"context"
	"fmt"
	"reflect"
)

// Context is the realized service context of a build: a read view over the
// memo table plus the ability to resolve further providers on demand. The
// context handed to a BuildFunc carries that build's resolution chain, so
// demand-driven resolution from inside a construction still detects cycles.
type Context struct {
	memo  *MemoTable
	b     *builder
	chain *resolutionPath
}

// Get returns the constructed instance for p. Instances are handed out by
// reference, never copied, so every consumer of one provider shares the
// same service. A provider that never settled in this context yields
// UnknownProviderError.
func (c *Context) Get(p *Provider) (any, error) {
	instance, ok, err := c.memo.lookup(p.id)
	if !ok {
		return nil, &UnknownProviderError{Provider: p.name}
	}
	if err != nil {
		return nil, err
	}
	return instance, nil
}

// Has reports whether p settled successfully in this context.
func (c *Context) Has(p *Provider) bool {
	_, ok, err := c.memo.lookup(p.id)
	return ok && err == nil
}

// Resolve constructs p on demand, memoized exactly like a declared
// dependency of the current build.
func (c *Context) Resolve(ctx context.Context, p *Provider) (any, error) {
	return c.b.resolve(ctx, p, c.chain)
}

// As reads p from c and asserts the instance to T.
func As[T any](c *Context, p *Provider) (T, error) {
	var zero T
	instance, err := c.Get(p)
	if err != nil {
		return zero, err
	}
	typed, ok := instance.(T)
	if !ok {
		return zero, &TypeMismatchError{
			Provider: p.Name(),
			Expected: reflect.TypeOf((*T)(nil)).Elem().String(),
			Got:      fmt.Sprintf("%T", instance),
		}
	}
	return typed, nil
}
