package layers

import (
	"context"

	"github.com/google/uuid"
)

// ProviderID is an opaque identity token minted at definition time.
// Identity equality is the only cache-hit criterion: two providers defined
// from identical construction logic still carry distinct ids.
type ProviderID string

func newProviderID() ProviderID {
	return ProviderID(uuid.NewString())
}

// BuildFunc constructs a service instance. Declared dependencies are fully
// resolved before it runs and are read through deps; further providers may
// be resolved on demand through deps as well. Finalizers for any resource
// the instance acquires belong on scope.
type BuildFunc func(ctx context.Context, deps *Context, scope *Scope) (any, error)

// Provider is an immutable descriptor of a constructible service: an
// identity, a construction procedure and the providers it depends on.
type Provider struct {
	id         ProviderID
	name       string
	deps       []*Provider
	build      BuildFunc
	sequential bool
}

// Define creates a provider with a freshly minted identity. Every call
// mints a new id, so two definitions with identical build logic are cached
// and constructed independently.
func Define(name string, build BuildFunc, deps ...*Provider) *Provider {
	return &Provider{
		id:    newProviderID(),
		name:  name,
		deps:  append([]*Provider(nil), deps...),
		build: build,
	}
}

// ID returns the provider's identity token.
func (p *Provider) ID() ProviderID {
	return p.id
}

// Name returns the human-readable name given at definition time.
func (p *Provider) Name() string {
	return p.name
}

// Dependencies returns a copy of the declared dependency list.
func (p *Provider) Dependencies() []*Provider {
	return append([]*Provider(nil), p.deps...)
}

// Merge composes providers into one grouping node whose dependency set is
// their union. Providers sharing an identity collapse to a single entry, so
// merging a provider with itself constructs it once.
func Merge(providers ...*Provider) *Provider {
	seen := make(map[ProviderID]bool, len(providers))
	deps := make([]*Provider, 0, len(providers))
	for _, p := range providers {
		if p == nil || seen[p.id] {
			continue
		}
		seen[p.id] = true
		deps = append(deps, p)
	}
	return &Provider{
		id:   newProviderID(),
		name: "merge",
		deps: deps,
	}
}

// Provide layers lower on top of upper: upper is constructed first, so
// lower's build observes upper's outputs without the caller re-stating
// them as declared dependencies.
func Provide(upper, lower *Provider) *Provider {
	return &Provider{
		id:         newProviderID(),
		name:       "provide",
		deps:       []*Provider{upper, lower},
		sequential: true,
	}
}

// Fresh returns a provider with a new identity but the same construction
// procedure, defeating memoization for callers that need an independent
// instance of an otherwise-identical provider. Freshness is shallow: the
// declared dependencies keep their identities and stay shared.
func Fresh(p *Provider) *Provider {
	return &Provider{
		id:         newProviderID(),
		name:       p.name,
		deps:       p.deps,
		build:      p.build,
		sequential: p.sequential,
	}
}
