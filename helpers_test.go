package layers_test

import (
	"context"
	"sync/atomic"

	"github.com/composekit/layers"
	"github.com/composekit/layers/mock"
)

// countingProvider defines a database provider that records how many times
// its build ran.
func countingProvider(name string, builds *atomic.Int32) *layers.Provider {
	return layers.Define(name, func(ctx context.Context, deps *layers.Context, scope *layers.Scope) (any, error) {
		builds.Add(1)
		db := &mock.MockDB{}
		db.Connect()
		return db, nil
	})
}

// managedProvider is countingProvider plus a finalizer that closes the
// database when the owning scope drains.
func managedProvider(name string, builds *atomic.Int32) *layers.Provider {
	return layers.Define(name, func(ctx context.Context, deps *layers.Context, scope *layers.Scope) (any, error) {
		builds.Add(1)
		db := &mock.MockDB{}
		db.Connect()
		if err := scope.Defer(func(ctx context.Context) error {
			db.Close()
			return nil
		}); err != nil {
			return nil, err
		}
		return db, nil
	})
}
