package layers_test

import (
	"context"
	"errors"
	"testing"

	"github.com/composekit/layers"
	"github.com/stretchr/testify/suite"
	"go.uber.org/multierr"
)

type ScopeTestSuite struct {
	suite.Suite
}

func (s *ScopeTestSuite) TestCloseDrainsInReverseOrder() {
	scope := layers.NewScope()
	var order []string
	for _, name := range []string{"f1", "f2", "f3"} {
		name := name
		s.NoError(scope.Defer(func(ctx context.Context) error {
			order = append(order, name)
			return nil
		}))
	}

	s.NoError(scope.Close(context.Background()))
	s.Equal([]string{"f3", "f2", "f1"}, order)
}

func (s *ScopeTestSuite) TestCloseCollectsFinalizerErrors() {
	scope := layers.NewScope()
	var ran []string
	s.NoError(scope.Defer(func(ctx context.Context) error {
		ran = append(ran, "f1")
		return errors.New("f1 failed")
	}))
	s.NoError(scope.Defer(func(ctx context.Context) error {
		ran = append(ran, "f2")
		return nil
	}))
	s.NoError(scope.Defer(func(ctx context.Context) error {
		ran = append(ran, "f3")
		return errors.New("f3 failed")
	}))

	err := scope.Close(context.Background())
	s.Error(err)
	s.Equal([]string{"f3", "f2", "f1"}, ran, "a failing finalizer must not stop the drain")

	var finalizer *layers.FinalizerError
	s.ErrorAs(err, &finalizer)
	s.Len(multierr.Errors(err), 2)
}

func (s *ScopeTestSuite) TestCloseIsIdempotent() {
	scope := layers.NewScope()
	var runs int
	s.NoError(scope.Defer(func(ctx context.Context) error {
		runs++
		return nil
	}))

	s.NoError(scope.Close(context.Background()))
	s.NoError(scope.Close(context.Background()))
	s.Equal(1, runs)
	s.True(scope.Closed())
}

func (s *ScopeTestSuite) TestDeferAfterCloseFails() {
	scope := layers.NewScope()
	s.NoError(scope.Close(context.Background()))

	err := scope.Defer(func(ctx context.Context) error { return nil })
	var closed *layers.ScopeClosedError
	s.ErrorAs(err, &closed)
}

func TestScopeSuite(t *testing.T) {
	suite.Run(t, new(ScopeTestSuite))
}
