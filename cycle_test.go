package ioc_test

import (
	"context"
	"sync"
	"testing"
	"time"

	ioc "github.com/plumeink/cullinan-ioc"
	"github.com/plumeink/cullinan-ioc/mock"
	"github.com/stretchr/testify/suite"
)

type CycleTestSuite struct {
	suite.Suite
	app *ioc.ApplicationContext
	ctx context.Context
}

func (s *CycleTestSuite) SetupTest() {
	s.app = ioc.New()
	s.ctx = context.Background()
}

func needs(name string) ioc.Factory {
	return func(r ioc.Resolver) (any, error) {
		if _, err := r.Get(name); err != nil {
			return nil, err
		}
		return mock.NewObject(), nil
	}
}

func (s *CycleTestSuite) TestTwoNodeCycle() {
	s.app.MustRegister(
		ioc.NewDefinition("A", needs("B")),
		ioc.NewDefinition("B", needs("A")),
	)

	_, err := s.app.Get(s.ctx, "A")

	var cycle *ioc.CircularDependencyError
	s.Require().ErrorAs(err, &cycle)
	s.Equal([]string{"A", "B", "A"}, cycle.Path)
	s.Equal("circular dependency detected: A -> B -> A", err.Error())
}

func (s *CycleTestSuite) TestCyclePathIsStable() {
	for i := 0; i < 5; i++ {
		app := ioc.New()
		app.MustRegister(
			ioc.NewDefinition("A", needs("B")),
			ioc.NewDefinition("B", needs("C")),
			ioc.NewDefinition("C", needs("A")),
		)

		_, err := app.Get(s.ctx, "A")

		var cycle *ioc.CircularDependencyError
		s.Require().ErrorAs(err, &cycle)
		s.Equal([]string{"A", "B", "C", "A"}, cycle.Path)
	}
}

func (s *CycleTestSuite) TestCycleStartingMidChain() {
	s.app.MustRegister(
		ioc.NewDefinition("root", needs("A")),
		ioc.NewDefinition("A", needs("B")),
		ioc.NewDefinition("B", needs("A")),
	)

	_, err := s.app.Get(s.ctx, "root")

	var cycle *ioc.CircularDependencyError
	s.Require().ErrorAs(err, &cycle)
	s.Equal([]string{"A", "B", "A"}, cycle.Path)
}

func (s *CycleTestSuite) TestPrototypeCycle() {
	s.app.MustRegister(
		ioc.NewDefinition("A", needs("B"), ioc.WithScope(ioc.ScopePrototype)),
		ioc.NewDefinition("B", needs("A"), ioc.WithScope(ioc.ScopePrototype)),
	)

	_, err := s.app.Get(s.ctx, "B")

	var cycle *ioc.CircularDependencyError
	s.Require().ErrorAs(err, &cycle)
	s.Equal([]string{"B", "A", "B"}, cycle.Path)
}

func (s *CycleTestSuite) TestCircularFixtures() {
	s.app.MustRegister(
		ioc.NewDefinition("circular1", mock.Circular1Factory),
		ioc.NewDefinition("circular2", mock.Circular2Factory),
	)

	_, err := s.app.Get(s.ctx, "circular1")
	s.Equal(ioc.KindCircularDependency, ioc.KindOf(err))

	// The failed attempt left both slots retryable.
	_, err = s.app.Get(s.ctx, "circular2")
	var cycle *ioc.CircularDependencyError
	s.Require().ErrorAs(err, &cycle)
	s.Equal([]string{"circular2", "circular1", "circular2"}, cycle.Path)
}

func (s *CycleTestSuite) TestEagerCycleFailsRefresh() {
	s.app.MustRegister(
		ioc.NewDefinition("A", objectFactory, ioc.Eager(), ioc.DependsOn("B")),
		ioc.NewDefinition("B", objectFactory, ioc.DependsOn("A")),
	)

	err := s.app.Refresh(s.ctx)

	var cycle *ioc.CircularDependencyError
	s.Require().ErrorAs(err, &cycle)
	s.Equal([]string{"A", "B", "A"}, cycle.Path)
	s.Equal(ioc.StateFailed, s.app.State())
}

func (s *CycleTestSuite) TestUnrelatedConcurrentChainsDoNotCollide() {
	s.app.MustRegister(
		ioc.NewDefinition("shared", (&mock.Counter{}).Factory(20*time.Millisecond, mock.NewObject)),
		ioc.NewDefinition("left", needs("shared"), ioc.WithScope(ioc.ScopePrototype)),
		ioc.NewDefinition("right", needs("shared"), ioc.WithScope(ioc.ScopePrototype)),
	)

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 10; i++ {
		for _, name := range []string{"left", "right"} {
			wg.Add(1)
			go func(name string) {
				defer wg.Done()
				if _, err := s.app.Get(s.ctx, name); err != nil {
					errs <- err
				}
			}(name)
		}
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		s.Fail("unexpected error", err.Error())
	}
}

func (s *CycleTestSuite) TestCrossGoroutineCycleFailsFast() {
	var ready sync.WaitGroup
	ready.Add(2)
	barrier := func(once *sync.Once) {
		once.Do(ready.Done)
		ready.Wait()
	}
	var onceA, onceB sync.Once

	s.app.MustRegister(
		ioc.NewDefinition("A", func(r ioc.Resolver) (any, error) {
			barrier(&onceA)
			return needs("B")(r)
		}),
		ioc.NewDefinition("B", func(r ioc.Resolver) (any, error) {
			barrier(&onceB)
			return needs("A")(r)
		}),
	)

	ctx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i, name := range []string{"A", "B"} {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			_, results[i] = s.app.Get(ctx, name)
		}(i, name)
	}
	wg.Wait()

	for _, err := range results {
		var cycle *ioc.CircularDependencyError
		s.Require().ErrorAs(err, &cycle)
		s.Require().Len(cycle.Path, 3)
		s.Equal(cycle.Path[0], cycle.Path[2])
	}
	s.NoError(ctx.Err(), "cycle must be reported without waiting for the timeout")
}

func (s *CycleTestSuite) TestLazyBreaksConstructionCycle() {
	type server struct {
		handler *ioc.Lazy[*mock.Object]
	}
	s.app.MustRegister(
		ioc.NewDefinition("server", func(r ioc.Resolver) (any, error) {
			return &server{handler: ioc.LazyFrom[*mock.Object](r, "handler")}, nil
		}),
		ioc.NewDefinition("handler", func(r ioc.Resolver) (any, error) {
			if _, err := r.Get("server"); err != nil {
				return nil, err
			}
			return mock.NewObject(), nil
		}),
	)

	srv, err := ioc.Resolve[*server](s.app.Resolver(s.ctx), "server")
	s.Require().NoError(err)
	s.False(srv.handler.Resolved())
	s.Equal("handler", srv.handler.Name())

	first, err := srv.handler.Get(s.ctx)
	s.Require().NoError(err)
	second, err := srv.handler.Get(s.ctx)
	s.Require().NoError(err)
	s.Same(first, second)
	s.True(srv.handler.Resolved())
}

func (s *CycleTestSuite) TestLazyDereferenceDuringConstructionIsACycle() {
	s.app.MustRegister(
		ioc.NewDefinition("A", func(r ioc.Resolver) (any, error) {
			lazy := ioc.LazyFrom[*mock.Object](r, "B")
			if _, err := lazy.Get(r.Context()); err != nil {
				return nil, err
			}
			return mock.NewObject(), nil
		}),
		ioc.NewDefinition("B", needs("A")),
	)

	_, err := s.app.Get(s.ctx, "A")

	var cycle *ioc.CircularDependencyError
	s.Require().ErrorAs(err, &cycle)
	s.Equal([]string{"A", "B", "A"}, cycle.Path)
}

func TestCycleSuite(t *testing.T) {
	suite.Run(t, new(CycleTestSuite))
}
