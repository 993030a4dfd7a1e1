package ioc_test

import (
	"context"
	"testing"

	ioc "github.com/plumeink/cullinan-ioc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEagerOrder(t *testing.T) {
	app := ioc.New()
	app.MustRegister(
		ioc.NewDefinition("web", objectFactory, ioc.Eager(), ioc.DependsOn("service", "metrics")),
		ioc.NewDefinition("service", objectFactory, ioc.DependsOn("repo")),
		ioc.NewDefinition("repo", objectFactory, ioc.DependsOn("db")),
		ioc.NewDefinition("db", objectFactory, ioc.Eager()),
		ioc.NewDefinition("metrics", objectFactory),
		ioc.NewDefinition("unused", objectFactory),
		ioc.NewDefinition("proto", objectFactory, ioc.WithScope(ioc.ScopePrototype)),
	)

	order, err := app.EagerOrder()
	require.NoError(t, err)
	assert.Equal(t, []string{"db", "repo", "service", "metrics", "web"}, order)
}

func TestEagerOrderTiesFollowRegistration(t *testing.T) {
	app := ioc.New()
	app.MustRegister(
		ioc.NewDefinition("c", objectFactory, ioc.Eager()),
		ioc.NewDefinition("a", objectFactory, ioc.Eager()),
		ioc.NewDefinition("b", objectFactory, ioc.Eager()),
	)

	order, err := app.EagerOrder()
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "b"}, order)
}

func TestEagerOrderDependencyTiesFollowRegistration(t *testing.T) {
	app := ioc.New()
	app.MustRegister(
		ioc.NewDefinition("a", objectFactory),
		ioc.NewDefinition("b", objectFactory),
		ioc.NewDefinition("x", objectFactory, ioc.Eager(), ioc.DependsOn("b", "a")),
	)

	order, err := app.EagerOrder()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "x"}, order)
}

func TestEagerOrderThroughPrototype(t *testing.T) {
	app := ioc.New()
	app.MustRegister(
		ioc.NewDefinition("handler", objectFactory, ioc.Eager(), ioc.DependsOn("session")),
		ioc.NewDefinition("session", objectFactory, ioc.WithScope(ioc.ScopePrototype), ioc.DependsOn("store")),
		ioc.NewDefinition("store", objectFactory),
	)

	order, err := app.EagerOrder()
	require.NoError(t, err)
	assert.Equal(t, []string{"store", "handler"}, order)
}

func TestEagerOrderIgnoresUnknownDeclaredNames(t *testing.T) {
	app := ioc.New()
	app.MustRegister(ioc.NewDefinition("a", objectFactory, ioc.Eager(), ioc.DependsOn("ghost")))

	order, err := app.EagerOrder()
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, order)
}

func TestRefreshInstantiatesInEagerOrder(t *testing.T) {
	app := ioc.New()
	var built []string
	track := func(name string) ioc.Factory {
		return func(ioc.Resolver) (any, error) {
			built = append(built, name)
			return objectFactory(nil)
		}
	}
	app.MustRegister(
		ioc.NewDefinition("handler", track("handler"), ioc.Eager(), ioc.DependsOn("store")),
		ioc.NewDefinition("store", track("store"), ioc.Eager()),
		ioc.NewDefinition("lazy", track("lazy")),
	)

	require.NoError(t, app.Refresh(context.Background()))
	assert.Equal(t, []string{"store", "handler"}, built)
}

func TestDependencyGraphMergesRecordedEdges(t *testing.T) {
	app := ioc.New()
	app.MustRegister(
		ioc.NewDefinition("a", needs("b"), ioc.DependsOn("c")),
		ioc.NewDefinition("b", objectFactory),
		ioc.NewDefinition("c", objectFactory),
	)

	assert.Equal(t, []string{"c"}, app.DependencyGraph()["a"])

	_, err := app.Get(context.Background(), "a")
	require.NoError(t, err)

	graph := app.DependencyGraph()
	assert.Equal(t, []string{"c", "b"}, graph["a"])
	assert.Empty(t, graph["b"])
	assert.Len(t, graph, 3)
}
