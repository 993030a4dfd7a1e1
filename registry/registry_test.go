package registry

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ioc "github.com/plumeink/cullinan-ioc"
)

func value(v string) ioc.Factory {
	return func(ioc.Resolver) (any, error) { return v, nil }
}

func TestFlushKeepsCollectionOrder(t *testing.T) {
	c := New()
	c.Component("b", value("b"), ioc.Eager())
	c.Use(ProviderFunc(func(c *Collector) {
		c.Component("a", value("a"), ioc.Eager())
	}))
	assert.Equal(t, []string{"b", "a"}, c.Names())

	app := ioc.New()
	require.NoError(t, c.Flush(app))
	assert.Zero(t, c.Len())

	order, err := app.EagerOrder()
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, order)

	def, ok := app.Definition("b")
	require.True(t, ok)
	assert.True(t, strings.Contains(def.Source(), "registry_test.go"), def.Source())
}

func TestFlushStopsAtFirstError(t *testing.T) {
	c := New()
	c.Component("a", value("a"))
	c.Component("a", value("again"))
	c.Component("c", value("c"))

	app := ioc.New()
	err := c.Flush(app)

	var dup *ioc.DuplicateDefinitionError
	require.ErrorAs(t, err, &dup)
	assert.Contains(t, dup.ExistingSource, "registry_test.go")
	assert.Equal(t, []string{"c"}, c.Names())
	assert.False(t, app.Has("c"))
}

func TestFlushAfterRefresh(t *testing.T) {
	app := ioc.New()
	require.NoError(t, app.Refresh(context.Background()))

	c := New()
	c.Add(ioc.NewDefinition("late", value("late")))
	assert.Equal(t, ioc.KindRegistryFrozen, ioc.KindOf(c.Flush(app)))
}

func TestProcessWideCollector(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	Component("greeting", value("hello"))
	app := ioc.New()
	require.NoError(t, Flush(app))

	v, err := app.Get(context.Background(), "greeting")
	require.NoError(t, err)
	assert.Equal(t, "hello", v)
}
