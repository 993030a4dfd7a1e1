// Package registry collects component definitions before an application context exists
// and feeds them to Register in one step.
//
// Packages declare their components at init time:
//
//	func init() {
//	    registry.Component("orders.repo", newOrderRepo, ioc.DependsOn("db"))
//	}
//
// and main flushes the buffer into the context it builds:
//
//	app := ioc.New()
//	if err := registry.Flush(app); err != nil { ... }
package registry

import (
	"fmt"
	"runtime"
	"sync"

	ioc "github.com/plumeink/cullinan-ioc"
)

// Provider registers a group of related components.
type Provider interface {
	Register(c *Collector)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(c *Collector)

func (f ProviderFunc) Register(c *Collector) { f(c) }

// Collector buffers definitions in collection order.
type Collector struct {
	mu      sync.Mutex
	pending []*ioc.Definition
}

// New returns an empty collector.
func New() *Collector {
	return &Collector{}
}

// Component buffers a definition. The caller's file:line is recorded as its source
// unless opts set one.
func (c *Collector) Component(name string, factory ioc.Factory, opts ...ioc.DefinitionOption) {
	c.component(2, name, factory, opts)
}

func (c *Collector) component(skip int, name string, factory ioc.Factory, opts []ioc.DefinitionOption) {
	if _, file, line, ok := runtime.Caller(skip); ok {
		opts = append([]ioc.DefinitionOption{ioc.WithSource(fmt.Sprintf("%s:%d", file, line))}, opts...)
	}
	c.Add(ioc.NewDefinition(name, factory, opts...))
}

// Add buffers an already built definition.
func (c *Collector) Add(def *ioc.Definition) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = append(c.pending, def)
}

// Use lets each provider add its components.
func (c *Collector) Use(providers ...Provider) {
	for _, p := range providers {
		p.Register(c)
	}
}

// Len returns the number of buffered definitions.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Names returns the buffered names in collection order.
func (c *Collector) Names() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, len(c.pending))
	for i, def := range c.pending {
		names[i] = def.Name()
	}
	return names
}

// Flush registers every buffered definition with app in collection order and empties
// the buffer. It stops at the first Register error; definitions after it stay buffered.
func (c *Collector) Flush(app *ioc.ApplicationContext) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, def := range c.pending {
		if err := app.Register(def); err != nil {
			c.pending = c.pending[i+1:]
			return err
		}
	}
	c.pending = nil
	return nil
}

var std = New()

// Component buffers a definition in the process-wide collector.
func Component(name string, factory ioc.Factory, opts ...ioc.DefinitionOption) {
	std.component(2, name, factory, opts)
}

// Use adds providers to the process-wide collector.
func Use(providers ...Provider) {
	std.Use(providers...)
}

// Flush registers the process-wide collector's definitions with app.
func Flush(app *ioc.ApplicationContext) error {
	return std.Flush(app)
}

// Reset empties the process-wide collector.
// This function is intended for testing purposes only.
func Reset() {
	std.mu.Lock()
	defer std.mu.Unlock()
	std.pending = nil
}
