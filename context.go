package ioc

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
)

// State is the coarse lifecycle state of an ApplicationContext.
type State int32

const (
	StateRegistering State = iota
	StateRefreshing
	StateRunning
	StateFailed
	StateShutDown
)

func (s State) String() string {
	switch s {
	case StateRegistering:
		return "registering"
	case StateRefreshing:
		return "refreshing"
	case StateRunning:
		return "running"
	case StateFailed:
		return "failed"
	case StateShutDown:
		return "shut_down"
	default:
		return "unknown"
	}
}

// ApplicationContext owns the definition store, the scope caches and the lifecycle of
// every component it builds. Registration happens before Refresh; Get and TryGet are
// safe for concurrent use at any time.
type ApplicationContext struct {
	store      *definitionStore
	graph      *dependencyGraph
	singletons slotCache
	waits      *waitTable
	lifecycle  lifecycleRegistry
	hooks      orchestrator
	logger     *slog.Logger
	observer   Observer

	seq            atomic.Uint64
	state          atomic.Int32
	activeRequests atomic.Int64

	// mu serializes Refresh and Shutdown.
	mu sync.Mutex
}

// Option configures an ApplicationContext.
type Option func(*ApplicationContext)

// WithLogger sets the structured logger. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(c *ApplicationContext) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithObserver installs an event observer, e.g. the Prometheus collector in package metrics.
func WithObserver(observer Observer) Option {
	return func(c *ApplicationContext) {
		if observer != nil {
			c.observer = observer
		}
	}
}

// New creates an empty application context.
func New(opts ...Option) *ApplicationContext {
	c := &ApplicationContext{
		store:    newDefinitionStore(),
		graph:    newDependencyGraph(),
		waits:    newWaitTable(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		observer: NopObserver{},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.hooks = orchestrator{logger: c.logger, observer: c.observer}
	return c
}

// Register appends a definition. It fails after Refresh, on a duplicate name, or when
// the definition is invalid.
func (c *ApplicationContext) Register(def *Definition) error {
	if def == nil {
		return &InvalidDefinitionError{Reason: "nil definition"}
	}
	if err := def.validate(); err != nil {
		return err
	}
	if err := c.store.add(def); err != nil {
		return err
	}
	c.logger.Debug("definition registered",
		"component", def.name,
		"scope", def.scope,
		"eager", def.eager,
		"source", def.source,
	)
	return nil
}

// MustRegister is like Register but panics on error.
func (c *ApplicationContext) MustRegister(defs ...*Definition) {
	for _, def := range defs {
		if err := c.Register(def); err != nil {
			panic(err)
		}
	}
}

// State returns the current lifecycle state.
func (c *ApplicationContext) State() State {
	return State(c.state.Load())
}

// Frozen reports whether Refresh has been called.
func (c *ApplicationContext) Frozen() bool {
	return c.store.isFrozen()
}

// Refresh freezes the store, instantiates eager definitions in dependency order and
// runs startup hooks in ascending phase order. It may be called once; later calls
// return AlreadyRefreshedError. On failure, components already started are stopped
// and every cache is cleared before the error is returned.
func (c *ApplicationContext) Refresh(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.store.freeze() {
		return &AlreadyRefreshedError{}
	}
	c.state.Store(int32(StateRefreshing))

	order, err := c.eagerOrder()
	if err != nil {
		c.state.Store(int32(StateFailed))
		c.logger.Error("refresh failed", "error", err)
		return err
	}

	names := make([]string, len(order))
	for i, def := range order {
		names[i] = def.name
	}
	c.logger.Info("refreshing application context", "definitions", len(c.store.all()), "eager_order", names)

	for _, def := range order {
		if _, err := c.Get(ctx, def.name); err != nil {
			c.abortRefresh(ctx, nil, err)
			return err
		}
	}

	started, err := c.hooks.startAll(ctx, c.lifecycle.markRunning())
	if err != nil {
		c.abortRefresh(ctx, started, err)
		return err
	}

	c.state.Store(int32(StateRunning))
	c.logger.Info("application context refreshed", "components", c.lifecycle.len())
	return nil
}

// abortRefresh stops what did start, drops every cached singleton and marks the
// context failed.
func (c *ApplicationContext) abortRefresh(ctx context.Context, started []*managed, cause error) {
	c.logger.Error("refresh failed, rolling back", "error", cause, "started", len(started))
	items := c.lifecycle.drain()
	if errs := c.hooks.stopAll(context.WithoutCancel(ctx), items, false); len(errs) > 0 {
		c.logger.Error("rollback finished with errors", "error", errors.Join(errs...))
	}
	c.singletons.resetAll()
	c.state.Store(int32(StateFailed))
}

// Shutdown stops every tracked singleton in descending phase order and clears the
// singleton cache. With force=false every hook runs and failures are aggregated into a
// ShutdownError; with force=true the first failure ends the sequence and is returned.
// Request contexts are owned by their callers and are not touched.
func (c *ApplicationContext) Shutdown(ctx context.Context, force bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	items := c.lifecycle.drain()
	c.logger.Info("shutting down application context", "components", len(items), "force", force)

	errs := c.hooks.stopAll(ctx, items, force)
	c.singletons.resetAll()
	c.state.Store(int32(StateShutDown))

	switch {
	case len(errs) == 0:
		return nil
	case force:
		return errs[0]
	default:
		return &ShutdownError{Errors: errs}
	}
}

// Has reports whether name is registered and its conditions currently hold.
func (c *ApplicationContext) Has(name string) bool {
	def, ok := c.store.lookup(name)
	if !ok {
		return false
	}
	return def.conditionsHold(c) < 0
}

// Definition returns the registered definition for name.
func (c *ApplicationContext) Definition(name string) (*Definition, bool) {
	return c.store.lookup(name)
}

// Definitions returns snapshots of every definition in registration order.
func (c *ApplicationContext) Definitions() []DefinitionInfo {
	defs := c.store.all()
	out := make([]DefinitionInfo, len(defs))
	for i, d := range defs {
		out[i] = d.Info()
	}
	return out
}

// Logger returns the context's logger.
func (c *ApplicationContext) Logger() *slog.Logger {
	return c.logger
}

// Resolver returns a Resolver bound to ctx, for use outside factories.
func (c *ApplicationContext) Resolver(ctx context.Context) Resolver {
	return &resolver{app: c, ctx: ctx}
}
