package ioc

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"
)

var (
	errNilInstance = errors.New("factory returned a nil instance")
	errShutDown    = errors.New("application context shut down during creation")

	// errDiscarded reports that the owning registry was drained while the instance was
	// being built. The instance has been released already.
	errDiscarded = errors.New("instance discarded")
)

// Resolver is the view of the container handed to factories. Every resolution made
// through it is recorded as a dependency of the component under construction.
type Resolver interface {
	// Get resolves name, applying scope rules.
	Get(name string) (any, error)
	// TryGet is like Get but reports missing or condition-excluded names as absent.
	TryGet(name string) (any, bool, error)
	// Has reports whether name is registered and its conditions hold.
	Has(name string) bool
	// Context carries the resolution chain and the active request context, if any.
	Context() context.Context
	// App returns the owning application context.
	App() *ApplicationContext
}

type resolver struct {
	app *ApplicationContext
	ctx context.Context
}

func (r *resolver) Get(name string) (any, error)          { return r.app.Get(r.ctx, name) }
func (r *resolver) TryGet(name string) (any, bool, error) { return r.app.TryGet(r.ctx, name) }
func (r *resolver) Has(name string) bool                  { return r.app.Has(name) }
func (r *resolver) Context() context.Context              { return r.ctx }
func (r *resolver) App() *ApplicationContext              { return r.app }

// Get resolves name. It fails with DependencyNotFoundError when the name is unknown or
// its conditions fail (ConditionNotMetError for optional definitions),
// CircularDependencyError when name is already under construction in this call chain,
// ScopeNotActiveError for request scope without an active request context, and
// CreationError when the factory fails.
func (c *ApplicationContext) Get(ctx context.Context, name string) (any, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()
	def, ok := c.store.lookup(name)
	if !ok {
		err := &DependencyNotFoundError{Name: name, RequiredBy: chainFrom(ctx).top()}
		c.observer.Resolved(name, "", time.Since(start), err)
		return nil, err
	}

	parent := chainFrom(ctx)
	if parent != nil {
		c.graph.record(parent.name, name)
	}

	var instance any
	var err error
	switch def.scope {
	case ScopeSingleton:
		instance, err = c.resolveSingleton(ctx, parent, def)
	case ScopePrototype:
		instance, err = c.resolvePrototype(ctx, parent, def)
	case ScopeRequest:
		instance, err = c.resolveRequest(ctx, parent, def)
	}
	c.observer.Resolved(name, def.scope, time.Since(start), err)
	return instance, err
}

// TryGet is Get with DependencyNotFoundError and ConditionNotMetError for name itself
// turned into ok=false. Every other failure is returned.
func (c *ApplicationContext) TryGet(ctx context.Context, name string) (any, bool, error) {
	instance, err := c.Get(ctx, name)
	if err != nil {
		if isAbsent(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return instance, true, nil
}

// precheck runs the checks shared by every scope once the cache missed.
func (c *ApplicationContext) precheck(parent *chain, def *Definition) error {
	if parent.contains(def.name) {
		return &CircularDependencyError{Path: parent.cyclePath(def.name)}
	}
	if idx := def.conditionsHold(c); idx >= 0 {
		if def.optional {
			return &ConditionNotMetError{Name: def.name, Index: idx}
		}
		return &DependencyNotFoundError{Name: def.name, RequiredBy: parent.top(), ConditionFailed: true}
	}
	return nil
}

func (c *ApplicationContext) resolveSingleton(ctx context.Context, parent *chain, def *Definition) (any, error) {
	s := c.singletons.get(def.name)
	if instance, ok := s.value(); ok {
		return instance, nil
	}
	if err := c.precheck(parent, def); err != nil {
		return nil, err
	}

	node := parent.push(def.name, def.scope)
	instance, won, err := s.acquire(ctx, node, c.waits)
	if err != nil || !won {
		return instance, err
	}

	// Singletons never see the caller's request context.
	buildCtx := withChain(detachRequest(ctx), node)
	instance, err = c.create(buildCtx, def, &c.lifecycle)
	if err != nil {
		s.fail()
		if errors.Is(err, errDiscarded) {
			return nil, &CreationError{Name: def.name, Err: errShutDown}
		}
		return nil, err
	}
	s.complete(instance)
	return instance, nil
}

func (c *ApplicationContext) resolvePrototype(ctx context.Context, parent *chain, def *Definition) (any, error) {
	if err := c.precheck(parent, def); err != nil {
		return nil, err
	}
	node := parent.push(def.name, def.scope)
	return c.create(withChain(ctx, node), def, nil)
}

func (c *ApplicationContext) resolveRequest(ctx context.Context, parent *chain, def *Definition) (any, error) {
	rc := requestFrom(ctx)
	if rc == nil {
		return nil, &ScopeNotActiveError{Name: def.name, Scope: def.scope, Owner: parent.nearestSingleton()}
	}
	if rc.Exited() {
		return nil, &RequestContextExitedError{ID: rc.id, Name: def.name}
	}

	s := rc.slots.get(def.name)
	if instance, ok := s.value(); ok {
		return instance, nil
	}
	if err := c.precheck(parent, def); err != nil {
		return nil, err
	}

	node := parent.push(def.name, def.scope)
	instance, won, err := s.acquire(ctx, node, c.waits)
	if err != nil || !won {
		return instance, err
	}
	if rc.Exited() {
		s.fail()
		return nil, &RequestContextExitedError{ID: rc.id, Name: def.name}
	}

	instance, err = c.create(withChain(ctx, node), def, &rc.lifecycle)
	if err != nil {
		s.fail()
		if errors.Is(err, errDiscarded) {
			return nil, &RequestContextExitedError{ID: rc.id, Name: def.name}
		}
		return nil, err
	}
	s.complete(instance)
	return instance, nil
}

// create runs the factory and post-construct. When registry is non-nil the instance is
// tracked there, and started right away if the registry is already running. If the
// registry is drained before the instance is tracked or started, the instance is
// released and errDiscarded is returned.
func (c *ApplicationContext) create(ctx context.Context, def *Definition, registry *lifecycleRegistry) (any, error) {
	start := time.Now()
	var gen uint64
	if registry != nil {
		gen = registry.gen()
	}
	instance, err := c.invoke(ctx, def)
	if err != nil {
		var cycle *CircularDependencyError
		if errors.As(err, &cycle) {
			return nil, cycle
		}
		c.logger.Debug("factory failed", "component", def.name, "error", err)
		return nil, &CreationError{Name: def.name, Err: err}
	}

	m := &managed{
		name:     def.name,
		instance: instance,
		phase:    phaseOf(instance, def),
		seq:      c.seq.Add(1),
	}
	if err := c.hooks.postConstruct(ctx, m); err != nil {
		return nil, err
	}

	if registry != nil {
		running, ok := registry.add(m, gen)
		if !ok {
			c.discard(ctx, m)
			return nil, errDiscarded
		}
		if running {
			if err := c.hooks.start(ctx, m); err != nil {
				registry.remove(m)
				if errors.Is(err, errRetired) {
					return nil, errDiscarded
				}
				return nil, err
			}
		}
	}

	c.observer.Created(def.name, def.scope, time.Since(start))
	c.logger.Debug("component created", "component", def.name, "scope", def.scope, "phase", m.phase)
	return instance, nil
}

// discard releases an instance its owner no longer tracks.
func (c *ApplicationContext) discard(ctx context.Context, m *managed) {
	c.logger.Debug("discarding instance built across a drain", "component", m.name)
	if errs := c.hooks.stopAll(context.WithoutCancel(ctx), []*managed{m}, false); len(errs) > 0 {
		c.logger.Error("releasing discarded instance failed", "component", m.name, "error", errors.Join(errs...))
	}
}

// invoke calls the factory, turning a panic into an error.
func (c *ApplicationContext) invoke(ctx context.Context, def *Definition) (instance any, err error) {
	defer func() {
		if p := recover(); p != nil {
			if perr, ok := p.(error); ok {
				err = fmt.Errorf("factory panicked: %w", perr)
			} else {
				err = fmt.Errorf("factory panicked: %v", p)
			}
		}
	}()

	instance, err = def.factory(&resolver{app: c, ctx: ctx})
	if err == nil && isNil(instance) {
		err = errNilInstance
	}
	return instance, err
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// Resolve resolves name through r and asserts the result to T.
func Resolve[T any](r Resolver, name string) (T, error) {
	var zero T
	instance, err := r.Get(name)
	if err != nil {
		return zero, err
	}
	return assertType[T](name, instance)
}

// TryResolve is the TryGet counterpart of Resolve.
func TryResolve[T any](r Resolver, name string) (T, bool, error) {
	var zero T
	instance, ok, err := r.TryGet(name)
	if err != nil || !ok {
		return zero, ok, err
	}
	typed, err := assertType[T](name, instance)
	if err != nil {
		return zero, false, err
	}
	return typed, true, nil
}

// MustResolve is like Resolve but panics on error. Inside a factory the panic is turned
// into a CreationError.
func MustResolve[T any](r Resolver, name string) T {
	typed, err := Resolve[T](r, name)
	if err != nil {
		panic(err)
	}
	return typed
}

func assertType[T any](name string, instance any) (T, error) {
	typed, ok := instance.(T)
	if !ok {
		var zero T
		return zero, &TypeMismatchError{
			Name:     name,
			Expected: reflect.TypeOf((*T)(nil)).Elem().String(),
			Got:      reflect.TypeOf(instance).String(),
		}
	}
	return typed, nil
}
