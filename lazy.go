package ioc

import (
	"context"
	"sync"
)

// Lazy defers the resolution of a component until its first dereference. Holding a
// Lazy instead of the instance breaks construction-time cycles: A may keep a Lazy of B
// while B depends on A directly, as long as A does not dereference it while B is being
// built. A dereference made during another construction uses the chain in ctx, so a
// real cycle is still reported.
type Lazy[T any] struct {
	app  *ApplicationContext
	name string

	mu       sync.Mutex
	resolved bool
	value    T
}

// NewLazy returns an unresolved handle for name.
func NewLazy[T any](app *ApplicationContext, name string) *Lazy[T] {
	return &Lazy[T]{app: app, name: name}
}

// LazyFrom returns an unresolved handle for name from inside a factory.
func LazyFrom[T any](r Resolver, name string) *Lazy[T] {
	return NewLazy[T](r.App(), name)
}

// Name returns the component name the handle points to.
func (l *Lazy[T]) Name() string { return l.name }

// Resolved reports whether the handle was dereferenced successfully.
func (l *Lazy[T]) Resolved() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.resolved
}

// Get resolves the component on first call and caches it; failures are not cached.
// The lock is not held while resolving, so a dereference reached again from inside the
// same construction surfaces as a CircularDependencyError rather than a deadlock.
func (l *Lazy[T]) Get(ctx context.Context) (T, error) {
	l.mu.Lock()
	if l.resolved {
		defer l.mu.Unlock()
		return l.value, nil
	}
	l.mu.Unlock()

	typed, err := Resolve[T](l.app.Resolver(ctx), l.name)
	if err != nil {
		var zero T
		return zero, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.resolved {
		l.value = typed
		l.resolved = true
	}
	return l.value, nil
}
