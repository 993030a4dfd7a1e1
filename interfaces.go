package ioc

import "context"

// Package ioc provides interfaces for dependency injection and lifecycle management.

// PostConstructor is implemented by components that need initialization right after
// their factory returns.
type PostConstructor interface {
	OnPostConstruct(ctx context.Context) error
}

// Starter is implemented by components that must be started once the context is refreshed.
type Starter interface {
	OnStartup(ctx context.Context) error
}

// Stopper is implemented by components that release resources during shutdown.
type Stopper interface {
	OnShutdown(ctx context.Context) error
}

// PreDestroyer is implemented by components that need a final callback before they are
// discarded.
type PreDestroyer interface {
	OnPreDestroy(ctx context.Context) error
}

// Phased controls the relative order of lifecycle hooks.
// Lower phases start earlier and stop later. Components without it use the phase set
// with WithPhase, 0 by default.
type Phased interface {
	Phase() int
}

// Scope defines the lifetime and sharing behavior of a component.
type Scope string

// Available component scopes
const (
	// ScopeSingleton shares a single instance across the application context
	ScopeSingleton Scope = "singleton"
	// ScopePrototype creates a new instance for each resolution
	ScopePrototype Scope = "prototype"
	// ScopeRequest shares an instance within one request context
	ScopeRequest Scope = "request"
)

func (s Scope) valid() bool {
	switch s {
	case ScopeSingleton, ScopePrototype, ScopeRequest:
		return true
	}
	return false
}

// Hook names used in LifecycleError.
const (
	HookPostConstruct = "post_construct"
	HookStartup       = "startup"
	HookShutdown      = "shutdown"
	HookPreDestroy    = "pre_destroy"
)
