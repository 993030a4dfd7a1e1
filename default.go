package ioc

import (
	"context"
	"sync"
)

var (
	defaultMu  sync.Mutex
	defaultApp *ApplicationContext
)

// Default returns the process-wide application context, creating it on first access.
// Libraries should take an *ApplicationContext instead; this exists for main packages
// and registration shims.
func Default() *ApplicationContext {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultApp == nil {
		defaultApp = New()
	}
	return defaultApp
}

// SetDefault replaces the process-wide application context.
func SetDefault(app *ApplicationContext) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultApp = app
}

// ResetDefault discards the process-wide application context.
// This function is intended for testing purposes only.
func ResetDefault() {
	SetDefault(nil)
}

// Register adds def to the default application context.
func Register(def *Definition) error {
	return Default().Register(def)
}

// Refresh refreshes the default application context.
func Refresh(ctx context.Context) error {
	return Default().Refresh(ctx)
}

// Get resolves name from the default application context.
func Get(ctx context.Context, name string) (any, error) {
	return Default().Get(ctx, name)
}

// TryGet resolves name from the default application context, reporting absence.
func TryGet(ctx context.Context, name string) (any, bool, error) {
	return Default().TryGet(ctx, name)
}

// Shutdown shuts the default application context down.
func Shutdown(ctx context.Context, force bool) error {
	return Default().Shutdown(ctx, force)
}
