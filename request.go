package ioc

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// RequestContext is the scope boundary of one logical unit of work. It holds the
// request-scoped instances built while it is active. It is created by
// EnterRequestContext and released by ExitRequestContext.
type RequestContext struct {
	id        string
	slots     slotCache
	lifecycle lifecycleRegistry
	enteredAt time.Time
	exited    atomic.Bool
}

// ID returns the identifier of the request context.
func (rc *RequestContext) ID() string { return rc.id }

// EnteredAt returns when the context was entered.
func (rc *RequestContext) EnteredAt() time.Time { return rc.enteredAt }

// Exited reports whether ExitRequestContext already ran for rc.
func (rc *RequestContext) Exited() bool { return rc.exited.Load() }

// Len returns the number of request-scoped instances currently cached.
func (rc *RequestContext) Len() int { return rc.slots.len() }

type requestKey struct{}

// requestFrom returns the active request context carried by ctx, or nil.
func requestFrom(ctx context.Context) *RequestContext {
	rc, _ := ctx.Value(requestKey{}).(*RequestContext)
	return rc
}

// detachRequest hides any request context from resolutions made with the returned ctx.
func detachRequest(ctx context.Context) context.Context {
	if requestFrom(ctx) == nil {
		return ctx
	}
	return context.WithValue(ctx, requestKey{}, (*RequestContext)(nil))
}

// CurrentRequestContext returns the request context active in ctx.
func CurrentRequestContext(ctx context.Context) (*RequestContext, bool) {
	rc := requestFrom(ctx)
	if rc == nil || rc.Exited() {
		return nil, false
	}
	return rc, true
}

// EnterRequestContext starts a request context with a generated ID. The returned
// context.Context must be used for every resolution belonging to the unit of work.
// Entering while another request context is active fails with NestedRequestContextError.
func (c *ApplicationContext) EnterRequestContext(ctx context.Context) (context.Context, *RequestContext, error) {
	return c.EnterRequestContextWithID(ctx, uuid.NewString())
}

// EnterRequestContextWithID is EnterRequestContext with a caller supplied ID, e.g. an
// inbound X-Request-ID.
func (c *ApplicationContext) EnterRequestContextWithID(ctx context.Context, id string) (context.Context, *RequestContext, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if active, ok := CurrentRequestContext(ctx); ok {
		return ctx, nil, &NestedRequestContextError{ActiveID: active.id}
	}
	if id == "" {
		id = uuid.NewString()
	}

	rc := &RequestContext{id: id, enteredAt: time.Now()}
	rc.lifecycle.markRunning()

	c.activeRequests.Add(1)
	c.observer.RequestEntered(id)
	c.logger.Debug("request context entered", "request_id", id)
	return context.WithValue(ctx, requestKey{}, rc), rc, nil
}

// ExitRequestContext stops the request-scoped instances of rc in descending phase order
// and discards them. The cache is released even when hooks fail; failures are returned
// as a ShutdownError. Exiting twice is a no-op. Instances still being built when rc
// exits are released by their builder, whose resolution fails with
// RequestContextExitedError.
func (c *ApplicationContext) ExitRequestContext(ctx context.Context, rc *RequestContext) error {
	if rc == nil || !rc.exited.CompareAndSwap(false, true) {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	items := rc.lifecycle.seal()
	defer func() {
		rc.slots.clear()
		c.activeRequests.Add(-1)
		c.observer.RequestExited(rc.id, len(items))
		c.logger.Debug("request context exited",
			"request_id", rc.id,
			"instances", len(items),
			"duration", time.Since(rc.enteredAt).String(),
		)
	}()

	if errs := c.hooks.stopAll(context.WithoutCancel(ctx), items, false); len(errs) > 0 {
		return &ShutdownError{Errors: errs}
	}
	return nil
}

// WithRequestContext runs fn inside a fresh request context and always exits it, also
// when fn fails or panics. Exit failures are joined to fn's error.
func (c *ApplicationContext) WithRequestContext(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	reqCtx, rc, err := c.EnterRequestContext(ctx)
	if err != nil {
		return err
	}
	defer func() {
		exitErr := c.ExitRequestContext(reqCtx, rc)
		if err == nil {
			err = exitErr
		} else if exitErr != nil {
			err = errors.Join(err, exitErr)
		}
	}()
	return fn(reqCtx)
}

// ActiveRequestContexts returns the number of entered, not yet exited request contexts.
func (c *ApplicationContext) ActiveRequestContexts() int64 {
	return c.activeRequests.Load()
}
