// Package iochttp binds request contexts to HTTP requests.
//
// Wire RequestScope once on the router; handlers then resolve request-scoped
// components through the request's context:
//
//	r.Use(iochttp.RequestScope(app, logger))
//	r.Get("/orders", func(w http.ResponseWriter, r *http.Request) {
//	    repo, err := iochttp.FromRequest[*OrderRepo](r, "orders.repo")
//	    ...
//	})
package iochttp

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	ioc "github.com/plumeink/cullinan-ioc"
)

// Header is the HTTP header used to propagate the request ID.
const Header = "X-Request-ID"

type appKey struct{}
type loggerKey struct{}

// RequestScope enters a request context for every request and exits it once the
// handler returns, also when it panics. An inbound X-Request-ID is reused as the
// context ID and echoed back in the response.
func RequestScope(app *ioc.ApplicationContext, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = app.Logger()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx, rc, err := app.EnterRequestContextWithID(r.Context(), r.Header.Get(Header))
			if err != nil {
				logger.Error("cannot enter request context", "error", err, "path", r.URL.Path)
				WriteError(w, err)
				return
			}

			reqLog := logger.With("request_id", rc.ID())
			ctx = context.WithValue(ctx, appKey{}, app)
			ctx = context.WithValue(ctx, loggerKey{}, reqLog)
			w.Header().Set(Header, rc.ID())

			defer func() {
				if err := app.ExitRequestContext(ctx, rc); err != nil {
					reqLog.Error("request context exit failed", "error", err)
				}
				reqLog.Debug("request scope closed",
					"method", r.Method,
					"path", r.URL.Path,
					"duration", time.Since(start).String(),
				)
			}()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// LoggerFrom returns the request-tagged logger injected by RequestScope, or a logger
// that discards everything.
func LoggerFrom(ctx context.Context) *slog.Logger {
	if log, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && log != nil {
		return log
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// AppFrom returns the application context bound by RequestScope.
func AppFrom(ctx context.Context) (*ioc.ApplicationContext, bool) {
	app, ok := ctx.Value(appKey{}).(*ioc.ApplicationContext)
	return app, ok && app != nil
}

// FromRequest resolves name inside the request context of r.
func FromRequest[T any](r *http.Request, name string) (T, error) {
	app, ok := AppFrom(r.Context())
	if !ok {
		var zero T
		return zero, &ioc.ScopeNotActiveError{Name: name, Scope: ioc.ScopeRequest}
	}
	return ioc.Resolve[T](app.Resolver(r.Context()), name)
}
