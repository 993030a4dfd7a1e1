package iochttp

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	ioc "github.com/plumeink/cullinan-ioc"
)

// NewRouter returns a chi router with panic recovery and the diagnostics routes mounted
// under /debug/ioc. Routes added by scoped run inside a request context.
func NewRouter(app *ioc.ApplicationContext, logger *slog.Logger, scoped func(r chi.Router)) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Mount("/debug/ioc", Diagnostics(app))
	if scoped != nil {
		r.Group(func(r chi.Router) {
			r.Use(RequestScope(app, logger))
			scoped(r)
		})
	}
	return r
}
