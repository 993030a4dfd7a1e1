package iochttp

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	ioc "github.com/plumeink/cullinan-ioc"
)

type graphBody struct {
	State      string              `json:"state"`
	EagerOrder []string            `json:"eager_order"`
	Edges      map[string][]string `json:"edges"`
	Requests   int64               `json:"active_requests"`
}

// Diagnostics returns read-only JSON routes describing app:
//
//	GET /definitions  registered definitions in registration order
//	GET /graph        dependency edges, eager order and state
func Diagnostics(app *ioc.ApplicationContext) http.Handler {
	r := chi.NewRouter()
	r.Get("/definitions", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, app.Definitions())
	})
	r.Get("/graph", func(w http.ResponseWriter, _ *http.Request) {
		order, err := app.EagerOrder()
		if err != nil {
			WriteError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, graphBody{
			State:      app.State().String(),
			EagerOrder: order,
			Edges:      app.DependencyGraph(),
			Requests:   app.ActiveRequestContexts(),
		})
	})
	return r
}
