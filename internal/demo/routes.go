package demo

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/plumeink/cullinan-ioc/iochttp"
)

// Routes mounts the demo handlers. They expect to run under iochttp.RequestScope.
func Routes(r chi.Router) {
	r.Get("/visits/{key}", visit)
}

type visitResponse struct {
	Key       string   `json:"key"`
	Count     int64    `json:"count"`
	Backend   string   `json:"backend"`
	RequestID string   `json:"request_id"`
	Events    []string `json:"events"`
}

func visit(w http.ResponseWriter, r *http.Request) {
	svc, err := iochttp.FromRequest[*Service](r, ServiceName)
	if err != nil {
		iochttp.WriteError(w, err)
		return
	}
	audit, err := iochttp.FromRequest[*Audit](r, AuditName)
	if err != nil {
		iochttp.WriteError(w, err)
		return
	}

	key := chi.URLParam(r, "key")
	n, err := svc.Visit(r.Context(), audit, key)
	if err != nil {
		iochttp.LoggerFrom(r.Context()).Error("visit failed", "key", key, "error", err)
		iochttp.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(visitResponse{ //nolint:errcheck
		Key:       key,
		Count:     n,
		Backend:   svc.Backend(),
		RequestID: audit.RequestID,
		Events:    audit.Events(),
	})
}
