package iochttp

import (
	"encoding/json"
	"errors"
	"net/http"

	ioc "github.com/plumeink/cullinan-ioc"
)

type errorBody struct {
	Status  int           `json:"status"`
	Message string        `json:"message"`
	Kind    ioc.ErrorKind `json:"kind,omitempty"`
	Names   []string      `json:"names,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body) //nolint:errcheck
}

// WriteError sends err as a JSON body carrying its container error kind. Unresolvable
// components are a wiring problem, so every kind maps to a 5xx status.
func WriteError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	body := errorBody{Message: err.Error()}
	var cerr ioc.Error
	if errors.As(err, &cerr) {
		body.Kind = cerr.Kind()
		body.Names = cerr.Names()
		if cerr.Kind() == ioc.KindShutdown {
			status = http.StatusServiceUnavailable
		}
	}
	body.Status = status
	writeJSON(w, status, body)
}
