package rest

import (
	"net/http"

	"github.com/slateci/slate-federation/internal/executor"
)

// errorEnvelope is §7's {kind, message} error shape.
type errorEnvelope struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// writeError converts an executor error into the §7 envelope at the
// correct HTTP status. Any error that isn't a *executor.Error (meaning a
// bug slipped a raw error past the executor boundary) is treated as a
// StoreFailure, never leaking its text to the client.
func writeError(w http.ResponseWriter, err error) {
	execErr, ok := err.(*executor.Error)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, errorEnvelope{Kind: "Error", Message: "internal error"})
		return
	}

	status := http.StatusInternalServerError
	switch execErr.Kind {
	case executor.Unauthenticated, executor.Forbidden:
		status = http.StatusForbidden
	case executor.BadRequest:
		status = http.StatusBadRequest
	case executor.NotFound:
		status = http.StatusNotFound
	case executor.Conflict:
		status = http.StatusConflict
	case executor.UpstreamFailure, executor.StoreFailure:
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, errorEnvelope{Kind: "Error", Message: execErr.Message})
}
