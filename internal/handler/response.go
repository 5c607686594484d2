// Package handler implements the HTTP surface: the thin, cooperative-I/O
// front-end the spec places out of core scope, wired here only as the
// ambient layer that exercises the core components (C1-C12) behind
// chi routes, JWT auth, and the activity log.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/tedkulp/cartulary-go/internal/apperr"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("handler: failed to write JSON response", "error", err)
	}
}

// errorResponse is the standard error body.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Detail  any    `json:"detail,omitempty"`
}

// writeError writes a standard error response.
func writeError(w http.ResponseWriter, status int, errCode, message string) {
	writeJSON(w, status, errorResponse{Error: errCode, Message: message})
}

// writeAppErr maps an apperr.Error (or any other error) to its HTTP
// response, falling back to a generic 500 when err isn't one of ours.
func writeAppErr(w http.ResponseWriter, err error) {
	if e, ok := apperr.As(err); ok {
		writeJSON(w, e.Kind.HTTPStatus(), errorResponse{
			Error:   string(e.Kind),
			Message: e.Message,
			Detail:  e.Detail,
		})
		return
	}
	slog.Error("handler: unhandled error", "error", err)
	writeError(w, http.StatusInternalServerError, "internal", "internal server error")
}
