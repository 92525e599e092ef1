// Handler helper functions: response encoding and the single place where
// domain errors become HTTP status codes.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/alphamind/gateway/internal/domain/chat"
	"github.com/alphamind/gateway/internal/infra/llm"
)

const (
	headerContentType = "Content-Type"
	mimeJSON          = "application/json"

	errFailedToEncode = "failed to encode response"
)

// writeJSON writes a JSON response with the given status.
func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set(headerContentType, mimeJSON)
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"detail":"`+errFailedToEncode+`"}`, http.StatusInternalServerError)
	}
}

// writeError writes an error response. The envelope is {"detail": msg} on
// every error path so clients parse one shape.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"detail": message})
}

// statusForError maps domain errors to HTTP status codes. This is the only
// place the mapping lives; services below the API layer never see HTTP.
//
//	validation        → 400
//	unknown model /
//	no candidates     → 404
//	degraded adapter  → 503
//	upstream failure  → 502
//	anything else     → 500
func statusForError(err error) int {
	switch {
	case errors.Is(err, chat.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, llm.ErrModelNotFound), errors.Is(err, llm.ErrNoModelsAvailable):
		return http.StatusNotFound
	case errors.Is(err, llm.ErrNotConfigured):
		return http.StatusServiceUnavailable
	case errors.Is(err, llm.ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeDomainError maps err through statusForError. Error messages from
// the domain never include credentials, so they are safe to echo.
func writeDomainError(w http.ResponseWriter, err error) {
	writeError(w, statusForError(err), err.Error())
}
