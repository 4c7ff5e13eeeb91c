package httpapi

import (
	"encoding/json"
	"net/http"

	"predictd/internal/inference"
	"predictd/pkg/types"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}

// statusForError maps well-known inference errors to HTTP status codes.
func statusForError(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case inference.IsValidation(err), inference.IsUnsupportedFormat(err):
		return http.StatusBadRequest
	case inference.IsNotLoaded(err):
		return http.StatusNotFound
	case inference.IsExecTimeout(err):
		return http.StatusRequestTimeout
	case inference.IsTooBusy(err):
		return http.StatusTooManyRequests
	default:
		if he, ok := err.(HTTPError); ok {
			return he.StatusCode()
		}
		return http.StatusInternalServerError
	}
}
