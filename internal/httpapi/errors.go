package httpapi

import (
	"encoding/json"
	"net/http"

	"inferd/internal/manager"
	"inferd/pkg/types"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// statusForError maps core error taxonomy to HTTP status codes. The second
// result marks backpressure-class errors for the dedicated metric.
func statusForError(err error) (int, bool) {
	switch {
	case manager.IsUnknownModel(err):
		return http.StatusNotFound, false
	case manager.IsOverloaded(err):
		return http.StatusTooManyRequests, true
	case manager.IsInsufficientResources(err):
		return http.StatusInsufficientStorage, true
	case manager.IsUnderPressure(err):
		return http.StatusServiceUnavailable, true
	case manager.IsLoadTimeout(err), manager.IsEvictionTimeout(err):
		return http.StatusServiceUnavailable, false
	case manager.IsStaleResourceData(err):
		return http.StatusServiceUnavailable, false
	case manager.IsDependencyUnavailable(err):
		return http.StatusServiceUnavailable, false
	case manager.IsEngineLoadFailure(err):
		return http.StatusInternalServerError, false
	}
	if he, ok := err.(HTTPError); ok {
		return he.StatusCode(), false
	}
	return http.StatusInternalServerError, false
}

func backpressureReason(err error) string {
	switch {
	case manager.IsOverloaded(err):
		return "overloaded"
	case manager.IsInsufficientResources(err):
		return "insufficient_resources"
	case manager.IsUnderPressure(err):
		return "under_pressure"
	default:
		return "unspecified"
	}
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}
