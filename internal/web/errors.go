package web

// errors.go provides unified error response handling for the web layer.
//
// It ensures all errors are:
//   - Logged with full technical details for debugging (server-side)
//   - Returned to clients as user-friendly messages with action suggestions
//
// The error flow:
//  1. Handler encounters an error
//  2. Calls respondError(w, r, err)
//  3. Error is mapped via catalog.MapError to get user-friendly message
//  4. Technical error + context is logged with request ID for correlation
//  5. HTTP status is derived from the error type

import (
	"errors"
	"net/http"

	"github.com/cabinetworks/catalog/internal/catalog"
	"github.com/cabinetworks/catalog/internal/logging"
)

// errBadRequest marks handler-level validation failures (malformed URL
// params, missing form fields) so they map to 400 rather than 500.
var errBadRequest = errors.New("bad request")

// ErrorResponse is the JSON structure for API error responses.
// Message carries the user-facing summary, Error the specific failure,
// and Details an optional action the caller can take.
type ErrorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	Code    string `json:"code"`
}

// respondError maps err to a user-facing response, logs the technical
// error with its request ID, and writes the JSON body.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	userMsg := catalog.MapError(err)
	status := statusForError(err)

	logging.FromContext(r.Context()).Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", userMsg.Code,
	)

	writeJSON(w, status, ErrorResponse{
		Message: userMsg.Message,
		Error:   err.Error(),
		Details: userMsg.Action,
		Code:    userMsg.Code,
	})
}

// statusForError derives an HTTP status code from the error type.
func statusForError(err error) int {
	var backupErr *catalog.BackupError
	var chunkErr *catalog.ChunkError

	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, catalog.ErrUnsupportedFormat):
		return http.StatusBadRequest
	case errors.Is(err, catalog.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, catalog.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, catalog.ErrAlreadyRolledBack):
		return http.StatusNotFound
	case errors.Is(err, catalog.ErrTooManyUploads):
		return http.StatusTooManyRequests
	case errors.As(err, &backupErr), errors.As(err, &chunkErr):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
