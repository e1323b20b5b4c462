// Error handling utilities for the HTTP API.
// Internal error text is logged, never returned to clients.

package admin

import (
	"errors"
	"log/slog"
	"net/http"
)

// Safe error messages for client responses.
const (
	// ErrMsgInternalError is returned for unexpected internal errors.
	ErrMsgInternalError = "An internal error occurred"

	// ErrMsgInvalidJSON is returned for JSON parsing errors.
	ErrMsgInvalidJSON = "Invalid JSON in request body"

	// ErrMsgBodyTooLarge is returned when the request body exceeds the limit.
	ErrMsgBodyTooLarge = "Request body too large"

	// ErrMsgNotConfigured is returned for endpoints whose backing component
	// is disabled.
	ErrMsgNotConfigured = "Endpoint is not enabled on this server"
)

// sanitizeError logs err with its context and returns a message that is safe
// to send to the client.
func sanitizeError(err error, log *slog.Logger, operation string, details ...any) string {
	if log != nil {
		args := []any{"operation", operation, "error", err}
		args = append(args, details...)
		log.Error("operation failed", args...)
	}
	return ErrMsgInternalError
}

// decodeErrorResponse picks the status and message for a request body that
// could not be decoded.
func decodeErrorResponse(err error) (status int, code, message string) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge, "body_too_large", ErrMsgBodyTooLarge
	}
	return http.StatusBadRequest, "invalid_json", ErrMsgInvalidJSON
}
