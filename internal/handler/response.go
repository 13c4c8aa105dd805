package handler

// RESPONSE HELPERS:
// Every error response has the same shape, whatever the route:
//   {"error": "unauthorized", "message": "invalid OAuth state"}
// Browser routes (the OAuth callback) get the same classification as plain
// text through writePageError.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/storefront/internal/apperror"
)

// ErrorResponse is the standard error format returned by API endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`   // Machine-readable error type (e.g., "not_found")
	Message string `json:"message"` // Human-readable description
}

// writeJSON sends a JSON response with the given status code.
// Headers and status must be written before the body.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// classify maps a domain error to an HTTP status, an error type and a
// message that is safe to show. errors.Is walks the whole chain, including
// both branches of an AppError.
func classify(err error) (status int, errorType, message string) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		// Unknown error: never expose internal details to the client.
		return http.StatusInternalServerError, "internal_error", "An internal error occurred"
	}

	status, errorType = http.StatusInternalServerError, "internal_error"
	switch {
	case errors.Is(err, apperror.ErrValidation):
		status, errorType = http.StatusBadRequest, "validation_error"
	case errors.Is(err, apperror.ErrUnauthorized):
		status, errorType = http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, apperror.ErrNotFound):
		status, errorType = http.StatusNotFound, "not_found"
	case errors.Is(err, apperror.ErrConflict):
		status, errorType = http.StatusConflict, "conflict"
	}
	return status, errorType, appErr.Message
}

// writeError sends err as a JSON ErrorResponse.
func writeError(w http.ResponseWriter, err error) {
	status, errorType, message := classify(err)
	writeJSON(w, status, ErrorResponse{Error: errorType, Message: message})
}

// writePageError sends err as a plain-text response for browser routes.
func writePageError(w http.ResponseWriter, err error) {
	status, _, message := classify(err)
	http.Error(w, message, status)
}
