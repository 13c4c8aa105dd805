// Package apperror defines the application's error taxonomy.
//
// Every error that should reach a client carries one of the sentinel
// "classes" below (ErrNotFound, ErrUnauthorized, ...). Handlers map the class
// to an HTTP status; the optional Cause keeps the precise reason so callers can
// still match it with errors.Is.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation error")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
)

type AppError struct {
	Err     error  // error class (one of the sentinels above)
	Cause   error  // optional: the specific reason, e.g. auth.ErrStateMismatch
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

// Unwrap exposes both the class and the cause to errors.Is / errors.As.
func (e *AppError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// Unauthorized returns an AppError for a failed authentication step.
// cause is the precise reason and may be nil.
func Unauthorized(cause error, message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Cause:   cause,
		Message: message,
	}
}

// NotFoundCause is NotFound with a specific reason attached.
func NotFoundCause(cause error, message string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Cause:   cause,
		Message: message,
	}
}
