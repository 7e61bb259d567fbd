// Package apperror defines the typed errors shared by the service and HTTP layers.
//
// Services return these; only the handler package maps them to status codes.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("validation error")
	ErrConflict        = errors.New("conflict")
	ErrForbidden       = errors.New("forbidden")
	ErrUnauthenticated = errors.New("unauthenticated")
)

type AppError struct {
	Err     error  // sentinel, matched with errors.Is
	Message string // human-readable, safe to show to the client
	Field   string // optional: request field that caused the error
	Reason  string // optional: machine-readable cause, for logs and metrics
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
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

// Conflict reports that a unique value (an email, a name) is already taken.
func Conflict(resource, field string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s with this %s already exists", resource, field),
		Field:   field,
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(reason, message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
		Reason:  reason,
	}
}

// Unauthenticated returns an AppError for a missing or unusable identity.
// The reason distinguishes e.g. an expired token from an unknown account;
// HTTP handlers map every reason to 401.
func Unauthenticated(reason, message string) *AppError {
	return &AppError{
		Err:     ErrUnauthenticated,
		Message: message,
		Reason:  reason,
	}
}

// ReasonOf returns the Reason of the first AppError in err's chain, or "".
func ReasonOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Reason
	}
	return ""
}
