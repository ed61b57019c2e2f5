package store

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is a store error with an HTTP status code.
type Error struct {
	Code    int    // HTTP status code
	Message string // User-facing message
	Err     error  // Underlying error (optional)

	// sentinel is the package-level error this one was derived from.
	sentinel *Error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches errors derived from the same sentinel, so results of WithCause
// and WithMessage still satisfy errors.Is against it.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	root := e.root()
	if root == t.root() {
		return true
	}
	return root != e && errors.Is(root, target)
}

func (e *Error) root() *Error {
	if e.sentinel != nil {
		return e.sentinel
	}
	return e
}

// HTTPCode returns the HTTP status code associated with this error.
func (e *Error) HTTPCode() int { return e.Code }

// WithMessage returns a new error with a custom message.
func (e *Error) WithMessage(msg string) *Error {
	return &Error{
		Code:     e.Code,
		Message:  msg,
		Err:      e.Err,
		sentinel: e.root(),
	}
}

// WithCause wraps an underlying error.
func (e *Error) WithCause(err error) *Error {
	return &Error{
		Code:     e.Code,
		Message:  e.Message,
		Err:      err,
		sentinel: e.root(),
	}
}

// Sentinel errors.
var (
	ErrNotFound = &Error{
		Code:    http.StatusNotFound,
		Message: "resource not found",
	}

	ErrAlreadyExists = &Error{
		Code:    http.StatusConflict,
		Message: "resource already exists",
	}

	ErrInvalidInput = &Error{
		Code:    http.StatusBadRequest,
		Message: "invalid input",
	}

	// ErrInvalidTransition is returned when a status change would move a
	// competition backwards in its lifecycle.
	ErrInvalidTransition = &Error{
		Code:    http.StatusConflict,
		Message: "invalid status transition",
	}

	// ErrUnavailable marks a transient failure (write conflict, busy database)
	// that callers may retry.
	ErrUnavailable = &Error{
		Code:    http.StatusServiceUnavailable,
		Message: "store unavailable",
	}
)

// Entity-specific not-found errors. All of them satisfy errors.Is(err, ErrNotFound).
var (
	ErrHabitNotFound       = &Error{Code: http.StatusNotFound, Message: "habit not found", Err: ErrNotFound}
	ErrCompetitionNotFound = &Error{Code: http.StatusNotFound, Message: "competition not found", Err: ErrNotFound}
	ErrParticipantNotFound = &Error{Code: http.StatusNotFound, Message: "participant not found", Err: ErrNotFound}
)
