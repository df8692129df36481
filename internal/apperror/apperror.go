// Package apperror defines the error kinds every service boundary converts
// store and provider failures into. Handlers map them to HTTP responses;
// nothing below the service layer reaches a client as a raw transport error.
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
	ErrUnauthorized    = errors.New("unauthorized")
	ErrNotWhitelisted  = errors.New("not whitelisted")
	ErrLookupFailed    = errors.New("lookup failed")
	ErrAccountCreation = errors.New("account creation failed")
	ErrUnavailable     = errors.New("store unavailable")
)

// NotWhitelistedMessage is shown to a user whose session was terminated
// because their email is missing from the whitelist.
const NotWhitelistedMessage = "Your email is not whitelisted. Please contact the administrator."

type AppError struct {
	Err     error  // sentinel kind
	Message string // human-readable error message
	Field   string // optional: field causing the error
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

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Unauthorized means no usable session was presented.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// NotWhitelisted is returned by the session guard after it has forced the
// identity to sign out.
func NotWhitelisted() *AppError {
	return &AppError{
		Err:     ErrNotWhitelisted,
		Message: NotWhitelistedMessage,
	}
}

// LookupFailed reports a store lookup that kept failing after every retry.
// It is a different kind from NotFound: an exhausted lookup
// says nothing about whether the entry exists.
func LookupFailed(what string, cause error) *AppError {
	return &AppError{
		Err:     fmt.Errorf("%w: %w", ErrLookupFailed, cause),
		Message: fmt.Sprintf("%s is temporarily unavailable, please try again", what),
	}
}

// Unavailable reports a store operation that failed outright. The message
// asks the user to retry and never includes cause.
func Unavailable(what string, cause error) *AppError {
	return &AppError{
		Err:     fmt.Errorf("%w: %w", ErrUnavailable, cause),
		Message: fmt.Sprintf("the %s store is unavailable right now, please try again", what),
	}
}

// AccountCreationFailed carries the identity provider's reason verbatim.
func AccountCreationFailed(reason string) *AppError {
	return &AppError{
		Err:     ErrAccountCreation,
		Message: reason,
	}
}
