// Package apperr defines the failure kinds every operation reports and maps
// them to HTTP status codes and user-facing messages.
package apperr

import (
	"errors"
	"net/http"
)

// Failure kinds. Services wrap these so handlers and the error handler can
// classify a failure with errors.Is.
var (
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUpstream     = errors.New("upstream service failure")
	ErrBusy         = errors.New("system busy")
)

// GenericMessage is shown for failures that carry no user-facing message.
const GenericMessage = "something went wrong, please try again"

// Error pairs a failure kind with the message shown to the caller. The
// optional cause is kept for logging and never rendered.
type Error struct {
	Kind    error
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Kind, e.Cause}
	}
	return []error{e.Kind}
}

func newError(kind error, msg string, cause error) error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

func Validation(msg string) error   { return newError(ErrValidation, msg, nil) }
func Unauthorized(msg string) error { return newError(ErrUnauthorized, msg, nil) }
func Forbidden(msg string) error    { return newError(ErrForbidden, msg, nil) }
func NotFound(msg string) error     { return newError(ErrNotFound, msg, nil) }
func Conflict(msg string) error     { return newError(ErrConflict, msg, nil) }
func Busy(msg string) error         { return newError(ErrBusy, msg, nil) }

// Upstream reports a failed call to the model or storage API.
func Upstream(msg string, cause error) error { return newError(ErrUpstream, msg, cause) }

// Status maps an error to the HTTP status code of its kind. Unclassified
// errors are internal server errors.
func Status(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrUpstream):
		return http.StatusBadGateway
	case errors.Is(err, ErrBusy):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the user-facing message carried by err, or the generic
// message when err has none.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return GenericMessage
}
