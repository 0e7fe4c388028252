package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies an application error into the public taxonomy
type Kind string

const (
	KindValidation            Kind = "ValidationError"
	KindInvalidCredentials    Kind = "AuthInvalidCredentials"
	KindUnauthenticated       Kind = "AuthUnauthenticated"
	KindForbidden             Kind = "Forbidden"
	KindUserNotFound          Kind = "UserNotFound"
	KindNotFound              Kind = "NotFound"
	KindDuplicateEmail        Kind = "DuplicateEmail"
	KindTokenInvalidOrExpired Kind = "TokenInvalidOrExpired"
	KindEmailDispatchFailed   Kind = "EmailDispatchFailed"
	KindInternal              Kind = "InternalError"
)

var statusByKind = map[Kind]int{
	KindValidation:            http.StatusBadRequest,
	KindInvalidCredentials:    http.StatusUnauthorized,
	KindUnauthenticated:       http.StatusUnauthorized,
	KindForbidden:             http.StatusForbidden,
	KindUserNotFound:          http.StatusNotFound,
	KindNotFound:              http.StatusNotFound,
	KindDuplicateEmail:        http.StatusBadRequest,
	KindTokenInvalidOrExpired: http.StatusBadRequest,
	KindEmailDispatchFailed:   http.StatusInternalServerError,
	KindInternal:              http.StatusInternalServerError,
}

// Error is an operational error: its Message is safe to show to clients.
// Err keeps the underlying cause for logs and errors.Is/As.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Details map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Operational reports whether the error is an anticipated, client-facing condition.
// Internal errors are never operational.
func (e *Error) Operational() bool { return e.Kind != KindInternal }

func New(kind Kind, message string) *Error {
	status, ok := statusByKind[kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	return &Error{Kind: kind, Status: status, Message: message}
}

// Wrap attaches a cause to a new error of the given kind
func Wrap(kind Kind, message string, err error) *Error {
	e := New(kind, message)
	e.Err = err
	return e
}

func Validation(message string, details map[string]string) *Error {
	e := New(KindValidation, message)
	e.Details = details
	return e
}

func InvalidCredentials(message string) *Error { return New(KindInvalidCredentials, message) }
func Unauthenticated(message string) *Error    { return New(KindUnauthenticated, message) }
func Forbidden(message string) *Error          { return New(KindForbidden, message) }
func UserNotFound(message string) *Error       { return New(KindUserNotFound, message) }
func DuplicateEmail(message string) *Error     { return New(KindDuplicateEmail, message) }
func TokenInvalidOrExpired(message string) *Error {
	return New(KindTokenInvalidOrExpired, message)
}
func EmailDispatchFailed(message string, err error) *Error {
	return Wrap(KindEmailDispatchFailed, message, err)
}
func Internal(err error) *Error { return Wrap(KindInternal, "internal error", err) }

// From classifies any error. Errors outside the taxonomy become InternalError.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal(err)
}

// Is reports whether err carries the given kind
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
