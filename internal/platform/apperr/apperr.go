// Package apperr defines the operational error taxonomy shared by services and the HTTP boundary.
// Every kind carries an HTTP status and a message that is safe to show to callers.
package apperr

import (
	"errors"
	"net/http"
)

// Error kinds. Services wrap them with New so callers can match with errors.Is.
var (
	ErrUnauthenticated       = errors.New("unauthenticated")
	ErrAccountLocked         = errors.New("account locked")
	ErrForbidden             = errors.New("forbidden")
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrEmailNotVerified      = errors.New("email not verified")
	ErrInvalidOrExpiredOTP   = errors.New("invalid or expired otp")
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")
	ErrNotFound              = errors.New("not found")
	ErrConflict              = errors.New("conflict")
	ErrValidation            = errors.New("validation error")
	ErrTooManyRequests       = errors.New("too many requests")
)

// InternalMessage is returned for failures that are not part of the taxonomy.
const InternalMessage = "Something went wrong"

// Error is an expected, operational failure with a caller-facing message.
type Error struct {
	Kind    error
	Message string
}

// New returns an Error of the given kind with a caller-facing message.
func New(kind error, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Kind }

// Validation returns an ErrValidation error with message.
func Validation(message string) *Error {
	return New(ErrValidation, message)
}

// NotFound returns an ErrNotFound error with message.
func NotFound(message string) *Error {
	return New(ErrNotFound, message)
}

// Forbidden returns an ErrForbidden error with message.
func Forbidden(message string) *Error {
	return New(ErrForbidden, message)
}

// Conflict returns an ErrConflict error with message.
func Conflict(message string) *Error {
	return New(ErrConflict, message)
}

var statusByKind = []struct {
	kind   error
	status int
}{
	{ErrUnauthenticated, http.StatusUnauthorized},
	{ErrInvalidCredentials, http.StatusUnauthorized},
	{ErrEmailNotVerified, http.StatusUnauthorized},
	{ErrAccountLocked, http.StatusForbidden},
	{ErrForbidden, http.StatusForbidden},
	{ErrInvalidOrExpiredOTP, http.StatusBadRequest},
	{ErrInvalidOrExpiredToken, http.StatusBadRequest},
	{ErrValidation, http.StatusBadRequest},
	{ErrNotFound, http.StatusNotFound},
	{ErrConflict, http.StatusConflict},
	{ErrTooManyRequests, http.StatusTooManyRequests},
}

// Status returns the HTTP status for err. Errors outside the taxonomy map to 500.
func Status(err error) int {
	for _, k := range statusByKind {
		if errors.Is(err, k.kind) {
			return k.status
		}
	}
	return http.StatusInternalServerError
}

// IsOperational reports whether err belongs to the taxonomy.
func IsOperational(err error) bool {
	return Status(err) != http.StatusInternalServerError
}

// Message returns the caller-facing message for err. Non-operational errors never leak their text.
func Message(err error) string {
	if !IsOperational(err) {
		return InternalMessage
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Error()
	}
	for _, k := range statusByKind {
		if errors.Is(err, k.kind) {
			return k.kind.Error()
		}
	}
	return InternalMessage
}
