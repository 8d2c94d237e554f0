// Package common defines the shared error taxonomy used across the account
// service. Callers should use errors.Is to match the sentinel kinds.
package common

import (
	"errors"
	"net/http"
)

var (
	// ErrValidation covers missing or empty required fields (400).
	ErrValidation = errors.New("validation error")

	// ErrUnauthorized covers bad credentials and invalid, expired, replayed
	// or missing tokens (401).
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound means no matching account (404).
	ErrNotFound = errors.New("not found")

	// ErrConflict means a duplicate username or email (409).
	ErrConflict = errors.New("already exists")

	// ErrInternal covers hashing, signing and storage failures not
	// attributable to caller input (500).
	ErrInternal = errors.New("internal error")
)

// Error is a domain failure: one of the sentinel kinds above plus a user-safe
// message. The kind matches with errors.Is; the message is what the HTTP
// boundary serializes into the error envelope.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

// NewError wraps kind with a user-safe message.
func NewError(kind error, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// StatusFor maps a domain error to its HTTP status code. Unknown errors map
// to 500 so that unexpected failures never leak as client errors.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the user-safe message for err: the embedded message for a
// domain *Error, a generic one otherwise.
func Message(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return "internal error"
}
