package proxy

import (
	"errors"
	"fmt"
	"net/http"
)

// Request-fault conditions raised while rewriting.
var (
	ErrBodyRequired         = errors.New("body required")
	ErrBodyMustBeJSONObject = errors.New("body must be a json object")
	ErrModelRequired        = errors.New("model required")
	ErrAccessTokenRequired  = errors.New("access token required")
)

// Error carries an HTTP status class alongside the underlying cause so the
// server layer can tell a malformed request apart from a failed credential
// acquisition.
type Error struct {
	Status int
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("proxy: %v", e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// BadRequest wraps a client-fault error (malformed body, headers, or values).
func BadRequest(err error) *Error {
	return &Error{Status: http.StatusBadRequest, Err: err}
}

// Unauthorized wraps a missing-credential error.
func Unauthorized(err error) *Error {
	return &Error{Status: http.StatusUnauthorized, Err: err}
}

// Internal wraps a proxy-fault error (transport failures, broker failures).
func Internal(err error) *Error {
	return &Error{Status: http.StatusInternalServerError, Err: err}
}

// StatusOf returns the HTTP status class for err, defaulting to 500 for
// errors that carry no class of their own.
func StatusOf(err error) int {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Status
	}
	return http.StatusInternalServerError
}
