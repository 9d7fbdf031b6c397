// Package auth provides the OAuth identity provider client and the typed
// error values used by session resolution.
package auth

import "errors"

// ErrorKind classifies a session-resolution failure at the point it is
// raised, so callers never have to pattern-match error messages.
type ErrorKind int

const (
	// Recoverable marks expected transient failures (malformed or missing
	// cookie, expired session). The session gate treats the request as
	// unauthenticated and continues without logging.
	Recoverable ErrorKind = iota
	// Fatal marks real faults (database errors, provider outages). The
	// session gate logs these and fails open.
	Fatal
)

// SessionError wraps a session-resolution failure with its classification.
type SessionError struct {
	Kind ErrorKind
	Err  error
}

// Error implements the error interface.
func (e *SessionError) Error() string {
	if e.Err == nil {
		return "session error"
	}
	return e.Err.Error()
}

// Unwrap exposes the underlying cause for errors.Is/As.
func (e *SessionError) Unwrap() error { return e.Err }

// RecoverableErr wraps err as a recoverable session error.
func RecoverableErr(err error) error {
	return &SessionError{Kind: Recoverable, Err: err}
}

// FatalErr wraps err as a fatal session error.
func FatalErr(err error) error {
	return &SessionError{Kind: Fatal, Err: err}
}

// IsRecoverable reports whether err is a session error tagged Recoverable.
// Untagged errors are not recoverable: unknown failures must be logged.
func IsRecoverable(err error) bool {
	var se *SessionError
	if errors.As(err, &se) {
		return se.Kind == Recoverable
	}
	return false
}
