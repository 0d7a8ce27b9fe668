package errs

import (
	"errors"
	"fmt"
)

// Error is the failure value returned by the remote client.
// Kind is one of the package sentinels; Notified reports that the user already saw it.
type Error struct {
	Kind     error
	Op       string
	Message  string
	Code     int // envelope code, ErrAPI only
	Status   int // HTTP status, 0 when no response
	Notified bool
	Cause    error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Kind != nil {
		msg = e.Kind.Error()
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap exposes both the kind sentinel and the cause.
func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Cause != nil {
		out = append(out, e.Cause)
	}
	return out
}

// Unauthenticated builds an ErrUnauthenticated failure for op.
func Unauthenticated(op string) *Error {
	return &Error{Kind: ErrUnauthenticated, Op: op, Message: "please log in first"}
}

// RequestFailed builds an ErrRequestFailed failure for op.
func RequestFailed(op string, status int, cause error) *Error {
	return &Error{Kind: ErrRequestFailed, Op: op, Message: "request failed", Status: status, Cause: cause}
}

// API builds an ErrAPI failure carrying the backend message.
func API(op string, code, status int, message string) *Error {
	return &Error{Kind: ErrAPI, Op: op, Message: message, Code: code, Status: status}
}

// As extracts *Error from err.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Notified reports whether the error has already been shown to the user.
func Notified(err error) bool {
	e, ok := As(err)
	return ok && e.Notified
}

// Message returns the user-facing text of err.
func Message(err error) string {
	if e, ok := As(err); ok {
		if e.Message != "" {
			return e.Message
		}
		if e.Kind != nil {
			return e.Kind.Error()
		}
	}
	return err.Error()
}
