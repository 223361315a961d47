package backend

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies why a backend call did not produce a result.
type ErrorKind string

const (
	// KindConnectionInit means the adapter could not establish connectivity.
	KindConnectionInit ErrorKind = "connection_init"
	// KindCallFailure means the call raised or returned an invalid payload.
	KindCallFailure ErrorKind = "call_failure"
	// KindTimeout means the call exceeded its budget.
	KindTimeout ErrorKind = "timeout"
)

// Error is returned by every adapter method that fails.
type Error struct {
	Backend   ID
	Operation Operation
	Kind      ErrorKind
	Err       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %s: %v", e.Backend, e.Operation, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// newError classifies err for the given call. Context deadline errors are
// reported as timeouts regardless of the kind suggested by the caller.
func newError(id ID, op Operation, kind ErrorKind, err error) *Error {
	var existing *Error
	if errors.As(err, &existing) {
		return existing
	}

	if errors.Is(err, context.DeadlineExceeded) {
		kind = KindTimeout
	}

	return &Error{Backend: id, Operation: op, Kind: kind, Err: err}
}

// KindOf returns the kind of a backend error, or KindCallFailure for any
// other non-nil error.
func KindOf(err error) ErrorKind {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}

	return KindCallFailure
}
