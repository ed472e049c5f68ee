package ticket

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownCategory means the selected kind is not configured at all.
	ErrUnknownCategory = errors.New("unknown ticket category")

	// ErrMisconfiguredCategory means no destination container could be
	// resolved for the kind, neither specific nor default.
	ErrMisconfiguredCategory = errors.New("ticket category has no destination container configured")

	// ErrPermissionDenied means the actor lacks the role an operation
	// requires. It is surfaced privately to the actor and never logged to
	// the sinks.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrBlacklisted means the actor is barred from opening tickets.
	ErrBlacklisted = errors.New("actor is blacklisted from opening tickets")

	// ErrNotATicket means the referenced channel has no ticket record.
	ErrNotATicket = errors.New("not a ticket channel")

	// ErrTooManyOpen means the opener already has the maximum number of
	// open tickets.
	ErrTooManyOpen = errors.New("too many open tickets")
)

// ValidationError reports the specific field and constraint an intake
// submission violated.
type ValidationError struct {
	Field      string
	Constraint string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("field %q: %s", e.Field, e.Constraint)
}

// PlatformError wraps a failure of the chat-platform adapter. Operations whose
// primary effect failed surface it to the invoking actor; purely informational
// deliveries swallow it.
type PlatformError struct {
	Op  string
	Err error
}

func (e *PlatformError) Error() string {
	return fmt.Sprintf("platform %s: %v", e.Op, e.Err)
}

func (e *PlatformError) Unwrap() error { return e.Err }

func platformErr(op string, err error) *PlatformError {
	return &PlatformError{Op: op, Err: err}
}
