package ir

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrNotFound is wrapped by every *LookupError.
var ErrNotFound = errors.New("not found")

// IdentityError reports a cross-reference whose target UUID could not be
// bound to a node of the expected kind.
type IdentityError struct {
	Ref    string // which reference, e.g. "symbol referent"
	UUID   uuid.UUID
	Reason string
}

func (e *IdentityError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("unresolved %s %s", e.Ref, e.UUID)
	}
	return fmt.Sprintf("unresolved %s %s: %s", e.Ref, e.UUID, e.Reason)
}

// LookupError reports a required key or address that holds nothing.
type LookupError struct {
	What string
	Key  string
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("%s %s not found", e.What, e.Key)
}

func (e *LookupError) Unwrap() error { return ErrNotFound }

// InvariantViolation is returned when a caller tries to put the model into a
// state it forbids.
type InvariantViolation struct {
	Msg string
}

func (e *InvariantViolation) Error() string {
	return "invariant violation: " + e.Msg
}

func invariantf(format string, args ...any) error {
	return &InvariantViolation{Msg: fmt.Sprintf(format, args...)}
}
