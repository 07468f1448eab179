// internal/dates/errors.go
// Closed error taxonomy for the proposal lifecycle. Handlers map codes to
// HTTP statuses; services return nothing outside this set for domain
// failures.

package dates

import (
	"errors"
	"fmt"
)

// Error codes
const (
	CodeNotAMatch          = "NOT_A_MATCH"
	CodeSchedulingConflict = "SCHEDULING_CONFLICT"
	CodeNotFound           = "NOT_FOUND"
	CodeForbidden          = "FORBIDDEN"
	CodeForbiddenTurn      = "FORBIDDEN_TURN"
	CodeInsufficientFunds  = "INSUFFICIENT_FUNDS"
	CodeInvalidTransition  = "INVALID_TRANSITION"
	CodeTransient          = "TRANSIENT"
)

// Error is a domain error with a machine-readable code. Conflict errors
// carry the proposal that blocks the request.
type Error struct {
	Code        string
	Message     string
	Conflicting *DateProposal
	cause       error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is/As chains
func (e *Error) Unwrap() error {
	return e.cause
}

// NewError creates a domain error
func NewError(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WrapError creates a domain error around a cause
func WrapError(code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// ErrNotAMatch is the mutual-match precondition failure
func ErrNotAMatch() *Error {
	return NewError(CodeNotAMatch, "A mutual match is required before a date can be proposed.")
}

// ErrSchedulingConflict reports an open proposal already holding the day
func ErrSchedulingConflict(conflicting *DateProposal) *Error {
	return &Error{
		Code:        CodeSchedulingConflict,
		Message:     "An active date proposal already exists for this day.",
		Conflicting: conflicting,
	}
}

// ErrNotFound reports a missing (or hidden) proposal
func ErrNotFound() *Error {
	return NewError(CodeNotFound, "Date not found.")
}

// ErrNotParticipant rejects a caller who is not a side of the proposal
func ErrNotParticipant() *Error {
	return NewError(CodeForbidden, "Forbidden. You are not a participant in this date.")
}

// ErrNotYourTurn rejects a response from the side that already approved
func ErrNotYourTurn() *Error {
	return NewError(CodeForbiddenTurn, "It's not your turn to respond. Waiting for the other user.")
}

// ErrInvalidTransition rejects an operation the current status forbids
func ErrInvalidTransition(message string) *Error {
	return NewError(CodeInvalidTransition, message)
}

// ErrInsufficientFunds reports a token balance too low for the operation
func ErrInsufficientFunds() *Error {
	return NewError(CodeInsufficientFunds, "Insufficient tokens to express attraction.")
}

// AsError extracts a domain *Error from an error chain
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
