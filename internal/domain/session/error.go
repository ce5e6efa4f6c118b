package session

import (
	"errors"
	"fmt"
)

// Error represents domain-specific errors for sessions
type Error struct {
	Code    string
	Message string
	Details map[string]interface{}
}

// Error implements the error interface
func (e Error) Error() string {
	if len(e.Details) == 0 {
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
	return fmt.Sprintf("[%s] %s %v", e.Code, e.Message, e.Details)
}

// Is matches errors by code so errors.Is works with the sentinel values
func (e Error) Is(target error) bool {
	var t Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Common session errors
var (
	// ErrSessionClosed indicates a mutation after the session reached a terminal status
	ErrSessionClosed = Error{
		Code:    "SESSION_CLOSED",
		Message: "Session is closed",
	}

	// ErrInvalidTransition indicates a state change outside the transition table
	ErrInvalidTransition = Error{
		Code:    "SESSION_INVALID_TRANSITION",
		Message: "Invalid state transition",
	}

	// ErrInvariantViolation indicates a delta that would break a record invariant
	ErrInvariantViolation = Error{
		Code:    "SESSION_INVARIANT",
		Message: "Session invariant violated",
	}

	// ErrInvalidArgument indicates a bad construction parameter
	ErrInvalidArgument = Error{
		Code:    "SESSION_INVALID_ARGUMENT",
		Message: "Invalid session argument",
	}

	// ErrCancelled indicates the session was aborted before reaching a terminal state
	ErrCancelled = Error{
		Code:    "SESSION_CANCELLED",
		Message: "Session was cancelled",
	}

	// ErrNotFound indicates no archived session matched
	ErrNotFound = Error{
		Code:    "SESSION_NOT_FOUND",
		Message: "Session not found",
	}
)

// WithDetails adds details to an existing error
func (e Error) WithDetails(details map[string]interface{}) Error {
	e.Details = details
	return e
}

func violation(message string, details map[string]interface{}) Error {
	return Error{Code: ErrInvariantViolation.Code, Message: message, Details: details}
}

func hasCode(err error, code string) bool {
	var e Error
	return errors.As(err, &e) && e.Code == code
}

// IsClosed checks if the error is a closed-session error
func IsClosed(err error) bool {
	return hasCode(err, ErrSessionClosed.Code)
}

// IsInvalidTransition checks if the error is an invalid transition error
func IsInvalidTransition(err error) bool {
	return hasCode(err, ErrInvalidTransition.Code)
}

// IsInvariantViolation checks if the error is an invariant violation
func IsInvariantViolation(err error) bool {
	return hasCode(err, ErrInvariantViolation.Code)
}

// IsCancelled checks if the error is a cancellation error
func IsCancelled(err error) bool {
	return hasCode(err, ErrCancelled.Code)
}

// IsNotFound checks if the error is a not found error
func IsNotFound(err error) bool {
	return hasCode(err, ErrNotFound.Code)
}
