package apperr

import (
	"errors"
	"fmt"
	"time"
)

// Kind classifies errors crossing the service boundary.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindAuth
	KindConflict
	KindState
	KindNotFound
	KindInternal
)

// Error is the service-level error type. Field names the conflicting field
// for conflicts; RetryAfter carries the remaining wait for cooldown blocks.
type Error struct {
	Kind       Kind
	Message    string
	Field      string
	RetryAfter time.Duration
}

func (e *Error) Error() string { return e.Message }

// Validation reports malformed input.
func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// Auth reports a credential or token rejection.
func Auth(format string, args ...any) *Error {
	return &Error{Kind: KindAuth, Message: fmt.Sprintf(format, args...)}
}

// Conflict reports a uniqueness violation on the named field.
func Conflict(field, format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Field: field, Message: fmt.Sprintf(format, args...)}
}

// State reports an operation invalid in the current state.
func State(format string, args ...any) *Error {
	return &Error{Kind: KindState, Message: fmt.Sprintf(format, args...)}
}

// Cooldown reports a blocked scan with the remaining wait.
func Cooldown(remaining time.Duration) *Error {
	secs := int(remaining.Round(time.Second).Seconds())
	return &Error{
		Kind:       KindState,
		Message:    fmt.Sprintf("wait %d seconds before scanning again", secs),
		RetryAfter: remaining,
	}
}

// NotFound reports a missing or foreign resource without revealing which.
func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Internal wraps unexpected storage or infrastructure failures.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: err.Error()}
}

// As extracts an *Error from an error chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the kind of err, or KindUnknown for foreign errors.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindUnknown
}
