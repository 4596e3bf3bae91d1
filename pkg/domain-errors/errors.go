// Package domainerrors defines the coded error type shared by every service
// in the application. Services translate store sentinels and validation
// failures into these errors; the HTTP layer translates them into status
// codes and JSON envelopes.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies an error for callers that must decide between display,
// retry, and alerting.
type Code string

const (
	// CodeValidation marks malformed input. Never retried; the caller must
	// correct the request.
	CodeValidation Code = "validation"

	// CodeNotFound marks an unknown entity id.
	CodeNotFound Code = "not_found"

	// CodeRejected marks a business-rule precondition failure. The request
	// was well-formed but the current state forbids it. Rejections carry a
	// Reason so clients can distinguish, for example, a full activity from a
	// duplicate phone number.
	CodeRejected Code = "rejected"

	// CodeConflict marks a uniqueness conflict detected by the store.
	CodeConflict Code = "conflict"

	// CodeUnauthorized marks missing or invalid credentials.
	CodeUnauthorized Code = "unauthorized"

	// CodeUnavailable marks a transient infrastructure failure. Callers may
	// retry with backoff.
	CodeUnavailable Code = "unavailable"

	// CodePartialCommit marks a multi-record sequence that applied only
	// partially. The remediation is to re-run the idempotent operation,
	// never to roll back.
	CodePartialCommit Code = "partial_commit"

	// CodeInternal marks unexpected failures.
	CodeInternal Code = "internal"
)

// Reason refines CodeRejected with a machine-readable cause. Reason constants
// live next to the domain logic that produces them.
type Reason string

// Error is the coded error carried across service boundaries.
type Error struct {
	Code    Code
	Reason  Reason
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a coded error with a caller-facing message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf builds a coded error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Reject builds a CodeRejected error carrying a reason code.
func Reject(reason Reason, message string) *Error {
	return &Error{Code: CodeRejected, Reason: reason, Message: message}
}

// Wrap attaches a code and message to an underlying error while preserving
// the chain for errors.Is/As.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// Is is an alias of HasCode kept for call-site readability.
func Is(err error, code Code) bool { return HasCode(err, code) }

// ReasonOf extracts the rejection reason, or "" when err carries none.
func ReasonOf(err error) Reason {
	var de *Error
	if errors.As(err, &de) {
		return de.Reason
	}
	return ""
}

// ToHTTPStatus maps a code to the HTTP status the transport layer writes.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeNotFound:
		return http.StatusNotFound
	case CodeRejected, CodeConflict:
		return http.StatusConflict
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
