// Package apierr models the error taxonomy the provisioning core can
// raise, so callers (the HTTP surface, tests) can switch on Kind instead
// of parsing error strings.
package apierr

import "fmt"

// Kind enumerates the error taxonomy from the provisioning contract.
type Kind string

const (
	KindValidation       Kind = "VALIDATION_ERROR"
	KindInvalidCIDR      Kind = "INVALID_CIDR"
	KindCapacityExceeded Kind = "CAPACITY_EXCEEDED"
	KindUnknownGateway   Kind = "UNKNOWN_GATEWAY"
	KindMissingKey       Kind = "MISSING_KEY"
	KindInvalidKey       Kind = "INVALID_KEY"
	KindRevisionConflict Kind = "REVISION_CONFLICT"
	KindLockTimeout      Kind = "LOCK_TIMEOUT"
	KindCorruptState     Kind = "CORRUPT_STATE"
	KindRuntimeError     Kind = "RUNTIME_ERROR"
	KindNotExists        Kind = "NOT_EXISTS"
	KindApplyFailed      Kind = "APPLY_FAILED"
	KindInterfaceNotFound Kind = "INTERFACE_NOT_FOUND"
	KindInternal         Kind = "INTERNAL_ERROR"
)

// Error is the sum type carrying a Kind plus whatever payload fields that
// Kind needs. Zero-value fields are simply omitted by callers that don't
// need them.
type Error struct {
	Kind     Kind
	Message  string
	Expected uint64 // RevisionConflict
	Received uint64 // RevisionConflict
	Code     int    // RuntimeError: underlying exit code, if any
	Stderr   string // RuntimeError
	Details  map[string]string
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindRevisionConflict:
		return fmt.Sprintf("revision conflict: expected %d, received %d", e.Expected, e.Received)
	default:
		if e.Message != "" {
			return e.Message
		}
		return string(e.Kind)
	}
}

// New builds a plain Error of the given kind and message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// RevisionConflict builds the dedicated optimistic-concurrency error.
func RevisionConflict(expected, received uint64) *Error {
	return &Error{Kind: KindRevisionConflict, Expected: expected, Received: received}
}

// Runtime wraps a runtime-adapter failure.
func Runtime(message string, code int, stderr string) *Error {
	return &Error{Kind: KindRuntimeError, Message: message, Code: code, Stderr: stderr}
}

// Is reports whether err is an *Error of the given kind. It checks err
// itself only; wrapped errors are not unwrapped.
func Is(err error, kind Kind) bool {
	e, ok := err.(*Error)
	return ok && e.Kind == kind
}
