package result

import (
	"errors"
	"fmt"
)

// Kind classifies a workflow failure. None of these are transient: retrying
// the same request changes nothing, so callers are expected to correct the
// request (or refetch state, for KindConflict) rather than retry.
type Kind string

const (
	KindValidation Kind = "validation" // malformed assessment, weight sum != 100
	KindState      Kind = "state"      // operation outside the required status
	KindForbidden  Kind = "forbidden"  // caller is not allowed to act here
	KindNotFound   Kind = "not_found"  // no matching assignment/result/student
	KindConflict   Kind = "conflict"   // duplicate result key
)

// Error is a structured workflow failure: a kind plus a human-readable
// message naming the blocking records.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

// E builds a workflow error.
func E(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the kind from an error chain, or "" for plain errors.
func KindOf(err error) Kind {
	var we *Error
	if errors.As(err, &we) {
		return we.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool { return KindOf(err) == kind }
