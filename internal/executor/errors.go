// Package executor implements the command executors of SPEC_FULL.md §4.5:
// pure-ish functions of (store, authenticated user, request) that validate,
// mutate the store, and synchronize Kubernetes/Helm state via the process
// supervisor. Grounded on original_source/src/ApplicationCommands.cpp
// (install algorithm) and src/GroupCommands.cpp (cascade delete).
package executor

import "fmt"

// Kind classifies an executor-level failure so HTTP handlers can map it to
// the right status code without re-deriving the reason (§7).
type Kind string

const (
	Unauthenticated Kind = "Unauthenticated"
	Forbidden       Kind = "Forbidden"
	BadRequest      Kind = "BadRequest"
	NotFound        Kind = "NotFound"
	Conflict        Kind = "Conflict"
	UpstreamFailure Kind = "UpstreamFailure"
	StoreFailure    Kind = "StoreFailure"
)

// Error is the single typed error every executor returns on failure.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %s", e.Kind, e.Message) }

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}
