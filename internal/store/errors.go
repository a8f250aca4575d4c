package store

import "errors"

// ErrStoreFailure is the single error kind surfaced for underlying database
// failures (SPEC_FULL.md §4.3): "database failures propagate as a single
// error kind; the caller decides whether the operation is fatal." Wrap the
// driver error with fmt.Errorf("...: %w", ErrStoreFailure) style callers
// should use errors.Is against this sentinel, not inspect driver internals.
var ErrStoreFailure = errors.New("store: backend failure")

// ErrConflict is returned when a name-uniqueness check fails on create.
var ErrConflict = errors.New("store: name already in use")

// ErrNotFound is returned by accessors that have an unambiguous "no such
// record" outcome (as opposed to entity Get methods, which return a
// zero-value record with Valid=false per the entity's own convention).
var ErrNotFound = errors.New("store: record not found")
