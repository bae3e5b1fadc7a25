package core

import (
	"errors"
	"fmt"
)

// Failure kinds surfaced by stores and resolvers. Match them with errors.Is.
var (
	// ErrStoreUnavailable means the storage boundary failed: the store is
	// unreachable or returned an error other than a missing object.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrMalformedResponse means a transcript or subagent payload is missing
	// required fields or a record line failed to parse.
	ErrMalformedResponse = errors.New("malformed response")

	// ErrNotFound means the store reported that the object does not exist.
	ErrNotFound = errors.New("not found")
)

// StoreError wraps a failure reported by an object store. It matches
// ErrStoreUnavailable and unwraps to the store's own error, so the original
// classification stays reachable.
type StoreError struct {
	Op  string // "list", "get"
	Key string // key or prefix
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store error: %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func (e *StoreError) Is(target error) bool {
	return target == ErrStoreUnavailable
}

// LineError describes one record line that failed structural validation.
// Line is 1-based.
type LineError struct {
	Line    int    `json:"line"`
	Message string `json:"error"`
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

func (e *LineError) Is(target error) bool {
	return target == ErrMalformedResponse
}
