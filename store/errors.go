package store

import "errors"

// Sentinel errors for credential store operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrNotFound is returned when a key has no value. Corrupt or
	// undecryptable entries also report ErrNotFound after self-healing.
	ErrNotFound = errors.New("store: key not found")

	// ErrOpenFailed is returned when the backing database cannot be opened.
	ErrOpenFailed = errors.New("store: open failed")

	// ErrClosed is returned for operations on a closed store.
	ErrClosed = errors.New("store: closed")

	// ErrEmptyKey is returned when an empty key is provided.
	ErrEmptyKey = errors.New("store: key cannot be empty")
)
