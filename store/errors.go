package store

import "errors"

// Common store errors.
var (
	// ErrNotFound is returned when a run is not found.
	ErrNotFound = errors.New("run not found")

	// ErrUnsupportedUpdate is returned for update text the memory store cannot replay.
	ErrUnsupportedUpdate = errors.New("unsupported update statement")
)
