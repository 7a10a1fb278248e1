package render

import "errors"

// Domain-specific errors for the renderer and loop.
var (
	// ErrNotInitialized is returned when the renderer is used before
	// Initialize.
	ErrNotInitialized = errors.New("render: not initialized")

	// ErrInvalidSize is returned for a non-positive surface size.
	ErrInvalidSize = errors.New("render: invalid surface size")

	// ErrTornDown is returned when a torn-down renderer is restarted.
	ErrTornDown = errors.New("render: renderer torn down")

	// ErrLoopStopped is returned when work is handed to a stopped loop.
	ErrLoopStopped = errors.New("render: loop stopped")
)
