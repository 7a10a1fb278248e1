package viewer

import "errors"

// Domain-specific errors for viewer operations.
var (
	// ErrNodeNotFound is returned when selecting a device with no node.
	ErrNodeNotFound = errors.New("viewer: no scene node for device")

	// ErrDeleteNotConfirmed is returned when a delete is requested without
	// user confirmation.
	ErrDeleteNotConfirmed = errors.New("viewer: delete not confirmed")

	// ErrNotMounted is returned for operations that need a mounted viewer.
	ErrNotMounted = errors.New("viewer: not mounted")

	// ErrAlreadyMounted is returned by a second Mount.
	ErrAlreadyMounted = errors.New("viewer: already mounted")

	// ErrUnmounted is returned when mounting a viewer that was unmounted.
	ErrUnmounted = errors.New("viewer: unmounted")
)
