package device

import "errors"

// Domain errors for the device package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, device.ErrDeviceNotFound) {
//	    // handle not found case
//	}
var (
	// ErrDeviceNotFound is returned when a device ID does not exist.
	ErrDeviceNotFound = errors.New("device: not found")

	// ErrDeviceExists is returned when inserting a device whose ID is taken.
	ErrDeviceExists = errors.New("device: already exists")

	// ErrInvalidDevice is returned when form validation fails. The wrapping
	// error lists every failing field.
	ErrInvalidDevice = errors.New("device: invalid")

	// ErrEmptyPatch is returned when an update carries no fields.
	ErrEmptyPatch = errors.New("device: empty patch")
)
