package scene

import "errors"

// Domain-specific errors for scene operations.
var (
	// ErrDuplicateNode is returned when a node is added for a device that
	// already has one.
	ErrDuplicateNode = errors.New("scene: node already exists for device")

	// ErrNotInitialized is returned when nodes are added before Initialize.
	ErrNotInitialized = errors.New("scene: not initialized")

	// ErrInvalidNode is returned for an empty device ID or nil object.
	ErrInvalidNode = errors.New("scene: invalid node")
)
