package asset

import "errors"

// Domain-specific errors for asset loading.
var (
	// ErrUnsupportedFormat is returned for model references that are not
	// .gltf or .glb.
	ErrUnsupportedFormat = errors.New("asset: unsupported model format")

	// ErrEmptyRef is returned for a blank model reference.
	ErrEmptyRef = errors.New("asset: empty model reference")

	// ErrNotFound is returned when the source has no asset at the reference.
	ErrNotFound = errors.New("asset: not found")

	// ErrTooLarge is returned when an asset exceeds the size limit.
	ErrTooLarge = errors.New("asset: exceeds size limit")

	// ErrNoGeometry is returned when a document decodes but has nothing to
	// render.
	ErrNoGeometry = errors.New("asset: document has no renderable nodes")

	errLoaderPanic = errors.New("asset: loader panicked")

	errIndexRange = errors.New("index out of range")
)
