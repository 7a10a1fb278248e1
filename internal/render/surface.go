package render

// Surface is the host drawing target. The renderer calls it only from the
// loop goroutine.
type Surface interface {
	// Draw presents one frame.
	Draw(f Frame) error

	// Resize is called when the viewport dimensions change.
	Resize(width, height int)

	// Release frees the surface. It is called once, at teardown.
	Release()
}
