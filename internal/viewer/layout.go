package viewer

import "github.com/go-gl/mathgl/mgl32"

// DefaultSpacing is the distance between neighbouring device slots.
const DefaultSpacing float32 = 3

// SelectOffset is added to a node's position to get the camera position
// when the node is selected.
var SelectOffset = mgl32.Vec3{0, 1, 3}

// Slots returns n positions on the x axis, spacing apart and centred on
// the origin: x_i = (i - (n-1)/2) * spacing.
func Slots(n int, spacing float32) []mgl32.Vec3 {
	if n <= 0 {
		return nil
	}
	slots := make([]mgl32.Vec3, n)
	centre := float32(n-1) / 2
	for i := range slots {
		slots[i] = mgl32.Vec3{(float32(i) - centre) * spacing, 0, 0}
	}
	return slots
}
