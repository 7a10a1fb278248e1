package asset

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/nerrad567/gray-logic-viewer/internal/scene"
)

// FallbackColor is used for both the colour and emissive terms of the
// placeholder cube.
const FallbackColor scene.Color = 0x00ff00

var cubePositions = []mgl32.Vec3{
	{-0.5, -0.5, -0.5}, {0.5, -0.5, -0.5}, {0.5, 0.5, -0.5}, {-0.5, 0.5, -0.5},
	{-0.5, -0.5, 0.5}, {0.5, -0.5, 0.5}, {0.5, 0.5, 0.5}, {-0.5, 0.5, 0.5},
}

var cubeIndices = []uint32{
	0, 2, 1, 0, 3, 2, // back
	4, 5, 6, 4, 6, 7, // front
	0, 1, 5, 0, 5, 4, // bottom
	3, 7, 6, 3, 6, 2, // top
	0, 4, 7, 0, 7, 3, // left
	1, 2, 6, 1, 6, 5, // right
}

var cubeMesh = &scene.Mesh{
	Name:      "fallback-cube",
	Positions: cubePositions,
	Indices:   cubeIndices,
	Material:  &scene.Material{Name: "fallback", Color: FallbackColor, Emissive: FallbackColor},
}

// FallbackCube returns a new unit cube centred on its origin.
func FallbackCube() *scene.Object {
	obj := scene.NewObject("fallback")
	obj.Meshes = []*scene.Mesh{cubeMesh}
	return obj
}
