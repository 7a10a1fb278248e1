package render

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Camera defaults.
const (
	DefaultFOV  float32 = 75
	DefaultNear float32 = 0.1
	DefaultFar  float32 = 1000
)

// DefaultCameraPosition sits above and behind the origin.
var DefaultCameraPosition = mgl32.Vec3{0, 2, 8}

// CameraConfig holds the projection parameters. FOV is vertical, in
// degrees.
type CameraConfig struct {
	FOV  float32
	Near float32
	Far  float32
}

// DefaultCameraConfig returns the standard projection.
func DefaultCameraConfig() CameraConfig {
	return CameraConfig{FOV: DefaultFOV, Near: DefaultNear, Far: DefaultFar}
}

// Camera is a perspective camera that looks at a target point.
type Camera struct {
	fov    float32
	aspect float32
	near   float32
	far    float32

	position mgl32.Vec3
	target   mgl32.Vec3
	up       mgl32.Vec3

	projection mgl32.Mat4
}

// NewCamera creates a camera at DefaultCameraPosition looking at the
// origin.
func NewCamera(cfg CameraConfig, aspect float32) *Camera {
	c := &Camera{
		fov:      cfg.FOV,
		aspect:   aspect,
		near:     cfg.Near,
		far:      cfg.Far,
		position: DefaultCameraPosition,
		up:       mgl32.Vec3{0, 1, 0},
	}
	c.updateProjection()
	return c
}

// SetAspect changes the aspect ratio and recomputes the projection.
func (c *Camera) SetAspect(aspect float32) {
	c.aspect = aspect
	c.updateProjection()
}

func (c *Camera) updateProjection() {
	c.projection = mgl32.Perspective(mgl32.DegToRad(c.fov), c.aspect, c.near, c.far)
}

// Position returns the camera position.
func (c *Camera) Position() mgl32.Vec3 { return c.position }

// Target returns the point the camera looks at.
func (c *Camera) Target() mgl32.Vec3 { return c.target }

// SetPose moves the camera and points it at target.
func (c *Camera) SetPose(position, target mgl32.Vec3) {
	c.position = position
	c.target = target
}

// FOV returns the vertical field of view in degrees.
func (c *Camera) FOV() float32 { return c.fov }

// Aspect returns the aspect ratio.
func (c *Camera) Aspect() float32 { return c.aspect }

// Near returns the near clip distance.
func (c *Camera) Near() float32 { return c.near }

// Far returns the far clip distance.
func (c *Camera) Far() float32 { return c.far }

// Projection returns the projection matrix.
func (c *Camera) Projection() mgl32.Mat4 { return c.projection }

// View returns the world-to-camera matrix.
func (c *Camera) View() mgl32.Mat4 {
	return mgl32.LookAtV(c.position, c.target, c.up)
}

// Project maps a world-space point to window coordinates with the origin
// at the top left. visible is false for points outside the clip volume.
func (c *Camera) Project(p mgl32.Vec3, width, height int) (screen mgl32.Vec2, visible bool) {
	clip := c.projection.Mul4(c.View()).Mul4x1(p.Vec4(1))
	if clip.W() <= 0 {
		return mgl32.Vec2{}, false
	}
	ndc := clip.Vec3().Mul(1 / clip.W())
	visible = ndc.Z() >= -1 && ndc.Z() <= 1
	x := (ndc.X() + 1) / 2 * float32(width)
	y := (1 - ndc.Y()) / 2 * float32(height)
	return mgl32.Vec2{x, y}, visible
}
