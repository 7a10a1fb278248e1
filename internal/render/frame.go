package render

import (
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/nerrad567/gray-logic-viewer/internal/scene"
)

// Frame is a snapshot of everything needed to draw one image. Surfaces
// receive it by value and may keep it.
type Frame struct {
	Seq        uint64        `json:"seq"`
	Time       time.Time     `json:"time"`
	Width      int           `json:"width"`
	Height     int           `json:"height"`
	Background scene.Color   `json:"background"`
	Camera     CameraState   `json:"camera"`
	Lights     []scene.Light `json:"lights"`
	Nodes      []NodeFrame   `json:"nodes"`
}

// CameraState is the camera part of a frame.
type CameraState struct {
	Position   mgl32.Vec3 `json:"position"`
	Target     mgl32.Vec3 `json:"target"`
	FOV        float32    `json:"fov"`
	Aspect     float32    `json:"aspect"`
	View       mgl32.Mat4 `json:"view"`
	Projection mgl32.Mat4 `json:"projection"`
}

// NodeFrame is one device node as drawn.
type NodeFrame struct {
	DeviceID string      `json:"device_id"`
	Position mgl32.Vec3  `json:"position"`
	Fallback bool        `json:"fallback"`
	Color    scene.Color `json:"color"`
	Emissive scene.Color `json:"emissive"`
	Min      mgl32.Vec3  `json:"min"`
	Max      mgl32.Vec3  `json:"max"`

	// Screen is the projected bounding rectangle, nil when off screen.
	Screen *Rect `json:"screen,omitempty"`
}

// Rect is a window-space rectangle.
type Rect struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	W float32 `json:"w"`
	H float32 `json:"h"`
}

// defaultNodeColor is used for models without materials.
const defaultNodeColor scene.Color = 0xcccccc

// buildFrame captures the scene from cam.
func buildFrame(seq uint64, now time.Time, width, height int, cam *Camera, mgr *scene.Manager) Frame {
	f := Frame{
		Seq:        seq,
		Time:       now,
		Width:      width,
		Height:     height,
		Background: mgr.Background(),
		Camera: CameraState{
			Position:   cam.Position(),
			Target:     cam.Target(),
			FOV:        cam.FOV(),
			Aspect:     cam.Aspect(),
			View:       cam.View(),
			Projection: cam.Projection(),
		},
		Lights: mgr.Lights(),
	}

	nodes := mgr.Nodes()
	f.Nodes = make([]NodeFrame, 0, len(nodes))
	for _, n := range nodes {
		nf := NodeFrame{
			DeviceID: n.DeviceID,
			Position: n.Position(),
			Fallback: n.Fallback,
			Color:    defaultNodeColor,
		}
		if mat := n.Object.PrimaryMaterial(); mat != nil {
			nf.Color = mat.Color
			nf.Emissive = mat.Emissive
		}
		if lo, hi, ok := n.Object.Bounds(); ok {
			nf.Min, nf.Max = lo, hi
			nf.Screen = projectBox(cam, lo, hi, width, height)
		} else {
			nf.Min, nf.Max = nf.Position, nf.Position
		}
		f.Nodes = append(f.Nodes, nf)
	}
	return f
}

// projectBox returns the screen rectangle enclosing the visible corners of
// the box lo..hi.
func projectBox(cam *Camera, lo, hi mgl32.Vec3, width, height int) *Rect {
	var (
		minX, minY float32
		maxX, maxY float32
		seen       bool
	)
	for i := 0; i < 8; i++ {
		corner := mgl32.Vec3{lo.X(), lo.Y(), lo.Z()}
		if i&1 != 0 {
			corner[0] = hi.X()
		}
		if i&2 != 0 {
			corner[1] = hi.Y()
		}
		if i&4 != 0 {
			corner[2] = hi.Z()
		}
		p, ok := cam.Project(corner, width, height)
		if !ok {
			continue
		}
		if !seen {
			minX, maxX, minY, maxY = p.X(), p.X(), p.Y(), p.Y()
			seen = true
			continue
		}
		minX, maxX = min(minX, p.X()), max(maxX, p.X())
		minY, maxY = min(minY, p.Y()), max(maxY, p.Y())
	}
	if !seen {
		return nil
	}
	return &Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}
