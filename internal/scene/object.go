package scene

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

// Color is a 24-bit RGB colour, 0xRRGGBB.
type Color uint32

// Hex returns the colour in CSS notation, e.g. "#1a1a1a".
func (c Color) Hex() string {
	return fmt.Sprintf("#%06x", uint32(c)&0xffffff)
}

// MarshalText encodes the colour as its CSS hex form.
func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.Hex()), nil
}

// UnmarshalText parses the CSS hex form written by MarshalText.
func (c *Color) UnmarshalText(text []byte) error {
	s := strings.TrimPrefix(string(text), "#")
	if len(s) != 6 {
		return fmt.Errorf("scene: invalid colour %q", text)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return fmt.Errorf("scene: invalid colour %q: %w", text, err)
	}
	*c = Color(v)
	return nil
}

// Vec returns the colour as normalised RGB components.
func (c Color) Vec() mgl32.Vec3 {
	return mgl32.Vec3{
		float32((c>>16)&0xff) / 255,
		float32((c>>8)&0xff) / 255,
		float32(c&0xff) / 255,
	}
}

// Material describes how a mesh is shaded.
type Material struct {
	Name     string
	Color    Color
	Emissive Color
}

// Mesh is immutable geometry in object space. Clones of an Object share
// their meshes.
type Mesh struct {
	Name      string
	Positions []mgl32.Vec3
	Indices   []uint32
	Material  *Material
}

// Object is a node in the scene graph with a local transform.
type Object struct {
	Name     string
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3

	// Matrix, when set, replaces the TRS fields as the local transform.
	Matrix *mgl32.Mat4

	// DeviceID tags the root object of a device's model.
	DeviceID string

	Meshes   []*Mesh
	Children []*Object
	Parent   *Object
}

// NewObject returns an object with an identity transform.
func NewObject(name string) *Object {
	return &Object{
		Name:     name,
		Rotation: mgl32.QuatIdent(),
		Scale:    mgl32.Vec3{1, 1, 1},
	}
}

// Add attaches child to o, detaching it from any previous parent.
func (o *Object) Add(child *Object) {
	if child.Parent != nil {
		child.Parent.Remove(child)
	}
	child.Parent = o
	o.Children = append(o.Children, child)
}

// Remove detaches child from o. It reports whether child was attached.
func (o *Object) Remove(child *Object) bool {
	for i, c := range o.Children {
		if c == child {
			o.Children = append(o.Children[:i], o.Children[i+1:]...)
			child.Parent = nil
			return true
		}
	}
	return false
}

// LocalTransform returns Matrix if set, else translation * rotation * scale.
func (o *Object) LocalTransform() mgl32.Mat4 {
	if o.Matrix != nil {
		return *o.Matrix
	}
	t := mgl32.Translate3D(o.Position.X(), o.Position.Y(), o.Position.Z())
	r := o.Rotation.Mat4()
	s := mgl32.Scale3D(o.Scale.X(), o.Scale.Y(), o.Scale.Z())
	return t.Mul4(r).Mul4(s)
}

// WorldTransform composes the local transforms from the root down to o.
func (o *Object) WorldTransform() mgl32.Mat4 {
	m := o.LocalTransform()
	for p := o.Parent; p != nil; p = p.Parent {
		m = p.LocalTransform().Mul4(m)
	}
	return m
}

// Walk visits o and its descendants depth-first. Returning false from fn
// skips the children of that object.
func (o *Object) Walk(fn func(*Object) bool) {
	if !fn(o) {
		return
	}
	for _, c := range o.Children {
		c.Walk(fn)
	}
}

// Clone returns a deep copy of the hierarchy rooted at o. Transforms and
// tags are copied, meshes are shared. The clone has no parent.
func (o *Object) Clone() *Object {
	c := &Object{
		Name:     o.Name,
		Position: o.Position,
		Rotation: o.Rotation,
		Scale:    o.Scale,
		DeviceID: o.DeviceID,
	}
	if o.Matrix != nil {
		m := *o.Matrix
		c.Matrix = &m
	}
	if len(o.Meshes) > 0 {
		c.Meshes = append([]*Mesh(nil), o.Meshes...)
	}
	for _, child := range o.Children {
		cc := child.Clone()
		cc.Parent = c
		c.Children = append(c.Children, cc)
	}
	return c
}

// Bounds returns the world-space axis-aligned bounding box of every mesh
// under o. ok is false when the hierarchy has no vertices.
func (o *Object) Bounds() (lo, hi mgl32.Vec3, ok bool) {
	o.Walk(func(obj *Object) bool {
		if len(obj.Meshes) == 0 {
			return true
		}
		world := obj.WorldTransform()
		for _, mesh := range obj.Meshes {
			for _, p := range mesh.Positions {
				w := mgl32.TransformCoordinate(p, world)
				if !ok {
					lo, hi, ok = w, w, true
					continue
				}
				for i := 0; i < 3; i++ {
					lo[i] = min(lo[i], w[i])
					hi[i] = max(hi[i], w[i])
				}
			}
		}
		return true
	})
	return lo, hi, ok
}

// MeshCount returns the number of meshes in the hierarchy.
func (o *Object) MeshCount() int {
	n := 0
	o.Walk(func(obj *Object) bool {
		n += len(obj.Meshes)
		return true
	})
	return n
}

// PrimaryMaterial returns the first material found depth-first, or nil.
func (o *Object) PrimaryMaterial() *Material {
	var found *Material
	o.Walk(func(obj *Object) bool {
		if found != nil {
			return false
		}
		for _, m := range obj.Meshes {
			if m.Material != nil {
				found = m.Material
				return false
			}
		}
		return true
	})
	return found
}
