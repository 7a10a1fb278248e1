package asset

import (
	"bytes"
	"context"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/nerrad567/gray-logic-viewer/internal/scene"
)

// Loader turns a model reference into a renderable object tree.
type Loader interface {
	Load(ctx context.Context, ref string) (*scene.Object, error)
}

// GLTFLoader decodes glTF 2.0 assets, JSON or binary, fetched from a
// Source. Only self-contained documents are supported: buffers must be
// embedded in the GLB chunk or as data URIs.
type GLTFLoader struct {
	source Source
}

// NewGLTFLoader creates a loader reading from source.
func NewGLTFLoader(source Source) *GLTFLoader {
	return &GLTFLoader{source: source}
}

// Load implements Loader.
func (l *GLTFLoader) Load(ctx context.Context, ref string) (*scene.Object, error) {
	if _, err := DetectFormat(ref); err != nil {
		return nil, err
	}

	data, err := l.source.Fetch(ctx, ref)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return Decode(data, ref)
}

// Decode parses a glTF or GLB document and converts its default scene.
func Decode(data []byte, name string) (*scene.Object, error) {
	doc := new(gltf.Document)
	if err := gltf.NewDecoder(bytes.NewReader(data)).Decode(doc); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", name, err)
	}
	return convertDocument(doc, name)
}

func convertDocument(doc *gltf.Document, name string) (*scene.Object, error) {
	roots, err := sceneRoots(doc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	c := &converter{doc: doc, meshes: make(map[int][]*scene.Mesh), materials: make(map[int]*scene.Material)}
	root := scene.NewObject(name)
	for _, idx := range roots {
		child, err := c.node(idx, 0)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		root.Add(child)
	}

	if root.MeshCount() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoGeometry, name)
	}
	return root, nil
}

// sceneRoots returns the root node indices of the default scene, or of
// the first scene when none is marked default.
func sceneRoots(doc *gltf.Document) ([]int, error) {
	if len(doc.Scenes) == 0 {
		return nil, ErrNoGeometry
	}
	idx := 0
	if doc.Scene != nil {
		idx = *doc.Scene
	}
	if idx < 0 || idx >= len(doc.Scenes) || doc.Scenes[idx] == nil {
		return nil, fmt.Errorf("scene index %d out of range", idx)
	}
	return doc.Scenes[idx].Nodes, nil
}

// maxNodeDepth guards against cyclic node hierarchies in malformed files.
const maxNodeDepth = 64

type converter struct {
	doc       *gltf.Document
	meshes    map[int][]*scene.Mesh
	materials map[int]*scene.Material
}

func (c *converter) node(idx, depth int) (*scene.Object, error) {
	if depth > maxNodeDepth {
		return nil, fmt.Errorf("node hierarchy deeper than %d", maxNodeDepth)
	}
	if idx < 0 || idx >= len(c.doc.Nodes) || c.doc.Nodes[idx] == nil {
		return nil, fmt.Errorf("%w: node %d", errIndexRange, idx)
	}
	n := c.doc.Nodes[idx]

	obj := scene.NewObject(n.Name)
	applyTransform(obj, n)

	if n.Mesh != nil {
		meshes, err := c.mesh(*n.Mesh)
		if err != nil {
			return nil, err
		}
		obj.Meshes = meshes
	}

	for _, childIdx := range n.Children {
		child, err := c.node(childIdx, depth+1)
		if err != nil {
			return nil, err
		}
		obj.Add(child)
	}
	return obj, nil
}

func applyTransform(obj *scene.Object, n *gltf.Node) {
	if m := n.MatrixOrDefault(); m != gltf.DefaultMatrix {
		var mat mgl32.Mat4
		for i, v := range m {
			mat[i] = float32(v)
		}
		obj.Matrix = &mat
		return
	}

	t := n.TranslationOrDefault()
	r := n.RotationOrDefault()
	s := n.ScaleOrDefault()
	obj.Position = mgl32.Vec3{float32(t[0]), float32(t[1]), float32(t[2])}
	obj.Rotation = mgl32.Quat{W: float32(r[3]), V: mgl32.Vec3{float32(r[0]), float32(r[1]), float32(r[2])}}
	obj.Scale = mgl32.Vec3{float32(s[0]), float32(s[1]), float32(s[2])}
}

// mesh converts each triangle primitive of a glTF mesh. Meshes are
// converted once and shared between nodes that instance them.
func (c *converter) mesh(idx int) ([]*scene.Mesh, error) {
	if cached, ok := c.meshes[idx]; ok {
		return cached, nil
	}
	if idx < 0 || idx >= len(c.doc.Meshes) || c.doc.Meshes[idx] == nil {
		return nil, fmt.Errorf("%w: mesh %d", errIndexRange, idx)
	}
	m := c.doc.Meshes[idx]

	var out []*scene.Mesh
	for i, prim := range m.Primitives {
		if prim.Mode != gltf.PrimitiveTriangles {
			continue
		}
		posIdx, ok := prim.Attributes[gltf.POSITION]
		if !ok {
			continue
		}

		acc, err := c.accessor(posIdx)
		if err != nil {
			return nil, fmt.Errorf("mesh %d primitive %d positions: %w", idx, i, err)
		}
		positions, err := modeler.ReadPosition(c.doc, acc, nil)
		if err != nil {
			return nil, fmt.Errorf("mesh %d primitive %d positions: %w", idx, i, err)
		}

		mesh := &scene.Mesh{
			Name:      fmt.Sprintf("%s/%d", m.Name, i),
			Positions: make([]mgl32.Vec3, len(positions)),
		}
		for j, p := range positions {
			mesh.Positions[j] = mgl32.Vec3(p)
		}

		if prim.Indices != nil {
			acc, err := c.accessor(*prim.Indices)
			if err != nil {
				return nil, fmt.Errorf("mesh %d primitive %d indices: %w", idx, i, err)
			}
			indices, err := modeler.ReadIndices(c.doc, acc, nil)
			if err != nil {
				return nil, fmt.Errorf("mesh %d primitive %d indices: %w", idx, i, err)
			}
			mesh.Indices = indices
		}

		if prim.Material != nil {
			mat, err := c.material(*prim.Material)
			if err != nil {
				return nil, fmt.Errorf("mesh %d primitive %d: %w", idx, i, err)
			}
			mesh.Material = mat
		}
		out = append(out, mesh)
	}

	c.meshes[idx] = out
	return out, nil
}

// accessor returns the accessor at idx after checking that it and the
// buffer view and buffer behind it exist.
func (c *converter) accessor(idx int) (*gltf.Accessor, error) {
	if idx < 0 || idx >= len(c.doc.Accessors) {
		return nil, fmt.Errorf("%w: accessor %d", errIndexRange, idx)
	}
	acc := c.doc.Accessors[idx]
	if acc == nil || acc.BufferView == nil {
		return nil, fmt.Errorf("%w: accessor %d has no buffer view", errIndexRange, idx)
	}
	bv := *acc.BufferView
	if bv < 0 || bv >= len(c.doc.BufferViews) || c.doc.BufferViews[bv] == nil {
		return nil, fmt.Errorf("%w: buffer view %d", errIndexRange, bv)
	}
	buf := c.doc.BufferViews[bv].Buffer
	if buf < 0 || buf >= len(c.doc.Buffers) || c.doc.Buffers[buf] == nil {
		return nil, fmt.Errorf("%w: buffer %d", errIndexRange, buf)
	}
	return acc, nil
}

func (c *converter) material(idx int) (*scene.Material, error) {
	if cached, ok := c.materials[idx]; ok {
		return cached, nil
	}
	if idx < 0 || idx >= len(c.doc.Materials) || c.doc.Materials[idx] == nil {
		return nil, fmt.Errorf("%w: material %d", errIndexRange, idx)
	}
	m := c.doc.Materials[idx]

	mat := &scene.Material{Name: m.Name, Color: 0xffffff}
	if pbr := m.PBRMetallicRoughness; pbr != nil && pbr.BaseColorFactor != nil {
		f := *pbr.BaseColorFactor
		mat.Color = packColor(f[0], f[1], f[2])
	}
	e := m.EmissiveFactor
	mat.Emissive = packColor(e[0], e[1], e[2])

	c.materials[idx] = mat
	return mat, nil
}

func packColor(r, g, b float64) scene.Color {
	channel := func(v float64) scene.Color {
		return scene.Color(mgl32.Clamp(float32(v), 0, 1)*255 + 0.5)
	}
	return channel(r)<<16 | channel(g)<<8 | channel(b)
}
