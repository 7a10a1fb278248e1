package scene

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// Scene defaults applied by Initialize.
const (
	DefaultBackground           Color   = 0x1a1a1a
	DefaultAmbientIntensity     float32 = 0.6
	DefaultDirectionalIntensity float32 = 0.8
)

// DefaultDirectionalPosition is the fixed position of the key light.
var DefaultDirectionalPosition = mgl32.Vec3{5, 10, 5}

// LightKind identifies a light type.
type LightKind string

// Light kinds supported by the viewer.
const (
	LightAmbient     LightKind = "ambient"
	LightDirectional LightKind = "directional"
)

// Light is a scene light. Position is unused for ambient lights.
type Light struct {
	Kind      LightKind  `json:"kind"`
	Color     Color      `json:"color"`
	Intensity float32    `json:"intensity"`
	Position  mgl32.Vec3 `json:"position"`
}

// Node is a device's representation in the scene. It refers back to the
// device by ID only.
type Node struct {
	DeviceID string
	Object   *Object
	Fallback bool
}

// Position returns the node's position in world space.
func (n *Node) Position() mgl32.Vec3 {
	return n.Object.Position
}

// Manager owns the scene graph and the device-to-node mapping.
type Manager struct {
	root        *Object
	background  Color
	lights      []Light
	nodes       map[string]*Node
	order       []string
	initialized bool
}

// NewManager creates an empty, uninitialised manager.
func NewManager() *Manager {
	return &Manager{nodes: make(map[string]*Node)}
}

// Initialize builds a fresh scene with the fixed lighting and background.
// Any previous contents are discarded.
func (m *Manager) Initialize() {
	m.root = NewObject("scene")
	m.background = DefaultBackground
	m.lights = []Light{
		{Kind: LightAmbient, Color: 0xffffff, Intensity: DefaultAmbientIntensity},
		{
			Kind:      LightDirectional,
			Color:     0xffffff,
			Intensity: DefaultDirectionalIntensity,
			Position:  DefaultDirectionalPosition,
		},
	}
	m.nodes = make(map[string]*Node)
	m.order = nil
	m.initialized = true
}

// Initialized reports whether Initialize has run.
func (m *Manager) Initialized() bool {
	return m.initialized
}

// Background returns the clear colour.
func (m *Manager) Background() Color {
	return m.background
}

// Lights returns a copy of the scene lights.
func (m *Manager) Lights() []Light {
	return append([]Light(nil), m.lights...)
}

// Root returns the scene root, or nil before Initialize.
func (m *Manager) Root() *Object {
	return m.root
}

// AddNode inserts obj into the scene for deviceID.
//
// The object is tagged with deviceID and attached to the scene root.
//
// Parameters:
//   - deviceID: Owning device, must be non-empty
//   - obj: Root of the device's model
//   - fallback: Whether obj is the placeholder cube
//
// Returns:
//   - *Node: The new node
//   - error: ErrNotInitialized, ErrInvalidNode or ErrDuplicateNode
func (m *Manager) AddNode(deviceID string, obj *Object, fallback bool) (*Node, error) {
	if !m.initialized {
		return nil, ErrNotInitialized
	}
	if deviceID == "" || obj == nil {
		return nil, ErrInvalidNode
	}
	if _, exists := m.nodes[deviceID]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateNode, deviceID)
	}

	obj.DeviceID = deviceID
	m.root.Add(obj)

	node := &Node{DeviceID: deviceID, Object: obj, Fallback: fallback}
	m.nodes[deviceID] = node
	m.order = append(m.order, deviceID)
	return node, nil
}

// RemoveNode detaches the node for deviceID. Absent IDs are ignored.
// It reports whether a node was removed.
func (m *Manager) RemoveNode(deviceID string) bool {
	node, ok := m.nodes[deviceID]
	if !ok {
		return false
	}
	m.root.Remove(node.Object)
	delete(m.nodes, deviceID)
	for i, id := range m.order {
		if id == deviceID {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return true
}

// FindNode returns the node for deviceID.
func (m *Manager) FindNode(deviceID string) (*Node, bool) {
	node, ok := m.nodes[deviceID]
	return node, ok
}

// Nodes returns the nodes in insertion order.
func (m *Manager) Nodes() []*Node {
	nodes := make([]*Node, 0, len(m.order))
	for _, id := range m.order {
		nodes = append(nodes, m.nodes[id])
	}
	return nodes
}

// DeviceIDs returns the IDs of all live nodes in insertion order.
func (m *Manager) DeviceIDs() []string {
	return append([]string(nil), m.order...)
}

// Len returns the number of live nodes.
func (m *Manager) Len() int {
	return len(m.nodes)
}
