package scene

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func newInitialized(t *testing.T) *Manager {
	t.Helper()
	m := NewManager()
	m.Initialize()
	return m
}

func TestInitialize(t *testing.T) {
	m := newInitialized(t)

	if m.Background() != 0x1a1a1a {
		t.Errorf("Background() = %s, want #1a1a1a", m.Background().Hex())
	}

	lights := m.Lights()
	if len(lights) != 2 {
		t.Fatalf("len(Lights()) = %d, want 2", len(lights))
	}
	if lights[0].Kind != LightAmbient || lights[0].Intensity != 0.6 || lights[0].Color != 0xffffff {
		t.Errorf("ambient light = %+v", lights[0])
	}
	if lights[1].Kind != LightDirectional || lights[1].Intensity != 0.8 {
		t.Errorf("directional light = %+v", lights[1])
	}
	if lights[1].Position != (mgl32.Vec3{5, 10, 5}) {
		t.Errorf("directional position = %v, want [5 10 5]", lights[1].Position)
	}
	if m.Len() != 0 || len(m.Root().Children) != 0 {
		t.Error("fresh scene is not empty")
	}
}

func TestAddNode(t *testing.T) {
	m := newInitialized(t)
	obj := NewObject("model")
	obj.Position = mgl32.Vec3{3, 0, 0}

	node, err := m.AddNode("a", obj, false)
	if err != nil {
		t.Fatalf("AddNode() error = %v", err)
	}
	if node.DeviceID != "a" || obj.DeviceID != "a" {
		t.Errorf("node not tagged: node=%q object=%q", node.DeviceID, obj.DeviceID)
	}
	if obj.Parent != m.Root() {
		t.Error("object not attached to root")
	}
	if node.Position() != (mgl32.Vec3{3, 0, 0}) {
		t.Errorf("Position() = %v", node.Position())
	}

	found, ok := m.FindNode("a")
	if !ok || found != node {
		t.Errorf("FindNode(a) = %v, %v", found, ok)
	}
}

func TestAddNode_Errors(t *testing.T) {
	uninit := NewManager()
	if _, err := uninit.AddNode("a", NewObject("x"), false); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("AddNode before Initialize error = %v, want ErrNotInitialized", err)
	}

	m := newInitialized(t)
	tests := []struct {
		name string
		id   string
		obj  *Object
		want error
	}{
		{"empty id", "", NewObject("x"), ErrInvalidNode},
		{"nil object", "a", nil, ErrInvalidNode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := m.AddNode(tt.id, tt.obj, false); !errors.Is(err, tt.want) {
				t.Errorf("AddNode() error = %v, want %v", err, tt.want)
			}
		})
	}

	if _, err := m.AddNode("a", NewObject("first"), false); err != nil {
		t.Fatalf("AddNode() error = %v", err)
	}
	if _, err := m.AddNode("a", NewObject("second"), true); !errors.Is(err, ErrDuplicateNode) {
		t.Errorf("duplicate AddNode() error = %v, want ErrDuplicateNode", err)
	}
	if m.Len() != 1 {
		t.Errorf("Len() = %d, want 1", m.Len())
	}
}

func TestRemoveNode(t *testing.T) {
	m := newInitialized(t)
	for _, id := range []string{"a", "b", "c"} {
		if _, err := m.AddNode(id, NewObject(id), false); err != nil {
			t.Fatalf("AddNode(%s) error = %v", id, err)
		}
	}
	b, _ := m.FindNode("b")

	if !m.RemoveNode("b") {
		t.Fatal("RemoveNode(b) = false")
	}
	if m.RemoveNode("b") {
		t.Error("second RemoveNode(b) = true")
	}
	if m.RemoveNode("missing") {
		t.Error("RemoveNode(missing) = true")
	}

	if _, ok := m.FindNode("b"); ok {
		t.Error("FindNode(b) still finds removed node")
	}
	if b.Object.Parent != nil {
		t.Error("removed object still attached")
	}
	ids := m.DeviceIDs()
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "c" {
		t.Errorf("DeviceIDs() = %v, want [a c]", ids)
	}
	if len(m.Root().Children) != 2 {
		t.Errorf("root children = %d, want 2", len(m.Root().Children))
	}
}

func TestNodes_InsertionOrder(t *testing.T) {
	m := newInitialized(t)
	for _, id := range []string{"c", "a", "b"} {
		_, _ = m.AddNode(id, NewObject(id), false)
	}
	m.RemoveNode("a")
	_, _ = m.AddNode("a", NewObject("a"), true)

	nodes := m.Nodes()
	want := []string{"c", "b", "a"}
	for i, n := range nodes {
		if n.DeviceID != want[i] {
			t.Fatalf("Nodes()[%d] = %s, want %s", i, n.DeviceID, want[i])
		}
	}
	if !nodes[2].Fallback {
		t.Error("re-added node lost fallback flag")
	}
}

func TestInitialize_DiscardsContents(t *testing.T) {
	m := newInitialized(t)
	_, _ = m.AddNode("a", NewObject("a"), false)

	m.Initialize()
	if m.Len() != 0 {
		t.Errorf("Len() after re-Initialize = %d, want 0", m.Len())
	}
}
