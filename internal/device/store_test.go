package device

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"
)

// MockRepository is a test implementation of Repository.
type MockRepository struct {
	mu      sync.Mutex
	devices map[string]Device

	listErr   error
	createErr error
	updateErr error
	deleteErr error
}

func NewMockRepository() *MockRepository {
	return &MockRepository{devices: make(map[string]Device)}
}

func (m *MockRepository) GetByID(_ context.Context, id string) (*Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.devices[id]; ok {
		return &d, nil
	}
	return nil, ErrDeviceNotFound
}

func (m *MockRepository) List(_ context.Context) ([]Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	devices := make([]Device, 0, len(m.devices))
	for _, d := range m.devices {
		devices = append(devices, d)
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i].ID < devices[j].ID })
	return devices, nil
}

func (m *MockRepository) Create(_ context.Context, d *Device) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	if _, exists := m.devices[d.ID]; exists {
		return ErrDeviceExists
	}
	m.devices[d.ID] = *d
	return nil
}

func (m *MockRepository) Update(_ context.Context, d *Device) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	if _, exists := m.devices[d.ID]; !exists {
		return ErrDeviceNotFound
	}
	m.devices[d.ID] = *d
	return nil
}

func (m *MockRepository) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, exists := m.devices[id]; !exists {
		return ErrDeviceNotFound
	}
	delete(m.devices, id)
	return nil
}

// emissionRecorder collects every list a listener receives.
type emissionRecorder struct {
	mu    sync.Mutex
	lists [][]Device
}

func (r *emissionRecorder) listen(devices []Device) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lists = append(r.lists, devices)
}

func (r *emissionRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.lists)
}

func (r *emissionRecorder) last() []Device {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.lists) == 0 {
		return nil
	}
	return r.lists[len(r.lists)-1]
}

type capturePublisher struct {
	mu      sync.Mutex
	changes []Change
	err     error
}

func (p *capturePublisher) PublishChange(_ context.Context, c Change) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changes = append(p.changes, c)
	return p.err
}

// steppingClock returns times one second apart starting at base.
func steppingClock(base time.Time) func() time.Time {
	var mu sync.Mutex
	next := base
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := next
		next = next.Add(time.Second)
		return t
	}
}

func newTestStore(t *testing.T) (*Store, *MockRepository) {
	t.Helper()
	repo := NewMockRepository()
	store := NewStore(repo)
	store.SetClock(steppingClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)))
	return store, repo
}

func named(name string) Fields {
	f := DefaultFields()
	f.Name = name
	return f
}

func TestStore_SubscribeReplaysCurrentList(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if _, err := store.Create(ctx, named("first")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	rec := &emissionRecorder{}
	unsubscribe := store.Subscribe(rec.listen)
	defer unsubscribe()

	if rec.count() != 1 {
		t.Fatalf("emissions after Subscribe = %d, want 1", rec.count())
	}
	if got := rec.last(); len(got) != 1 || got[0].Name != "first" {
		t.Errorf("replayed list = %+v", got)
	}
}

func TestStore_EmitsOnEveryChange(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	rec := &emissionRecorder{}
	unsubscribe := store.Subscribe(rec.listen)

	a, err := store.Create(ctx, named("a"))
	if err != nil {
		t.Fatalf("Create(a) error = %v", err)
	}
	if _, err := store.Create(ctx, named("b")); err != nil {
		t.Fatalf("Create(b) error = %v", err)
	}
	newName := "a2"
	if _, err := store.Update(ctx, a.ID, Patch{Name: &newName}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if err := store.Delete(ctx, a.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	// replay + create + create + update + delete
	if rec.count() != 5 {
		t.Fatalf("emissions = %d, want 5", rec.count())
	}
	if got := rec.last(); len(got) != 1 || got[0].Name != "b" {
		t.Errorf("final list = %+v, want only b", got)
	}

	unsubscribe()
	unsubscribe()
	if _, err := store.Create(ctx, named("c")); err != nil {
		t.Fatalf("Create(c) error = %v", err)
	}
	if rec.count() != 5 {
		t.Errorf("emissions after unsubscribe = %d, want 5", rec.count())
	}
	if store.SubscriberCount() != 0 {
		t.Errorf("SubscriberCount() = %d, want 0", store.SubscriberCount())
	}
}

func TestStore_ListOrderedByCreation(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	var want []string
	for _, n := range []string{"zulu", "alpha", "mike"} {
		d, err := store.Create(ctx, named(n))
		if err != nil {
			t.Fatalf("Create(%s) error = %v", n, err)
		}
		want = append(want, d.ID)
	}

	got := store.List()
	for i := range want {
		if got[i].ID != want[i] {
			t.Fatalf("List() order = %v, want creation order %v", got, want)
		}
	}
}

func TestStore_CreateAssignsIdentity(t *testing.T) {
	store, repo := newTestStore(t)

	d, err := store.Create(context.Background(), Fields{
		Name:      "  Padded  ",
		Type:      TypeActuator,
		Status:    StatusIdle,
		ModelPath: " /models/a.glb ",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if d.ID == "" {
		t.Fatal("Create() returned empty ID")
	}
	if d.Name != "Padded" || d.ModelPath != "/models/a.glb" {
		t.Errorf("Create() did not trim fields: %+v", d)
	}
	if d.CreatedAt.IsZero() || !d.CreatedAt.Equal(d.UpdatedAt) {
		t.Errorf("timestamps = %v / %v", d.CreatedAt, d.UpdatedAt)
	}
	if _, err := repo.GetByID(context.Background(), d.ID); err != nil {
		t.Errorf("device not persisted: %v", err)
	}
}

func TestStore_CreateInvalid(t *testing.T) {
	store, repo := newTestStore(t)
	rec := &emissionRecorder{}
	defer store.Subscribe(rec.listen)()

	_, err := store.Create(context.Background(), DefaultFields())
	if !errors.Is(err, ErrInvalidDevice) {
		t.Fatalf("Create() error = %v, want ErrInvalidDevice", err)
	}
	if len(repo.devices) != 0 {
		t.Error("invalid device was persisted")
	}
	if rec.count() != 1 {
		t.Errorf("emissions = %d, want only the replay", rec.count())
	}
}

func TestStore_UpdateKeepsIdentity(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	orig, err := store.Create(ctx, named("orig"))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	status := StatusOffline
	updated, err := store.Update(ctx, orig.ID, Patch{Status: &status})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.ID != orig.ID || !updated.CreatedAt.Equal(orig.CreatedAt) {
		t.Errorf("Update() changed identity: %+v vs %+v", updated, orig)
	}
	if updated.Status != StatusOffline || updated.Name != "orig" {
		t.Errorf("Update() = %+v", updated)
	}
	if !updated.UpdatedAt.After(orig.UpdatedAt) {
		t.Errorf("UpdatedAt not advanced: %v -> %v", orig.UpdatedAt, updated.UpdatedAt)
	}
}

func TestStore_UpdateErrors(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	name := "x"

	if _, err := store.Update(ctx, "missing", Patch{Name: &name}); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("Update(missing) error = %v, want ErrDeviceNotFound", err)
	}

	d, _ := store.Create(ctx, named("d"))
	if _, err := store.Update(ctx, d.ID, Patch{}); !errors.Is(err, ErrEmptyPatch) {
		t.Errorf("Update(empty) error = %v, want ErrEmptyPatch", err)
	}
	blank := ""
	if _, err := store.Update(ctx, d.ID, Patch{Name: &blank}); !errors.Is(err, ErrInvalidDevice) {
		t.Errorf("Update(blank name) error = %v, want ErrInvalidDevice", err)
	}
}

func TestStore_DeletePropagatesPersistenceFailure(t *testing.T) {
	store, repo := newTestStore(t)
	ctx := context.Background()

	d, _ := store.Create(ctx, named("d"))
	repo.deleteErr = errors.New("disk full")

	if err := store.Delete(ctx, d.ID); err == nil || err.Error() != "disk full" {
		t.Fatalf("Delete() error = %v, want disk full", err)
	}
	if _, err := store.Get(d.ID); err != nil {
		t.Error("device removed from store despite failed delete")
	}
}

func TestStore_LoadReplacesAndEmits(t *testing.T) {
	store, repo := newTestStore(t)
	ctx := context.Background()

	repo.devices["x"] = Device{ID: "x", Name: "external"}
	rec := &emissionRecorder{}
	defer store.Subscribe(rec.listen)()

	if err := store.Load(ctx); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := rec.last(); len(got) != 1 || got[0].ID != "x" {
		t.Errorf("emitted after Load = %+v", got)
	}

	repo.listErr = errors.New("locked")
	if err := store.Load(ctx); err == nil {
		t.Error("Load() expected error")
	}
}

func TestStore_PublishesChanges(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	pub := &capturePublisher{err: errors.New("broker down")}
	store.SetPublisher(pub)

	d, err := store.Create(ctx, named("d"))
	if err != nil {
		t.Fatalf("Create() error = %v (publisher failures must not fail the mutation)", err)
	}
	if err := store.Delete(ctx, d.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if len(pub.changes) != 2 {
		t.Fatalf("published %d changes, want 2", len(pub.changes))
	}
	if pub.changes[0].Op != OpCreated || pub.changes[1].Op != OpDeleted || pub.changes[1].DeviceID != d.ID {
		t.Errorf("changes = %+v", pub.changes)
	}
}

func TestStore_GetStats(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, _ = store.Create(ctx, named("a"))
	f := named("b")
	f.Type = TypeMonitor
	f.Status = StatusOffline
	_, _ = store.Create(ctx, f)

	stats := store.GetStats()
	if stats.Total != 2 || stats.ByType[TypeSensor] != 1 || stats.ByType[TypeMonitor] != 1 || stats.ByStatus[StatusOffline] != 1 {
		t.Errorf("GetStats() = %+v", stats)
	}
}
