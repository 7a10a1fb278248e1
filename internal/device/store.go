package device

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Logger defines the logging interface used by the Store and the change feed.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// ChangePublisher is told about every successful local mutation so other
// viewer instances can refresh.
type ChangePublisher interface {
	PublishChange(ctx context.Context, change Change) error
}

// Op names the kind of mutation in a Change.
type Op string

// Op constants.
const (
	OpCreated Op = "created"
	OpUpdated Op = "updated"
	OpDeleted Op = "deleted"
)

// Change describes one mutation of the device collection.
type Change struct {
	Op       Op        `json:"op"`
	DeviceID string    `json:"device_id"`
	Origin   string    `json:"origin"`
	At       time.Time `json:"at"`
}

// Listener receives the full, ordered device list.
type Listener func(devices []Device)

// Store is the live device collection: an in-memory copy of the repository
// plus a subscription stream that replays the current list to each new
// subscriber and re-emits it after every change.
//
// Emissions are delivered in order, one at a time, from the goroutine that
// caused the change. Listeners must not mutate the Store synchronously.
//
// All public methods are thread-safe.
type Store struct {
	repo Repository

	mu      sync.RWMutex
	devices map[string]Device

	// subMu guards listeners and serialises emissions.
	subMu     sync.Mutex
	listeners map[uint64]Listener
	nextID    uint64

	pubMu     sync.RWMutex
	publisher ChangePublisher

	logger Logger
	now    func() time.Time
}

// NewStore creates a Store over repo. Call Load before serving.
func NewStore(repo Repository) *Store {
	return &Store{
		repo:      repo,
		devices:   make(map[string]Device),
		listeners: make(map[uint64]Listener),
		logger:    noopLogger{},
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// SetLogger sets the logger for the store.
func (s *Store) SetLogger(logger Logger) {
	s.logger = logger
}

// SetPublisher installs the cross-instance change publisher.
// Passing nil detaches the current publisher.
func (s *Store) SetPublisher(p ChangePublisher) {
	s.pubMu.Lock()
	s.publisher = p
	s.pubMu.Unlock()
}

// SetClock overrides the timestamp source. Used by tests.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

// Load replaces the in-memory collection with the repository contents and
// emits the result to all listeners.
func (s *Store) Load(ctx context.Context) error {
	devices, err := s.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading devices: %w", err)
	}

	s.mu.Lock()
	s.devices = make(map[string]Device, len(devices))
	for _, d := range devices {
		s.devices[d.ID] = d
	}
	s.mu.Unlock()

	s.logger.Info("device store loaded", "count", len(devices))
	s.emit()
	return nil
}

// List returns a snapshot of all devices ordered by creation time, then ID.
func (s *Store) List() []Device {
	s.mu.RLock()
	devices := make([]Device, 0, len(s.devices))
	for _, d := range s.devices {
		devices = append(devices, d)
	}
	s.mu.RUnlock()

	sort.Slice(devices, func(i, j int) bool {
		if !devices[i].CreatedAt.Equal(devices[j].CreatedAt) {
			return devices[i].CreatedAt.Before(devices[j].CreatedAt)
		}
		return devices[i].ID < devices[j].ID
	})
	return devices
}

// Get returns a device by ID or ErrDeviceNotFound.
func (s *Store) Get(id string) (Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.devices[id]
	if !ok {
		return Device{}, ErrDeviceNotFound
	}
	return d, nil
}

// Subscribe registers fn and immediately calls it with the current list.
// The returned function removes the subscription; calling it more than once
// is harmless.
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	fn(s.List())
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.listeners, id)
			s.subMu.Unlock()
		})
	}
}

// SubscriberCount returns the number of live subscriptions.
func (s *Store) SubscriberCount() int {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	return len(s.listeners)
}

// emit sends the current list to every listener. Holding subMu for the whole
// emission keeps listeners from ever seeing an older list after a newer one.
func (s *Store) emit() {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	if len(s.listeners) == 0 {
		return
	}
	snapshot := s.List()
	for _, fn := range s.listeners {
		fn(append([]Device(nil), snapshot...))
	}
}

// Create validates the form, assigns a new ID and persists the device.
//
// Returns:
//   - Device: The stored record including its generated ID
//   - error: ErrInvalidDevice (wrapped with reasons) or a persistence error
func (s *Store) Create(ctx context.Context, f Fields) (Device, error) {
	if err := ValidateFields(f); err != nil {
		return Device{}, err
	}
	f = f.normalise()

	now := s.now()
	d := Device{
		ID:        GenerateID(),
		Name:      f.Name,
		Type:      f.Type,
		Status:    f.Status,
		ModelPath: f.ModelPath,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Create(ctx, &d); err != nil {
		return Device{}, err
	}

	s.mu.Lock()
	s.devices[d.ID] = d
	s.mu.Unlock()

	s.logger.Info("device created", "id", d.ID, "name", d.Name)
	s.changed(ctx, OpCreated, d.ID)
	return d, nil
}

// Update applies a partial update. The ID and creation time never change.
func (s *Store) Update(ctx context.Context, id string, p Patch) (Device, error) {
	if p.IsEmpty() {
		return Device{}, ErrEmptyPatch
	}

	existing, err := s.Get(id)
	if err != nil {
		return Device{}, err
	}

	f := p.Apply(existing.Fields())
	if err := ValidateFields(f); err != nil {
		return Device{}, err
	}
	f = f.normalise()

	d := existing
	d.Name = f.Name
	d.Type = f.Type
	d.Status = f.Status
	d.ModelPath = f.ModelPath
	d.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, &d); err != nil {
		return Device{}, err
	}

	s.mu.Lock()
	s.devices[d.ID] = d
	s.mu.Unlock()

	s.logger.Info("device updated", "id", d.ID, "name", d.Name)
	s.changed(ctx, OpUpdated, d.ID)
	return d, nil
}

// Delete removes a device from the repository and the collection.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.devices, id)
	s.mu.Unlock()

	s.logger.Info("device deleted", "id", id)
	s.changed(ctx, OpDeleted, id)
	return nil
}

func (s *Store) changed(ctx context.Context, op Op, id string) {
	s.emit()

	s.pubMu.RLock()
	publisher := s.publisher
	s.pubMu.RUnlock()
	if publisher == nil {
		return
	}

	change := Change{Op: op, DeviceID: id, At: s.now()}
	if err := publisher.PublishChange(ctx, change); err != nil {
		s.logger.Warn("publishing device change failed", "op", op, "id", id, "error", err)
	}
}

// Stats returns collection statistics for monitoring.
type Stats struct {
	Total    int            `json:"total"`
	ByType   map[Type]int   `json:"by_type"`
	ByStatus map[Status]int `json:"by_status"`
}

// GetStats returns current statistics.
func (s *Store) GetStats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{
		Total:    len(s.devices),
		ByType:   make(map[Type]int),
		ByStatus: make(map[Status]int),
	}
	for _, d := range s.devices {
		stats.ByType[d.Type]++
		stats.ByStatus[d.Status]++
	}
	return stats
}
