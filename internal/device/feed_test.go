package device

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/nerrad567/gray-logic-viewer/internal/infrastructure/mqtt"
)

// fakeBus loops published messages back to subscribers on the same topic.
type fakeBus struct {
	mu        sync.Mutex
	handlers  map[string]mqtt.MessageHandler
	published [][]byte
	subErr    error
}

func newFakeBus() *fakeBus {
	return &fakeBus{handlers: make(map[string]mqtt.MessageHandler)}
}

func (b *fakeBus) Publish(topic string, payload []byte, _ byte, _ bool) error {
	b.mu.Lock()
	b.published = append(b.published, payload)
	b.mu.Unlock()
	return nil
}

func (b *fakeBus) Subscribe(topic string, _ byte, handler mqtt.MessageHandler) error {
	if b.subErr != nil {
		return b.subErr
	}
	b.mu.Lock()
	b.handlers[topic] = handler
	b.mu.Unlock()
	return nil
}

func (b *fakeBus) Unsubscribe(topic string) error {
	b.mu.Lock()
	delete(b.handlers, topic)
	b.mu.Unlock()
	return nil
}

func (b *fakeBus) deliver(t *testing.T, topic string, payload []byte) error {
	t.Helper()
	b.mu.Lock()
	h, ok := b.handlers[topic]
	b.mu.Unlock()
	if !ok {
		t.Fatalf("no handler for %s", topic)
	}
	return h(topic, payload)
}

func TestMQTTFeed_PublishesLocalChanges(t *testing.T) {
	store, _ := newTestStore(t)
	bus := newFakeBus()
	feed := NewMQTTFeed(bus, store, 1)
	if err := feed.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	d, err := store.Create(context.Background(), named("a"))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if len(bus.published) != 1 {
		t.Fatalf("published = %d, want 1", len(bus.published))
	}
	var change Change
	if err := json.Unmarshal(bus.published[0], &change); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if change.Op != OpCreated || change.DeviceID != d.ID || change.Origin != feed.Origin() {
		t.Errorf("change = %+v", change)
	}
}

func TestMQTTFeed_RemoteChangeReloadsStore(t *testing.T) {
	store, repo := newTestStore(t)
	bus := newFakeBus()
	feed := NewMQTTFeed(bus, store, 1)
	if err := feed.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	rec := &emissionRecorder{}
	defer store.Subscribe(rec.listen)()

	// Another instance wrote straight to the shared database.
	repo.devices["remote"] = Device{ID: "remote", Name: "from elsewhere"}
	payload, _ := json.Marshal(Change{Op: OpCreated, DeviceID: "remote", Origin: "other-instance"})

	if err := bus.deliver(t, mqtt.Topics{}.DeviceChanged(), payload); err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if _, err := store.Get("remote"); err != nil {
		t.Errorf("store not reloaded: %v", err)
	}
	if rec.count() != 2 {
		t.Errorf("emissions = %d, want replay + reload", rec.count())
	}
}

func TestMQTTFeed_IgnoresOwnAndMalformed(t *testing.T) {
	store, _ := newTestStore(t)
	bus := newFakeBus()
	feed := NewMQTTFeed(bus, store, 1)
	if err := feed.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	rec := &emissionRecorder{}
	defer store.Subscribe(rec.listen)()

	own, _ := json.Marshal(Change{Op: OpDeleted, DeviceID: "x", Origin: feed.Origin()})
	if err := feed.HandleMessage(own); err != nil {
		t.Errorf("HandleMessage(own) error = %v", err)
	}
	if rec.count() != 1 {
		t.Errorf("own change triggered reload")
	}

	if err := feed.HandleMessage([]byte("not json")); err == nil {
		t.Error("HandleMessage(malformed) expected error")
	}
}

func TestMQTTFeed_StartAndStop(t *testing.T) {
	store, _ := newTestStore(t)
	bus := newFakeBus()
	bus.subErr = errors.New("not connected")

	feed := NewMQTTFeed(bus, store, 1)
	if err := feed.Start(context.Background()); err == nil {
		t.Fatal("Start() expected error when subscribe fails")
	}

	bus.subErr = nil
	if err := feed.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := feed.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	if _, err := store.Create(context.Background(), named("after-stop")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if len(bus.published) != 0 {
		t.Errorf("published after Stop = %d, want 0", len(bus.published))
	}
}
