package device

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-viewer/internal/infrastructure/mqtt"
)

// reloadTimeout bounds the store reload triggered by a remote change.
const reloadTimeout = 10 * time.Second

// Bus is the subset of *mqtt.Client used by the change feed.
type Bus interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// MQTTFeed keeps several viewer instances that share one database in step.
// Local mutations are announced on the device-changed topic; announcements
// from other instances trigger a Store reload, which in turn re-emits the
// list to the viewer.
type MQTTFeed struct {
	bus    Bus
	store  *Store
	qos    byte
	topic  string
	origin string
	logger Logger

	baseCtx context.Context
}

// NewMQTTFeed creates a feed for store over bus. Each feed gets a random
// origin ID so it can ignore its own announcements.
func NewMQTTFeed(bus Bus, store *Store, qos byte) *MQTTFeed {
	return &MQTTFeed{
		bus:     bus,
		store:   store,
		qos:     qos,
		topic:   mqtt.Topics{}.DeviceChanged(),
		origin:  uuid.NewString(),
		logger:  noopLogger{},
		baseCtx: context.Background(),
	}
}

// SetLogger sets the logger for the feed.
func (f *MQTTFeed) SetLogger(logger Logger) {
	f.logger = logger
}

// Origin returns this instance's origin ID.
func (f *MQTTFeed) Origin() string {
	return f.origin
}

// Start subscribes to remote changes and registers the feed as the store's
// publisher. ctx bounds the reloads triggered by remote changes.
func (f *MQTTFeed) Start(ctx context.Context) error {
	f.baseCtx = ctx
	if err := f.bus.Subscribe(f.topic, f.qos, func(_ string, payload []byte) error {
		return f.HandleMessage(payload)
	}); err != nil {
		return fmt.Errorf("subscribing to device changes: %w", err)
	}
	f.store.SetPublisher(f)
	return nil
}

// Stop unsubscribes and detaches from the store.
func (f *MQTTFeed) Stop() error {
	f.store.SetPublisher(nil)
	if err := f.bus.Unsubscribe(f.topic); err != nil {
		return fmt.Errorf("unsubscribing from device changes: %w", err)
	}
	return nil
}

// PublishChange implements ChangePublisher.
func (f *MQTTFeed) PublishChange(_ context.Context, change Change) error {
	change.Origin = f.origin
	payload, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("encoding change: %w", err)
	}
	return f.bus.Publish(f.topic, payload, f.qos, false)
}

// HandleMessage processes one announcement from the broker.
func (f *MQTTFeed) HandleMessage(payload []byte) error {
	var change Change
	if err := json.Unmarshal(payload, &change); err != nil {
		return fmt.Errorf("decoding change: %w", err)
	}
	if change.Origin == f.origin {
		return nil
	}

	f.logger.Debug("remote device change", "op", change.Op, "id", change.DeviceID, "origin", change.Origin)

	ctx, cancel := context.WithTimeout(f.baseCtx, reloadTimeout)
	defer cancel()
	return f.store.Load(ctx)
}
