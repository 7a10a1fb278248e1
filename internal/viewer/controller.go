package viewer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/nerrad567/gray-logic-viewer/internal/asset"
	"github.com/nerrad567/gray-logic-viewer/internal/camera"
	"github.com/nerrad567/gray-logic-viewer/internal/device"
	"github.com/nerrad567/gray-logic-viewer/internal/render"
	"github.com/nerrad567/gray-logic-viewer/internal/scene"
)

// Logger defines the logging interface used by the controller.
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

// Store is the device collection the controller consumes.
type Store interface {
	Subscribe(fn device.Listener) (unsubscribe func())
	Delete(ctx context.Context, id string) error
}

// Resolver produces scene objects for devices.
type Resolver interface {
	Resolve(ctx context.Context, dev device.Device, pos mgl32.Vec3, deliver func(asset.Result))
}

// Drop reasons reported to the Observer.
const (
	DropStale    = "stale"
	DropUnknown  = "unknown_device"
	DropDisposed = "disposed"
)

// Observer is told about controller events.
type Observer interface {
	TransitionStarted(deviceID string, duration time.Duration)
	DeliveryDropped(reason string)
	NodesChanged(count int)
}

// Config holds the controller settings.
type Config struct {
	Width             int
	Height            int
	Spacing           float32
	Camera            render.CameraConfig
	AnimationDuration time.Duration
}

// DefaultConfig returns an 800x600 viewport with the standard camera.
func DefaultConfig() Config {
	return Config{
		Width:             800,
		Height:            600,
		Spacing:           DefaultSpacing,
		Camera:            render.DefaultCameraConfig(),
		AnimationDuration: camera.DefaultDuration,
	}
}

// Controller is the composition root of the viewport. It maps the device
// stream onto scene nodes and drives the camera on selection.
//
// Scene, renderer and animator state is only touched on the scheduler
// goroutine. Public methods marshal onto it.
type Controller struct {
	sched    render.Scheduler
	store    Store
	resolver Resolver
	cfg      Config
	logger   Logger
	observer Observer
	now      func() time.Time

	scene    *scene.Manager
	renderer *render.Renderer
	animator *camera.Animator

	// Scheduler-owned.
	devices    map[string]device.Device
	generation uint64
	selected   string
	mounted    bool
	disposed   bool

	lifecycleMu   sync.Mutex
	unsubscribe   func()
	resolveCancel context.CancelFunc
	unmounted     bool
}

// New creates an unmounted controller.
//
// Parameters:
//   - sched: Scheduler that owns the scene
//   - store: Device stream and delete operation
//   - resolver: Model resolver
//   - surface: Drawing target for frames
//   - cfg: Viewport settings
func New(sched render.Scheduler, store Store, resolver Resolver, surface render.Surface, cfg Config) *Controller {
	if cfg.Spacing == 0 {
		cfg.Spacing = DefaultSpacing
	}
	mgr := scene.NewManager()
	return &Controller{
		sched:    sched,
		store:    store,
		resolver: resolver,
		cfg:      cfg,
		logger:   noopLogger{},
		now:      time.Now,
		scene:    mgr,
		renderer: render.NewRenderer(sched, mgr, surface, cfg.Camera),
		devices:  make(map[string]device.Device),
	}
}

// SetLogger sets the logger for the controller and its renderer.
func (c *Controller) SetLogger(logger Logger) {
	c.logger = logger
	c.renderer.SetLogger(logger)
}

// SetObserver registers an observer for controller events.
func (c *Controller) SetObserver(o Observer) {
	c.observer = o
}

// SetFrameObserver registers an observer for rendered frames.
func (c *Controller) SetFrameObserver(o render.FrameObserver) {
	c.renderer.SetObserver(o)
}

// SetClock replaces the animator's clock. Call before Mount.
func (c *Controller) SetClock(now func() time.Time) {
	c.now = now
}

// Mount initialises the scene and renderer, starts the frame loop and
// subscribes to the device stream.
func (c *Controller) Mount(ctx context.Context) error {
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()

	if c.unmounted {
		return ErrUnmounted
	}
	if c.unsubscribe != nil {
		return ErrAlreadyMounted
	}

	var initErr error
	if err := c.sched.Do(ctx, func() { initErr = c.initialize() }); err != nil {
		return fmt.Errorf("mounting viewer: %w", err)
	}
	if initErr != nil {
		return fmt.Errorf("mounting viewer: %w", initErr)
	}

	resolveCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.resolveCancel = cancel

	c.unsubscribe = c.store.Subscribe(func(devices []device.Device) {
		c.sched.Post(func() { c.applyDevices(resolveCtx, devices) })
	})

	c.logger.Info("viewer mounted", "width", c.cfg.Width, "height", c.cfg.Height)
	return nil
}

func (c *Controller) initialize() error {
	c.scene.Initialize()
	if err := c.renderer.Initialize(c.cfg.Width, c.cfg.Height); err != nil {
		return err
	}

	c.animator = camera.NewAnimator(c.renderer.Camera(), c.cfg.AnimationDuration)
	c.animator.SetClock(c.now)
	c.renderer.SetUpdater(c.animator)

	if err := c.renderer.Start(); err != nil {
		return err
	}
	c.mounted = true
	return nil
}

// applyDevices lays out the full list and resolves every device. Nodes for
// devices no longer listed are removed straight away.
func (c *Controller) applyDevices(ctx context.Context, devices []device.Device) {
	if c.disposed {
		return
	}

	c.generation++
	gen := c.generation

	c.devices = make(map[string]device.Device, len(devices))
	for _, d := range devices {
		c.devices[d.ID] = d
	}

	removed := 0
	for _, id := range c.scene.DeviceIDs() {
		if _, ok := c.devices[id]; !ok {
			c.scene.RemoveNode(id)
			removed++
		}
	}
	if removed > 0 {
		c.nodesChanged()
	}

	c.logger.Debug("device list received", "count", len(devices), "generation", gen, "removed", removed)

	slots := Slots(len(devices), c.cfg.Spacing)
	for i, d := range devices {
		c.resolver.Resolve(ctx, d, slots[i], func(res asset.Result) {
			c.sched.Post(func() { c.applyResult(gen, res) })
		})
	}
}

// applyResult adds a resolved object to the scene, replacing any existing
// node for the device. Late, stale and orphaned results are dropped.
func (c *Controller) applyResult(gen uint64, res asset.Result) {
	switch {
	case c.disposed:
		c.dropped(DropDisposed, res)
		return
	case gen != c.generation:
		c.dropped(DropStale, res)
		return
	}
	if _, ok := c.devices[res.DeviceID]; !ok {
		c.dropped(DropUnknown, res)
		return
	}

	c.scene.RemoveNode(res.DeviceID)
	if _, err := c.scene.AddNode(res.DeviceID, res.Object, res.Fallback); err != nil {
		c.logger.Error("adding scene node failed", "device_id", res.DeviceID, "error", err)
		return
	}
	c.nodesChanged()
}

func (c *Controller) dropped(reason string, res asset.Result) {
	c.logger.Debug("dropping model delivery", "device_id", res.DeviceID, "reason", reason)
	if c.observer != nil {
		c.observer.DeliveryDropped(reason)
	}
}

func (c *Controller) nodesChanged() {
	if c.observer != nil {
		c.observer.NodesChanged(c.scene.Len())
	}
}

// Select flies the camera to the device's node: position node+SelectOffset,
// looking at the node.
//
// Returns:
//   - error: ErrNotMounted, ErrNodeNotFound, or a scheduler error
func (c *Controller) Select(ctx context.Context, deviceID string) error {
	var opErr error
	err := c.sched.Do(ctx, func() {
		if !c.mounted || c.disposed {
			opErr = ErrNotMounted
			return
		}
		node, ok := c.scene.FindNode(deviceID)
		if !ok {
			opErr = fmt.Errorf("%w: %s", ErrNodeNotFound, deviceID)
			return
		}
		pos := node.Position()
		c.animator.StartTransition(pos.Add(SelectOffset), pos)
		c.selected = deviceID
		if c.observer != nil {
			c.observer.TransitionStarted(deviceID, c.animator.Duration())
		}
	})
	if err != nil {
		return err
	}
	return opErr
}

// DeleteDevice deletes a device from the store and then removes its node.
// Without confirmation nothing happens. Deleting an unknown device is not
// an error.
//
// Returns:
//   - error: ErrDeleteNotConfirmed or the store's persistence error
func (c *Controller) DeleteDevice(ctx context.Context, deviceID string, confirmed bool) error {
	if !confirmed {
		return ErrDeleteNotConfirmed
	}

	if err := c.store.Delete(ctx, deviceID); err != nil && !errors.Is(err, device.ErrDeviceNotFound) {
		return fmt.Errorf("deleting device %s: %w", deviceID, err)
	}

	return c.sched.Do(ctx, func() {
		delete(c.devices, deviceID)
		if c.scene.RemoveNode(deviceID) {
			c.nodesChanged()
		}
		if c.selected == deviceID {
			c.selected = ""
		}
	})
}

// Resize updates the viewport size. Before Mount it does nothing.
func (c *Controller) Resize(ctx context.Context, width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: %dx%d", render.ErrInvalidSize, width, height)
	}
	return c.sched.Do(ctx, func() {
		if c.renderer.Resize(width, height) {
			c.logger.Debug("viewport resized", "width", width, "height", height)
		}
	})
}

// Unmount unsubscribes from the store and tears down the renderer. After
// it returns no frame runs and no scene mutation is applied. Safe to call
// more than once and without Mount.
func (c *Controller) Unmount() {
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()

	if c.unmounted {
		return
	}
	c.unmounted = true

	if c.unsubscribe != nil {
		c.unsubscribe()
	}
	if c.resolveCancel != nil {
		c.resolveCancel()
	}

	teardown := func() {
		c.disposed = true
		c.mounted = false
		c.renderer.Teardown()
	}
	if err := c.sched.Do(context.Background(), teardown); err != nil {
		// The scheduler is gone, so nothing else can touch the state.
		teardown()
	}
	c.logger.Info("viewer unmounted")
}

// NodeState describes one scene node.
type NodeState struct {
	DeviceID string     `json:"device_id"`
	Name     string     `json:"name"`
	Position mgl32.Vec3 `json:"position"`
	Fallback bool       `json:"fallback"`
}

// State is a snapshot of the viewport for the API.
type State struct {
	Mounted    bool         `json:"mounted"`
	Width      int          `json:"width"`
	Height     int          `json:"height"`
	Camera     camera.Pose  `json:"camera"`
	Animation  camera.State `json:"animation"`
	Selected   string       `json:"selected,omitempty"`
	Generation uint64       `json:"generation"`
	Nodes      []NodeState  `json:"nodes"`
	Frames     render.Stats `json:"frames"`
}

// State returns a snapshot taken on the scheduler goroutine.
func (c *Controller) State(ctx context.Context) (State, error) {
	var st State
	err := c.sched.Do(ctx, func() {
		st = c.snapshot()
	})
	return st, err
}

func (c *Controller) snapshot() State {
	st := State{
		Mounted:    c.mounted && !c.disposed,
		Selected:   c.selected,
		Generation: c.generation,
		Frames:     c.renderer.Stats(),
		Animation:  camera.StateIdle,
	}
	st.Width, st.Height = c.renderer.Size()
	if cam := c.renderer.Camera(); cam != nil {
		st.Camera = camera.Pose{Position: cam.Position(), Target: cam.Target()}
	}
	if c.animator != nil {
		st.Animation = c.animator.State()
	}

	nodes := c.scene.Nodes()
	st.Nodes = make([]NodeState, 0, len(nodes))
	for _, n := range nodes {
		st.Nodes = append(st.Nodes, NodeState{
			DeviceID: n.DeviceID,
			Name:     c.devices[n.DeviceID].Name,
			Position: n.Position(),
			Fallback: n.Fallback,
		})
	}
	return st
}

// Do runs fn on the scheduler goroutine with read access to the scene.
// fn must not retain the manager.
func (c *Controller) Do(ctx context.Context, fn func(*scene.Manager)) error {
	return c.sched.Do(ctx, func() { fn(c.scene) })
}
