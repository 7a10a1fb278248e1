package asset

import (
	"context"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/nerrad567/gray-logic-viewer/internal/device"
	"github.com/nerrad567/gray-logic-viewer/internal/scene"
)

// DefaultLoadTimeout bounds one model load when none is configured.
const DefaultLoadTimeout = 10 * time.Second

// Logger defines the logging interface used by the resolver.
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

// Observer receives the outcome of every resolution.
type Observer interface {
	AssetResolved(deviceID string, fallback bool, elapsed time.Duration)
}

// Observers fans one outcome out to several observers.
type Observers []Observer

// AssetResolved implements Observer.
func (o Observers) AssetResolved(deviceID string, fallback bool, elapsed time.Duration) {
	for _, obs := range o {
		obs.AssetResolved(deviceID, fallback, elapsed)
	}
}

// Result is the outcome of resolving one device's model. Object is never
// nil: on failure it is the fallback cube and Err holds the cause.
type Result struct {
	DeviceID string
	Object   *scene.Object
	Fallback bool
	Err      error
}

// Resolver produces one scene object per device, asynchronously.
type Resolver struct {
	loader   Loader
	timeout  time.Duration
	logger   Logger
	observer Observer
	now      func() time.Time
}

// NewResolver creates a resolver using loader. A non-positive timeout
// selects DefaultLoadTimeout.
func NewResolver(loader Loader, timeout time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = DefaultLoadTimeout
	}
	return &Resolver{
		loader:  loader,
		timeout: timeout,
		logger:  noopLogger{},
		now:     time.Now,
	}
}

// SetLogger sets the logger for the resolver.
func (r *Resolver) SetLogger(logger Logger) {
	r.logger = logger
}

// SetObserver registers an observer for resolution outcomes.
func (r *Resolver) SetObserver(o Observer) {
	r.observer = o
}

// Resolve loads dev's model in a new goroutine and calls deliver exactly
// once with the result. The object is positioned at pos and tagged with
// dev.ID. Load failures produce the fallback cube and are logged, never
// returned.
//
// deliver runs on the resolver's goroutine; callers marshal the result to
// wherever the scene is owned.
func (r *Resolver) Resolve(ctx context.Context, dev device.Device, pos mgl32.Vec3, deliver func(Result)) {
	go func() {
		deliver(r.resolve(ctx, dev, pos))
	}()
}

// ResolveSync is the synchronous form of Resolve.
func (r *Resolver) ResolveSync(ctx context.Context, dev device.Device, pos mgl32.Vec3) Result {
	return r.resolve(ctx, dev, pos)
}

func (r *Resolver) resolve(ctx context.Context, dev device.Device, pos mgl32.Vec3) (res Result) {
	start := r.now()
	res.DeviceID = dev.ID

	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("model loader panicked", "device_id", dev.ID, "panic", p)
			res = r.fallback(dev, pos, errLoaderPanic)
		}
		if r.observer != nil {
			r.observer.AssetResolved(dev.ID, res.Fallback, r.now().Sub(start))
		}
	}()

	loadCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	obj, err := r.loader.Load(loadCtx, dev.ModelPath)
	if err != nil {
		r.logger.Warn("model load failed, using fallback",
			"device_id", dev.ID,
			"model_path", dev.ModelPath,
			"error", err,
		)
		return r.fallback(dev, pos, err)
	}

	obj.Position = pos
	obj.DeviceID = dev.ID
	r.logger.Debug("model loaded", "device_id", dev.ID, "model_path", dev.ModelPath)
	return Result{DeviceID: dev.ID, Object: obj}
}

func (r *Resolver) fallback(dev device.Device, pos mgl32.Vec3, cause error) Result {
	obj := FallbackCube()
	obj.Position = pos
	obj.DeviceID = dev.ID
	return Result{DeviceID: dev.ID, Object: obj, Fallback: true, Err: cause}
}
