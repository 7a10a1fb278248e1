package render

import (
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-viewer/internal/scene"
)

// Updater advances time-dependent state at the start of each frame.
type Updater interface {
	Update(now time.Time)
}

// UpdaterFunc adapts a function to Updater.
type UpdaterFunc func(now time.Time)

// Update implements Updater.
func (f UpdaterFunc) Update(now time.Time) { f(now) }

// FrameObserver is told about every frame attempt.
type FrameObserver interface {
	FrameRendered(elapsed time.Duration, err error)
}

// Stats counts frames since Start.
type Stats struct {
	Frames   uint64 `json:"frames"`
	Failures uint64 `json:"failures"`
}

// Renderer owns the camera and drives the frame loop. It is not safe for
// concurrent use; every method must be called on the scheduler goroutine.
type Renderer struct {
	sched   Scheduler
	scene   *scene.Manager
	surface Surface
	camCfg  CameraConfig

	camera   *Camera
	updater  Updater
	observer FrameObserver
	logger   Logger

	width  int
	height int
	seq    uint64
	stats  Stats
	handle FrameHandle

	initialized bool
	started     bool
	tornDown    bool
}

// NewRenderer creates a renderer drawing mgr to surface on sched.
func NewRenderer(sched Scheduler, mgr *scene.Manager, surface Surface, cfg CameraConfig) *Renderer {
	return &Renderer{
		sched:   sched,
		scene:   mgr,
		surface: surface,
		camCfg:  cfg,
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger for the renderer.
func (r *Renderer) SetLogger(logger Logger) {
	r.logger = logger
}

// SetUpdater sets the per-frame updater, typically the camera animator.
func (r *Renderer) SetUpdater(u Updater) {
	r.updater = u
}

// SetObserver registers a frame observer.
func (r *Renderer) SetObserver(o FrameObserver) {
	r.observer = o
}

// Initialize creates the camera for a width x height surface.
//
// Returns:
//   - error: ErrInvalidSize for non-positive dimensions, ErrTornDown after
//     Teardown
func (r *Renderer) Initialize(width, height int) error {
	if r.tornDown {
		return ErrTornDown
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}
	r.width, r.height = width, height
	r.camera = NewCamera(r.camCfg, float32(width)/float32(height))
	r.surface.Resize(width, height)
	r.initialized = true
	return nil
}

// Camera returns the camera, or nil before Initialize.
func (r *Renderer) Camera() *Camera {
	return r.camera
}

// Size returns the current surface size.
func (r *Renderer) Size() (width, height int) {
	return r.width, r.height
}

// Resize updates the camera aspect and the surface size. It does nothing
// before Initialize, after Teardown, or for non-positive sizes, and
// reports whether the resize was applied.
func (r *Renderer) Resize(width, height int) bool {
	if !r.initialized || r.tornDown || width <= 0 || height <= 0 {
		return false
	}
	r.width, r.height = width, height
	r.camera.SetAspect(float32(width) / float32(height))
	r.surface.Resize(width, height)
	return true
}

// Start requests the first frame. Later frames are requested by each
// frame in turn. Calling Start again is a no-op.
func (r *Renderer) Start() error {
	switch {
	case r.tornDown:
		return ErrTornDown
	case !r.initialized:
		return ErrNotInitialized
	case r.started:
		return nil
	}
	r.started = true
	r.handle = r.sched.RequestFrame(r.onFrame)
	return nil
}

// Running reports whether the frame loop is active.
func (r *Renderer) Running() bool {
	return r.started && !r.tornDown
}

// Stats returns frame counters.
func (r *Renderer) Stats() Stats {
	return r.stats
}

// Snapshot builds a frame of the current state without drawing it.
func (r *Renderer) Snapshot(now time.Time) (Frame, error) {
	if !r.initialized {
		return Frame{}, ErrNotInitialized
	}
	return buildFrame(r.seq, now, r.width, r.height, r.camera, r.scene), nil
}

func (r *Renderer) onFrame(now time.Time) {
	r.handle = nil
	if r.tornDown {
		return
	}

	start := time.Now()
	err := r.renderFrame(now)
	r.stats.Frames++
	if err != nil {
		r.stats.Failures++
		r.logger.Warn("frame failed", "seq", r.seq, "error", err)
	}
	if r.observer != nil {
		r.observer.FrameRendered(time.Since(start), err)
	}

	if !r.tornDown {
		r.handle = r.sched.RequestFrame(r.onFrame)
	}
}

// renderFrame runs one update and draw, converting a panic into an error.
func (r *Renderer) renderFrame(now time.Time) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("frame panicked: %v", p)
		}
	}()

	if r.updater != nil {
		r.updater.Update(now)
	}

	r.seq++
	frame := buildFrame(r.seq, now, r.width, r.height, r.camera, r.scene)
	if err := r.surface.Draw(frame); err != nil {
		return fmt.Errorf("drawing frame %d: %w", r.seq, err)
	}
	return nil
}

// Teardown cancels the pending frame and releases the surface. It is
// idempotent and safe before Initialize or Start. No frame callback runs
// after it returns.
func (r *Renderer) Teardown() {
	if r.tornDown {
		return
	}
	r.tornDown = true
	if r.handle != nil {
		r.handle.Cancel()
		r.handle = nil
	}
	r.surface.Release()
	r.logger.Debug("renderer torn down", "frames", r.stats.Frames)
}
