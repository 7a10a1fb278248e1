package render

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultFrameInterval is the frame cadence used when none is configured.
const DefaultFrameInterval = time.Second / 30

// Logger defines the logging interface used by this package.
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

// FrameHandle is an owned reference to one requested frame callback.
type FrameHandle interface {
	// Cancel prevents the callback from firing. Safe to call more than
	// once and after the callback has run.
	Cancel()
}

// Scheduler serialises work onto one goroutine. Tasks and frame callbacks
// never overlap.
type Scheduler interface {
	// Post queues task and returns immediately. It reports false when the
	// scheduler has stopped and the task was dropped.
	Post(task func()) bool

	// Do runs fn on the scheduler goroutine and waits for it. It must not be
	// called from the scheduler goroutine.
	Do(ctx context.Context, fn func()) error

	// RequestFrame schedules fn for the next frame tick.
	RequestFrame(fn func(now time.Time)) FrameHandle
}

type frameRequest struct {
	fn        func(time.Time)
	cancelled atomic.Bool
}

func (r *frameRequest) Cancel() { r.cancelled.Store(true) }

// Loop is the production Scheduler: a goroutine fed by an unbounded task
// queue and a frame ticker.
type Loop struct {
	interval time.Duration
	logger   Logger

	mu      sync.Mutex
	tasks   []func()
	frames  []*frameRequest
	stopped bool

	wake chan struct{}
	quit chan struct{}
	done chan struct{}

	runOnce  sync.Once
	stopOnce sync.Once
}

// NewLoop creates a loop ticking every interval. A non-positive interval
// selects DefaultFrameInterval.
func NewLoop(interval time.Duration) *Loop {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	return &Loop{
		interval: interval,
		logger:   noopLogger{},
		wake:     make(chan struct{}, 1),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// SetLogger sets the logger for the loop.
func (l *Loop) SetLogger(logger Logger) {
	l.logger = logger
}

// Interval returns the frame cadence.
func (l *Loop) Interval() time.Duration {
	return l.interval
}

// Start runs the loop in a new goroutine until ctx is cancelled or Stop
// is called.
func (l *Loop) Start(ctx context.Context) {
	l.runOnce.Do(func() {
		go l.run(ctx)
	})
}

// Stop ends the loop and waits for the goroutine to exit. Queued tasks
// that have not run are dropped.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() {
		l.mu.Lock()
		l.stopped = true
		l.mu.Unlock()
		close(l.quit)
	})
	l.runOnce.Do(func() { close(l.done) })
	<-l.done
}

func (l *Loop) run(ctx context.Context) {
	defer close(l.done)
	defer l.markStopped()

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-l.quit:
			return
		case <-l.wake:
			l.runTasks()
		case now := <-ticker.C:
			l.runTasks()
			l.runFrames(now)
		}
	}
}

func (l *Loop) markStopped() {
	l.mu.Lock()
	l.stopped = true
	l.tasks = nil
	l.frames = nil
	l.mu.Unlock()
}

// Post implements Scheduler.
func (l *Loop) Post(task func()) bool {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return false
	}
	l.tasks = append(l.tasks, task)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// Do implements Scheduler.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	return doVia(ctx, l, l.done, fn)
}

// RequestFrame implements Scheduler.
func (l *Loop) RequestFrame(fn func(now time.Time)) FrameHandle {
	req := &frameRequest{fn: fn}
	l.mu.Lock()
	if l.stopped {
		req.Cancel()
	} else {
		l.frames = append(l.frames, req)
	}
	l.mu.Unlock()
	return req
}

func (l *Loop) runTasks() {
	for {
		l.mu.Lock()
		tasks := l.tasks
		l.tasks = nil
		l.mu.Unlock()

		if len(tasks) == 0 {
			return
		}
		for _, task := range tasks {
			runTask(l.logger, task)
		}
	}
}

func (l *Loop) runFrames(now time.Time) {
	l.mu.Lock()
	frames := l.frames
	l.frames = nil
	l.mu.Unlock()

	for _, req := range frames {
		if req.cancelled.Load() {
			continue
		}
		runTask(l.logger, func() { req.fn(now) })
	}
}

// runTask isolates one unit of loop work so a panic does not stop the
// loop.
func runTask(logger Logger, task func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("loop task panicked", "panic", r)
		}
	}()
	task()
}

// doVia posts fn to s and waits for it to finish, for ctx to end or for
// stopped to close.
func doVia(ctx context.Context, s Scheduler, stopped <-chan struct{}, fn func()) error {
	finished := make(chan struct{})
	if !s.Post(func() {
		defer close(finished)
		fn()
	}) {
		return ErrLoopStopped
	}

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-stopped:
		select {
		case <-finished:
			return nil
		default:
			return ErrLoopStopped
		}
	}
}
