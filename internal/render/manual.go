package render

import (
	"context"
	"sync"
	"time"
)

// ManualLoop is a deterministic Scheduler for tests. Nothing runs until
// the test calls RunPending, Step or RunUntil. Post is safe from any
// goroutine.
type ManualLoop struct {
	runMu sync.Mutex

	mu      sync.Mutex
	tasks   []func()
	frames  []*frameRequest
	stopped bool
	posted  chan struct{}
}

// NewManualLoop creates an idle manual loop.
func NewManualLoop() *ManualLoop {
	return &ManualLoop{posted: make(chan struct{}, 1)}
}

// Post implements Scheduler.
func (m *ManualLoop) Post(task func()) bool {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return false
	}
	m.tasks = append(m.tasks, task)
	m.mu.Unlock()

	select {
	case m.posted <- struct{}{}:
	default:
	}
	return true
}

// Do runs fn on the calling goroutine, serialised with every other task.
func (m *ManualLoop) Do(ctx context.Context, fn func()) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	stopped := m.stopped
	m.mu.Unlock()
	if stopped {
		return ErrLoopStopped
	}

	m.runMu.Lock()
	defer m.runMu.Unlock()
	fn()
	return nil
}

// RequestFrame implements Scheduler.
func (m *ManualLoop) RequestFrame(fn func(now time.Time)) FrameHandle {
	req := &frameRequest{fn: fn}
	m.mu.Lock()
	if m.stopped {
		req.Cancel()
	} else {
		m.frames = append(m.frames, req)
	}
	m.mu.Unlock()
	return req
}

// Stop drops queued work and rejects further posts.
func (m *ManualLoop) Stop() {
	m.mu.Lock()
	m.stopped = true
	m.tasks = nil
	m.frames = nil
	m.mu.Unlock()
}

// RunPending runs queued tasks, including tasks they post, until the
// queue is empty. It returns the number of tasks run.
func (m *ManualLoop) RunPending() int {
	m.runMu.Lock()
	defer m.runMu.Unlock()
	return m.runPendingLocked()
}

func (m *ManualLoop) runPendingLocked() int {
	n := 0
	for {
		m.mu.Lock()
		tasks := m.tasks
		m.tasks = nil
		m.mu.Unlock()

		if len(tasks) == 0 {
			return n
		}
		for _, task := range tasks {
			runTask(noopLogger{}, task)
			n++
		}
	}
}

// Step runs pending tasks and then fires the frame callbacks requested
// so far with now. Callbacks requested during the step wait for the next
// one. It returns the number of frame callbacks fired.
func (m *ManualLoop) Step(now time.Time) int {
	m.runMu.Lock()
	defer m.runMu.Unlock()

	m.runPendingLocked()

	m.mu.Lock()
	frames := m.frames
	m.frames = nil
	m.mu.Unlock()

	fired := 0
	for _, req := range frames {
		if req.cancelled.Load() {
			continue
		}
		runTask(noopLogger{}, func() { req.fn(now) })
		fired++
	}
	return fired
}

// PendingFrames returns the number of live frame requests.
func (m *ManualLoop) PendingFrames() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, req := range m.frames {
		if !req.cancelled.Load() {
			n++
		}
	}
	return n
}

// RunUntil runs posted tasks as they arrive until cond reports true or
// timeout elapses. cond is evaluated on the loop, after each batch.
func (m *ManualLoop) RunUntil(cond func() bool, timeout time.Duration) bool {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		m.runMu.Lock()
		m.runPendingLocked()
		ok := cond()
		m.runMu.Unlock()
		if ok {
			return true
		}

		select {
		case <-m.posted:
		case <-deadline.C:
			return false
		}
	}
}
