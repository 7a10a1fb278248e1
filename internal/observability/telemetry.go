package observability

import (
	"context"
	"sync"
	"time"
)

// DefaultFlushInterval is how often accumulated frame counters are written.
const DefaultFlushInterval = 10 * time.Second

// PointWriter is the time-series sink. *influxdb.Client satisfies it.
type PointWriter interface {
	WriteAssetLoad(deviceID, result string, duration time.Duration)
	WriteCameraTransition(deviceID string, duration time.Duration)
	WriteFrameStats(frames, failures int64, nodes int)
}

// Telemetry forwards viewer events to a PointWriter. Asset loads and
// camera transitions are written as they happen; frame counters are
// accumulated and written by Run.
type Telemetry struct {
	writer PointWriter

	mu       sync.Mutex
	frames   int64
	failures int64
	nodes    int
}

// NewTelemetry creates a Telemetry writing to w.
func NewTelemetry(w PointWriter) *Telemetry {
	return &Telemetry{writer: w}
}

// AssetResolved implements asset.Observer.
func (t *Telemetry) AssetResolved(deviceID string, fallback bool, elapsed time.Duration) {
	result := ResultLoaded
	if fallback {
		result = ResultFallback
	}
	t.writer.WriteAssetLoad(deviceID, result, elapsed)
}

// TransitionStarted implements viewer.Observer.
func (t *Telemetry) TransitionStarted(deviceID string, duration time.Duration) {
	t.writer.WriteCameraTransition(deviceID, duration)
}

// DeliveryDropped implements viewer.Observer. Drops are only counted in
// Prometheus.
func (t *Telemetry) DeliveryDropped(string) {}

// NodesChanged implements viewer.Observer.
func (t *Telemetry) NodesChanged(count int) {
	t.mu.Lock()
	t.nodes = count
	t.mu.Unlock()
}

// FrameRendered implements render.FrameObserver.
func (t *Telemetry) FrameRendered(_ time.Duration, err error) {
	t.mu.Lock()
	t.frames++
	if err != nil {
		t.failures++
	}
	t.mu.Unlock()
}

// Flush writes the frame counters accumulated since the previous flush.
// Nothing is written when no frame ran.
func (t *Telemetry) Flush() {
	t.mu.Lock()
	frames, failures, nodes := t.frames, t.failures, t.nodes
	t.frames, t.failures = 0, 0
	t.mu.Unlock()

	if frames == 0 {
		return
	}
	t.writer.WriteFrameStats(frames, failures, nodes)
}

// Run flushes every interval until ctx is cancelled, then flushes once more.
func (t *Telemetry) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultFlushInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.Flush()
			return
		case <-ticker.C:
			t.Flush()
		}
	}
}
