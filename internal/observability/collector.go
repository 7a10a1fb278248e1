package observability

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Result label values for asset resolutions.
const (
	ResultLoaded   = "loaded"
	ResultFallback = "fallback"
)

// Collector bundles the viewer's Prometheus metrics. It implements
// asset.Observer, viewer.Observer and render.FrameObserver.
type Collector struct {
	gatherer prometheus.Gatherer

	AssetResolutions  *prometheus.CounterVec
	AssetDurations    prometheus.Histogram
	Transitions       prometheus.Counter
	DroppedDeliveries *prometheus.CounterVec
	SceneNodes        prometheus.Gauge
	Frames            prometheus.Counter
	FrameFailures     prometheus.Counter
	FrameDurations    prometheus.Histogram
	HTTPRequests      *prometheus.CounterVec
	HTTPDurations     *prometheus.HistogramVec
}

// NewCollector registers the viewer metrics against reg, defaulting to the
// global registry when nil. Registering twice against the same registry
// returns the existing collectors.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	c := &Collector{gatherer: gatherer}
	var err error

	if c.AssetResolutions, err = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "viewer_asset_resolutions_total",
		Help: "Model resolutions delivered to the scene, labeled by result.",
	}, []string{"result"}), "viewer_asset_resolutions_total"); err != nil {
		return nil, err
	}

	if c.AssetDurations, err = registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "viewer_asset_resolve_duration_seconds",
		Help:    "Time from model request to delivery.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}), "viewer_asset_resolve_duration_seconds"); err != nil {
		return nil, err
	}

	if c.Transitions, err = registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "viewer_camera_transitions_total",
		Help: "Camera transitions started by device selection.",
	}), "viewer_camera_transitions_total"); err != nil {
		return nil, err
	}

	if c.DroppedDeliveries, err = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "viewer_dropped_deliveries_total",
		Help: "Model deliveries discarded by the controller, labeled by reason.",
	}, []string{"reason"}), "viewer_dropped_deliveries_total"); err != nil {
		return nil, err
	}

	if c.SceneNodes, err = registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "viewer_scene_nodes",
		Help: "Current number of device nodes in the scene.",
	}), "viewer_scene_nodes"); err != nil {
		return nil, err
	}

	if c.Frames, err = registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "viewer_frames_total",
		Help: "Frames rendered, including failed ones.",
	}), "viewer_frames_total"); err != nil {
		return nil, err
	}

	if c.FrameFailures, err = registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "viewer_frame_failures_total",
		Help: "Frames whose draw failed or panicked.",
	}), "viewer_frame_failures_total"); err != nil {
		return nil, err
	}

	if c.FrameDurations, err = registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "viewer_frame_duration_seconds",
		Help:    "Time spent building and drawing one frame.",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
	}), "viewer_frame_duration_seconds"); err != nil {
		return nil, err
	}

	if c.HTTPRequests, err = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "viewer_http_requests_total",
		Help: "Handled API requests, labeled by method, route and status code.",
	}, []string{"method", "route", "code"}), "viewer_http_requests_total"); err != nil {
		return nil, err
	}

	if c.HTTPDurations, err = registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "viewer_http_request_duration_seconds",
		Help:    "API request latency in seconds.",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"method", "route"}), "viewer_http_request_duration_seconds"); err != nil {
		return nil, err
	}

	return c, nil
}

// AssetResolved implements asset.Observer.
func (c *Collector) AssetResolved(_ string, fallback bool, elapsed time.Duration) {
	if c == nil {
		return
	}
	result := ResultLoaded
	if fallback {
		result = ResultFallback
	}
	c.AssetResolutions.WithLabelValues(result).Inc()
	c.AssetDurations.Observe(elapsed.Seconds())
}

// TransitionStarted implements viewer.Observer.
func (c *Collector) TransitionStarted(string, time.Duration) {
	if c == nil {
		return
	}
	c.Transitions.Inc()
}

// DeliveryDropped implements viewer.Observer.
func (c *Collector) DeliveryDropped(reason string) {
	if c == nil {
		return
	}
	c.DroppedDeliveries.WithLabelValues(reason).Inc()
}

// NodesChanged implements viewer.Observer.
func (c *Collector) NodesChanged(count int) {
	if c == nil {
		return
	}
	c.SceneNodes.Set(float64(count))
}

// FrameRendered implements render.FrameObserver.
func (c *Collector) FrameRendered(elapsed time.Duration, err error) {
	if c == nil {
		return
	}
	c.Frames.Inc()
	if err != nil {
		c.FrameFailures.Inc()
	}
	c.FrameDurations.Observe(elapsed.Seconds())
}

// Middleware records request counts and latencies. The route label is the
// chi route pattern so path parameters do not explode cardinality.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		if c == nil {
			return
		}
		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		c.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(sw.status)).Inc()
		c.HTTPDurations.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Hijack lets WebSocket upgrades through the middleware.
func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	return http.NewResponseController(s.ResponseWriter).Hijack()
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
