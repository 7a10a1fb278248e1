package observability

import "time"

// Recorder receives every viewer event the metrics layer cares about.
type Recorder interface {
	AssetResolved(deviceID string, fallback bool, elapsed time.Duration)
	TransitionStarted(deviceID string, duration time.Duration)
	DeliveryDropped(reason string)
	NodesChanged(count int)
	FrameRendered(elapsed time.Duration, err error)
}

// Fanout forwards each event to every recorder in order.
type Fanout []Recorder

// AssetResolved implements asset.Observer.
func (f Fanout) AssetResolved(deviceID string, fallback bool, elapsed time.Duration) {
	for _, r := range f {
		r.AssetResolved(deviceID, fallback, elapsed)
	}
}

// TransitionStarted implements viewer.Observer.
func (f Fanout) TransitionStarted(deviceID string, duration time.Duration) {
	for _, r := range f {
		r.TransitionStarted(deviceID, duration)
	}
}

// DeliveryDropped implements viewer.Observer.
func (f Fanout) DeliveryDropped(reason string) {
	for _, r := range f {
		r.DeliveryDropped(reason)
	}
}

// NodesChanged implements viewer.Observer.
func (f Fanout) NodesChanged(count int) {
	for _, r := range f {
		r.NodesChanged(count)
	}
}

// FrameRendered implements render.FrameObserver.
func (f Fanout) FrameRendered(elapsed time.Duration, err error) {
	for _, r := range f {
		r.FrameRendered(elapsed, err)
	}
}
