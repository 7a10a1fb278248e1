package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names written by the viewer.
const (
	MeasurementAssetLoad        = "viewer_asset_load"
	MeasurementCameraTransition = "viewer_camera_transition"
	MeasurementFrameStats       = "viewer_frames"
)

// WriteAssetLoad records one model resolution.
//
// Parameters:
//   - deviceID: Device whose model was resolved
//   - result: "loaded" or "fallback"
//   - duration: Time from request to delivery
func (c *Client) WriteAssetLoad(deviceID, result string, duration time.Duration) {
	c.WritePoint(MeasurementAssetLoad,
		map[string]string{"device_id": deviceID, "result": result},
		map[string]any{"duration_ms": float64(duration.Microseconds()) / 1000},
	)
}

// WriteCameraTransition records a camera flight to a device.
func (c *Client) WriteCameraTransition(deviceID string, duration time.Duration) {
	c.WritePoint(MeasurementCameraTransition,
		map[string]string{"device_id": deviceID},
		map[string]any{"duration_ms": duration.Milliseconds()},
	)
}

// WriteFrameStats records render loop counters accumulated since the last call.
func (c *Client) WriteFrameStats(frames, failures int64, nodes int) {
	c.WritePoint(MeasurementFrameStats,
		nil,
		map[string]any{"frames": frames, "failures": failures, "nodes": nodes},
	)
}

// WritePoint writes a custom point stamped with the current time.
// It is a no-op when the client is not connected.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]any) {
	c.WritePointWithTime(measurement, tags, fields, time.Now())
}

// WritePointWithTime writes a custom point with an explicit timestamp.
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]any, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, timestamp))
}
