// Package influxdb provides InfluxDB connectivity for the device viewer.
//
// It wraps the official influxdb-client-go v2 library and records viewer
// telemetry as time series:
//   - model resolution outcomes and latency per device
//   - camera transitions
//   - render loop frame counters
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // telemetry off
//	}
//	defer client.Close()
//
//	client.WriteAssetLoad("dev-1", "fallback", 42*time.Millisecond)
//
// Writes are non-blocking and batched per batch_size and flush_interval.
// Asynchronous write errors are delivered to the SetOnError callback.
package influxdb
