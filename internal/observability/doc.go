// Package observability exposes viewer metrics.
//
// Collector publishes Prometheus counters, gauges and histograms for model
// resolution, camera transitions, dropped deliveries, scene size, frames
// and API requests. Telemetry forwards the same events to a time-series
// writer such as the InfluxDB client. Fanout lets both observe one source.
package observability
