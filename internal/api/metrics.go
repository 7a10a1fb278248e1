package api

import (
	"net/http"
	"runtime"
	"time"
)

// SystemMetrics represents the complete system metrics response.
type SystemMetrics struct {
	Timestamp     string          `json:"timestamp"`
	Version       string          `json:"version"`
	UptimeSeconds int64           `json:"uptime_seconds"`
	Runtime       RuntimeMetrics  `json:"runtime"`
	WebSocket     WSMetrics       `json:"websocket"`
	MQTT          MQTTMetrics     `json:"mqtt"`
	Devices       DeviceMetrics   `json:"devices"`
	Viewer        *ViewerMetrics  `json:"viewer,omitempty"`
	Database      DatabaseMetrics `json:"database"`
}

// RuntimeMetrics contains Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// WSMetrics contains WebSocket hub statistics.
type WSMetrics struct {
	ConnectedClients int  `json:"connected_clients"`
	FrameSubscribers bool `json:"frame_subscribers"`
}

// MQTTMetrics contains MQTT client statistics.
type MQTTMetrics struct {
	Enabled   bool `json:"enabled"`
	Connected bool `json:"connected"`
}

// DeviceMetrics contains device store statistics.
type DeviceMetrics struct {
	Total    int            `json:"total"`
	ByType   map[string]int `json:"by_type"`
	ByStatus map[string]int `json:"by_status"`
}

// ViewerMetrics contains viewport statistics.
type ViewerMetrics struct {
	Mounted    bool   `json:"mounted"`
	Nodes      int    `json:"nodes"`
	Fallbacks  int    `json:"fallbacks"`
	Frames     uint64 `json:"frames"`
	Failures   uint64 `json:"frame_failures"`
	Generation uint64 `json:"generation"`
}

// DatabaseMetrics contains database connection pool statistics.
type DatabaseMetrics struct {
	OpenConnections int   `json:"open_connections"`
	InUse           int   `json:"in_use"`
	Idle            int   `json:"idle"`
	WaitCount       int64 `json:"wait_count"`
}

// handleMetrics returns comprehensive system metrics.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	metrics := SystemMetrics{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / 1024 / 1024,
			MemoryTotalMB: float64(memStats.TotalAlloc) / 1024 / 1024,
			NumGC:         memStats.NumGC,
		},
	}

	if s.hub != nil {
		metrics.WebSocket = WSMetrics{
			ConnectedClients: s.hub.ClientCount(),
			FrameSubscribers: s.hub.HasSubscribers(ChannelFrame),
		}
	}

	if s.mqtt != nil {
		metrics.MQTT = MQTTMetrics{
			Enabled:   true,
			Connected: s.mqtt.IsConnected(),
		}
	}

	stats := s.store.GetStats()
	metrics.Devices = DeviceMetrics{
		Total:    stats.Total,
		ByType:   make(map[string]int, len(stats.ByType)),
		ByStatus: make(map[string]int, len(stats.ByStatus)),
	}
	for t, count := range stats.ByType {
		metrics.Devices.ByType[string(t)] = count
	}
	for st, count := range stats.ByStatus {
		metrics.Devices.ByStatus[string(st)] = count
	}

	// Viewer stats (if mounted)
	if s.viewer != nil {
		if st, err := s.viewer.State(r.Context()); err == nil {
			vm := &ViewerMetrics{
				Mounted:    st.Mounted,
				Nodes:      len(st.Nodes),
				Frames:     st.Frames.Frames,
				Failures:   st.Frames.Failures,
				Generation: st.Generation,
			}
			for _, n := range st.Nodes {
				if n.Fallback {
					vm.Fallbacks++
				}
			}
			metrics.Viewer = vm
		}
	}

	// Database stats (if available)
	if s.db != nil {
		dbStats := s.db.Stats()
		metrics.Database = DatabaseMetrics{
			OpenConnections: dbStats.OpenConnections,
			InUse:           dbStats.InUse,
			Idle:            dbStats.Idle,
			WaitCount:       dbStats.WaitCount,
		}
	}

	writeJSON(w, http.StatusOK, metrics)
}
