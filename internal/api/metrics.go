package api

import (
	"net/http"
	"runtime"
	"time"

	"github.com/nerrad567/cast-bridge/internal/bridges/cast"
)

// metricsResponse is the body of GET /metrics.
type metricsResponse struct {
	Timestamp     string                `json:"timestamp"`
	Version       string                `json:"version"`
	UptimeSeconds int64                 `json:"uptime_seconds"`
	MQTTConnected bool                  `json:"mqtt_connected"`
	Devices       int                   `json:"devices"`
	Bridge        cast.BridgeStatistics `json:"bridge"`
	Runtime       runtimeMetrics        `json:"runtime"`
	Database      *databaseMetrics      `json:"database,omitempty"`
}

type runtimeMetrics struct {
	Goroutines int     `json:"goroutines"`
	HeapMB     float64 `json:"heap_mb"`
	NumGC      uint32  `json:"num_gc"`
}

// databaseMetrics is reported only when the command audit store is open.
type databaseMetrics struct {
	OpenConnections int   `json:"open_connections"`
	InUse           int   `json:"in_use"`
	WaitCount       int64 `json:"wait_count"`
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	resp := metricsResponse{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		MQTTConnected: s.mqtt != nil && s.mqtt.IsConnected(),
		Devices:       len(s.bridge.Devices()),
		Bridge:        s.bridge.Metrics(),
		Runtime: runtimeMetrics{
			Goroutines: runtime.NumGoroutine(),
			HeapMB:     float64(mem.HeapAlloc) / (1 << 20),
			NumGC:      mem.NumGC,
		},
	}

	if s.db != nil {
		st := s.db.Stats()
		resp.Database = &databaseMetrics{
			OpenConnections: st.OpenConnections,
			InUse:           st.InUse,
			WaitCount:       st.WaitCount,
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
