package handlers

import (
	"net/http"
	"runtime"
	"time"

	"photo-gallery/internal/startup"
)

const (
	statusHealthy  = "healthy"
	statusStarting = "starting"
	statusDegraded = "degraded"
)

// memoryReporter is implemented by *memory.Monitor.
type memoryReporter interface {
	GetStats() (current, limit int64, usage float64)
	IsPaused() bool
}

// HealthResponse contains the health check response
type HealthResponse struct {
	Status   string `json:"status"`
	Ready    bool   `json:"ready"`
	Version  string `json:"version"`
	Uptime   string `json:"uptime"`
	Database string `json:"database"`

	// Variant service summary
	CachedVariants  int   `json:"cachedVariants"`
	CacheBytes      int64 `json:"cacheBytes"`
	InFlight        int   `json:"inFlight"`
	PlaceholderSize int   `json:"placeholders"`

	// Memory pressure, present when a monitor is attached
	MemoryUsage  *float64 `json:"memoryUsage,omitempty"`
	MemoryPaused bool     `json:"memoryPaused,omitempty"`

	// System info
	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`
}

// HealthCheck returns the health status of the service
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ready := h.ready.Load()
	info := h.variants.Info()

	response := HealthResponse{
		Ready:           ready,
		Version:         startup.Version,
		Uptime:          time.Since(h.startTime).Round(time.Second).String(),
		Database:        "ok",
		CachedVariants:  info.Entries,
		CacheBytes:      info.SizeBytes,
		InFlight:        info.InFlight,
		PlaceholderSize: info.Placeholders,
		GoVersion:       runtime.Version(),
		NumCPU:          runtime.NumCPU(),
		NumGoroutine:    runtime.NumGoroutine(),
	}

	if m, ok := h.batch.Pauser.(memoryReporter); ok {
		_, limit, usage := m.GetStats()
		if limit > 0 {
			response.MemoryUsage = &usage
		}
		response.MemoryPaused = m.IsPaused()
	}

	status := http.StatusOK
	switch {
	case !ready:
		response.Status = statusStarting
		status = http.StatusServiceUnavailable
	case h.db.Ping(r.Context()) != nil:
		response.Status = statusDegraded
		response.Database = "unreachable"
	default:
		response.Status = statusHealthy
	}

	writeJSONStatusCode(w, status, response)
}

// LivenessCheck is a simple liveness check (always returns 200 if server is running)
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	// For HEAD requests, only send headers (no body)
	if r.Method != http.MethodHead {
		writeJSON(w, map[string]string{
			"status": "alive",
		})
	}
}

// ReadinessCheck returns 200 only when the service is ready to accept traffic
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, _ *http.Request) {
	if h.ready.Load() {
		writeJSONStatusCode(w, http.StatusOK, map[string]string{"status": "ready"})
		return
	}
	writeJSONStatusCode(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
}
