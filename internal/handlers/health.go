package handlers

import (
	"net/http"
	"runtime"
	"time"

	"product-media/internal/capture"
	"product-media/internal/startup"
	"product-media/internal/transcode"
)

const (
	statusHealthy  = "healthy"
	statusDegraded = "degraded"
)

// HealthResponse contains the health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Ready   bool   `json:"ready"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`

	// Encoder availability
	FFmpegAvailable bool `json:"ffmpegAvailable"`
	VipsAvailable   bool `json:"vipsAvailable"`

	// System info
	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`

	// Stats summary
	TotalImages  int `json:"totalImages"`
	TotalVideos  int `json:"totalVideos"`
	TotalDerived int `json:"totalDerived"`
}

// HealthCheck returns the health status of the service
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	stats := h.records.GetStats()
	dbErr := h.records.Ping(r.Context())

	response := HealthResponse{
		Ready:           dbErr == nil,
		Version:         startup.Version,
		Uptime:          time.Since(h.startTime).Round(time.Second).String(),
		FFmpegAvailable: capture.Available(),
		VipsAvailable:   transcode.IsVipsAvailable(),
		GoVersion:       runtime.Version(),
		NumCPU:          runtime.NumCPU(),
		NumGoroutine:    runtime.NumGoroutine(),
		TotalImages:     stats.TotalImages,
		TotalVideos:     stats.TotalVideos,
		TotalDerived:    stats.TotalDerived,
	}

	if dbErr == nil {
		response.Status = statusHealthy
	} else {
		response.Status = statusDegraded
	}

	w.Header().Set("Content-Type", "application/json")

	if dbErr != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	writeJSON(w, response)
}

// LivenessCheck is a simple liveness probe (always returns 200 if server is running)
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

// ReadinessCheck returns 200 only when the record store is reachable
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.records.Ping(r.Context()); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		writeJSONStatus(w, "not_ready")
		return
	}
	writeJSONStatus(w, "ready")
}
