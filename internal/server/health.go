package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/shirou/gopsutil/v4/host"
)

// StatusProvider reports the agent state shown by the health endpoint.
type StatusProvider interface {
	DeviceID() (string, bool)
	TrailSize() int
}

// HostStatus is the subset of host facts exposed on /health.
type HostStatus struct {
	Hostname string `json:"hostname,omitempty"`
	OS       string `json:"os,omitempty"`
	Platform string `json:"platform,omitempty"`
	Uptime   uint64 `json:"uptime_seconds,omitempty"`
}

// HealthResponse represents the health check response structure
type HealthResponse struct {
	Status         string      `json:"status"`
	IdentityStatus string      `json:"identity_status"`
	DeviceID       string      `json:"device_id,omitempty"`
	TrailSize      int         `json:"trail_size"`
	Host           *HostStatus `json:"host,omitempty"`
	Timestamp      time.Time   `json:"timestamp"`
}

// HealthRegistrar handles health check endpoints
type HealthRegistrar struct {
	status   StatusProvider
	hostInfo func(ctx context.Context) (*host.InfoStat, error)
}

// NewHealthRegistrar creates a new health check registrar
func NewHealthRegistrar(status StatusProvider) *HealthRegistrar {
	return &HealthRegistrar{status: status, hostInfo: host.InfoWithContext}
}

// RegisterRoutes registers the health check endpoint
func (h *HealthRegistrar) RegisterRoutes(router Router) {
	router.HandleFunc("GET /health", h.healthHandler)
}

// healthHandler handles GET /health requests
func (h *HealthRegistrar) healthHandler(w http.ResponseWriter, r *http.Request) {
	response := h.checkHealth(r.Context())

	// Encode to buffer first to catch any encoding errors before writing headers
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if response.Status == "healthy" {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	if _, err := w.Write(buf.Bytes()); err != nil {
		return
	}
}

func (h *HealthRegistrar) checkHealth(ctx context.Context) HealthResponse {
	response := HealthResponse{
		Timestamp: time.Now(),
		TrailSize: h.status.TrailSize(),
	}

	if id, ok := h.status.DeviceID(); ok {
		response.IdentityStatus = "resolved"
		response.DeviceID = id
		response.Status = "healthy"
	} else {
		response.IdentityStatus = "unresolved"
		response.Status = "degraded"
	}

	// Host facts are informational; a failure does not degrade health.
	if h.hostInfo != nil {
		if info, err := h.hostInfo(ctx); err == nil && info != nil {
			response.Host = &HostStatus{
				Hostname: info.Hostname,
				OS:       info.OS,
				Platform: info.Platform,
				Uptime:   info.Uptime,
			}
		}
	}

	return response
}
