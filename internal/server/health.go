package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Health status constants for health check responses.
const (
	healthStatusOK           = "ok"
	healthStatusNotReady     = "not ready"
	healthStatusShuttingDown = "shutting down"
)

// PassReport describes one finished sync pass.
type PassReport struct {
	Finished  time.Time
	Duration  time.Duration
	Calendars int
	Events    int
	Err       error
}

// HealthChecker tracks sync passes and serves the probe endpoints.
type HealthChecker struct {
	shuttingDown atomic.Bool
	startTime    time.Time

	mu          sync.RWMutex
	last        *PassReport
	lastSuccess time.Time
	passes      int
	failures    int
}

// NewHealthChecker creates a new HealthChecker.
func NewHealthChecker() *HealthChecker {
	return &HealthChecker{startTime: time.Now()}
}

// RecordPass stores the outcome of a sync pass.
func (h *HealthChecker) RecordPass(r PassReport) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = &r
	h.passes++
	if r.Err != nil {
		h.failures++
		return
	}
	h.lastSuccess = r.Finished
}

// SetShuttingDown marks the process as draining.
func (h *HealthChecker) SetShuttingDown() {
	h.shuttingDown.Store(true)
}

// IsReady reports whether at least one pass succeeded and the process is not draining.
func (h *HealthChecker) IsReady() bool {
	if h.shuttingDown.Load() {
		return false
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return !h.lastSuccess.IsZero()
}

// HealthResponse represents the JSON response for probe endpoints.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// StatusResponse is the /status document.
type StatusResponse struct {
	Status       string `json:"status"`
	Uptime       string `json:"uptime"`
	Passes       int    `json:"passes"`
	Failures     int    `json:"failures"`
	LastPass     string `json:"last_pass,omitempty"`
	LastDuration string `json:"last_duration,omitempty"`
	LastSuccess  string `json:"last_success,omitempty"`
	LastError    string `json:"last_error,omitempty"`
	Calendars    int    `json:"calendars"`
	CachedEvents int    `json:"cached_events"`
}

// LivenessHandler returns an HTTP handler for the /healthz endpoint.
func (h *HealthChecker) LivenessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, HealthResponse{Status: healthStatusOK})
	})
}

// ReadinessHandler returns an HTTP handler for the /readyz endpoint.
func (h *HealthChecker) ReadinessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		checks := make(map[string]string)
		allOk := true

		h.mu.RLock()
		synced := !h.lastSuccess.IsZero()
		h.mu.RUnlock()
		if synced {
			checks["synced"] = healthStatusOK
		} else {
			checks["synced"] = healthStatusNotReady
			allOk = false
		}

		if h.shuttingDown.Load() {
			checks["shutdown"] = healthStatusShuttingDown
			allOk = false
		} else {
			checks["shutdown"] = healthStatusOK
		}

		if allOk {
			writeJSON(w, http.StatusOK, HealthResponse{Status: healthStatusOK, Checks: checks})
			return
		}
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: healthStatusNotReady, Checks: checks})
	})
}

// StatusHandler returns an HTTP handler for the /status endpoint.
func (h *HealthChecker) StatusHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		h.mu.RLock()
		resp := StatusResponse{
			Status:   healthStatusOK,
			Uptime:   time.Since(h.startTime).Truncate(time.Second).String(),
			Passes:   h.passes,
			Failures: h.failures,
		}
		if h.last != nil {
			resp.LastPass = h.last.Finished.Format(time.RFC3339)
			resp.LastDuration = h.last.Duration.String()
			resp.Calendars = h.last.Calendars
			resp.CachedEvents = h.last.Events
			if h.last.Err != nil {
				resp.LastError = h.last.Err.Error()
			}
		}
		if !h.lastSuccess.IsZero() {
			resp.LastSuccess = h.lastSuccess.Format(time.RFC3339)
		}
		h.mu.RUnlock()

		if h.shuttingDown.Load() {
			resp.Status = healthStatusShuttingDown
		} else if resp.LastError != "" || resp.LastSuccess == "" {
			resp.Status = healthStatusNotReady
		}
		writeJSON(w, http.StatusOK, resp)
	})
}

// RegisterHealthEndpoints registers the probe and status endpoints on the given mux.
func (h *HealthChecker) RegisterHealthEndpoints(mux *http.ServeMux) {
	mux.Handle("/healthz", h.LivenessHandler())
	mux.Handle("/readyz", h.ReadinessHandler())
	mux.Handle("/status", h.StatusHandler())
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
