package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"
)

// Status represents the health status response
type Status struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Uptime    string            `json:"uptime,omitempty"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// CheckFunc probes one dependency; a nil error means healthy
type CheckFunc func(ctx context.Context) error

// Handler handles health check endpoints
type Handler struct {
	mu         sync.RWMutex
	opcuaReady bool
	checks     map[string]CheckFunc
	startTime  time.Time
	startup    time.Duration
}

// NewHandler creates a new health handler. Readiness is withheld for the
// startup grace period.
func NewHandler(startup time.Duration) *Handler {
	return &Handler{
		checks:    make(map[string]CheckFunc),
		startTime: time.Now(),
		startup:   startup,
	}
}

// SetOPCUAReady sets the OPC UA server readiness status
func (h *Handler) SetOPCUAReady(ready bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.opcuaReady = ready
}

// AddCheck registers a named readiness probe, e.g. the dataset store
func (h *Handler) AddCheck(name string, fn CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = fn
}

// HandleLive handles the liveness probe
// Returns 200 if the application is running
func (h *Handler) HandleLive(w http.ResponseWriter, r *http.Request) {
	status := Status{
		Status:    "alive",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(status)
}

// HandleReady handles the readiness probe
// Returns 200 if the application is ready to serve traffic
func (h *Handler) HandleReady(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	opcuaReady := h.opcuaReady
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	fns := make(map[string]CheckFunc, len(h.checks))
	for k, v := range h.checks {
		fns[k] = v
	}
	h.mu.RUnlock()
	sort.Strings(names)

	checks := make(map[string]string)
	allHealthy := true

	// OPC UA is optional: a replay without an endpoint still serves HTTP
	if opcuaReady {
		checks["opcua_server"] = "healthy"
	} else {
		checks["opcua_server"] = "disabled"
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	for _, name := range names {
		if err := fns[name](ctx); err != nil {
			checks[name] = "unhealthy: " + err.Error()
			allHealthy = false
		} else {
			checks[name] = "healthy"
		}
	}

	if time.Since(h.startTime) > h.startup {
		checks["startup"] = "complete"
	} else {
		checks["startup"] = "in_progress"
		allHealthy = false
	}

	status := Status{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	}

	w.Header().Set("Content-Type", "application/json")

	if allHealthy {
		status.Status = "ready"
		w.WriteHeader(http.StatusOK)
	} else {
		status.Status = "not_ready"
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	json.NewEncoder(w).Encode(status)
}

// HandleHealth handles the combined health endpoint (for Docker HEALTHCHECK)
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.HandleReady(w, r)
}
