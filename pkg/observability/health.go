package observability

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"
)

// CheckFunc reports the health of one dependency
type CheckFunc func(ctx context.Context) DependencyStatus

// HealthChecker provides health check functionality
type HealthChecker struct {
	version string

	mu     sync.RWMutex
	checks map[string]registeredCheck
}

type registeredCheck struct {
	fn       CheckFunc
	critical bool
}

// NewHealthChecker creates a new health checker
func NewHealthChecker(version string) *HealthChecker {
	return &HealthChecker{
		version: version,
		checks:  make(map[string]registeredCheck),
	}
}

// AddCheck registers a dependency check. A failing critical check makes the service
// unhealthy; a failing optional one only degrades it.
func (h *HealthChecker) AddCheck(name string, critical bool, fn CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = registeredCheck{fn: fn, critical: critical}
}

// HealthStatus represents the overall health status
type HealthStatus struct {
	Status       string                      `json:"status"`
	Timestamp    time.Time                   `json:"timestamp"`
	Version      string                      `json:"version,omitempty"`
	Dependencies map[string]DependencyStatus `json:"dependencies,omitempty"`
}

// DependencyStatus represents the health of a single dependency
type DependencyStatus struct {
	Status    string        `json:"status"`
	Message   string        `json:"message,omitempty"`
	Latency   time.Duration `json:"latency_ms,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// Healthy is a convenience DependencyStatus
func Healthy(message string) DependencyStatus {
	return DependencyStatus{Status: StatusHealthy, Message: message, Timestamp: time.Now()}
}

// Unhealthy is a convenience DependencyStatus
func Unhealthy(message string) DependencyStatus {
	return DependencyStatus{Status: StatusUnhealthy, Message: message, Timestamp: time.Now()}
}

// Liveness returns a simple liveness probe (always returns 200 if server is running)
func (h *HealthChecker) Liveness(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    StatusHealthy,
		"timestamp": time.Now(),
	})
}

// Readiness returns a readiness probe (checks all dependencies)
func (h *HealthChecker) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := h.Check(ctx)

	w.Header().Set("Content-Type", "application/json")

	// Return 503 if unhealthy, 200 if healthy or degraded
	if status.Status == StatusUnhealthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	_ = json.NewEncoder(w).Encode(status)
}

// Check runs every registered check
func (h *HealthChecker) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:       StatusHealthy,
		Timestamp:    time.Now(),
		Version:      h.version,
		Dependencies: make(map[string]DependencyStatus),
	}

	h.mu.RLock()
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	checks := make(map[string]registeredCheck, len(h.checks))
	for name, c := range h.checks {
		checks[name] = c
	}
	h.mu.RUnlock()
	sort.Strings(names)

	for _, name := range names {
		check := checks[name]

		start := time.Now()
		dep := check.fn(ctx)
		if dep.Latency == 0 {
			dep.Latency = time.Since(start)
		}
		if dep.Timestamp.IsZero() {
			dep.Timestamp = time.Now()
		}
		status.Dependencies[name] = dep

		switch {
		case dep.Status == StatusUnhealthy && check.critical:
			status.Status = StatusUnhealthy
		case dep.Status != StatusHealthy && status.Status == StatusHealthy:
			status.Status = StatusDegraded
		}
	}

	return status
}
