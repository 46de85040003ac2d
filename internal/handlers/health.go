package handlers

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"
)

// Check reports whether a dependency is usable
type Check func(ctx context.Context) error

type namedCheck struct {
	name     string
	critical bool
	check    Check
}

// Health serves the health, liveness and readiness probes
type Health struct {
	mu      sync.RWMutex
	checks  []namedCheck
	timeout time.Duration
}

// NewHealth creates an empty set of dependency checks
func NewHealth() *Health {
	return &Health{timeout: 3 * time.Second}
}

// Add registers a dependency check. Critical checks gate readiness.
func (h *Health) Add(name string, critical bool, check Check) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks = append(h.checks, namedCheck{name: name, critical: critical, check: check})
	sort.SliceStable(h.checks, func(i, j int) bool { return h.checks[i].name < h.checks[j].name })
}

// Register mounts the probes on mux
func (h *Health) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/health", h.Health)
	mux.HandleFunc("GET /healthz", h.Liveness) // Kubernetes liveness probe
	mux.HandleFunc("GET /readyz", h.Readiness) // Kubernetes readiness probe
}

func (h *Health) run(ctx context.Context, criticalOnly bool) (map[string]interface{}, []string) {
	h.mu.RLock()
	checks := append([]namedCheck(nil), h.checks...)
	h.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	results := make(map[string]interface{}, len(checks))
	var failed []string
	for _, c := range checks {
		if criticalOnly && !c.critical {
			continue
		}
		if err := c.check(ctx); err != nil {
			results[c.name] = map[string]interface{}{"status": "unhealthy", "error": err.Error()}
			failed = append(failed, c.name)
			continue
		}
		results[c.name] = map[string]interface{}{"status": "healthy"}
	}
	return results, failed
}

// Health reports every dependency. Any failure degrades the service.
func (h *Health) Health(w http.ResponseWriter, r *http.Request) {
	checks, failed := h.run(r.Context(), false)

	status := "ok"
	httpStatus := http.StatusOK
	if len(failed) > 0 {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().Unix(),
		"checks":    checks,
	})
}

// Liveness returns 200 while the process runs
func (h *Health) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "alive",
		"timestamp": time.Now().Unix(),
	})
}

// Readiness returns 200 when every critical dependency is usable
func (h *Health) Readiness(w http.ResponseWriter, r *http.Request) {
	_, failed := h.run(r.Context(), true)
	if len(failed) > 0 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":    "not_ready",
			"reason":    failed[0] + "_unavailable",
			"timestamp": time.Now().Unix(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ready",
		"timestamp": time.Now().Unix(),
	})
}
