package observability

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

const readinessTimeout = 5 * time.Second

var errPoolExhausted = errors.New("connection pool exhausted")

// HealthStatus is the body of the readiness endpoint
type HealthStatus struct {
	Status       string                      `json:"status"`
	Timestamp    time.Time                   `json:"timestamp"`
	Version      string                      `json:"version,omitempty"`
	Dependencies map[string]DependencyStatus `json:"dependencies,omitempty"`
}

// DependencyStatus is the outcome of one dependency check
type DependencyStatus struct {
	Status    string        `json:"status"`
	Message   string        `json:"message,omitempty"`
	Latency   time.Duration `json:"latency_ms,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// dependencyCheck checks one dependency. A failing critical check makes the
// whole service unhealthy, any other failure only degrades it.
type dependencyCheck struct {
	name     string
	critical bool
	check    func(ctx context.Context) (degraded bool, err error)
}

// HealthChecker reports the health of the audit database and redis
type HealthChecker struct {
	checks  []dependencyCheck
	version string
}

// NewHealthChecker creates a health checker. Either dependency may be nil.
// Redis is only needed by the retention lock and the read limiter, so losing
// it degrades the service.
func NewHealthChecker(db *sql.DB, client *redis.Client, version string) *HealthChecker {
	h := &HealthChecker{version: version}
	if db != nil {
		h.checks = append(h.checks, dependencyCheck{name: "database", critical: true, check: databaseCheck(db)})
	}
	if client != nil {
		h.checks = append(h.checks, dependencyCheck{name: "redis", check: func(ctx context.Context) (bool, error) {
			return false, client.Ping(ctx).Err()
		}})
	}
	return h
}

func databaseCheck(db *sql.DB) func(ctx context.Context) (bool, error) {
	return func(ctx context.Context) (bool, error) {
		var one int
		if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
			return false, err
		}
		stats := db.Stats()
		if stats.MaxOpenConnections > 0 && stats.InUse >= stats.MaxOpenConnections {
			return true, errPoolExhausted
		}
		return false, nil
	}
}

// Check runs every dependency check
func (h *HealthChecker) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:       StatusHealthy,
		Timestamp:    time.Now().UTC(),
		Version:      h.version,
		Dependencies: make(map[string]DependencyStatus, len(h.checks)),
	}

	for _, dc := range h.checks {
		result := dc.run(ctx)
		status.Dependencies[dc.name] = result
		status.Status = worse(status.Status, rollup(result.Status, dc.critical))
	}
	return status
}

func (dc dependencyCheck) run(ctx context.Context) DependencyStatus {
	start := time.Now()
	degraded, err := dc.check(ctx)
	result := DependencyStatus{
		Status:    StatusHealthy,
		Latency:   time.Since(start),
		Timestamp: start.UTC(),
	}
	switch {
	case err == nil:
	case degraded:
		result.Status = StatusDegraded
		result.Message = err.Error()
	default:
		result.Status = StatusUnhealthy
		result.Message = err.Error()
	}
	return result
}

// rollup maps a dependency status onto the service status
func rollup(dep string, critical bool) string {
	if dep == StatusUnhealthy && !critical {
		return StatusDegraded
	}
	return dep
}

func worse(a, b string) string {
	rank := map[string]int{StatusHealthy: 0, StatusDegraded: 1, StatusUnhealthy: 2}
	if rank[b] > rank[a] {
		return b
	}
	return a
}

// Liveness returns 200 while the process is serving
func (h *HealthChecker) Liveness(w http.ResponseWriter, r *http.Request) {
	writeHealth(w, http.StatusOK, map[string]interface{}{
		"status":    StatusHealthy,
		"timestamp": time.Now().UTC(),
	})
}

// Readiness runs the checks and answers 503 when the service is unhealthy
func (h *HealthChecker) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	status := h.Check(ctx)
	code := http.StatusOK
	if status.Status == StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	writeHealth(w, code, status)
}

func writeHealth(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

// RegisterHealthRoutes registers health check endpoints
func RegisterHealthRoutes(mux *http.ServeMux, checker *HealthChecker) {
	mux.HandleFunc("/health", checker.Readiness)
	mux.HandleFunc("/health/live", checker.Liveness)
	mux.HandleFunc("/health/ready", checker.Readiness)
}
