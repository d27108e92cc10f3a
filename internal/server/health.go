package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// HealthStatus represents the overall health of the system
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// ComponentStatus represents the health of an individual component
type ComponentStatus string

const (
	ComponentStatusUp       ComponentStatus = "up"
	ComponentStatusDown     ComponentStatus = "down"
	ComponentStatusDegraded ComponentStatus = "degraded"
)

// Health represents the complete health check response
type Health struct {
	Status     HealthStatus               `json:"status"`
	Timestamp  time.Time                  `json:"timestamp"`
	Version    string                     `json:"version,omitempty"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents the health of a single system component
type ComponentHealth struct {
	Status    ComponentStatus `json:"status"`
	Message   string          `json:"message,omitempty"`
	LatencyMs float64         `json:"latency_ms,omitempty"`
}

// handleHealth serves GET /health on the admin listener. Unhealthy maps to
// 503 so load balancers can act on it; degraded still answers 200.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	health := s.checkHealth(ctx)

	statusCode := http.StatusOK
	if health.Status == HealthStatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(health)
}

// checkHealth checks the upload directory and every optional backend that
// is configured.
func (s *Server) checkHealth(ctx context.Context) Health {
	health := Health{
		Timestamp:  s.clock.Now().UTC(),
		Version:    s.cfg.Build.Version,
		Components: make(map[string]ComponentHealth),
	}

	health.Components["uploads"] = s.checkUploadDir()
	if s.ledger != nil {
		health.Components["database"] = timedCheck(func() error { return s.ledger.Ping(ctx) }, "database", 1000)
	}
	if s.mirror != nil {
		health.Components["object_storage"] = timedCheck(func() error { return s.mirror.Check(ctx) }, "object storage", 2000)
	}

	health.Status = determineOverallHealth(health.Components)
	return health
}

func (s *Server) checkUploadDir() ComponentHealth {
	info, err := s.fs.Stat(s.cfg.UploadDir)
	if err != nil {
		return ComponentHealth{
			Status:  ComponentStatusDown,
			Message: "upload directory unavailable: " + err.Error(),
		}
	}
	if !info.IsDir() {
		return ComponentHealth{
			Status:  ComponentStatusDown,
			Message: "upload path is not a directory",
		}
	}
	return ComponentHealth{Status: ComponentStatusUp, Message: "upload directory ready"}
}

// timedCheck grades an optional backend. Those backends are best effort,
// so a failing one degrades the service rather than taking it down.
func timedCheck(check func() error, name string, slowMs int64) ComponentHealth {
	start := time.Now()
	if err := check(); err != nil {
		return ComponentHealth{
			Status:  ComponentStatusDegraded,
			Message: name + " check failed: " + err.Error(),
		}
	}

	latency := time.Since(start).Milliseconds()
	status := ComponentStatusUp
	message := name + " healthy"
	if latency > slowMs {
		status = ComponentStatusDegraded
		message = name + " latency high"
	}

	return ComponentHealth{
		Status:    status,
		Message:   message,
		LatencyMs: float64(latency),
	}
}

// determineOverallHealth calculates overall health from component statuses
func determineOverallHealth(components map[string]ComponentHealth) HealthStatus {
	var downCount, degradedCount int
	for _, component := range components {
		switch component.Status {
		case ComponentStatusDown:
			downCount++
		case ComponentStatusDegraded:
			degradedCount++
		}
	}

	if downCount > 0 {
		return HealthStatusUnhealthy
	}
	if degradedCount > 0 {
		return HealthStatusDegraded
	}
	return HealthStatusHealthy
}
