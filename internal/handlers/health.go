package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Pinger is a dependency that can report whether it is reachable
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PingFunc adapts a function to a Pinger
type PingFunc func(ctx context.Context) error

// PingContext calls f
func (f PingFunc) PingContext(ctx context.Context) error { return f(ctx) }

// BreakerReporter exposes the image generation circuit breaker state
type BreakerReporter interface {
	BreakerState() string
}

// HealthChecker handles health check requests
type HealthChecker struct {
	db    Pinger
	redis Pinger
	image BreakerReporter
}

// NewHealthChecker creates a new health checker. redis and image may be nil.
func NewHealthChecker(db Pinger, redis Pinger, image BreakerReporter) *HealthChecker {
	return &HealthChecker{db: db, redis: redis, image: image}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// HealthCheck handles the /healthz endpoint
func (h *HealthChecker) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	statusCode := http.StatusOK

	if r.URL.Query().Get("mode") == "extended" {
		checks := make(map[string]string)

		if err := ping(r.Context(), h.db); err != nil {
			response.Status = "unhealthy"
			checks["database"] = "unhealthy: " + err.Error()
		} else {
			checks["database"] = "healthy"
		}

		if h.redis != nil {
			if err := ping(r.Context(), h.redis); err != nil {
				response.Status = "unhealthy"
				checks["redis"] = "unhealthy: " + err.Error()
			} else {
				checks["redis"] = "healthy"
			}
		}

		// An open breaker degrades images to fallbacks but submissions still work.
		if h.image != nil {
			checks["image_generation"] = "breaker " + h.image.BreakerState()
		}

		response.Checks = checks
		if response.Status == "unhealthy" {
			statusCode = http.StatusServiceUnavailable
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(response)
}

func ping(ctx context.Context, p Pinger) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return p.PingContext(ctx)
}
