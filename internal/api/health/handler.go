package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"edinsights/pkg/logger"
)

// WarehousePinger is the slice of the warehouse the health handler needs.
type WarehousePinger interface {
	Health(ctx context.Context) error
}

// Handler provides liveness and readiness endpoints.
type Handler struct {
	log         *logger.Logger
	warehouse   WarehousePinger
	startTime   time.Time
	serviceName string
	version     string
}

// New creates a health check handler.
func New(log *logger.Logger, warehouse WarehousePinger, serviceName, version string) *Handler {
	return &Handler{
		log:         log,
		warehouse:   warehouse,
		startTime:   time.Now(),
		serviceName: serviceName,
		version:     version,
	}
}

// HealthStatus is the readiness response body.
type HealthStatus struct {
	Status    string                     `json:"status"` // "healthy" or "unhealthy"
	Service   string                     `json:"service"`
	Version   string                     `json:"version"`
	Uptime    string                     `json:"uptime"`
	Timestamp string                     `json:"timestamp"`
	Checks    map[string]ComponentHealth `json:"checks"`
}

// ComponentHealth reports one dependency check.
type ComponentHealth struct {
	Status       string `json:"status"`
	ResponseTime string `json:"response_time,omitempty"`
	Error        string `json:"error,omitempty"`
}

// HandleLiveness returns 200 OK while the process is running.
func (h *Handler) HandleLiveness(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "alive"})
}

// HandleReadiness checks the warehouse before declaring the service ready.
// The AI provider is not probed: model availability is only observable per
// request and a missing key degrades requests, not readiness.
func (h *Handler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := map[string]ComponentHealth{
		"warehouse": h.checkWarehouse(ctx),
	}

	status := HealthStatus{
		Status:    "healthy",
		Service:   h.serviceName,
		Version:   h.version,
		Uptime:    time.Since(h.startTime).String(),
		Timestamp: time.Now().Format(time.RFC3339),
		Checks:    checks,
	}

	statusCode := http.StatusOK
	if checks["warehouse"].Status != "healthy" {
		status.Status = "unhealthy"
		statusCode = http.StatusServiceUnavailable
		h.log.Warnf("Readiness check failed: %+v", checks)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(status)
}

func (h *Handler) checkWarehouse(ctx context.Context) ComponentHealth {
	start := time.Now()
	err := h.warehouse.Health(ctx)
	elapsed := time.Since(start)

	if err != nil {
		h.log.Errorf("Warehouse health check failed: %v (elapsed %v)", err, elapsed)
		return ComponentHealth{
			Status:       "unhealthy",
			ResponseTime: elapsed.String(),
			Error:        err.Error(),
		}
	}

	return ComponentHealth{
		Status:       "healthy",
		ResponseTime: elapsed.String(),
	}
}
