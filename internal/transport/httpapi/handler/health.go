package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// DatabasePinger defines the interface for checking database connectivity
type DatabasePinger interface {
	Ping(ctx context.Context) error
}

// RatesChecker reports whether a usable rates snapshot is loaded.
type RatesChecker interface {
	IsValid(currency string) bool
}

// HealthHandler handles health check requests
type HealthHandler struct {
	db    DatabasePinger
	rates RatesChecker
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db DatabasePinger, rates RatesChecker) *HealthHandler {
	return &HealthHandler{
		db:    db,
		rates: rates,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
	Uptime string            `json:"uptime,omitempty"`
}

var startTime = time.Now()

func respondHealth(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}

// GetHealth handles GET /health
// Basic health check - returns 200 OK if service is running
func GetHealth(w http.ResponseWriter, r *http.Request) {
	respondHealth(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Uptime: time.Since(startTime).String(),
	})
}

// GetReadiness handles GET /health/ready
// Readiness probe - checks the database and the FX snapshot
func (h *HealthHandler) GetReadiness(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string)
	status := "ready"

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		checks["database"] = "unhealthy: " + err.Error()
		status = "degraded"
	} else {
		checks["database"] = "healthy"
	}

	if h.rates != nil && !h.rates.IsValid("EUR") {
		checks["rates"] = "no snapshot loaded"
		status = "degraded"
	} else {
		checks["rates"] = "healthy"
	}

	httpStatus := http.StatusOK
	if status == "degraded" {
		httpStatus = http.StatusServiceUnavailable
	}

	respondHealth(w, httpStatus, HealthResponse{
		Status: status,
		Checks: checks,
		Uptime: time.Since(startTime).String(),
	})
}
