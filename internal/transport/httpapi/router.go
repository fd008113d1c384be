// Package httpapi wires the wallet endpoints into a chi router.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/kislikjeka/walletd/internal/transport/httpapi/handler"
	"github.com/kislikjeka/walletd/internal/transport/httpapi/middleware"
	"github.com/kislikjeka/walletd/pkg/logger"
)

// Config holds router configuration
type Config struct {
	Logger         *logger.Logger
	AllowedOrigins []string
	WalletHandler  *handler.WalletHandler
	HealthHandler  *handler.HealthHandler
}

// NewRouter creates a new HTTP router
func NewRouter(cfg Config) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(chimiddleware.Compress(5))
	r.Use(middleware.RateLimit()) // Rate limiting: 100 req/s with burst of 20

	// Health check endpoints
	r.Get("/health", handler.GetHealth)
	if cfg.HealthHandler != nil {
		r.Get("/health/ready", cfg.HealthHandler.GetReadiness)
	}

	// Wallet endpoints
	if cfg.WalletHandler != nil {
		r.Get("/balance/{userID}", cfg.WalletHandler.GetBalance)
		r.Post("/top-up", cfg.WalletHandler.TopUp)
		r.Post("/reserve", cfg.WalletHandler.Reserve)
		r.Post("/commit", cfg.WalletHandler.Commit)
		r.Post("/cancel", cfg.WalletHandler.Cancel)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"not found"}`))
	})

	return r
}
