package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kislikjeka/walletd/internal/currency"
	"github.com/kislikjeka/walletd/internal/idgen"
	"github.com/kislikjeka/walletd/internal/infra/postgres"
	"github.com/kislikjeka/walletd/internal/ledger"
	"github.com/kislikjeka/walletd/internal/transport/httpapi"
	"github.com/kislikjeka/walletd/internal/transport/httpapi/handler"
	"github.com/kislikjeka/walletd/migrations"
	"github.com/kislikjeka/walletd/pkg/config"
	"github.com/kislikjeka/walletd/pkg/logger"
	"github.com/kislikjeka/walletd/pkg/workpool"
)

func main() {
	// Create context that listens for termination signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewDefault(cfg.Env)
	log.Info("Starting wallet API server",
		"env", cfg.Env,
		"addr", cfg.BindAddress,
	)

	// Initialize database connection pool
	db, err := postgres.NewPool(ctx, postgres.Config{
		URL:      cfg.DatabaseURL,
		MaxConns: cfg.DBMaxConns,
	})
	if err != nil {
		log.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	log.Info("Database connection established")

	// Apply embedded migrations
	if err := postgres.ApplyMigrations(ctx, db.Pool, migrations.FS); err != nil {
		log.Error("Failed to apply migrations", "error", err)
		os.Exit(1)
	}
	log.Info("Migrations applied")

	// Optional Redis cache for the last good rate snapshot
	var snapCache currency.SnapshotCache
	if cfg.RedisURL != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisURL,
			Password: cfg.RedisPassword,
			DB:       0,
		})
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		snapCache = currency.NewRedisSnapshotCache(redisClient)
		log.Info("Redis connection established")
	}

	// Load the initial rate snapshot and start the refresher
	provider := currency.StaticProvider{}
	snap, err := currency.Bootstrap(ctx, provider, snapCache, log)
	if err != nil {
		log.Error("Failed to load rate snapshot", "error", err)
		os.Exit(1)
	}
	converter := currency.NewConverter(snap)
	log.Info("Rate snapshot loaded", "base", snap.Base, "rates", len(snap.Rates))

	refresher := currency.NewRefresher(converter, provider, snapCache, cfg.FXRefreshInterval, log)
	go refresher.Run(ctx)

	// Initialize the transaction id generator
	ids, err := idgen.New(cfg.NodeID)
	if err != nil {
		log.Error("Failed to initialize id generator", "error", err)
		os.Exit(1)
	}

	// Initialize the ledger engine
	store := postgres.NewLedgerStore(db.Pool)
	engine := ledger.NewService(store, converter, ids, cfg.FXSurcharge)

	// Initialize HTTP handlers
	pool := workpool.New(cfg.WorkerPoolSize)
	walletHandler := handler.NewWalletHandler(engine, pool, log)
	healthHandler := handler.NewHealthHandler(db, converter)

	// Determine allowed origins for CORS
	allowedOrigins := []string{"*"}
	if cfg.IsProduction() {
		if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
			allowedOrigins = []string{origins}
		}
	}

	// Create HTTP router
	r := httpapi.NewRouter(httpapi.Config{
		Logger:         log,
		AllowedOrigins: allowedOrigins,
		WalletHandler:  walletHandler,
		HealthHandler:  healthHandler,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.BindAddress,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for termination signal
	<-ctx.Done()
	log.Info("Shutdown signal received")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown failed", "error", err)
		os.Exit(1)
	}

	log.Info("Server stopped gracefully")
}
