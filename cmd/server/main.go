package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"linkpulse/internal/config"
	"linkpulse/internal/geo"
	httpHandler "linkpulse/internal/handler/http"
	"linkpulse/internal/ratelimit"
	"linkpulse/internal/repository"
	"linkpulse/internal/repository/postgres"
	redisrepo "linkpulse/internal/repository/redis"
	"linkpulse/internal/repository/sqlite"
	"linkpulse/internal/service"
	"linkpulse/pkg/logger"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger := logger.New(cfg.App.LogLevel)
	appLogger.Info("Starting LinkPulse",
		"environment", cfg.App.Environment,
		"storage", cfg.Storage.Driver,
		"port", cfg.Server.Port,
	)

	ctx := context.Background()

	// Storage backend. Both drivers satisfy the same repository interfaces;
	// everything above this switch is dialect-agnostic.
	var (
		linkRepo  repository.LinkRepository
		clickRepo repository.ClickRepository
		statsRepo repository.StatsRepository
		closeDB   func()
	)
	switch cfg.Storage.Driver {
	case "sqlite":
		db, err := sqlite.Open(cfg.Storage.SQLitePath)
		if err != nil {
			log.Fatalf("SQLite open failed: %v", err)
		}
		closeDB = func() { _ = db.Close() }
		linkRepo = sqlite.NewLinkRepository(db)
		clickRepo = sqlite.NewClickRepository(db)
		statsRepo = sqlite.NewStatsRepository(db)
	default:
		pool, err := postgres.InitDB(
			ctx,
			cfg.Database.DatabaseDSN(),
			cfg.Database.MaxOpenConns,
			cfg.Database.MaxIdleConns,
			cfg.Database.ConnMaxLifetime,
		)
		if err != nil {
			log.Fatalf("Database connection failed: %v", err)
		}
		if err := postgres.EnsureSchema(ctx, pool); err != nil {
			log.Fatalf("Schema migration failed: %v", err)
		}
		closeDB = pool.Close
		linkRepo = postgres.NewLinkRepository(pool)
		clickRepo = postgres.NewClickRepository(pool)
		statsRepo = postgres.NewStatsRepository(pool)
	}
	defer closeDB()
	appLogger.Info("Storage ready", "driver", cfg.Storage.Driver)

	redisClient, err := redisrepo.InitRedis(cfg.Redis.RedisAddr(), cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatalf("Redis connection failed: %v", err)
	}
	defer redisClient.Close()
	appLogger.Info("Redis connection established")

	linkCache := redisrepo.NewCache(redisClient, cfg.Redis.CacheTTL)

	geoResolver := geo.NewResolver(
		geo.WithEndpoint(cfg.Geo.Endpoint),
		geo.WithClient(&http.Client{Timeout: cfg.Geo.Timeout}),
		geo.WithLoopbackCountry(cfg.Geo.LoopbackCountry),
	)

	linkService := service.NewLinkService(
		linkRepo,
		clickRepo,
		statsRepo,
		linkCache,
		geoResolver,
		appLogger.Logger,
		cfg.App.BaseURL,
	)

	handler := httpHandler.NewHandler(linkService, appLogger.Logger)

	mux := http.NewServeMux()

	// Fixed routes are registered before the catch-all slug redirect;
	// ServeMux prefers the more specific pattern.
	mux.HandleFunc("POST /api/v1/links", handler.CreateLink)
	mux.HandleFunc("GET /api/v1/links", handler.ListLinks)
	mux.HandleFunc("GET /api/v1/links/dashboard", handler.Dashboard)
	mux.HandleFunc("GET /api/v1/links/{id}/stats", handler.LinkStats)
	mux.HandleFunc("PATCH /api/v1/links/{id}/status", handler.UpdateStatus)
	mux.HandleFunc("GET /health/live", handler.HealthCheck)
	if cfg.App.EnableMetrics {
		mux.Handle("GET /metrics", promhttp.Handler())
	}
	mux.HandleFunc("GET /{slug}", handler.Redirect)

	middlewares := []func(http.Handler) http.Handler{
		httpHandler.RecoveryMiddleware(appLogger.Logger),
		httpHandler.LoggingMiddleware(appLogger.Logger),
		httpHandler.RequestIDMiddleware,
		httpHandler.MetricsMiddleware,
		httpHandler.CORSMiddleware,
	}
	if cfg.App.RateLimitEnabled {
		limiter := ratelimit.NewLimiter(redisClient, cfg.App.RateLimitPerMinute, time.Minute)
		middlewares = append(middlewares, httpHandler.RateLimitMiddleware(limiter))
	}
	finalHandler := httpHandler.Chain(middlewares...)(mux)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      finalHandler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		appLogger.Info("Server starting", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Server failed", "error", err)
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown", "error", err)
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	appLogger.Info("Server exited gracefully")
}
