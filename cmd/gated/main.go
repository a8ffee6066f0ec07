package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"gate-checkin-backend/config"
	"gate-checkin-backend/internal/api"
	"gate-checkin-backend/internal/checkin"
	"gate-checkin-backend/internal/db"
	"gate-checkin-backend/internal/enrich"
	"gate-checkin-backend/internal/metrics"
	"gate-checkin-backend/internal/reconcile"
	"gate-checkin-backend/internal/registry"
	"gate-checkin-backend/internal/stats"
	"gate-checkin-backend/internal/store"
)

func main() {
	logger := log.New(os.Stdout, "gated ", log.LstdFlags)

	if err := godotenv.Load(); err != nil {
		logger.Println("No .env file found, using process environment")
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger.Printf("configuration loaded successfully from %s", configPath)

	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}
	logger.Println("database initialized successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(gormDB)
	appMetrics := metrics.New()

	// Registry enrichment is optional; without it scans are never blocked on
	// the external register.
	var (
		enricher checkin.Enricher
		lookup   api.Registry
	)
	if cfg.Registry.Enabled {
		client := registry.NewClient(&cfg.Registry, registry.WithObserver(func(o registry.Outcome) {
			appMetrics.IncrementRegistry(string(o))
		}))
		pool := enrich.NewWorkerPool(cfg.WorkerPool.Size, cfg.WorkerPool.Queue, client)
		pool.Start(ctx)
		enricher, lookup = pool, client
		logger.Printf("registry enrichment enabled with %d workers", cfg.WorkerPool.Size)
	} else {
		logger.Println("registry enrichment disabled")
	}

	engine := checkin.NewEngine(appStore, enricher, checkin.Options{
		DuplicateWindow: cfg.CheckIn.DuplicateWindow,
		DuplicatePolicy: checkin.DuplicatePolicy(cfg.CheckIn.DuplicatePolicy),
		RegistryWait:    cfg.CheckIn.RegistryWait,
	})
	logger.Printf("duplicate window %s (%s)", cfg.CheckIn.DuplicateWindow, cfg.CheckIn.DuplicatePolicy)

	reconciler := reconcile.NewService(&cfg.Reconcile, appStore, appMetrics.AddReconciled)
	go reconciler.Run(ctx)

	handler := api.NewHandler(appStore, engine, stats.NewAggregator(appStore), lookup, appMetrics)
	router := api.NewRouter(&cfg.Server, handler, appMetrics)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Println("Shutdown signal received, stopping services...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("HTTP server Shutdown: %v", err)
	}
	cancel()

	logger.Println("Server gracefully stopped")
}
