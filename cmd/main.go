package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/unisport/kursfinder/internal/adapters/http/api"
	"github.com/unisport/kursfinder/internal/adapters/http/site"
	"github.com/unisport/kursfinder/internal/adapters/http/swagger"
	"github.com/unisport/kursfinder/internal/adapters/repository"
	service "github.com/unisport/kursfinder/internal/app"
	"github.com/unisport/kursfinder/internal/config"
	"github.com/unisport/kursfinder/internal/domain/recommend"
	"github.com/unisport/kursfinder/pkg/logger"
	"github.com/unisport/kursfinder/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	catalogMetricsInterval    = 30 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics.
	// We collect our own custom system metrics instead.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Pull in a local .env when present; deployments set real environment.
	_ = godotenv.Load()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// Logger is not up yet at this point
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	loggerInstance := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	// Open the catalog database.
	storeOpts := []repository.Option{
		repository.WithSlowThreshold(time.Duration(cfg.DBSlowQueryMS) * time.Millisecond),
	}
	if cfg.AutoMigrate {
		storeOpts = append(storeOpts, repository.WithAutoMigrate())
	}
	store, err := repository.Open(cfg.DatabaseDSN, storeOpts...)
	if err != nil {
		loggerInstance.Error(ctx, "failed to open database", logger.Error(err))
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			loggerInstance.Error(ctx, "failed to close database", logger.Error(err))
		}
	}()

	// Create and start the service with configuration options
	svc := service.New(
		service.WithLogger(loggerInstance),
		service.WithStore(store),
		service.WithScorer(recommend.NewScorer(
			recommend.WithK(cfg.ScorerK),
			recommend.WithPolicy(recommend.Policy(cfg.ScorerPolicy)),
			recommend.WithSoftPenalty(cfg.ScorerSoftPenalty),
			recommend.WithMinScore(cfg.ScorerMinScore),
		)),
		service.WithCacheTTL(cfg.CacheTTL()),
		service.WithFeedName(cfg.FeedName),
	)
	if err := svc.Start(ctx); err != nil {
		loggerInstance.Error(ctx, "failed to start service", logger.Error(err))
		os.Exit(1)
	}
	defer svc.Stop()

	// Start system metrics updater
	go startSystemMetricsUpdater(ctx)

	// Start catalog metrics updater
	go startCatalogMetricsUpdater(ctx, svc)

	// HTTP mux and routes.
	mux := http.NewServeMux()

	// Landing page and API reference.
	site.Register(ctx, mux)
	swagger.Register(ctx, mux)

	// Register business API routes with the service dependency.
	auth := api.NewAuthenticator(cfg.JWTSecret, cfg.AuthEnabled)
	apiServer := api.NewServer(svc, svc, auth)
	apiServer.Register(ctx, mux, svc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	// Start the HTTP server
	go func() {
		loggerInstance.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			loggerInstance.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	loggerInstance.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	loggerInstance.Info(ctx, "server stopped")
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startCatalogMetricsUpdater starts a background goroutine that refreshes catalog gauges.
func startCatalogMetricsUpdater(ctx context.Context, svc *service.Service) {
	ticker := time.NewTicker(catalogMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateCatalogMetrics(ctx, svc)
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)

	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		// Average GC pause over the process lifetime
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}

// updateCatalogMetrics updates catalog-level metrics.
func updateCatalogMetrics(ctx context.Context, svc *service.Service) {
	// GetStats refreshes the catalog gauges as a side effect; the explicit
	// updates below keep them live even when nobody polls /stats.
	stats := svc.GetStats(ctx)

	if offers, ok := stats["offers"].(int); ok {
		metrics.UpdateCatalogOffers(offers)
	}

	if events, ok := stats["events"].(int); ok {
		metrics.UpdateCatalogEvents(events)
	}
}
