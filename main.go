package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/seo-optimizer/seo-analysis/analyzer"
	"github.com/seo-optimizer/seo-analysis/api"
	"github.com/seo-optimizer/seo-analysis/config"
	"github.com/seo-optimizer/seo-analysis/fetcher"
	"github.com/seo-optimizer/seo-analysis/logging"
	"github.com/seo-optimizer/seo-analysis/metrics"
	"github.com/seo-optimizer/seo-analysis/middleware"
	"github.com/seo-optimizer/seo-analysis/reports"
	"github.com/seo-optimizer/seo-analysis/stats"
)

const retainMonths = 12

func main() {
	// Load configuration
	cfg := config.Load()
	logging.Setup(cfg.Log)
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	gin.SetMode(cfg.Server.Mode)
	slog.Info("seo analysis service starting",
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"performance", cfg.Performance.Mode,
		"cache", cfg.Cache.Enabled,
	)

	// Initialize persistence
	monthly, err := stats.NewStorage(cfg.Storage.DataDir)
	if err != nil {
		slog.Error("failed to initialise stats storage", "error", err)
		os.Exit(1)
	}
	monthly.Cleanup(retainMonths)

	requestStats := logging.NewStatistics(filepath.Join(cfg.Storage.DataDir, "statistics.json"), cfg.Server.DevMode)

	store, err := reports.Open(cfg.Reports)
	if err != nil {
		slog.Error("failed to open reports store", "error", err)
		os.Exit(1)
	}

	// Initialize services
	m := metrics.New()
	htmlFetcher := fetcher.NewHTMLFetcher(cfg.Fetch)
	perf, closePerf := fetcher.NewPerformanceFetcher(cfg.Performance)

	opts := []analyzer.Option{
		analyzer.WithPerformanceFetcher(perf),
		analyzer.WithStats(monthly),
		analyzer.WithMetrics(m),
		analyzer.WithRecorder(reports.NewRecorder(store)),
		analyzer.WithTimeout(cfg.Analysis.Timeout),
	}
	if cfg.Cache.Enabled {
		opts = append(opts, analyzer.WithCache(cfg.Cache.MaxEntries, cfg.Cache.TTL))
	}
	svc := analyzer.New(htmlFetcher, opts...)

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)

	router := api.NewRouter(api.Deps{
		Analyzer:    svc,
		Reports:     store,
		Stats:       requestStats,
		Metrics:     m,
		RateLimiter: rateLimiter,
	})

	// Start HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	rateLimiter.Stop()
	if err := svc.Shutdown(); err != nil {
		slog.Warn("failed to flush analyzer state", "error", err)
	}
	monthly.Close()
	if err := requestStats.Save(); err != nil {
		slog.Warn("failed to save statistics", "error", err)
	}
	if err := closePerf(); err != nil {
		slog.Warn("failed to close performance fetcher", "error", err)
	}
	if err := store.Close(); err != nil {
		slog.Warn("failed to close reports store", "error", err)
	}

	slog.Info("seo analysis service stopped")
}
