package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/seo-optimizer/seo-analysis/analyzer"
	"github.com/seo-optimizer/seo-analysis/config"
	"github.com/seo-optimizer/seo-analysis/fetcher"
	"github.com/seo-optimizer/seo-analysis/logging"
)

func main() {
	cfg := config.Load()

	// stdout carries the protocol
	slog.SetDefault(logging.New(os.Stderr, cfg.Log))
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	perf, closePerf := fetcher.NewPerformanceFetcher(cfg.Performance)
	defer func() {
		if err := closePerf(); err != nil {
			slog.Warn("failed to close performance fetcher", "error", err)
		}
	}()

	opts := []analyzer.Option{
		analyzer.WithPerformanceFetcher(perf),
		analyzer.WithTimeout(cfg.Analysis.Timeout),
	}
	if cfg.Cache.Enabled {
		opts = append(opts, analyzer.WithCache(cfg.Cache.MaxEntries, cfg.Cache.TTL))
	}
	svc := analyzer.New(fetcher.NewHTMLFetcher(cfg.Fetch), opts...)
	defer svc.Shutdown()

	s := server.NewMCPServer(
		"seo-analysis",
		"1.0.0",
		server.WithToolCapabilities(false),
	)
	s.AddTool(analyzePageTool(), handleAnalyzePage(svc))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}
