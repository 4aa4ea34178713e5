package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Performance fetch modes.
const (
	PerformanceMock    = "mock"
	PerformanceBrowser = "browser"
	PerformanceOff     = "off"
)

// Config holds all application configuration.
type Config struct {
	Server      ServerConfig
	Fetch       FetchConfig
	Analysis    AnalysisConfig
	Performance PerformanceConfig
	RateLimit   RateLimitConfig
	Cache       CacheConfig
	Storage     StorageConfig
	Reports     ReportsConfig
	Log         LogConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Port    string // default: "8082"
	Mode    string // gin mode; default: "release"
	DevMode bool   // exposes full statistics
}

// FetchConfig controls how target pages are downloaded.
type FetchConfig struct {
	Timeout      time.Duration // default: 15s
	UserAgent    string
	MaxBodyBytes int // default: 10MB
}

// AnalysisConfig bounds a single analysis request.
type AnalysisConfig struct {
	Timeout time.Duration // default: 30s
}

// PerformanceConfig selects and tunes the performance metrics source.
type PerformanceConfig struct {
	// Mode is one of "mock", "browser" or "off".
	Mode string

	// MockDelay simulates measurement latency for the mock source.
	MockDelay time.Duration // default: 1s

	// Timeout is the deadline for one browser measurement.
	Timeout time.Duration // default: 20s

	BrowserBin string
	NoSandbox  bool
}

// RateLimitConfig controls per-client rate limiting.
type RateLimitConfig struct {
	RequestsPerSecond float64 // default: 2
	Burst             int     // default: 5
}

// CacheConfig controls the URL report cache.
type CacheConfig struct {
	Enabled    bool
	MaxEntries int           // default: 1000
	TTL        time.Duration // default: 30m
}

// StorageConfig controls where statistics are persisted.
type StorageConfig struct {
	DataDir string // default: "data"
}

// ReportsConfig controls report summary persistence.
type ReportsConfig struct {
	// DSN is a MySQL DSN; empty keeps the stub listing.
	DSN       string
	ListDelay time.Duration // default: 500ms
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// LoadEnv loads .env.development first, then .env. Missing files are fine.
func LoadEnv() {
	if err := godotenv.Load(".env.development"); err != nil {
		if err := godotenv.Load(); err != nil {
			slog.Debug("no .env file found, using environment variables")
		}
	}
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	LoadEnv()

	return &Config{
		Server: ServerConfig{
			Port:    envOr("PORT", "8082"),
			Mode:    envOr("GIN_MODE", "release"),
			DevMode: envBoolOr("DEV_MODE", false),
		},
		Fetch: FetchConfig{
			Timeout:      envDurationOr("FETCH_TIMEOUT", 15*time.Second),
			UserAgent:    envOr("FETCH_USER_AGENT", "SEOAnalyzer/1.0"),
			MaxBodyBytes: envIntOr("FETCH_MAX_BODY_BYTES", 10*1024*1024),
		},
		Analysis: AnalysisConfig{
			Timeout: envDurationOr("ANALYSIS_TIMEOUT", 30*time.Second),
		},
		Performance: PerformanceConfig{
			Mode:       strings.ToLower(envOr("PERFORMANCE_MODE", PerformanceMock)),
			MockDelay:  envDurationOr("PERFORMANCE_MOCK_DELAY", time.Second),
			Timeout:    envDurationOr("PERFORMANCE_TIMEOUT", 20*time.Second),
			BrowserBin: os.Getenv("BROWSER_BIN"),
			NoSandbox:  envBoolOr("BROWSER_NO_SANDBOX", false),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("RATE_LIMIT_RPS", 2),
			Burst:             envIntOr("RATE_LIMIT_BURST", 5),
		},
		Cache: CacheConfig{
			Enabled:    envBoolOr("CACHE_ENABLED", true),
			MaxEntries: envIntOr("CACHE_MAX_ENTRIES", 1000),
			TTL:        envDurationOr("CACHE_TTL", 30*time.Minute),
		},
		Storage: StorageConfig{
			DataDir: envOr("DATA_DIR", "data"),
		},
		Reports: ReportsConfig{
			DSN:       os.Getenv("REPORTS_DSN"),
			ListDelay: envDurationOr("REPORTS_LIST_DELAY", 500*time.Millisecond),
		},
		Log: LogConfig{
			Level:  envOr("LOG_LEVEL", "info"),
			Format: envOr("LOG_FORMAT", "json"),
		},
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("port cannot be empty")
	}
	if _, err := strconv.Atoi(c.Server.Port); err != nil {
		return fmt.Errorf("port must be numeric: %w", err)
	}
	if c.Fetch.Timeout <= 0 {
		return fmt.Errorf("fetch timeout must be positive")
	}
	if c.Fetch.MaxBodyBytes <= 0 {
		return fmt.Errorf("fetch max body bytes must be positive")
	}
	if c.Fetch.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	if c.Analysis.Timeout <= 0 {
		return fmt.Errorf("analysis timeout must be positive")
	}
	switch c.Performance.Mode {
	case PerformanceMock, PerformanceBrowser, PerformanceOff:
	default:
		return fmt.Errorf("performance mode must be mock, browser, or off")
	}
	if c.Performance.MockDelay < 0 {
		return fmt.Errorf("performance mock delay cannot be negative")
	}
	if c.Performance.Timeout <= 0 {
		return fmt.Errorf("performance timeout must be positive")
	}
	if c.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("rate limit rps must be positive")
	}
	if c.RateLimit.Burst <= 0 {
		return fmt.Errorf("rate limit burst must be positive")
	}
	if c.Cache.Enabled && c.Cache.MaxEntries <= 0 {
		return fmt.Errorf("cache max entries must be positive when cache is enabled")
	}
	if c.Cache.Enabled && c.Cache.TTL <= 0 {
		return fmt.Errorf("cache ttl must be positive when cache is enabled")
	}
	if c.Storage.DataDir == "" {
		return fmt.Errorf("data dir cannot be empty")
	}
	if c.Reports.ListDelay < 0 {
		return fmt.Errorf("reports list delay cannot be negative")
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return fmt.Errorf("log format must be json or text")
	}
	return nil
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
