package config

import (
	"strings"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "empty port",
			mutate:  func(cfg *Config) { cfg.Server.Port = "" },
			wantErr: "port",
		},
		{
			name:    "non numeric port",
			mutate:  func(cfg *Config) { cfg.Server.Port = "http" },
			wantErr: "port",
		},
		{
			name:    "zero fetch timeout",
			mutate:  func(cfg *Config) { cfg.Fetch.Timeout = 0 },
			wantErr: "fetch timeout",
		},
		{
			name:    "unknown performance mode",
			mutate:  func(cfg *Config) { cfg.Performance.Mode = "lighthouse" },
			wantErr: "performance mode",
		},
		{
			name:    "negative mock delay",
			mutate:  func(cfg *Config) { cfg.Performance.MockDelay = -time.Second },
			wantErr: "mock delay",
		},
		{
			name:    "zero burst",
			mutate:  func(cfg *Config) { cfg.RateLimit.Burst = 0 },
			wantErr: "burst",
		},
		{
			name:    "enabled cache without entries",
			mutate:  func(cfg *Config) { cfg.Cache.MaxEntries = 0 },
			wantErr: "cache max entries",
		},
		{
			name:    "bad log format",
			mutate:  func(cfg *Config) { cfg.Log.Format = "xml" },
			wantErr: "log format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Load()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDisabledCacheSkipsCacheChecks(t *testing.T) {
	cfg := Load()
	cfg.Cache.Enabled = false
	cfg.Cache.MaxEntries = 0
	cfg.Cache.TTL = 0
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled cache should validate, got %v", err)
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("PERFORMANCE_MODE", "OFF")
	t.Setenv("FETCH_TIMEOUT", "3s")
	t.Setenv("RATE_LIMIT_RPS", "not-a-number")

	cfg := Load()
	if cfg.Server.Port != "9090" {
		t.Errorf("port = %q, want 9090", cfg.Server.Port)
	}
	if cfg.Performance.Mode != PerformanceOff {
		t.Errorf("performance mode = %q, want %q", cfg.Performance.Mode, PerformanceOff)
	}
	if cfg.Fetch.Timeout != 3*time.Second {
		t.Errorf("fetch timeout = %v, want 3s", cfg.Fetch.Timeout)
	}
	if cfg.RateLimit.RequestsPerSecond != 2 {
		t.Errorf("invalid rps should fall back to 2, got %v", cfg.RateLimit.RequestsPerSecond)
	}
}

func TestDefaultConfigValid(t *testing.T) {
	if err := Load().Validate(); err != nil {
		t.Fatalf("default config should validate, got %v", err)
	}
}
