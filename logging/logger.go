package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/seo-optimizer/seo-analysis/config"
)

// Setup installs the default slog logger described by cfg.
func Setup(cfg config.LogConfig) {
	slog.SetDefault(New(os.Stdout, cfg))
}

// New builds a logger writing to w.
func New(w io.Writer, cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	return slog.New(handler)
}

// Statistics collects visitor and request statistics for the API.
type Statistics struct {
	UniqueVisitors   map[string]time.Time `json:"uniqueVisitors"`   // IP -> last visit
	AnalysisRequests int                  `json:"analysisRequests"` // total analysis requests
	ErrorCount       int                  `json:"errorCount"`
	PopularURLs      map[string]int       `json:"popularUrls"` // URL -> count
	AverageLoadTime  float64              `json:"averageLoadTime"`
	TotalLoadTime    float64              `json:"totalLoadTime"`
	RequestCount     int                  `json:"requestCount"`
	LastPersisted    time.Time            `json:"lastPersisted"`

	mutex   sync.RWMutex
	path    string
	devMode bool
}

// NewStatistics returns statistics persisted to path, loading any existing
// file. devMode exposes popular URLs in GetStatistics.
func NewStatistics(path string, devMode bool) *Statistics {
	s := &Statistics{
		UniqueVisitors: make(map[string]time.Time),
		PopularURLs:    make(map[string]int),
		LastPersisted:  time.Now(),
		path:           path,
		devMode:        devMode,
	}
	if err := s.Load(); err != nil {
		slog.Warn("could not load existing statistics", "path", path, "error", err)
	}
	return s
}

// TrackVisitor records a unique visitor
func (s *Statistics) TrackVisitor(ip string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.UniqueVisitors[ip] = time.Now()
}

// cleanURL reduces a target URL to scheme, host and path. Local and API URLs
// are not tracked and yield "".
func cleanURL(urlStr string) string {
	u, err := url.Parse(strings.TrimSpace(urlStr))
	if err != nil || u.Host == "" {
		return ""
	}

	host := strings.ToLower(u.Hostname())
	if host == "localhost" || host == "127.0.0.1" ||
		strings.Contains(strings.ToLower(u.Path), "/api/") {
		return ""
	}

	cleaned := u.Scheme + "://" + u.Host
	if u.Path != "" && u.Path != "/" {
		cleaned += u.Path
	}

	return strings.TrimSuffix(cleaned, "/")
}

// TrackAnalysis records one analysis request for target, which may be empty
// for raw HTML requests.
func (s *Statistics) TrackAnalysis(target string, loadTime float64, hasError bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.AnalysisRequests++

	if cleaned := cleanURL(target); cleaned != "" {
		s.PopularURLs[cleaned]++
	}

	if hasError {
		s.ErrorCount++
	}

	s.TotalLoadTime += loadTime
	s.RequestCount++
	s.AverageLoadTime = s.TotalLoadTime / float64(s.RequestCount)
}

// TotalRequests returns the number of tracked analysis requests.
func (s *Statistics) TotalRequests() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.AnalysisRequests
}

// GetUniqueVisitorsCount returns the number of unique visitors in the last 24 hours
func (s *Statistics) GetUniqueVisitorsCount() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.uniqueVisitorsLocked()
}

func (s *Statistics) uniqueVisitorsLocked() int {
	count := 0
	cutoff := time.Now().Add(-24 * time.Hour)
	for _, lastVisit := range s.UniqueVisitors {
		if lastVisit.After(cutoff) {
			count++
		}
	}
	return count
}

// GetPopularURLs returns the n most analyzed URLs.
func (s *Statistics) GetPopularURLs(n int) map[string]int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.popularLocked(n)
}

func (s *Statistics) popularLocked(n int) map[string]int {
	type entry struct {
		url   string
		count int
	}
	entries := make([]entry, 0, len(s.PopularURLs))
	for u, c := range s.PopularURLs {
		entries = append(entries, entry{u, c})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].url < entries[j].url
	})
	if len(entries) > n {
		entries = entries[:n]
	}

	result := make(map[string]int, len(entries))
	for _, e := range entries {
		result[e.url] = e.count
	}
	return result
}

// GetErrorRate returns the error rate as a percentage
func (s *Statistics) GetErrorRate() float64 {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.errorRateLocked()
}

func (s *Statistics) errorRateLocked() float64 {
	if s.AnalysisRequests == 0 {
		return 0
	}
	return (float64(s.ErrorCount) / float64(s.AnalysisRequests)) * 100
}

// Save persists the statistics to their file.
func (s *Statistics) Save() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.path == "" {
		return nil
	}
	s.LastPersisted = time.Now()

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("could not create statistics directory: %w", err)
		}
	}

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("could not encode statistics: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("could not write statistics file: %w", err)
	}
	return nil
}

// Load reads the statistics from their file. A missing file is not an error.
func (s *Statistics) Load() error {
	if s.path == "" {
		return nil
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("could not open statistics file: %w", err)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if err := json.Unmarshal(data, s); err != nil {
		return fmt.Errorf("could not decode statistics: %w", err)
	}
	if s.UniqueVisitors == nil {
		s.UniqueVisitors = make(map[string]time.Time)
	}
	if s.PopularURLs == nil {
		s.PopularURLs = make(map[string]int)
	}
	return nil
}

// GetStatistics returns a summary. Popular URLs are only included in
// development mode.
func (s *Statistics) GetStatistics() map[string]interface{} {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	out := map[string]interface{}{
		"uniqueVisitors24h": s.uniqueVisitorsLocked(),
		"totalRequests":     s.AnalysisRequests,
		"errorRate":         s.errorRateLocked(),
		"averageLoadTime":   s.AverageLoadTime,
	}
	if s.devMode {
		out["popularUrls"] = s.popularLocked(5)
	}
	return out
}
