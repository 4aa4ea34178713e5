package analyzer

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/seo-optimizer/seo-analysis/metrics"
	"github.com/seo-optimizer/seo-analysis/stats"
)

const (
	defaultAnalysisTimeout = 30 * time.Second

	cacheHit  = "hit"
	cacheMiss = "miss"
)

// HTMLFetcher downloads the HTML of a page.
type HTMLFetcher interface {
	FetchHTML(ctx context.Context, url string) (string, error)
}

// PerformanceFetcher measures loading metrics of a page.
type PerformanceFetcher interface {
	FetchPerformance(ctx context.Context, url string) (*PerformanceMetrics, error)
}

// ReportRecorder receives every freshly computed report.
type ReportRecorder interface {
	Record(ctx context.Context, res *CompleteAnalysisResults) error
}

// Request asks for the analysis of either a URL or raw HTML.
type Request struct {
	URL     string          `json:"url"`
	HTML    string          `json:"html"`
	Options AnalysisOptions `json:"options"`
}

// CacheStats describes the report cache.
type CacheStats struct {
	Enabled     bool          `json:"enabled"`
	Entries     int           `json:"entries"`
	TTL         time.Duration `json:"ttl"`
	CacheHits   int           `json:"cacheHits"`
	CacheMisses int           `json:"cacheMisses"`

	// Monthly holds the persisted counters keyed by "YYYY-MM".
	Monthly map[string]stats.MonthlyStats `json:"monthly,omitempty"`
}

// Service runs the fetch, extract, measure and score pipeline for one
// request at a time per call. It is safe for concurrent use.
type Service struct {
	fetcher     HTMLFetcher
	performance PerformanceFetcher
	aggregator  *Aggregator
	recorder    ReportRecorder
	stats       *stats.Storage
	metrics     *metrics.Metrics
	timeout     time.Duration

	cache    *expirable.LRU[string, *CompleteAnalysisResults]
	cacheTTL time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithPerformanceFetcher enables performance measurement.
func WithPerformanceFetcher(p PerformanceFetcher) Option {
	return func(s *Service) { s.performance = p }
}

// WithCache caches URL reports in an LRU of size entries for ttl.
func WithCache(size int, ttl time.Duration) Option {
	return func(s *Service) {
		if size <= 0 {
			return
		}
		s.cache = expirable.NewLRU[string, *CompleteAnalysisResults](size, nil, ttl)
		s.cacheTTL = ttl
	}
}

// WithStats persists cache and performance counters.
func WithStats(st *stats.Storage) Option {
	return func(s *Service) { s.stats = st }
}

// WithMetrics records Prometheus metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithRecorder hands every fresh report to r.
func WithRecorder(r ReportRecorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithTimeout bounds a whole analysis.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithAggregator replaces the default scorer set.
func WithAggregator(a *Aggregator) Option {
	return func(s *Service) { s.aggregator = a }
}

// New returns a Service that downloads pages with fetcher.
func New(fetcher HTMLFetcher, opts ...Option) *Service {
	s := &Service{
		fetcher:    fetcher,
		aggregator: NewAggregator(),
		timeout:    defaultAnalysisTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Analyze produces the complete report for req. Exactly one of req.URL and
// req.HTML must be set. A failing performance measurement is logged and the
// performance slot stays nil; every other failure aborts the request.
func (s *Service) Analyze(ctx context.Context, req Request) (*CompleteAnalysisResults, error) {
	start := time.Now()
	res, err := s.analyze(ctx, req)
	s.metrics.ObserveAnalysis(time.Since(start))
	s.metrics.IncAnalysis(outcomeOf(err))
	return res, err
}

func (s *Service) analyze(ctx context.Context, req Request) (*CompleteAnalysisResults, error) {
	rawURL := strings.TrimSpace(req.URL)
	hasURL := rawURL != ""
	hasHTML := strings.TrimSpace(req.HTML) != ""

	switch {
	case !hasURL && !hasHTML:
		return nil, &ClientInputError{Message: "either url or html is required"}
	case hasURL && hasHTML:
		return nil, &ClientInputError{Message: "provide either url or html, not both"}
	}

	opts := req.Options
	if err := opts.Normalize(); err != nil {
		return nil, &ClientInputError{Message: err.Error()}
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var key string
	if hasURL && s.cache != nil {
		key = cacheKey(rawURL, opts)
		if cached, ok := s.cache.Get(key); ok {
			s.countCache(true)
			hit := cached.clone()
			hit.CacheStatus = cacheHit
			return hit, nil
		}
		s.countCache(false)
	}

	html := req.HTML
	if hasURL {
		if s.fetcher == nil {
			return nil, errors.New("no html fetcher configured")
		}
		fetchStart := time.Now()
		body, err := s.fetcher.FetchHTML(ctx, rawURL)
		s.metrics.ObserveFetch(time.Since(fetchStart))
		if err != nil {
			return nil, err
		}
		html = body
	}

	facts, err := Extract(html, rawURL)
	if err != nil {
		return nil, err
	}

	if opts.IncludePerformance {
		facts = facts.WithPerformance(s.measure(ctx, rawURL))
	}

	res, err := s.aggregator.Aggregate(facts, opts)
	if err != nil {
		slog.Error("analysis failed", "url", rawURL, "error", err)
		return nil, err
	}
	for c, r := range res.Categories {
		if r != nil {
			s.metrics.ObserveCategoryScore(string(c), r.Score)
		}
	}

	if s.recorder != nil {
		if err := s.recorder.Record(ctx, res); err != nil {
			slog.Warn("failed to record report", "url", rawURL, "error", err)
		}
	}

	if key != "" {
		res.CacheStatus = cacheMiss
		s.cache.Add(key, res.clone())
	}

	slog.Info("analysis complete", "url", rawURL, "overallScore", res.OverallScore)
	return res, nil
}

// measure returns performance metrics or nil when unavailable.
func (s *Service) measure(ctx context.Context, rawURL string) *PerformanceMetrics {
	switch {
	case s.performance == nil:
		slog.Info("performance requested but no performance source is configured")
		return nil
	case rawURL == "":
		slog.Info("performance skipped: no url to measure")
		return nil
	}

	m, err := s.performance.FetchPerformance(ctx, rawURL)
	if err == nil && m == nil {
		err = errors.New("no metrics returned")
	}
	if err != nil {
		slog.Warn("performance fetch failed; continuing without performance data", "url", rawURL, "error", err)
		s.metrics.IncPerformanceFailure()
		s.countPerformance(false)
		return nil
	}
	s.countPerformance(true)
	return m
}

func (s *Service) countCache(hit bool) {
	s.metrics.IncCache(hit)
	if s.stats == nil {
		return
	}
	if hit {
		s.stats.IncrementStats(1, 0, 0, 0)
	} else {
		s.stats.IncrementStats(0, 1, 0, 0)
	}
}

func (s *Service) countPerformance(ok bool) {
	if s.stats == nil {
		return
	}
	if ok {
		s.stats.IncrementStats(0, 0, 1, 0)
	} else {
		s.stats.IncrementStats(0, 0, 0, 1)
	}
}

// cacheKey hashes the URL together with the options that shape the report.
func cacheKey(rawURL string, opts AnalysisOptions) string {
	o, err := json.Marshal(opts)
	if err != nil {
		o = []byte(fmt.Sprintf("%+v", opts))
	}
	hash := md5.Sum(append([]byte(rawURL+"\x00"), o...))
	return hex.EncodeToString(hash[:])
}

// GetCacheStats reports cache occupancy and this month's hit counters.
func (s *Service) GetCacheStats() CacheStats {
	out := CacheStats{Enabled: s.cache != nil, TTL: s.cacheTTL}
	if s.cache != nil {
		out.Entries = s.cache.Len()
	}
	if s.stats != nil {
		current := s.stats.GetCurrentStats()
		out.CacheHits = current.CacheHits
		out.CacheMisses = current.CacheMisses

		out.Monthly = make(map[string]stats.MonthlyStats)
		for _, month := range s.stats.GetAllMonths() {
			if m, ok := s.stats.GetMonthlyStats(month); ok {
				out.Monthly[month] = m
			}
		}
	}
	return out
}

// ClearCache drops every cached report.
func (s *Service) ClearCache() {
	if s.cache != nil {
		s.cache.Purge()
	}
}

// Shutdown releases the cache and flushes the statistics storage.
func (s *Service) Shutdown() error {
	if s == nil {
		return nil
	}
	s.ClearCache()
	if s.stats != nil {
		if err := s.stats.Flush(); err != nil {
			return fmt.Errorf("failed to shutdown stats storage: %w", err)
		}
	}
	return nil
}

func outcomeOf(err error) string {
	if err == nil {
		return metrics.OutcomeOK
	}
	var (
		clientErr     *ClientInputError
		extractionErr *ExtractionError
		analysisErr   *AnalysisError
	)
	switch {
	case errors.As(err, &clientErr):
		return metrics.OutcomeClientError
	case errors.As(err, &extractionErr):
		return metrics.OutcomeExtractionError
	case errors.As(err, &analysisErr):
		return metrics.OutcomeAnalysisError
	}
	return metrics.OutcomeFetchError
}
