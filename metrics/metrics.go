package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Analysis outcomes used as label values.
const (
	OutcomeOK              = "ok"
	OutcomeClientError     = "client_error"
	OutcomeFetchError      = "fetch_error"
	OutcomeExtractionError = "extraction_error"
	OutcomeAnalysisError   = "analysis_error"
)

// Metrics bundles Prometheus collectors for the analysis service.
type Metrics struct {
	Registry                 *prometheus.Registry
	AnalysesTotal            *prometheus.CounterVec
	AnalysisDuration         prometheus.Histogram
	FetchDuration            prometheus.Histogram
	PerformanceFetchFailures prometheus.Counter
	CacheLookups             *prometheus.CounterVec
	CategoryScores           *prometheus.HistogramVec
	HTTPRequestsTotal        *prometheus.CounterVec
}

// New constructs and registers all metrics on a dedicated registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	analyses := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seo_analyses_total",
			Help: "Total analysis requests by outcome.",
		},
		[]string{"outcome"},
	)
	analysisDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "seo_analysis_duration_seconds",
			Help:    "End-to-end analysis latency.",
			Buckets: prometheus.DefBuckets,
		},
	)
	fetchDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "seo_fetch_duration_seconds",
			Help:    "Latency of fetching target page HTML.",
			Buckets: prometheus.DefBuckets,
		},
	)
	perfFailures := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "seo_performance_fetch_failures_total",
			Help: "Performance measurements that failed and were omitted from reports.",
		},
	)
	cacheLookups := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seo_report_cache_lookups_total",
			Help: "Report cache lookups by result.",
		},
		[]string{"result"},
	)
	categoryScores := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "seo_category_score",
			Help:    "Distribution of category scores.",
			Buckets: prometheus.LinearBuckets(10, 10, 10),
		},
		[]string{"category"},
	)
	httpRequests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seo_http_requests_total",
			Help: "HTTP requests served by route and status.",
		},
		[]string{"method", "route", "status"},
	)

	registry.MustRegister(analyses, analysisDuration, fetchDuration, perfFailures, cacheLookups, categoryScores, httpRequests)

	return &Metrics{
		Registry:                 registry,
		AnalysesTotal:            analyses,
		AnalysisDuration:         analysisDuration,
		FetchDuration:            fetchDuration,
		PerformanceFetchFailures: perfFailures,
		CacheLookups:             cacheLookups,
		CategoryScores:           categoryScores,
		HTTPRequestsTotal:        httpRequests,
	}
}

// IncAnalysis counts one finished analysis.
func (m *Metrics) IncAnalysis(outcome string) {
	if m == nil {
		return
	}
	m.AnalysesTotal.WithLabelValues(outcome).Inc()
}

// ObserveAnalysis records an analysis duration.
func (m *Metrics) ObserveAnalysis(d time.Duration) {
	if m == nil {
		return
	}
	m.AnalysisDuration.Observe(d.Seconds())
}

// ObserveFetch records an HTML fetch duration.
func (m *Metrics) ObserveFetch(d time.Duration) {
	if m == nil {
		return
	}
	m.FetchDuration.Observe(d.Seconds())
}

// IncPerformanceFailure counts a failed performance measurement.
func (m *Metrics) IncPerformanceFailure() {
	if m == nil {
		return
	}
	m.PerformanceFetchFailures.Inc()
}

// IncCache counts a cache lookup; hit selects the label.
func (m *Metrics) IncCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

// ObserveCategoryScore records the score of one category.
func (m *Metrics) ObserveCategoryScore(category string, score int) {
	if m == nil {
		return
	}
	m.CategoryScores.WithLabelValues(category).Observe(float64(score))
}

// IncHTTPRequest counts a served HTTP request.
func (m *Metrics) IncHTTPRequest(method, route string, status int) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}
