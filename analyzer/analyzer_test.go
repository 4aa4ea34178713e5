package analyzer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/seo-optimizer/seo-analysis/metrics"
	"github.com/seo-optimizer/seo-analysis/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	mu    sync.Mutex
	html  string
	err   error
	calls int
	block bool
}

func (f *fakeFetcher) FetchHTML(ctx context.Context, _ string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return f.html, f.err
}

func (f *fakeFetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakePerformance struct {
	metrics *PerformanceMetrics
	err     error
}

func (f *fakePerformance) FetchPerformance(context.Context, string) (*PerformanceMetrics, error) {
	return f.metrics, f.err
}

type fakeRecorder struct {
	mu      sync.Mutex
	reports []*CompleteAnalysisResults
	err     error
}

func (f *fakeRecorder) Record(_ context.Context, res *CompleteAnalysisResults) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reports = append(f.reports, res)
	return f.err
}

func TestAnalyzeRequestValidation(t *testing.T) {
	svc := New(&fakeFetcher{html: samplePage})

	tests := []struct {
		name string
		req  Request
	}{
		{"neither", Request{}},
		{"whitespace only", Request{URL: "  ", HTML: "\n"}},
		{"both", Request{URL: "https://example.com", HTML: samplePage}},
		{"bad device", Request{HTML: samplePage, Options: AnalysisOptions{Device: "tablet"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := svc.Analyze(context.Background(), tt.req)
			assert.Nil(t, res)
			var clientErr *ClientInputError
			assert.True(t, errors.As(err, &clientErr), "got %v", err)
		})
	}
}

func TestAnalyzeHTML(t *testing.T) {
	fetcher := &fakeFetcher{}
	svc := New(fetcher, WithCache(10, time.Minute))

	res, err := svc.Analyze(context.Background(), Request{HTML: samplePage})
	require.NoError(t, err)
	assert.Equal(t, 0, fetcher.Calls())
	assert.Equal(t, "", res.URL)
	assert.Len(t, res.Categories, len(Categories))
	assert.Empty(t, res.CacheStatus, "html reports are never cached")
	assert.Equal(t, string(DeviceDesktop), res.Categories[CategoryMobile].Data["device"])
}

func TestAnalyzeURL(t *testing.T) {
	fetcher := &fakeFetcher{html: samplePage}
	recorder := &fakeRecorder{}
	svc := New(fetcher, WithRecorder(recorder))

	res, err := svc.Analyze(context.Background(), Request{URL: "https://example.com/page"})
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/page", res.URL)
	assert.Equal(t, 1, fetcher.Calls())
	require.Len(t, recorder.reports, 1)
	assert.Same(t, res, recorder.reports[0])
}

func TestAnalyzeRecorderFailureIsTolerated(t *testing.T) {
	svc := New(&fakeFetcher{html: samplePage}, WithRecorder(&fakeRecorder{err: errors.New("db down")}))

	_, err := svc.Analyze(context.Background(), Request{URL: "https://example.com"})
	assert.NoError(t, err)
}

func TestAnalyzeFetchErrorPropagates(t *testing.T) {
	sentinel := errors.New("upstream 404")
	m := metrics.New()
	svc := New(&fakeFetcher{err: sentinel}, WithMetrics(m))

	res, err := svc.Analyze(context.Background(), Request{URL: "https://example.com/missing"})
	assert.Nil(t, res)
	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AnalysesTotal.WithLabelValues(metrics.OutcomeFetchError)))
}

func TestAnalyzeEmptyFetchedBodyIsExtractionError(t *testing.T) {
	svc := New(&fakeFetcher{html: "   "})

	_, err := svc.Analyze(context.Background(), Request{URL: "https://example.com"})
	var extractionErr *ExtractionError
	assert.True(t, errors.As(err, &extractionErr))
}

func TestAnalyzePerformance(t *testing.T) {
	good := &PerformanceMetrics{LCP: 1000, FID: 10, CLS: 0, TTFB: 100, PageSize: 1024, RequestCount: 5, Source: "mock"}

	t.Run("attached when measured", func(t *testing.T) {
		svc := New(&fakeFetcher{html: samplePage}, WithPerformanceFetcher(&fakePerformance{metrics: good}))
		res, err := svc.Analyze(context.Background(), Request{URL: "https://example.com", Options: AnalysisOptions{IncludePerformance: true}})
		require.NoError(t, err)
		require.NotNil(t, res.Categories[CategoryPerformance])
		assert.Equal(t, 100, res.Categories[CategoryPerformance].Score)
	})

	t.Run("failure downgrades to nil", func(t *testing.T) {
		m := metrics.New()
		st, err := stats.NewStorage(t.TempDir())
		require.NoError(t, err)
		defer st.Close()

		svc := New(&fakeFetcher{html: samplePage},
			WithPerformanceFetcher(&fakePerformance{err: errors.New("browser crashed")}),
			WithMetrics(m),
			WithStats(st),
		)
		res, err := svc.Analyze(context.Background(), Request{URL: "https://example.com", Options: AnalysisOptions{IncludePerformance: true}})
		require.NoError(t, err)
		v, ok := res.Categories[CategoryPerformance]
		assert.True(t, ok)
		assert.Nil(t, v)
		assert.Equal(t, 1.0, testutil.ToFloat64(m.PerformanceFetchFailures))
		assert.Equal(t, 1, st.GetCurrentStats().PerformanceFailed)
	})

	t.Run("not requested", func(t *testing.T) {
		perf := &fakePerformance{metrics: good}
		svc := New(&fakeFetcher{html: samplePage}, WithPerformanceFetcher(perf))
		res, err := svc.Analyze(context.Background(), Request{URL: "https://example.com"})
		require.NoError(t, err)
		assert.Nil(t, res.Categories[CategoryPerformance])
	})

	t.Run("html mode has nothing to measure", func(t *testing.T) {
		svc := New(nil, WithPerformanceFetcher(&fakePerformance{metrics: good}))
		res, err := svc.Analyze(context.Background(), Request{HTML: samplePage, Options: AnalysisOptions{IncludePerformance: true}})
		require.NoError(t, err)
		assert.Nil(t, res.Categories[CategoryPerformance])
	})
}

func TestAnalyzeCache(t *testing.T) {
	fetcher := &fakeFetcher{html: samplePage}
	st, err := stats.NewStorage(t.TempDir())
	require.NoError(t, err)
	defer st.Close()

	svc := New(fetcher, WithCache(10, time.Minute), WithStats(st))
	req := Request{URL: "https://example.com/page"}

	first, err := svc.Analyze(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "miss", first.CacheStatus)

	second, err := svc.Analyze(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "hit", second.CacheStatus)
	assert.Equal(t, first.OverallScore, second.OverallScore)
	assert.Equal(t, first.Timestamp, second.Timestamp)
	assert.Equal(t, 1, fetcher.Calls())

	req.Options.Device = DeviceMobile
	third, err := svc.Analyze(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "miss", third.CacheStatus, "options are part of the cache key")
	assert.Equal(t, 2, fetcher.Calls())

	cs := svc.GetCacheStats()
	assert.True(t, cs.Enabled)
	assert.Equal(t, 2, cs.Entries)
	assert.Equal(t, 1, cs.CacheHits)
	assert.Equal(t, 2, cs.CacheMisses)

	month := time.Now().Format("2006-01")
	require.Contains(t, cs.Monthly, month)
	assert.Equal(t, 1, cs.Monthly[month].CacheHits)

	require.NoError(t, svc.Shutdown())
	assert.Equal(t, 0, svc.GetCacheStats().Entries)
}

func TestAnalyzeCacheHitIsIndependentCopy(t *testing.T) {
	svc := New(&fakeFetcher{html: samplePage}, WithCache(10, time.Minute))
	req := Request{URL: "https://example.com/page"}

	first, err := svc.Analyze(context.Background(), req)
	require.NoError(t, err)
	want := first.Categories[CategoryMeta].Score
	require.NotEmpty(t, first.Categories[CategoryMeta].Feedback)
	first.Categories[CategoryMeta].Score = -1
	first.Categories[CategoryMeta].Feedback[0].Message = "changed"
	delete(first.Categories, CategoryLinks)

	second, err := svc.Analyze(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, want, second.Categories[CategoryMeta].Score)
	assert.NotEqual(t, "changed", second.Categories[CategoryMeta].Feedback[0].Message)
	assert.Contains(t, second.Categories, CategoryLinks)

	second.Categories[CategoryMeta].Score = -2
	third, err := svc.Analyze(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, want, third.Categories[CategoryMeta].Score)
}

func TestAnalyzeScorerFailureIsAnalysisError(t *testing.T) {
	scorers := defaultScorers()
	scorers[CategoryHeadings] = func(*PageFacts, AnalysisOptions) (AnalysisResult, error) {
		return AnalysisResult{}, errors.New("heading rules unavailable")
	}
	m := metrics.New()
	fetcher := &fakeFetcher{html: samplePage}
	svc := New(fetcher,
		WithAggregator(fixedAggregator(scorers)),
		WithCache(10, time.Minute),
		WithMetrics(m),
	)

	for i := 0; i < 2; i++ {
		res, err := svc.Analyze(context.Background(), Request{URL: "https://example.com"})
		assert.Nil(t, res)
		var analysisErr *AnalysisError
		require.True(t, errors.As(err, &analysisErr), "got %v", err)
		assert.Equal(t, CategoryHeadings, analysisErr.Category)
	}
	assert.Equal(t, 2, fetcher.Calls(), "failed reports are not cached")
	assert.Equal(t, 0, svc.GetCacheStats().Entries)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.AnalysesTotal.WithLabelValues(metrics.OutcomeAnalysisError)))
}

func TestAnalyzeTimeout(t *testing.T) {
	svc := New(&fakeFetcher{block: true}, WithTimeout(20*time.Millisecond))

	start := time.Now()
	_, err := svc.Analyze(context.Background(), Request{URL: "https://slow.example.com"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestCacheKey(t *testing.T) {
	a := cacheKey("https://example.com", AnalysisOptions{Device: DeviceDesktop})
	b := cacheKey("https://example.com", AnalysisOptions{Device: DeviceMobile})
	c := cacheKey("https://example.org", AnalysisOptions{Device: DeviceDesktop})

	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Equal(t, a, cacheKey("https://example.com", AnalysisOptions{Device: DeviceDesktop}))
}
