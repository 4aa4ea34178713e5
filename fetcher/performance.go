package fetcher

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/seo-optimizer/seo-analysis/analyzer"
	"github.com/seo-optimizer/seo-analysis/config"
)

// PerformanceError reports a failed performance measurement. Callers log it
// and continue without performance data.
type PerformanceError struct {
	URL string
	Err error
}

func (e *PerformanceError) Error() string {
	return fmt.Sprintf("performance measurement for %s failed: %v", e.URL, e.Err)
}

func (e *PerformanceError) Unwrap() error {
	return e.Err
}

// Source labels carried in PerformanceMetrics.Source.
const (
	SourceMock    = "mock"
	SourceBrowser = "browser"
)

// NewPerformanceFetcher selects the performance source for cfg.Mode. It
// returns nil in "off" mode. The returned close func is always non-nil.
func NewPerformanceFetcher(cfg config.PerformanceConfig) (analyzer.PerformanceFetcher, func() error) {
	switch cfg.Mode {
	case config.PerformanceBrowser:
		b := NewBrowserPerformanceFetcher(cfg)
		return b, b.Close
	case config.PerformanceOff:
		return nil, func() error { return nil }
	default:
		return NewMockPerformanceFetcher(cfg.MockDelay), func() error { return nil }
	}
}

// MockPerformanceFetcher returns simulated metrics after a fixed delay. The
// values are random within plausible ranges and are not a measurement.
type MockPerformanceFetcher struct {
	delay time.Duration
	rand  func() float64
}

// NewMockPerformanceFetcher returns a mock fetcher that waits delay before
// answering.
func NewMockPerformanceFetcher(delay time.Duration) *MockPerformanceFetcher {
	return &MockPerformanceFetcher{delay: delay, rand: rand.Float64}
}

// FetchPerformance simulates a measurement of url.
func (f *MockPerformanceFetcher) FetchPerformance(ctx context.Context, url string) (*analyzer.PerformanceMetrics, error) {
	if f.delay > 0 {
		timer := time.NewTimer(f.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, &PerformanceError{URL: url, Err: ctx.Err()}
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return nil, &PerformanceError{URL: url, Err: err}
	}

	between := func(lo, hi float64) float64 {
		return lo + f.rand()*(hi-lo)
	}

	return &analyzer.PerformanceMetrics{
		LCP:          between(1000, 4000),
		FID:          between(50, 250),
		CLS:          between(0, 0.3),
		TTFB:         between(200, 1000),
		PageSize:     int64(between(500, 3500)) * 1024,
		RequestCount: int(between(20, 120)),
		Source:       SourceMock,
	}, nil
}
