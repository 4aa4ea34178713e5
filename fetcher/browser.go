package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/seo-optimizer/seo-analysis/analyzer"
	"github.com/seo-optimizer/seo-analysis/config"
	"github.com/ysmood/gson"
)

const defaultBrowserTimeout = 20 * time.Second

// vitalsJS collects paint, layout shift, long task, navigation and resource
// timing entries once the page has loaded.
const vitalsJS = `() => new Promise((resolve) => {
	const out = { lcp: 0, cls: 0, tbt: 0, maxBlocking: 0 };
	try {
		new PerformanceObserver((list) => {
			const entries = list.getEntries();
			if (entries.length) out.lcp = entries[entries.length - 1].startTime;
		}).observe({ type: "largest-contentful-paint", buffered: true });
		new PerformanceObserver((list) => {
			for (const e of list.getEntries()) {
				if (!e.hadRecentInput) out.cls += e.value;
			}
		}).observe({ type: "layout-shift", buffered: true });
		new PerformanceObserver((list) => {
			for (const e of list.getEntries()) {
				const blocking = Math.max(0, e.duration - 50);
				out.tbt += blocking;
				out.maxBlocking = Math.max(out.maxBlocking, blocking);
			}
		}).observe({ type: "longtask", buffered: true });
	} catch (e) {}
	setTimeout(() => {
		const nav = performance.getEntriesByType("navigation")[0] || {};
		const paint = performance.getEntriesByName("first-contentful-paint")[0];
		const resources = performance.getEntriesByType("resource");
		let size = nav.transferSize || nav.encodedBodySize || 0;
		for (const r of resources) size += r.transferSize || r.encodedBodySize || 0;
		const fcp = paint ? paint.startTime : 0;
		resolve({
			lcp: out.lcp || fcp,
			cls: out.cls,
			tbt: out.tbt,
			fid: out.maxBlocking,
			fcp: fcp,
			ttfb: nav.responseStart || 0,
			dcl: nav.domContentLoadedEventEnd || 0,
			size: size,
			requests: resources.length + 1,
		});
	}, 500);
})`

// BrowserPerformanceFetcher measures pages in a headless Chromium driven by
// go-rod. The browser is launched on first use and shared; every measurement
// gets its own page which is closed afterwards.
type BrowserPerformanceFetcher struct {
	cfg config.PerformanceConfig

	mu      sync.Mutex
	browser *rod.Browser

	// launch starts Chromium and returns its control URL and a func that
	// kills the process.
	launch func() (string, func(), error)
}

// NewBrowserPerformanceFetcher returns a fetcher that launches Chromium lazily.
func NewBrowserPerformanceFetcher(cfg config.PerformanceConfig) *BrowserPerformanceFetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultBrowserTimeout
	}
	f := &BrowserPerformanceFetcher{cfg: cfg}
	f.launch = f.launchChromium
	return f
}

func (f *BrowserPerformanceFetcher) launchChromium() (string, func(), error) {
	l := launcher.New().
		Headless(true).
		NoSandbox(f.cfg.NoSandbox)
	if f.cfg.BrowserBin != "" {
		l = l.Bin(f.cfg.BrowserBin)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return "", nil, err
	}
	return controlURL, l.Kill, nil
}

func (f *BrowserPerformanceFetcher) connect() (*rod.Browser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.browser != nil {
		return f.browser, nil
	}

	controlURL, kill, err := f.launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	slog.Info("browser launched", "controlURL", controlURL)

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		kill()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}
	f.browser = browser
	return browser, nil
}

// FetchPerformance loads url and reads its timing entries.
func (f *BrowserPerformanceFetcher) FetchPerformance(ctx context.Context, url string) (*analyzer.PerformanceMetrics, error) {
	ctx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	browser, err := f.connect()
	if err != nil {
		return nil, &PerformanceError{URL: url, Err: err}
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, &PerformanceError{URL: url, Err: fmt.Errorf("failed to open page: %w", err)}
	}
	defer func() {
		if closeErr := page.Close(); closeErr != nil {
			slog.Debug("failed to close measurement page", "error", closeErr)
		}
	}()

	p := page.Context(ctx)
	if err := p.Navigate(url); err != nil {
		return nil, &PerformanceError{URL: url, Err: fmt.Errorf("navigation failed: %w", err)}
	}
	if err := p.WaitLoad(); err != nil {
		return nil, &PerformanceError{URL: url, Err: fmt.Errorf("page did not load: %w", err)}
	}

	res, err := p.Eval(vitalsJS)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, &PerformanceError{URL: url, Err: err}
		}
		return nil, &PerformanceError{URL: url, Err: fmt.Errorf("failed to read timing entries: %w", err)}
	}

	return metricsFromJSON(res.Value), nil
}

func metricsFromJSON(v gson.JSON) *analyzer.PerformanceMetrics {
	fcp := v.Get("fcp").Num()
	tbt := v.Get("tbt").Num()
	dcl := v.Get("dcl").Num()
	return &analyzer.PerformanceMetrics{
		LCP:              v.Get("lcp").Num(),
		FID:              v.Get("fid").Num(),
		CLS:              v.Get("cls").Num(),
		TTFB:             v.Get("ttfb").Num(),
		PageSize:         int64(v.Get("size").Num()),
		RequestCount:     v.Get("requests").Int(),
		FCP:              &fcp,
		TBT:              &tbt,
		DOMContentLoaded: &dcl,
		Source:           SourceBrowser,
	}
}

// Close shuts the browser down if it was launched.
func (f *BrowserPerformanceFetcher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.browser == nil {
		return nil
	}
	err := f.browser.Close()
	f.browser = nil
	return err
}
