package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/seo-optimizer/seo-analysis/config"
)

const (
	defaultUserAgent    = "Mozilla/5.0 (compatible; SEOAnalyzer/1.0)"
	defaultFetchTimeout = 15 * time.Second
)

// FetchError reports a target page that could not be retrieved, either
// because the upstream answered with a non-2xx status or because the request
// never completed.
type FetchError struct {
	URL        string
	StatusCode int
	Status     string
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("failed to fetch %s: %d %s", e.URL, e.StatusCode, e.Status)
	}
	return fmt.Sprintf("failed to fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// HTMLFetcher downloads page HTML with a fresh colly collector per call.
type HTMLFetcher struct {
	userAgent    string
	timeout      time.Duration
	maxBodyBytes int
	transport    http.RoundTripper
}

// NewHTMLFetcher builds a fetcher from the fetch configuration.
func NewHTMLFetcher(cfg config.FetchConfig) *HTMLFetcher {
	f := &HTMLFetcher{
		userAgent:    cfg.UserAgent,
		timeout:      cfg.Timeout,
		maxBodyBytes: cfg.MaxBodyBytes,
	}
	if f.userAgent == "" {
		f.userAgent = defaultUserAgent
	}
	if f.timeout <= 0 {
		f.timeout = defaultFetchTimeout
	}
	f.transport = &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   f.timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	return f
}

// WithTransport replaces the HTTP transport, mainly for tests.
func (f *HTMLFetcher) WithTransport(rt http.RoundTripper) *HTMLFetcher {
	f.transport = rt
	return f
}

// FetchHTML returns the body of rawURL. Only absolute http(s) URLs are
// accepted. ctx bounds the whole request.
func (f *HTMLFetcher) FetchHTML(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", &FetchError{URL: rawURL, Err: fmt.Errorf("invalid url: %w", err)}
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", &FetchError{URL: rawURL, Err: fmt.Errorf("unsupported url %q: must be an absolute http(s) url", rawURL)}
	}

	collector := colly.NewCollector(
		colly.UserAgent(f.userAgent),
		colly.AllowURLRevisit(),
		colly.MaxBodySize(f.maxBodyBytes),
	)
	collector.ParseHTTPErrorResponse = true
	collector.SetRequestTimeout(f.timeout)
	collector.WithTransport(&contextTransport{ctx: ctx, next: f.transport})

	var (
		body     string
		fetchErr error
		start    = time.Now()
	)

	collector.OnResponse(func(r *colly.Response) {
		if r.StatusCode < http.StatusOK || r.StatusCode >= http.StatusMultipleChoices {
			fetchErr = &FetchError{
				URL:        rawURL,
				StatusCode: r.StatusCode,
				Status:     http.StatusText(r.StatusCode),
			}
			return
		}
		body = string(r.Body)
	})

	collector.OnError(func(r *colly.Response, err error) {
		fe := &FetchError{URL: rawURL, Err: err}
		if r != nil && r.StatusCode != 0 {
			fe.StatusCode = r.StatusCode
			fe.Status = http.StatusText(r.StatusCode)
		}
		fetchErr = fe
	})

	if err := collector.Visit(u.String()); err != nil && fetchErr == nil {
		fetchErr = &FetchError{URL: rawURL, Err: err}
	}
	if fetchErr != nil {
		slog.Warn("page fetch failed", "url", rawURL, "error", fetchErr, "elapsed", time.Since(start))
		return "", fetchErr
	}

	slog.Debug("page fetched", "url", rawURL, "bytes", len(body), "elapsed", time.Since(start))
	return body, nil
}

// contextTransport binds outgoing requests to the caller's context so that
// cancelling the analysis aborts the download.
type contextTransport struct {
	ctx  context.Context
	next http.RoundTripper
}

func (t *contextTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.ctx != nil {
		if err := t.ctx.Err(); err != nil {
			return nil, err
		}
		req = req.WithContext(t.ctx)
	}
	return t.next.RoundTrip(req)
}
