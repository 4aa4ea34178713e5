package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/seo-optimizer/seo-analysis/analyzer"
	"github.com/seo-optimizer/seo-analysis/fetcher"
	"github.com/seo-optimizer/seo-analysis/logging"
	"github.com/seo-optimizer/seo-analysis/metrics"
	"github.com/seo-optimizer/seo-analysis/middleware"
	"github.com/seo-optimizer/seo-analysis/reports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const page = `<!DOCTYPE html>
<html lang="en">
<head>
  <title>Handmade Ceramic Mugs | Studio Clay</title>
  <meta name="description" content="Browse handmade ceramic mugs glazed and fired in our studio.">
  <meta name="viewport" content="width=device-width, initial-scale=1">
</head>
<body>
  <h1>Handmade ceramic mugs</h1>
  <p>Every mug is thrown on the wheel and glazed by hand.</p>
  <img src="/mug.jpg" alt="Blue mug">
  <a href="/shop">Shop</a>
</body>
</html>`

func init() {
	gin.SetMode(gin.TestMode)
}

type stubFetcher struct {
	html string
	err  error
}

func (f *stubFetcher) FetchHTML(_ context.Context, _ string) (string, error) {
	return f.html, f.err
}

type failingPerformance struct{}

func (failingPerformance) FetchPerformance(_ context.Context, url string) (*analyzer.PerformanceMetrics, error) {
	return nil, &fetcher.PerformanceError{URL: url, Err: errors.New("browser crashed")}
}

type testServer struct {
	router *gin.Engine
}

func newTestServer(t *testing.T, f analyzer.HTMLFetcher, burst int) *testServer {
	t.Helper()

	m := metrics.New()
	svc := analyzer.New(f,
		analyzer.WithPerformanceFetcher(failingPerformance{}),
		analyzer.WithMetrics(m),
	)
	limiter := middleware.NewRateLimiter(0.001, burst)
	t.Cleanup(limiter.Stop)

	r := NewRouter(Deps{
		Analyzer:    svc,
		Reports:     reports.NewStubStore(0),
		Stats:       logging.NewStatistics(filepath.Join(t.TempDir(), "statistics.json"), false),
		Metrics:     m,
		RateLimiter: limiter,
	})
	return &testServer{router: r}
}

func (s *testServer) do(method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	s.router.ServeHTTP(w, req)
	return w
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body["error"]
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, &stubFetcher{html: page}, 10)

	w := s.do(http.MethodGet, "/api/health", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestAnalyzeValidation(t *testing.T) {
	s := newTestServer(t, &stubFetcher{html: page}, 10)

	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{"missing url and html", `{}`, "required"},
		{"both url and html", `{"url":"https://example.com","html":"<p>x</p>"}`, "not both"},
		{"blank html", `{"html":"   "}`, "required"},
		{"malformed json", `{"url":`, "Invalid request body"},
		{"unknown device", `{"html":"<p>x</p>","options":{"device":"tablet"}}`, "device"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(http.MethodPost, "/api/analyze", tt.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, errorMessage(t, w), tt.wantMsg)
		})
	}
}

func TestAnalyzeHTML(t *testing.T) {
	s := newTestServer(t, &stubFetcher{err: errors.New("fetcher must not be called")}, 10)

	w := s.do(http.MethodPost, "/api/analyze", `{"html":`+mustJSON(t, page)+`}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res analyzer.CompleteAnalysisResults
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Empty(t, res.URL)
	assert.GreaterOrEqual(t, res.OverallScore, 0)
	assert.LessOrEqual(t, res.OverallScore, 100)
	assert.NotNil(t, res.Categories[analyzer.CategoryMeta])
	assert.Nil(t, res.Categories[analyzer.CategoryPerformance])
}

func TestAnalyzePerformanceFailureStillSucceeds(t *testing.T) {
	s := newTestServer(t, &stubFetcher{html: page}, 10)

	w := s.do(http.MethodPost, "/api/analyze",
		`{"url":"https://example.com","options":{"includePerformance":true}}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	categories, ok := body["categories"].(map[string]any)
	require.True(t, ok)
	perf, present := categories["performance"]
	assert.True(t, present)
	assert.Nil(t, perf)
	assert.Equal(t, "https://example.com", body["url"])
}

func TestAnalyzeUpstreamFailureIsClientError(t *testing.T) {
	fetchErr := &fetcher.FetchError{URL: "https://example.com/missing", StatusCode: 404, Status: "Not Found"}
	s := newTestServer(t, &stubFetcher{err: fetchErr}, 10)

	w := s.do(http.MethodPost, "/api/analyze", `{"url":"https://example.com/missing"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, errorMessage(t, w), "404")
}

func TestAnalyzeEmptyPageIsServerError(t *testing.T) {
	s := newTestServer(t, &stubFetcher{html: ""}, 10)

	w := s.do(http.MethodPost, "/api/analyze", `{"url":"https://example.com"}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotEmpty(t, errorMessage(t, w))
}

func TestListReports(t *testing.T) {
	s := newTestServer(t, &stubFetcher{html: page}, 10)

	w := s.do(http.MethodGet, "/api/reports?limit=5", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"reports":[]}`, w.Body.String())

	w = s.do(http.MethodGet, "/api/reports?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStatisticsIncludesCache(t *testing.T) {
	s := newTestServer(t, &stubFetcher{html: page}, 10)

	s.do(http.MethodPost, "/api/analyze", `{"html":"<title>x</title>"}`)
	w := s.do(http.MethodGet, "/api/statistics", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.EqualValues(t, 1, body["totalRequests"])
	assert.Contains(t, body, "cache")
	assert.NotContains(t, body, "popularUrls")
}

func TestRateLimitOnAnalyze(t *testing.T) {
	s := newTestServer(t, &stubFetcher{html: page}, 2)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := s.do(http.MethodPost, "/api/analyze", `{}`)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusBadRequest, http.StatusBadRequest, http.StatusTooManyRequests}, codes)

	w := s.do(http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, w.Code, "health is not rate limited")
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, &stubFetcher{html: page}, 10)

	s.do(http.MethodGet, "/api/health", "")
	w := s.do(http.MethodGet, "/metrics", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "seo_http_requests_total")
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}
