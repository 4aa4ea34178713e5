package logging

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/seo-optimizer/seo-analysis/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerFormats(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, config.LogConfig{Level: "info", Format: "json"}).Info("hello", "k", "v")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "hello", line["msg"])
	assert.Equal(t, "v", line["k"])

	buf.Reset()
	New(&buf, config.LogConfig{Level: "warn", Format: "text"}).Info("dropped")
	assert.Empty(t, buf.String(), "info is below warn")
}

func TestCleanURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"https://example.com/", "https://example.com"},
		{"https://example.com/blog/post/?q=1#x", "https://example.com/blog/post"},
		{"http://localhost:8082/x", ""},
		{"http://127.0.0.1/x", ""},
		{"https://example.com/api/analyze", ""},
		{"", ""},
		{"not a url", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanURL(tt.in))
		})
	}
}

func TestStatistics(t *testing.T) {
	path := filepath.Join(t.TempDir(), "statistics.json")
	s := NewStatistics(path, true)

	s.TrackVisitor("1.2.3.4")
	s.TrackVisitor("1.2.3.4")
	s.TrackVisitor("5.6.7.8")
	s.TrackAnalysis("https://a.test/page", 100, false)
	s.TrackAnalysis("https://a.test/page", 300, true)
	s.TrackAnalysis("https://b.test", 200, false)
	s.TrackAnalysis("", 50, false)

	assert.Equal(t, 2, s.GetUniqueVisitorsCount())
	assert.Equal(t, 4, s.TotalRequests())
	assert.InDelta(t, 25.0, s.GetErrorRate(), 0.001)

	popular := s.GetPopularURLs(1)
	assert.Equal(t, map[string]int{"https://a.test/page": 2}, popular)

	summary := s.GetStatistics()
	assert.Equal(t, 4, summary["totalRequests"])
	assert.InDelta(t, 162.5, summary["averageLoadTime"], 0.001)
	assert.Contains(t, summary, "popularUrls")

	require.NoError(t, s.Save())

	reloaded := NewStatistics(path, false)
	assert.Equal(t, 4, reloaded.TotalRequests())
	assert.NotContains(t, reloaded.GetStatistics(), "popularUrls", "popular urls are dev mode only")
	assert.Equal(t, 2, reloaded.GetPopularURLs(5)["https://a.test/page"])
}

func TestStatisticsWithoutPath(t *testing.T) {
	s := NewStatistics("", false)
	s.TrackAnalysis("https://a.test", 1, false)
	assert.NoError(t, s.Save())
}
