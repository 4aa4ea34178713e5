package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/seo-optimizer/seo-analysis/logging"
	"github.com/seo-optimizer/seo-analysis/metrics"
)

const (
	analyzePath = "/api/analyze"

	// TargetURLKey is the context key under which the analyze handler
	// stores the requested URL.
	TargetURLKey = "targetURL"

	saveEvery = 100
)

// Stats tracks visitors and analysis requests, and counts every request in
// the Prometheus metrics.
func Stats(stats *logging.Statistics, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		stats.TrackVisitor(c.ClientIP())

		c.Next()

		status := c.Writer.Status()
		m.IncHTTPRequest(c.Request.Method, c.FullPath(), status)

		if c.Request.URL.Path != analyzePath || c.Request.Method != http.MethodPost {
			return
		}

		loadTime := float64(time.Since(start).Milliseconds())
		stats.TrackAnalysis(c.GetString(TargetURLKey), loadTime, status >= http.StatusBadRequest)

		if stats.TotalRequests()%saveEvery == 0 {
			go func() {
				if err := stats.Save(); err != nil {
					slog.Warn("failed to save statistics", "error", err)
				}
			}()
		}
	}
}
