package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/seo-optimizer/seo-analysis/analyzer"
	"github.com/seo-optimizer/seo-analysis/fetcher"
	"github.com/seo-optimizer/seo-analysis/logging"
	"github.com/seo-optimizer/seo-analysis/middleware"
	"github.com/seo-optimizer/seo-analysis/reports"
)

// Health returns a handler for GET /api/health.
func Health() gin.HandlerFunc {
	return func(c *gin.Context) {
		slog.Debug("health check", "client", c.ClientIP())
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	}
}

// Analyze returns a handler for POST /api/analyze.
func Analyze(a Analyzer) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req analyzer.Request
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid request body: " + err.Error(),
			})
			return
		}
		c.Set(middleware.TargetURLKey, req.URL)

		slog.Info("analyze request received",
			"client", c.ClientIP(),
			"url", req.URL,
			"htmlBytes", len(req.HTML),
		)

		res, err := a.Analyze(c.Request.Context(), req)
		if err != nil {
			status, msg := errorResponse(err)
			if status >= http.StatusInternalServerError {
				slog.Error("analysis request failed", "url", req.URL, "error", err)
			}
			c.JSON(status, gin.H{
				"error": msg,
			})
			return
		}

		c.JSON(http.StatusOK, res)
	}
}

// errorResponse maps a pipeline error to a status code and message.
func errorResponse(err error) (int, string) {
	var (
		clientErr     *analyzer.ClientInputError
		fetchErr      *fetcher.FetchError
		extractionErr *analyzer.ExtractionError
		analysisErr   *analyzer.AnalysisError
	)
	switch {
	case errors.As(err, &clientErr):
		return http.StatusBadRequest, clientErr.Error()
	case errors.As(err, &fetchErr):
		return http.StatusBadRequest, fetchErr.Error()
	case errors.As(err, &extractionErr):
		return http.StatusInternalServerError, extractionErr.Error()
	case errors.As(err, &analysisErr):
		return http.StatusInternalServerError, analysisErr.Error()
	default:
		return http.StatusInternalServerError, "Failed to analyze page: " + err.Error()
	}
}

// ListReports returns a handler for GET /api/reports.
func ListReports(store reports.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := 0
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				c.JSON(http.StatusBadRequest, gin.H{
					"error": "limit must be a non-negative integer",
				})
				return
			}
			limit = n
		}

		list, err := store.List(c.Request.Context(), limit)
		if err != nil {
			slog.Error("failed to list reports", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to fetch reports",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"reports": list,
		})
	}
}

// Statistics returns a handler for GET /api/statistics.
func Statistics(stats *logging.Statistics, a Analyzer) gin.HandlerFunc {
	return func(c *gin.Context) {
		out := stats.GetStatistics()
		if a != nil {
			out["cache"] = a.GetCacheStats()
		}
		c.JSON(http.StatusOK, out)
	}
}
