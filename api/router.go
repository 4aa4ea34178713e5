package api

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/seo-optimizer/seo-analysis/analyzer"
	"github.com/seo-optimizer/seo-analysis/logging"
	"github.com/seo-optimizer/seo-analysis/metrics"
	"github.com/seo-optimizer/seo-analysis/middleware"
	"github.com/seo-optimizer/seo-analysis/reports"
)

// Analyzer is the analysis service behind the HTTP API.
type Analyzer interface {
	Analyze(ctx context.Context, req analyzer.Request) (*analyzer.CompleteAnalysisResults, error)
	GetCacheStats() analyzer.CacheStats
}

// Deps are the collaborators the router wires into handlers.
type Deps struct {
	Analyzer    Analyzer
	Reports     reports.Store
	Stats       *logging.Statistics
	Metrics     *metrics.Metrics
	RateLimiter *middleware.RateLimiter
}

// NewRouter creates the gin engine.
//
// Middleware chain:
//
//	Global:    ErrorHandler -> CORS -> Stats (-> Logger in debug mode)
//	Protected: RateLimit
func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORS())
	r.Use(middleware.Stats(d.Stats, d.Metrics))
	if gin.Mode() == gin.DebugMode {
		r.Use(gin.Logger())
	}

	api := r.Group("/api")

	api.GET("/health", Health())
	api.GET("/statistics", Statistics(d.Stats, d.Analyzer))

	protected := api.Group("")
	if d.RateLimiter != nil {
		protected.Use(d.RateLimiter.RateLimit())
	}
	protected.POST("/analyze", Analyze(d.Analyzer))
	protected.GET("/reports", ListReports(d.Reports))

	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Metrics.Registry, promhttp.HandlerOpts{})))
	}

	return r
}
