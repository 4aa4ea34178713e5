package analyzer

import (
	"fmt"
	"time"
)

// Category is one fixed dimension of the SEO analysis.
type Category string

const (
	CategoryMeta           Category = "meta"
	CategoryContent        Category = "content"
	CategoryKeywords       Category = "keywords"
	CategoryImages         Category = "images"
	CategoryHeadings       Category = "headings"
	CategoryLinks          Category = "links"
	CategoryPerformance    Category = "performance"
	CategoryMobile         Category = "mobile"
	CategorySecurity       Category = "security"
	CategorySocial         Category = "social"
	CategoryStructuredData Category = "structuredData"
)

// Categories lists every category in report order.
var Categories = []Category{
	CategoryMeta,
	CategoryContent,
	CategoryKeywords,
	CategoryImages,
	CategoryHeadings,
	CategoryLinks,
	CategoryPerformance,
	CategoryMobile,
	CategorySecurity,
	CategorySocial,
	CategoryStructuredData,
}

// Valid reports whether c belongs to the closed category set.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// ParseCategory converts a name into a Category, rejecting unknown names.
// The hyphenated "structured-data" is accepted for CategoryStructuredData.
func ParseCategory(name string) (Category, error) {
	if name == "structured-data" {
		return CategoryStructuredData, nil
	}
	c := Category(name)
	if !c.Valid() {
		return "", fmt.Errorf("unknown category %q", name)
	}
	return c, nil
}

// Status tags a feedback entry.
type Status string

const (
	StatusCritical Status = "critical"
	StatusWarning  Status = "warning"
	StatusInfo     Status = "info"
	StatusGood     Status = "good"
)

// rank orders statuses for presentation, most severe first.
func (s Status) rank() int {
	switch s {
	case StatusCritical:
		return 0
	case StatusWarning:
		return 1
	case StatusInfo:
		return 2
	default:
		return 3
	}
}

// Image is one img element of the page.
type Image struct {
	Src    string `json:"src"`
	Alt    string `json:"alt"`
	Width  *int   `json:"width,omitempty"`
	Height *int   `json:"height,omitempty"`
}

// Link is one anchor element of the page.
type Link struct {
	Href       string `json:"href"`
	Text       string `json:"text"`
	IsExternal bool   `json:"isExternal"`
}

// PerformanceMetrics holds web-vitals style measurements for a page.
type PerformanceMetrics struct {
	LCP          float64 `json:"lcp"`  // ms
	FID          float64 `json:"fid"`  // ms
	CLS          float64 `json:"cls"`  // unitless
	TTFB         float64 `json:"ttfb"` // ms
	PageSize     int64   `json:"pageSize"`
	RequestCount int     `json:"requests"`

	FCP              *float64 `json:"fcp,omitempty"`
	TBT              *float64 `json:"tbt,omitempty"`
	DOMContentLoaded *float64 `json:"domContentLoaded,omitempty"`

	// Source is "mock" for generated values and "browser" for measured ones.
	Source string `json:"source"`
}

// PageFacts is the normalized record extracted from one HTML document.
// It is built once by Extract and never modified afterwards.
type PageFacts struct {
	URL         string              `json:"url"`
	Title       string              `json:"title"`
	Meta        map[string]string   `json:"meta"`
	Headings    map[string][]string `json:"headings"`
	Images      []Image             `json:"images"`
	Links       []Link              `json:"links"`
	Content     string              `json:"content"`
	HTML        string              `json:"-"`
	Performance *PerformanceMetrics `json:"performance,omitempty"`

	Lang           string   `json:"lang"`
	Canonical      string   `json:"canonical"`
	Charset        string   `json:"charset"`
	StructuredData []string `json:"structuredData"`
	MicrodataItems int      `json:"microdataItems"`
}

// WithPerformance returns a copy of the facts carrying metrics.
func (p *PageFacts) WithPerformance(m *PerformanceMetrics) *PageFacts {
	cp := *p
	cp.Performance = m
	return &cp
}

// Feedback is one status-tagged message produced by a scorer.
type Feedback struct {
	Message string `json:"message"`
	Status  Status `json:"status"`
}

// AnalysisResult is the outcome of one category scorer.
type AnalysisResult struct {
	Score    int            `json:"score"`
	Feedback []Feedback     `json:"feedback"`
	Data     map[string]any `json:"data"`
	Note     string         `json:"note,omitempty"`
}

// CompleteAnalysisResults is the report returned to callers.
type CompleteAnalysisResults struct {
	URL          string                       `json:"url"`
	OverallScore int                          `json:"overallScore"`
	Timestamp    time.Time                    `json:"timestamp"`
	Categories   map[Category]*AnalysisResult `json:"categories"`
	CacheStatus  string                       `json:"cacheStatus,omitempty"`
}

// clone returns a copy that shares no maps or slices with r. Values inside
// Data are copied shallowly.
func (r *CompleteAnalysisResults) clone() *CompleteAnalysisResults {
	cp := *r
	cp.Categories = make(map[Category]*AnalysisResult, len(r.Categories))
	for c, res := range r.Categories {
		if res == nil {
			cp.Categories[c] = nil
			continue
		}
		rc := *res
		if res.Feedback != nil {
			rc.Feedback = make([]Feedback, len(res.Feedback))
			copy(rc.Feedback, res.Feedback)
		}
		if res.Data != nil {
			rc.Data = make(map[string]any, len(res.Data))
			for k, v := range res.Data {
				rc.Data[k] = v
			}
		}
		cp.Categories[c] = &rc
	}
	return &cp
}

// Device selects the rendering target the mobile scorer assumes.
type Device string

const (
	DeviceDesktop Device = "desktop"
	DeviceMobile  Device = "mobile"
)

// AnalysisOptions toggles optional units of work.
type AnalysisOptions struct {
	IncludePerformance        bool     `json:"includePerformance"`
	IncludeKeywordSuggestions bool     `json:"includeKeywordSuggestions"`
	IncludeSocialAnalysis     bool     `json:"includeSocialAnalysis"`
	IncludeCompetitorAnalysis bool     `json:"includeCompetitorAnalysis"`
	CustomKeywords            []string `json:"customKeywords"`
	Locale                    string   `json:"locale"`
	Device                    Device   `json:"device"`
}

// Normalize applies defaults and validates the options.
func (o *AnalysisOptions) Normalize() error {
	switch o.Device {
	case "":
		o.Device = DeviceDesktop
	case DeviceDesktop, DeviceMobile:
	default:
		return fmt.Errorf("device must be %q or %q, got %q", DeviceMobile, DeviceDesktop, o.Device)
	}
	return nil
}
