package analyzer

import (
	"errors"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

// Rating of a single measured value against its thresholds.
const (
	ratingGood = "good"
	ratingPoor = "needs-improvement"
	ratingBad  = "poor"
)

// vitalBand describes the thresholds and weight of one performance metric.
type vitalBand struct {
	name   string
	label  string
	good   float64
	poor   float64
	points int
	unit   string
	value  func(*PerformanceMetrics) float64
	advice string
}

var vitalBands = []vitalBand{
	{
		name: "lcp", label: "Largest Contentful Paint", good: 2500, poor: 4000, points: 25, unit: "ms",
		value:  func(m *PerformanceMetrics) float64 { return m.LCP },
		advice: "optimize the hero image and server response time",
	},
	{
		name: "fid", label: "First Input Delay", good: 100, poor: 300, points: 15, unit: "ms",
		value:  func(m *PerformanceMetrics) float64 { return m.FID },
		advice: "break up long JavaScript tasks",
	},
	{
		name: "cls", label: "Cumulative Layout Shift", good: 0.1, poor: 0.25, points: 15,
		value:  func(m *PerformanceMetrics) float64 { return m.CLS },
		advice: "reserve space for images and embeds",
	},
	{
		name: "ttfb", label: "Time to First Byte", good: 800, poor: 1800, points: 15, unit: "ms",
		value:  func(m *PerformanceMetrics) float64 { return m.TTFB },
		advice: "use a CDN and cache server responses",
	},
	{
		name: "pageSize", label: "Page size", good: 1536, poor: 3072, points: 15, unit: "KB",
		value:  func(m *PerformanceMetrics) float64 { return float64(m.PageSize) / 1024 },
		advice: "compress images and minify CSS/JS",
	},
	{
		name: "requests", label: "Request count", good: 50, poor: 100, points: 15,
		value:  func(m *PerformanceMetrics) float64 { return float64(m.RequestCount) },
		advice: "bundle assets and lazy load non-critical resources",
	},
}

func scorePerformance(facts *PageFacts, _ AnalysisOptions) (AnalysisResult, error) {
	m := facts.Performance
	if m == nil {
		return AnalysisResult{}, errors.New("no performance metrics available")
	}
	card := newScoreCard(100)

	ratings := make(map[string]string, len(vitalBands))
	for _, band := range vitalBands {
		v := band.value(m)
		switch {
		case v <= band.good:
			ratings[band.name] = ratingGood
			card.add(StatusGood, "%s is good (%.4g%s)", band.label, v, band.unit)
		case v <= band.poor:
			ratings[band.name] = ratingPoor
			card.deduct(band.points/2, StatusWarning, "%s needs improvement (%.4g%s): %s", band.label, v, band.unit, band.advice)
		default:
			ratings[band.name] = ratingBad
			card.deduct(band.points, StatusCritical, "%s is poor (%.4g%s): %s", band.label, v, band.unit, band.advice)
		}
	}

	if m.Source == "mock" {
		card.note = "Performance metrics are simulated and not an authoritative measurement"
	}

	card.set("metrics", m)
	card.set("ratings", ratings)
	return card.result(), nil
}

var (
	selInsecureResources = cascadia.MustCompile(`img[src^="http://"], script[src^="http://"], iframe[src^="http://"], link[rel~="stylesheet"][href^="http://"]`)
	selBlankTargets      = cascadia.MustCompile(`a[target="_blank"]`)
	selInsecureForms     = cascadia.MustCompile(`form[action^="http://"]`)
)

func scoreSecurity(facts *PageFacts, _ AnalysisOptions) (AnalysisResult, error) {
	card := newScoreCard(100)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(facts.HTML))
	if err != nil {
		return AnalysisResult{}, err
	}

	https := false
	u, err := url.Parse(facts.URL)
	switch {
	case facts.URL == "" || err != nil || !u.IsAbs():
		card.add(StatusInfo, "Page URL unknown; transport security not assessed")
	case strings.EqualFold(u.Scheme, "https"):
		https = true
		card.add(StatusGood, "Page is served over HTTPS")
	default:
		card.deduct(40, StatusCritical, "Serve the page over HTTPS")
	}

	mixed := 0
	if https {
		mixed = doc.FindMatcher(selInsecureResources).Length()
		if mixed > 0 {
			card.deduct(25, StatusCritical, "%d resources are loaded over insecure HTTP (mixed content)", mixed)
		}
	}

	insecureForms := doc.FindMatcher(selInsecureForms).Length()
	if insecureForms > 0 {
		card.deduct(20, StatusCritical, "%d forms submit data over insecure HTTP", insecureForms)
	}

	unsafeBlank := 0
	doc.FindMatcher(selBlankTargets).Each(func(_ int, s *goquery.Selection) {
		rel := strings.ToLower(element{s.Nodes[0]}.attrOr("rel", ""))
		if !strings.Contains(rel, "noopener") && !strings.Contains(rel, "noreferrer") {
			unsafeBlank++
		}
	})
	if unsafeBlank > 0 {
		card.deduct(min(10, 2*unsafeBlank), StatusWarning, "%d links open a new tab without rel=\"noopener\"", unsafeBlank)
	}

	csp := false
	doc.FindMatcher(selMeta).Each(func(_ int, s *goquery.Selection) {
		if strings.EqualFold(element{s.Nodes[0]}.attrOr("http-equiv", ""), "content-security-policy") {
			csp = true
		}
	})
	if csp {
		card.add(StatusGood, "Content-Security-Policy is declared")
	} else {
		card.deduct(5, StatusInfo, "No Content-Security-Policy meta tag (it may still be sent as an HTTP header)")
	}

	if _, ok := facts.Meta["referrer"]; !ok {
		card.add(StatusInfo, "No referrer policy meta tag")
	}

	card.set("https", https)
	card.set("mixedContent", mixed)
	card.set("insecureForms", insecureForms)
	card.set("unsafeBlankTargets", unsafeBlank)
	card.set("contentSecurityPolicy", csp)
	return card.result(), nil
}
