package analyzer

import (
	"encoding/json"
	"net/url"
	"path"
	"sort"
	"strings"
)

const wideImageWidth = 640

var genericAnchorTexts = map[string]bool{
	"click here": true,
	"here":       true,
	"read more":  true,
	"more":       true,
	"link":       true,
	"this":       true,
	"learn more": true,
}

var socialHosts = map[string]string{
	"facebook.com":  "facebook",
	"twitter.com":   "twitter",
	"x.com":         "twitter",
	"linkedin.com":  "linkedin",
	"instagram.com": "instagram",
	"youtube.com":   "youtube",
	"github.com":    "github",
	"tiktok.com":    "tiktok",
	"pinterest.com": "pinterest",
}

func scoreImages(facts *PageFacts, _ AnalysisOptions) (AnalysisResult, error) {
	card := newScoreCard(100)

	total := len(facts.Images)
	missingAlt, missingDims, emptySrc, filenameAlt := 0, 0, 0, 0
	for _, img := range facts.Images {
		alt := strings.TrimSpace(img.Alt)
		if alt == "" {
			missingAlt++
		} else if img.Src != "" && strings.EqualFold(alt, path.Base(img.Src)) {
			filenameAlt++
		}
		if img.Width == nil || img.Height == nil {
			missingDims++
		}
		if strings.TrimSpace(img.Src) == "" {
			emptySrc++
		}
	}

	if total == 0 {
		card.deduct(10, StatusInfo, "No images found; relevant images help engagement and image search")
	} else {
		coverage := float64(total-missingAlt) / float64(total)
		switch {
		case missingAlt == 0:
			card.add(StatusGood, "All %d images have alt text", total)
		case coverage < 0.5:
			card.deduct(ratioDeduction(50, 10, missingAlt, total), StatusCritical, "%d of %d images are missing alt text", missingAlt, total)
		default:
			card.deduct(ratioDeduction(50, 10, missingAlt, total), StatusWarning, "Add alt text to all images (%d missing)", missingAlt)
		}
		if missingDims > 0 {
			card.deduct(ratioDeduction(20, 5, missingDims, total), StatusWarning, "%d images lack explicit width/height, which causes layout shift", missingDims)
		}
		if emptySrc > 0 {
			card.deduct(min(30, 10*emptySrc), StatusCritical, "%d images have no src", emptySrc)
		}
		if filenameAlt > 0 {
			card.add(StatusInfo, "%d images use their file name as alt text", filenameAlt)
		}
		card.set("altCoverage", coverage)
	}

	card.set("total", total)
	card.set("withAlt", total-missingAlt)
	card.set("missingAlt", missingAlt)
	card.set("withDimensions", total-missingDims)
	card.set("emptySrc", emptySrc)
	return card.result(), nil
}

func scoreLinks(facts *PageFacts, _ AnalysisOptions) (AnalysisResult, error) {
	card := newScoreCard(100)

	internal, external, emptyHref, generic, noText := 0, 0, 0, 0, 0
	genericExample := ""
	for _, l := range facts.Links {
		href := strings.TrimSpace(l.Href)
		lower := strings.ToLower(href)
		if href == "" || href == "#" || strings.HasPrefix(lower, "javascript:") {
			emptyHref++
			continue
		}
		if l.IsExternal {
			external++
		} else {
			internal++
		}
		text := strings.ToLower(l.Text)
		switch {
		case text == "":
			noText++
		case genericAnchorTexts[text]:
			generic++
			if genericExample == "" {
				genericExample = l.Text
			}
		}
	}

	switch {
	case internal == 0:
		card.deduct(40, StatusCritical, "Add internal links to improve site navigation and crawlability")
	case internal < 3:
		card.deduct(25, StatusWarning, "Add more internal links (found %d, aim for at least 3-5)", internal)
	default:
		card.add(StatusGood, "Page has %d internal links", internal)
	}

	switch {
	case external == 0:
		card.deduct(10, StatusInfo, "Add relevant external links to authoritative sources")
	case external > 50:
		card.deduct(15, StatusWarning, "Consider reducing the number of external links (current: %d)", external)
	default:
		card.add(StatusGood, "Page has %d external links", external)
	}

	if emptyHref > 0 {
		card.deduct(min(15, 3*emptyHref), StatusWarning, "%d links have an empty, \"#\" or javascript: href", emptyHref)
	}
	if generic > 0 {
		card.deduct(min(10, 2*generic), StatusWarning, "%d links use generic anchor text such as %q", generic, genericExample)
	}
	if noText > 0 {
		card.add(StatusInfo, "%d links have no text; make sure linked images carry alt text", noText)
	}

	card.set("total", len(facts.Links))
	card.set("internal", internal)
	card.set("external", external)
	card.set("emptyHref", emptyHref)
	card.set("genericAnchors", generic)
	return card.result(), nil
}

func scoreMobile(facts *PageFacts, opts AnalysisOptions) (AnalysisResult, error) {
	card := newScoreCard(100)
	weight := 1.0
	if opts.Device == DeviceMobile {
		weight = 1.5
	}

	viewport := strings.ToLower(strings.ReplaceAll(facts.Meta["viewport"], " ", ""))
	optimized := strings.Contains(viewport, "width=device-width")
	switch {
	case viewport == "":
		card.deduct(scaled(40, weight), StatusCritical, "Add a proper viewport meta tag for mobile optimization (e.g., <meta name=\"viewport\" content=\"width=device-width, initial-scale=1\">)")
	case !optimized:
		card.deduct(scaled(25, weight), StatusWarning, "Viewport does not use width=device-width")
	default:
		card.add(StatusGood, "Viewport is configured for mobile devices")
	}

	if strings.Contains(viewport, "user-scalable=no") || strings.Contains(viewport, "user-scalable=0") ||
		strings.Contains(viewport, "maximum-scale=1,") || strings.HasSuffix(viewport, "maximum-scale=1") ||
		strings.Contains(viewport, "maximum-scale=1.0") {
		card.deduct(scaled(15, weight), StatusWarning, "Viewport disables zooming, which hurts accessibility")
	}

	wide := 0
	for _, img := range facts.Images {
		if img.Width != nil && *img.Width > wideImageWidth {
			wide++
		}
	}
	if wide > 0 {
		card.deduct(scaled(10, weight), StatusWarning, "%d images have fixed widths over %dpx", wide, wideImageWidth)
	}

	if _, ok := facts.Meta["theme-color"]; ok {
		card.add(StatusGood, "Theme color is declared for mobile browsers")
	}

	card.set("viewport", facts.Meta["viewport"])
	card.set("mobileOptimized", optimized)
	card.set("device", string(opts.Device))
	card.set("wideImages", wide)
	return card.result(), nil
}

var (
	openGraphTags = []struct {
		key    string
		points int
	}{
		{"og:title", 20},
		{"og:description", 15},
		{"og:image", 20},
		{"og:url", 10},
		{"og:type", 5},
	}
	twitterTags = []struct {
		key      string
		fallback string
		points   int
	}{
		{"twitter:card", "", 15},
		{"twitter:title", "og:title", 5},
		{"twitter:image", "og:image", 10},
	}
)

func scoreSocial(facts *PageFacts, opts AnalysisOptions) (AnalysisResult, error) {
	card := newScoreCard(100)

	openGraph := make(map[string]string)
	for _, tag := range openGraphTags {
		v := strings.TrimSpace(facts.Meta[tag.key])
		openGraph[tag.key] = v
		if v == "" {
			status := StatusWarning
			if tag.points >= 20 {
				status = StatusCritical
			}
			card.deduct(tag.points, status, "Add the %s Open Graph tag", tag.key)
		}
	}
	if img := openGraph["og:image"]; img != "" {
		if u, err := url.Parse(img); err != nil || !u.IsAbs() {
			card.deduct(5, StatusWarning, "og:image should be an absolute URL")
		}
	}

	twitter := make(map[string]string)
	for _, tag := range twitterTags {
		v := strings.TrimSpace(facts.Meta[tag.key])
		twitter[tag.key] = v
		if v != "" {
			continue
		}
		if tag.fallback != "" && openGraph[tag.fallback] != "" {
			card.add(StatusInfo, "%s is missing; %s will be used instead", tag.key, tag.fallback)
			continue
		}
		card.deduct(tag.points, StatusWarning, "Add the %s tag", tag.key)
	}

	if card.score == 100 {
		card.add(StatusGood, "Open Graph and Twitter Card tags are complete")
	}

	if opts.IncludeSocialAnalysis {
		profiles := socialProfiles(facts.Links)
		card.set("profiles", profiles)
		if len(profiles) == 0 {
			card.add(StatusInfo, "No links to social profiles found")
		} else {
			card.add(StatusInfo, "Links to %d social networks found", len(profiles))
		}
	}

	card.set("openGraph", openGraph)
	card.set("twitter", twitter)
	return card.result(), nil
}

// socialProfiles maps network name to the first external link pointing at it.
func socialProfiles(links []Link) map[string]string {
	profiles := make(map[string]string)
	for _, l := range links {
		if !l.IsExternal {
			continue
		}
		u, err := url.Parse(strings.TrimSpace(l.Href))
		if err != nil {
			continue
		}
		host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
		network, ok := socialHosts[host]
		if !ok {
			continue
		}
		if _, seen := profiles[network]; !seen {
			profiles[network] = l.Href
		}
	}
	return profiles
}

func scoreStructuredData(facts *PageFacts, _ AnalysisOptions) (AnalysisResult, error) {
	card := newScoreCard(100)

	typeSet := make(map[string]bool)
	invalid := 0
	for i, block := range facts.StructuredData {
		var doc any
		if err := json.Unmarshal([]byte(block), &doc); err != nil {
			invalid++
			card.deduct(30, StatusCritical, "JSON-LD block %d is not valid JSON", i+1)
			continue
		}
		if !hasJSONLDContext(doc) {
			card.deduct(10, StatusWarning, "JSON-LD block %d has no @context", i+1)
		}
		collectJSONLDTypes(doc, typeSet)
	}

	types := make([]string, 0, len(typeSet))
	for t := range typeSet {
		types = append(types, t)
	}
	sort.Strings(types)

	switch {
	case len(facts.StructuredData) == 0 && facts.MicrodataItems == 0:
		card.score = 40
		card.add(StatusWarning, "No structured data found; add schema.org JSON-LD")
	case len(facts.StructuredData) == 0:
		card.score = 80
		card.add(StatusInfo, "Microdata found; JSON-LD is the recommended format")
	case invalid < len(facts.StructuredData) && len(types) > 0:
		card.add(StatusGood, "Structured data declares: %s", strings.Join(types, ", "))
	case invalid < len(facts.StructuredData):
		card.deduct(10, StatusWarning, "JSON-LD does not declare any @type")
	}

	card.set("jsonLdBlocks", len(facts.StructuredData))
	card.set("invalidBlocks", invalid)
	card.set("types", types)
	card.set("microdataItems", facts.MicrodataItems)
	return card.result(), nil
}

func hasJSONLDContext(doc any) bool {
	switch v := doc.(type) {
	case map[string]any:
		_, ok := v["@context"]
		return ok
	case []any:
		for _, item := range v {
			if !hasJSONLDContext(item) {
				return false
			}
		}
		return len(v) > 0
	}
	return false
}

func collectJSONLDTypes(doc any, types map[string]bool) {
	switch v := doc.(type) {
	case map[string]any:
		switch t := v["@type"].(type) {
		case string:
			types[t] = true
		case []any:
			for _, item := range t {
				if s, ok := item.(string); ok {
					types[s] = true
				}
			}
		}
		if graph, ok := v["@graph"]; ok {
			collectJSONLDTypes(graph, types)
		}
	case []any:
		for _, item := range v {
			collectJSONLDTypes(item, types)
		}
	}
}
