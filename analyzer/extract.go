package analyzer

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

var (
	selTitle     = cascadia.MustCompile("title")
	selMeta      = cascadia.MustCompile("meta")
	selImages    = cascadia.MustCompile("img")
	selLinks     = cascadia.MustCompile("a")
	selBody      = cascadia.MustCompile("body")
	selHTML      = cascadia.MustCompile("html")
	selCanonical = cascadia.MustCompile(`link[rel~="canonical"]`)
	selJSONLD    = cascadia.MustCompile(`script[type="application/ld+json"]`)
	selItemscope = cascadia.MustCompile("[itemscope]")

	headingLevels = []string{"h1", "h2", "h3", "h4", "h5", "h6"}
	selHeadings   = map[string]cascadia.Selector{
		"h1": cascadia.MustCompile("h1"),
		"h2": cascadia.MustCompile("h2"),
		"h3": cascadia.MustCompile("h3"),
		"h4": cascadia.MustCompile("h4"),
		"h5": cascadia.MustCompile("h5"),
		"h6": cascadia.MustCompile("h6"),
	}

	// Subtrees never counted as visible content.
	hiddenElements = map[string]bool{
		"script":   true,
		"style":    true,
		"noscript": true,
		"template": true,
	}
)

// Extract parses rawHTML and builds the PageFacts for the page at baseURL.
func Extract(rawHTML, baseURL string) (*PageFacts, error) {
	if strings.TrimSpace(rawHTML) == "" {
		return nil, &ExtractionError{Message: "document is empty"}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, &ExtractionError{Message: "could not parse HTML", Err: err}
	}

	baseHost := ""
	if u, err := url.Parse(baseURL); err == nil {
		baseHost = u.Hostname()
	}

	facts := &PageFacts{
		URL:            baseURL,
		Title:          extractTitle(doc),
		Meta:           extractMeta(doc),
		Headings:       extractHeadings(doc),
		Images:         extractImages(doc),
		Links:          extractLinks(doc, baseHost),
		HTML:           rawHTML,
		StructuredData: extractJSONLD(doc),
		MicrodataItems: doc.FindMatcher(selItemscope).Length(),
	}

	if root := doc.FindMatcher(selHTML).First(); root.Length() > 0 {
		facts.Lang = strings.TrimSpace(element{root.Nodes[0]}.attrOr("lang", ""))
	}
	if canonical := doc.FindMatcher(selCanonical).First(); canonical.Length() > 0 {
		facts.Canonical = strings.TrimSpace(element{canonical.Nodes[0]}.attrOr("href", ""))
	}
	facts.Charset = extractCharset(doc)
	facts.Content = extractContent(doc)

	return facts, nil
}

func extractTitle(doc *goquery.Document) string {
	title := doc.FindMatcher(selTitle).First()
	if title.Length() == 0 {
		return ""
	}
	return element{title.Nodes[0]}.text()
}

// extractMeta keys each meta element by name, falling back to property.
// Later duplicates overwrite earlier ones.
func extractMeta(doc *goquery.Document) map[string]string {
	meta := make(map[string]string)
	doc.FindMatcher(selMeta).Each(func(_ int, s *goquery.Selection) {
		el := element{s.Nodes[0]}
		key := el.attrOr("name", "")
		if key == "" {
			key = el.attrOr("property", "")
		}
		content, hasContent := el.attr("content")
		if key == "" || !hasContent {
			return
		}
		meta[key] = content
	})
	return meta
}

func extractHeadings(doc *goquery.Document) map[string][]string {
	headings := make(map[string][]string, len(headingLevels))
	for _, level := range headingLevels {
		texts := []string{}
		doc.FindMatcher(selHeadings[level]).Each(func(_ int, s *goquery.Selection) {
			texts = append(texts, element{s.Nodes[0]}.text())
		})
		headings[level] = texts
	}
	return headings
}

func extractImages(doc *goquery.Document) []Image {
	images := []Image{}
	doc.FindMatcher(selImages).Each(func(_ int, s *goquery.Selection) {
		el := element{s.Nodes[0]}
		images = append(images, Image{
			Src:    el.attrOr("src", ""),
			Alt:    el.attrOr("alt", ""),
			Width:  el.intAttr("width"),
			Height: el.intAttr("height"),
		})
	})
	return images
}

func extractLinks(doc *goquery.Document, baseHost string) []Link {
	links := []Link{}
	doc.FindMatcher(selLinks).Each(func(_ int, s *goquery.Selection) {
		el := element{s.Nodes[0]}
		href := el.attrOr("href", "")
		links = append(links, Link{
			Href:       href,
			Text:       el.text(),
			IsExternal: isExternalHref(href, baseHost),
		})
	})
	return links
}

// isExternalHref reports whether an absolute http(s) href points at another
// host. Anything that does not parse as an absolute URL counts as internal.
func isExternalHref(href, baseHost string) bool {
	href = strings.TrimSpace(href)
	lower := strings.ToLower(href)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return false
	}
	u, err := url.Parse(href)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return false
	}
	return u.Hostname() != baseHost
}

func extractJSONLD(doc *goquery.Document) []string {
	blocks := []string{}
	doc.FindMatcher(selJSONLD).Each(func(_ int, s *goquery.Selection) {
		if text := strings.TrimSpace(s.Text()); text != "" {
			blocks = append(blocks, text)
		}
	})
	return blocks
}

func extractCharset(doc *goquery.Document) string {
	charset := ""
	doc.FindMatcher(selMeta).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		el := element{s.Nodes[0]}
		if v, ok := el.attr("charset"); ok {
			charset = strings.TrimSpace(v)
			return false
		}
		if strings.EqualFold(el.attrOr("http-equiv", ""), "content-type") {
			content := strings.ToLower(el.attrOr("content", ""))
			if i := strings.Index(content, "charset="); i >= 0 {
				charset = strings.TrimSpace(content[i+len("charset="):])
				return false
			}
		}
		return true
	})
	return charset
}

// extractContent returns the visible body text with script and style
// subtrees left out.
func extractContent(doc *goquery.Document) string {
	body := doc.FindMatcher(selBody).First()
	if body.Length() == 0 {
		return ""
	}
	return element{body.Nodes[0]}.visibleText(hiddenElements)
}
