package analyzer

import (
	"net/url"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	readability "github.com/go-shiori/go-readability"
)

const (
	titleMinLength       = 30
	titleMaxLength       = 60
	descriptionMinLength = 120
	descriptionMaxLength = 160

	minWordCount       = 300
	thinWordCount      = 100
	maxSentenceLength  = 25.0
	minMainContentRate = 0.3

	keywordDensityLow  = 0.5 // percent
	keywordDensityHigh = 3.0 // percent
	topKeywordCount    = 10
	suggestionCount    = 5
)

func scoreMeta(facts *PageFacts, _ AnalysisOptions) (AnalysisResult, error) {
	card := newScoreCard(100)

	titleLen := utf8.RuneCountInString(facts.Title)
	switch {
	case titleLen == 0:
		card.deduct(30, StatusCritical, "Add a title tag to your page")
	case titleLen < titleMinLength:
		card.deduct(10, StatusWarning, "Title tag is too short (%d characters, should be %d-%d)", titleLen, titleMinLength, titleMaxLength)
	case titleLen > titleMaxLength:
		card.deduct(10, StatusWarning, "Title tag is too long (%d characters, should be %d-%d)", titleLen, titleMinLength, titleMaxLength)
	default:
		card.add(StatusGood, "Title length is within the recommended range")
	}

	description := strings.TrimSpace(facts.Meta["description"])
	descLen := utf8.RuneCountInString(description)
	switch {
	case descLen == 0:
		card.deduct(30, StatusCritical, "Add a meta description")
	case descLen < descriptionMinLength:
		card.deduct(10, StatusWarning, "Meta description is too short (%d characters, should be %d-%d)", descLen, descriptionMinLength, descriptionMaxLength)
	case descLen > descriptionMaxLength:
		card.deduct(10, StatusWarning, "Meta description is too long (%d characters, should be %d-%d)", descLen, descriptionMinLength, descriptionMaxLength)
	default:
		card.add(StatusGood, "Meta description length is within the recommended range")
	}

	viewport := facts.Meta["viewport"]
	if viewport == "" {
		card.deduct(10, StatusWarning, "Add a viewport meta tag")
	}

	robots := strings.ToLower(facts.Meta["robots"])
	switch {
	case strings.Contains(robots, "noindex"):
		card.deduct(20, StatusCritical, "Page is marked noindex and will be dropped from search results")
	case robots == "":
		card.add(StatusInfo, "No robots meta tag; crawlers default to index, follow")
	}

	if facts.Canonical == "" {
		card.deduct(10, StatusWarning, "Add a canonical link to avoid duplicate content")
	} else {
		card.add(StatusGood, "Canonical URL is declared")
	}

	if facts.Charset == "" {
		card.deduct(5, StatusWarning, "Declare the character encoding with <meta charset>")
	}

	if _, ok := facts.Meta["keywords"]; ok {
		card.add(StatusInfo, "Meta keywords are ignored by major search engines")
	}

	card.set("title", facts.Title)
	card.set("titleLength", titleLen)
	card.set("description", description)
	card.set("descriptionLength", descLen)
	card.set("robots", facts.Meta["robots"])
	card.set("viewport", viewport)
	card.set("canonical", facts.Canonical)
	card.set("charset", facts.Charset)
	card.set("metaTagCount", len(facts.Meta))
	return card.result(), nil
}

func scoreContent(facts *PageFacts, opts AnalysisOptions) (AnalysisResult, error) {
	card := newScoreCard(100)

	words := strings.Fields(facts.Content)
	wordCount := len(words)
	switch {
	case wordCount >= minWordCount:
		card.add(StatusGood, "Page has %d words of content", wordCount)
	case wordCount >= thinWordCount:
		card.deduct(20, StatusWarning, "Content is thin (%d words); aim for at least %d", wordCount, minWordCount)
	default:
		card.deduct(45, StatusCritical, "Add more content (%d words found, aim for at least %d)", wordCount, minWordCount)
	}

	sentences := countSentences(facts.Content)
	avgSentence := 0.0
	if sentences > 0 {
		avgSentence = float64(wordCount) / float64(sentences)
	}
	if avgSentence > maxSentenceLength {
		card.deduct(10, StatusWarning, "Sentences average %.1f words; shorter sentences are easier to read", avgSentence)
	}

	mainWords := mainContentWords(facts)
	mainRatio := 0.0
	if wordCount > 0 {
		mainRatio = float64(mainWords) / float64(wordCount)
		if mainRatio > 1 {
			mainRatio = 1
		}
	}
	switch {
	case wordCount == 0:
	case mainWords == 0:
		card.add(StatusInfo, "Could not identify a main content block")
	case mainRatio < minMainContentRate:
		card.deduct(10, StatusWarning, "Main content is only %d%% of the page text; navigation and boilerplate dominate", int(mainRatio*100))
	}

	if facts.Lang == "" {
		card.deduct(10, StatusWarning, "Declare the page language with <html lang>")
	} else if opts.Locale != "" && !sameLanguage(facts.Lang, opts.Locale) {
		card.deduct(5, StatusWarning, "Page language %q does not match the requested locale %q", facts.Lang, opts.Locale)
	}

	card.set("wordCount", wordCount)
	card.set("sentenceCount", sentences)
	card.set("averageSentenceLength", avgSentence)
	card.set("mainContentWords", mainWords)
	card.set("mainContentRatio", mainRatio)
	card.set("lang", facts.Lang)
	return card.result(), nil
}

// mainContentWords runs readability over the raw HTML and counts the words of
// the detected article. Zero means no article was found.
func mainContentWords(facts *PageFacts) int {
	if strings.TrimSpace(facts.HTML) == "" {
		return 0
	}
	pageURL, err := url.Parse(facts.URL)
	if err != nil || !pageURL.IsAbs() {
		pageURL = &url.URL{Scheme: "http", Host: "localhost", Path: "/"}
	}
	article, err := readability.FromReader(strings.NewReader(facts.HTML), pageURL)
	if err != nil {
		return 0
	}
	return len(strings.Fields(article.TextContent))
}

func countSentences(text string) int {
	count := 0
	inSentence := false
	for _, r := range text {
		switch r {
		case '.', '!', '?':
			if inSentence {
				count++
				inSentence = false
			}
		default:
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				inSentence = true
			}
		}
	}
	if inSentence {
		count++
	}
	return count
}

// sameLanguage compares primary language subtags, so "en" matches "en-US".
func sameLanguage(a, b string) bool {
	primary := func(tag string) string {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if i := strings.IndexAny(tag, "-_"); i >= 0 {
			tag = tag[:i]
		}
		return tag
	}
	return primary(a) == primary(b)
}

// KeywordStat is the frequency of one term in the page content.
type KeywordStat struct {
	Term    string  `json:"term"`
	Count   int     `json:"count"`
	Density float64 `json:"density"`
}

func scoreKeywords(facts *PageFacts, opts AnalysisOptions) (AnalysisResult, error) {
	card := newScoreCard(100)

	words := tokenize(facts.Content)
	top := topTerms(words, topKeywordCount)
	card.set("totalWords", len(words))
	card.set("topKeywords", top)

	title := strings.ToLower(facts.Title)
	description := strings.ToLower(facts.Meta["description"])
	h1 := strings.ToLower(strings.Join(facts.Headings["h1"], " "))

	custom := normalizeKeywords(opts.CustomKeywords)
	stats := make([]KeywordStat, 0, len(custom))

	switch {
	case len(words) == 0:
		card.deduct(40, StatusCritical, "No indexable text to derive keywords from")
	case len(custom) == 0:
		card.add(StatusInfo, "No target keywords supplied; scoring is based on the most frequent terms")
		if len(top) > 0 && !strings.Contains(title, top[0].Term) {
			card.deduct(10, StatusWarning, "Title does not mention the most frequent term %q", top[0].Term)
		}
	default:
		joined := " " + strings.Join(words, " ") + " "
		for _, kw := range custom {
			count := strings.Count(joined, " "+kw+" ")
			density := float64(count*len(strings.Fields(kw))) / float64(len(words)) * 100
			stats = append(stats, KeywordStat{Term: kw, Count: count, Density: density})

			switch {
			case count == 0:
				card.deduct(15, StatusWarning, "Keyword %q does not appear in the content", kw)
			case density < keywordDensityLow:
				card.deduct(10, StatusWarning, "Keyword %q density is low (%.2f%%)", kw, density)
			case density > keywordDensityHigh:
				card.deduct(15, StatusWarning, "Keyword %q density is %.2f%%; this looks like keyword stuffing", kw, density)
			default:
				card.add(StatusGood, "Keyword %q density is %.2f%%", kw, density)
			}
			if !strings.Contains(title, kw) {
				card.deduct(5, StatusWarning, "Keyword %q is missing from the title", kw)
			}
			if !strings.Contains(description, kw) {
				card.deduct(5, StatusWarning, "Keyword %q is missing from the meta description", kw)
			}
			if !strings.Contains(h1, kw) {
				card.deduct(5, StatusWarning, "Keyword %q is missing from the H1 heading", kw)
			}
		}
	}
	card.set("customKeywords", stats)

	if opts.IncludeKeywordSuggestions {
		suggestions := []string{}
		for _, t := range top {
			if len(suggestions) == suggestionCount {
				break
			}
			if !strings.Contains(title, t.Term) && !strings.Contains(description, t.Term) {
				suggestions = append(suggestions, t.Term)
			}
		}
		card.set("suggestions", suggestions)
		if len(suggestions) > 0 {
			card.add(StatusInfo, "Consider targeting: %s", strings.Join(suggestions, ", "))
		}
	}

	if opts.IncludeCompetitorAnalysis {
		card.set("competitors", []string{})
		card.add(StatusInfo, "Competitor analysis is not available: no competitor data source is configured")
	}

	return card.result(), nil
}

// tokenize lowercases text and splits it into letter/digit runs.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// topTerms returns the most frequent non-stopword terms, ties broken
// alphabetically.
func topTerms(words []string, n int) []KeywordStat {
	freq := make(map[string]int)
	for _, w := range words {
		if utf8.RuneCountInString(w) < 3 || stopwords[w] {
			continue
		}
		freq[w]++
	}
	terms := make([]KeywordStat, 0, len(freq))
	for term, count := range freq {
		terms = append(terms, KeywordStat{
			Term:    term,
			Count:   count,
			Density: float64(count) / float64(len(words)) * 100,
		})
	}
	sort.Slice(terms, func(i, j int) bool {
		if terms[i].Count != terms[j].Count {
			return terms[i].Count > terms[j].Count
		}
		return terms[i].Term < terms[j].Term
	})
	if len(terms) > n {
		terms = terms[:n]
	}
	return terms
}

func normalizeKeywords(keywords []string) []string {
	seen := make(map[string]bool, len(keywords))
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.Join(tokenize(kw), " ")
		if kw == "" || seen[kw] {
			continue
		}
		seen[kw] = true
		out = append(out, kw)
	}
	return out
}

var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "are": true, "but": true, "not": true,
	"you": true, "all": true, "any": true, "can": true, "had": true, "her": true,
	"was": true, "one": true, "our": true, "out": true, "has": true, "have": true,
	"his": true, "how": true, "its": true, "may": true, "new": true, "now": true,
	"see": true, "who": true, "did": true, "get": true, "use": true, "with": true,
	"this": true, "that": true, "from": true, "they": true, "will": true, "your": true,
	"what": true, "when": true, "were": true, "been": true, "more": true, "than": true,
	"them": true, "then": true, "into": true, "also": true, "some": true, "such": true,
	"only": true, "over": true, "their": true, "there": true, "these": true, "those": true,
	"which": true, "while": true, "would": true, "about": true, "could": true, "other": true,
	"should": true, "where": true, "after": true, "before": true, "because": true, "here": true,
}

func scoreHeadings(facts *PageFacts, _ AnalysisOptions) (AnalysisResult, error) {
	card := newScoreCard(100)

	h1 := facts.Headings["h1"]
	switch len(h1) {
	case 0:
		card.deduct(40, StatusCritical, "Add an H1 heading")
	case 1:
		card.add(StatusGood, "Page has a single H1 heading")
		if utf8.RuneCountInString(h1[0]) > 70 {
			card.add(StatusInfo, "H1 heading is long (%d characters)", utf8.RuneCountInString(h1[0]))
		}
	default:
		card.deduct(20, StatusWarning, "Multiple H1 headings found (%d) - consider using only one", len(h1))
	}

	if len(facts.Headings["h2"]) == 0 {
		card.deduct(15, StatusWarning, "Add H2 subheadings to structure the content")
	}

	counts := make(map[string]int, len(headingLevels))
	total, empty, skipped := 0, 0, 0
	for i, level := range headingLevels {
		texts := facts.Headings[level]
		counts[level] = len(texts)
		total += len(texts)
		for _, t := range texts {
			if t == "" {
				empty++
			}
		}
		if i > 0 && len(texts) > 0 && len(facts.Headings[headingLevels[i-1]]) == 0 {
			skipped++
			if skipped <= 2 {
				card.deduct(10, StatusWarning, "Heading level %s is used without %s", level, headingLevels[i-1])
			}
		}
	}
	if empty > 0 {
		card.deduct(min(15, 5*empty), StatusWarning, "%d heading(s) are empty", empty)
	}

	card.set("counts", counts)
	card.set("totalHeadings", total)
	card.set("h1Text", h1)
	card.set("emptyHeadings", empty)
	card.set("skippedLevels", skipped)
	return card.result(), nil
}
