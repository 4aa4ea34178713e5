package analyzer

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// element is a typed view over an element node of the parsed document.
type element struct {
	node *html.Node
}

// attr returns the value of the named attribute and whether it is present.
func (e element) attr(name string) (string, bool) {
	for _, a := range e.node.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, name) {
			return a.Val, true
		}
	}
	return "", false
}

// attrOr returns the named attribute or fallback when it is absent.
func (e element) attrOr(name, fallback string) string {
	if v, ok := e.attr(name); ok {
		return v
	}
	return fallback
}

// intAttr parses a base-10 integer attribute. Absent or non-numeric values
// yield nil.
func (e element) intAttr(name string) *int {
	v, ok := e.attr(name)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return nil
	}
	return &n
}

// text returns the trimmed text of the element and its descendants.
func (e element) text() string {
	var b strings.Builder
	collectText(e.node, &b, nil)
	return strings.TrimSpace(b.String())
}

// visibleText returns the whitespace-collapsed text of the subtree with the
// skipped elements and their descendants removed.
func (e element) visibleText(skip map[string]bool) string {
	var b strings.Builder
	collectText(e.node, &b, skip)
	return strings.Join(strings.Fields(b.String()), " ")
}

func collectText(n *html.Node, b *strings.Builder, skip map[string]bool) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.ElementNode:
		if skip[n.Data] {
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, b, skip)
		if skip != nil && c.Type == html.ElementNode {
			// keep words from adjacent block elements apart
			b.WriteByte(' ')
		}
	}
}
