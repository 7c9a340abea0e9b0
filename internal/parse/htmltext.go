package parse

import (
	"strings"

	"golang.org/x/net/html"
)

// textLines flattens message text into scannable lines. Markup is parsed and
// only its text content kept, with block elements and <br> treated as line
// breaks, so a date buried in a single-column layout table still lands on its
// own line. Plain text passes through split on newlines.
func textLines(text string) []string {
	if !strings.Contains(text, "<") {
		return strings.Split(text, "\n")
	}

	doc, err := html.Parse(strings.NewReader(text))
	if err != nil {
		return strings.Split(text, "\n")
	}

	var b strings.Builder
	collectText(doc, &b)

	return strings.Split(b.String(), "\n")
}

func collectText(n *html.Node, b *strings.Builder) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.ElementNode:
		switch n.Data {
		case "script", "style", "title":
			return
		case "br":
			b.WriteString("\n")
			return
		}
	}

	block := n.Type == html.ElementNode && isBlockTag(n.Data)
	if block {
		b.WriteString("\n")
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, b)
	}

	if block {
		b.WriteString("\n")
	}
}

func isBlockTag(tag string) bool {
	switch tag {
	case "p", "div", "section", "table", "tbody", "thead", "tfoot",
		"tr", "td", "th", "li", "ul", "ol", "h1", "h2", "h3", "h4", "h5", "h6",
		"hr", "blockquote", "header", "footer":
		return true
	}
	return false
}
