package parse

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var (
	preferredLinkRe = regexp.MustCompile(`(?i)tlscontact|confirm`)
	rawURLRe        = regexp.MustCompile(`(?i)https?://[^\s"<>|)]+`)
	trailingPunctRe = regexp.MustCompile(`[.!?,;:]+$`)
)

// ExtractLink pulls the most relevant confirmation URL out of an HTML or
// plain-text body. Links pointing at TLScontact or containing "confirm" win
// over the rest; otherwise the first link found is returned. Returns "" when
// the body holds no URL at all.
func ExtractLink(body string) string {
	if body == "" {
		return ""
	}

	if link := extractAnchorLink(body); link != "" {
		return link
	}

	// Fallback: scan raw text for URL-shaped substrings.
	matches := rawURLRe.FindAllString(body, -1)
	if len(matches) == 0 {
		return ""
	}

	cleaned := make([]string, 0, len(matches))
	for _, m := range matches {
		cleaned = append(cleaned, trailingPunctRe.ReplaceAllString(m, ""))
	}

	for _, u := range cleaned {
		if preferredLinkRe.MatchString(u) {
			return u
		}
	}

	return cleaned[0]
}

func extractAnchorLink(body string) string {
	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return ""
	}

	var links []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, attr := range n.Attr {
				if attr.Key == "href" && strings.HasPrefix(attr.Val, "http") {
					links = append(links, attr.Val)
					break
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	for _, u := range links {
		if preferredLinkRe.MatchString(u) {
			return u
		}
	}
	if len(links) > 0 {
		return links[0]
	}

	return ""
}
