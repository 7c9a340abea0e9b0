package parse

import (
	"fmt"
	"strings"
)

const snippetPreviewLimit = 150

// FormatTelegram renders a classification result as a Telegram HTML message.
func FormatTelegram(res Result, messageID string) string {
	header := "🔔 <b>TLScontact Update</b>"

	if res.DateFound && appointmentRe.MatchString(res.Subject+" "+res.RawBody) {
		header = "🚨 <b>EMERGENCY: APPOINTMENT FOUND</b>"
	}

	if containsLabel(res.Labels, "SPAM") {
		header = "⚠️ <b>Spam Detect:</b> " + header
	} else if containsLabel(res.Labels, "TRASH") {
		header = "🗑️ <b>Trash Detect:</b> " + header
	}

	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n\n")

	if res.DateFound {
		fmt.Fprintf(&b, "📅 <b>Date:</b> %s\n", res.Date.Format("Monday 02 January 2006 15:04"))
		if res.DateRaw != "" {
			fmt.Fprintf(&b, "   (Source: \"%s\")\n", res.DateRaw)
		}
	} else {
		b.WriteString("❓ <b>Date:</b> Information non détectée\n")
	}

	b.WriteString("\n")
	fmt.Fprintf(&b, "👤 <b>From:</b> %s\n", EscapeHTML(res.From))
	fmt.Fprintf(&b, "📧 <b>Subject:</b> %s\n", EscapeHTML(res.Subject))

	if res.Link != "" {
		fmt.Fprintf(&b, "\n🔗 <b>Link:</b> <a href=\"%s\">Ouvrir le portail</a>\n", res.Link)
	}

	if res.Snippet != "" {
		preview := res.Snippet
		suffix := ""
		if runes := []rune(preview); len(runes) > snippetPreviewLimit {
			preview = string(runes[:snippetPreviewLimit])
			suffix = "..."
		}
		fmt.Fprintf(&b, "\n📝 <b>Preview:</b>\n<i>%s%s</i>\n", EscapeHTML(preview), suffix)
	}

	fmt.Fprintf(&b, "\n<code>ID: %s</code>", messageID)

	return b.String()
}

// EscapeHTML sanitizes text for Telegram HTML parse mode.
func EscapeHTML(text string) string {
	r := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
	)
	return r.Replace(text)
}

func containsLabel(labels []string, want string) bool {
	for _, l := range labels {
		if l == want {
			return true
		}
	}
	return false
}
