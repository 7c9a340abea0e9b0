package gservice

import (
	"errors"
	"strings"

	"google.golang.org/api/gmail/v1"
)

// Message is an immutable, flattened view of a fetched Gmail message. Body is
// a single string: HTML fragments joined by <hr> separators when the message
// carries any HTML part, otherwise plain-text fragments joined by ---.
type Message struct {
	ID       string
	ThreadID string
	LabelIDs []string
	Subject  string
	From     string
	To       string
	Date     string
	Snippet  string
	Body     string
}

// NewMessage validates and flattens a raw Gmail API message.
func NewMessage(raw *gmail.Message) (*Message, error) {
	if raw == nil {
		return nil, errors.New("nil gmail message")
	}
	if raw.Id == "" {
		return nil, errors.New("gmail message without id")
	}

	from, to, subject, date := headerValues(raw.Payload)

	return &Message{
		ID:       raw.Id,
		ThreadID: raw.ThreadId,
		LabelIDs: raw.LabelIds,
		Subject:  subject,
		From:     from,
		To:       to,
		Date:     date,
		Snippet:  raw.Snippet,
		Body:     flattenBody(raw.Payload),
	}, nil
}

// flattenBody walks the MIME part tree depth-first and in document order,
// collecting decoded text/html and text/plain fragments (named text
// attachments included). HTML wins over plain text when both are present.
func flattenBody(payload *gmail.MessagePart) string {
	if payload == nil {
		return ""
	}

	// Single-part message: the body lives directly on the payload.
	if payload.Body != nil && payload.Body.Data != "" {
		return decodeBase64URL(payload.Body.Data)
	}

	var htmlParts, textParts []string

	stack := make([]*gmail.MessagePart, 0, len(payload.Parts))
	for i := len(payload.Parts) - 1; i >= 0; i-- {
		stack = append(stack, payload.Parts[i])
	}

	for len(stack) > 0 {
		part := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if part == nil {
			continue
		}

		if part.Body != nil && part.Body.Data != "" {
			switch part.MimeType {
			case "text/html":
				if s := decodeBase64URL(part.Body.Data); s != "" {
					htmlParts = append(htmlParts, s)
				}
			case "text/plain":
				if s := decodeBase64URL(part.Body.Data); s != "" {
					textParts = append(textParts, s)
				}
			}
		}

		for i := len(part.Parts) - 1; i >= 0; i-- {
			stack = append(stack, part.Parts[i])
		}
	}

	if len(htmlParts) > 0 {
		return strings.Join(htmlParts, "\n<hr>\n")
	}
	if len(textParts) > 0 {
		return strings.Join(textParts, "\n---\n")
	}

	return ""
}
