package gservice

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/gmail/v1"
)

func b64(s string) string {
	return base64.URLEncoding.EncodeToString([]byte(s))
}

func TestNewMessageValidation(t *testing.T) {
	_, err := NewMessage(nil)
	assert.Error(t, err)

	_, err = NewMessage(&gmail.Message{})
	assert.Error(t, err)
}

func TestNewMessageHeaders(t *testing.T) {
	raw := &gmail.Message{
		Id:       "msg-1",
		ThreadId: "thread-1",
		LabelIds: []string{"INBOX", "UNREAD"},
		Snippet:  "short preview",
		Payload: &gmail.MessagePart{
			Headers: []*gmail.MessagePartHeader{
				{Name: "FROM", Value: "noreply@tlscontact.com"},
				{Name: "to", Value: "user@example.com"},
				{Name: "Subject", Value: "Votre rendez-vous"},
				{Name: "Date", Value: "Mon, 12 Jan 2026 09:00:00 +0100"},
			},
			Body: &gmail.MessagePartBody{Data: b64("plain body")},
		},
	}

	msg, err := NewMessage(raw)
	require.NoError(t, err)

	assert.Equal(t, "msg-1", msg.ID)
	assert.Equal(t, "thread-1", msg.ThreadID)
	assert.Equal(t, []string{"INBOX", "UNREAD"}, msg.LabelIDs)
	assert.Equal(t, "noreply@tlscontact.com", msg.From, "header names match case-insensitively")
	assert.Equal(t, "user@example.com", msg.To)
	assert.Equal(t, "Votre rendez-vous", msg.Subject)
	assert.Equal(t, "short preview", msg.Snippet)
	assert.Equal(t, "plain body", msg.Body)
}

func TestFlattenBody(t *testing.T) {
	cases := []struct {
		name     string
		payload  *gmail.MessagePart
		expected string
	}{
		{
			name:     "nil payload",
			payload:  nil,
			expected: "",
		},
		{
			name: "single part",
			payload: &gmail.MessagePart{
				Body: &gmail.MessagePartBody{Data: b64("hello")},
			},
			expected: "hello",
		},
		{
			name: "html preferred over plain text",
			payload: &gmail.MessagePart{
				Parts: []*gmail.MessagePart{
					{MimeType: "text/plain", Body: &gmail.MessagePartBody{Data: b64("plain")}},
					{MimeType: "text/html", Body: &gmail.MessagePartBody{Data: b64("<p>html</p>")}},
				},
			},
			expected: "<p>html</p>",
		},
		{
			name: "multiple html parts joined in document order",
			payload: &gmail.MessagePart{
				Parts: []*gmail.MessagePart{
					{MimeType: "text/html", Body: &gmail.MessagePartBody{Data: b64("<p>one</p>")}},
					{MimeType: "text/html", Body: &gmail.MessagePartBody{Data: b64("<p>two</p>")}},
				},
			},
			expected: "<p>one</p>\n<hr>\n<p>two</p>",
		},
		{
			name: "plain text parts joined",
			payload: &gmail.MessagePart{
				Parts: []*gmail.MessagePart{
					{MimeType: "text/plain", Body: &gmail.MessagePartBody{Data: b64("one")}},
					{MimeType: "text/plain", Body: &gmail.MessagePartBody{Data: b64("two")}},
				},
			},
			expected: "one\n---\ntwo",
		},
		{
			name: "nested multipart alternative",
			payload: &gmail.MessagePart{
				Parts: []*gmail.MessagePart{
					{
						MimeType: "multipart/alternative",
						Parts: []*gmail.MessagePart{
							{MimeType: "text/plain", Body: &gmail.MessagePartBody{Data: b64("plain")}},
							{MimeType: "text/html", Body: &gmail.MessagePartBody{Data: b64("<b>nested</b>")}},
						},
					},
				},
			},
			expected: "<b>nested</b>",
		},
		{
			name: "non-text attachments ignored",
			payload: &gmail.MessagePart{
				Parts: []*gmail.MessagePart{
					{MimeType: "application/pdf", Body: &gmail.MessagePartBody{Data: b64("%PDF")}},
					{MimeType: "text/plain", Body: &gmail.MessagePartBody{Data: b64("the text")}},
				},
			},
			expected: "the text",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, flattenBody(tc.payload))
		})
	}
}

func TestDecodeBase64URL(t *testing.T) {
	assert.Equal(t, "abc", decodeBase64URL(base64.URLEncoding.EncodeToString([]byte("abc"))))
	assert.Equal(t, "abc", decodeBase64URL(base64.RawURLEncoding.EncodeToString([]byte("abc"))))
	assert.Equal(t, "", decodeBase64URL("%%%not-base64%%%"))
}
