// Package gservice wraps the Gmail API behind the narrow mailbox interface
// the watcher needs: list candidate message IDs and fetch a flattened message.
package gservice

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/VIGABANC/tls-gmail-watcher/internal/auth"
)

const defaultUserID = "me"

// NewGmail creates a Gmail wrapper bound to one mailbox.
func NewGmail(cfg *oauth2.Config, tok *auth.Token, userID string) *GMail {
	if userID == "" {
		userID = defaultUserID
	}
	return &GMail{
		cfg:    cfg,
		tok:    tok,
		userID: userID,
	}
}

// GMail is a thin client over the Gmail API.
type GMail struct {
	cfg    *oauth2.Config
	tok    *auth.Token
	userID string
}

// ListMessages returns the IDs of messages matching the Gmail search query,
// newest first, up to limit. includeSpamTrash widens the search beyond the
// regular folders.
func (m *GMail) ListMessages(ctx context.Context, query string, limit int64, includeSpamTrash bool) ([]string, error) {
	svc, err := m.newSvc(ctx)
	if err != nil {
		return nil, fmt.Errorf("newSvc failed: %w", err)
	}

	result, err := svc.Users.Messages.List(m.userID).
		Q(query).
		MaxResults(limit).
		IncludeSpamTrash(includeSpamTrash).
		Do()
	if err != nil {
		return nil, fmt.Errorf("messages.List failed: %w", err)
	}

	ids := make([]string, 0, len(result.Messages))
	for _, msg := range result.Messages {
		ids = append(ids, msg.Id)
	}

	return ids, nil
}

// GetMessage fetches a full message and flattens it into a Message value.
func (m *GMail) GetMessage(ctx context.Context, msgID string) (*Message, error) {
	svc, err := m.newSvc(ctx)
	if err != nil {
		return nil, fmt.Errorf("newSvc failed: %w", err)
	}

	raw, err := svc.Users.Messages.Get(m.userID, msgID).Format("full").Do()
	if err != nil {
		return nil, fmt.Errorf("messages.Get failed: %w", err)
	}

	msg, err := NewMessage(raw)
	if err != nil {
		return nil, fmt.Errorf("NewMessage failed: %w", err)
	}

	return msg, nil
}

func (m *GMail) newSvc(ctx context.Context) (*gmail.Service, error) {
	t, err := m.tok.OAuthToken()
	if err != nil {
		return nil, fmt.Errorf("tok.OAuthToken failed: %w", err)
	}

	clt := m.cfg.Client(ctx, t)

	svc, err := gmail.NewService(ctx, option.WithHTTPClient(clt))
	if err != nil {
		return nil, fmt.Errorf("gmail.NewService failed: %w", err)
	}

	return svc, nil
}

func headerValues(payload *gmail.MessagePart) (from, to, subject, date string) {
	if payload == nil {
		return "", "", "", ""
	}
	for _, h := range payload.Headers {
		switch {
		case strings.EqualFold(h.Name, "From"):
			from = h.Value
		case strings.EqualFold(h.Name, "To"):
			to = h.Value
		case strings.EqualFold(h.Name, "Subject"):
			subject = h.Value
		case strings.EqualFold(h.Name, "Date"):
			date = h.Value
		}
	}
	return from, to, subject, date
}

func decodeBase64URL(data string) string {
	decoded, err := base64.URLEncoding.DecodeString(data)
	if err != nil {
		decoded, err = base64.RawURLEncoding.DecodeString(data)
		if err != nil {
			// Undecodable content degrades to an empty body rather than
			// failing the whole message.
			return ""
		}
	}
	return string(decoded)
}
