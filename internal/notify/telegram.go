// Package notify delivers watcher alerts to a Telegram chat.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/VIGABANC/tls-gmail-watcher/internal/retry"
)

const defaultAPIBase = "https://api.telegram.org"

// StatusError is a non-2xx response from the Telegram API.
type StatusError struct {
	Code        int
	Description string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("telegram API status %d: %s", e.Code, e.Description)
}

// HTTPStatus exposes the code so retry.IsTransient can classify 429/5xx.
func (e *StatusError) HTTPStatus() int { return e.Code }

// SendOptions tunes a single send.
type SendOptions struct {
	DisablePreview bool
}

// Telegram sends HTML-formatted messages to one chat, gated by a token-bucket
// rate limiter and retried on transient failures.
type Telegram struct {
	botToken  string
	chatID    string
	apiBase   string
	client    *http.Client
	limiter   *rate.Limiter
	retryOpts retry.Options
	log       zerolog.Logger
}

// NewTelegram creates a Telegram notifier. limiter may be nil, in which case
// a conservative default bucket (3 tokens, 0.1 token/s refill) is used.
func NewTelegram(botToken, chatID string, limiter *rate.Limiter, logger zerolog.Logger) (*Telegram, error) {
	if botToken == "" || chatID == "" {
		return nil, errors.New("missing Telegram credentials: bot token and chat ID are required")
	}
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Limit(0.1), 3)
	}

	return &Telegram{
		botToken:  botToken,
		chatID:    chatID,
		apiBase:   defaultAPIBase,
		client:    &http.Client{Timeout: 10 * time.Second},
		limiter:   limiter,
		retryOpts: retry.DefaultOptions(),
		log:       logger.With().Str("component", "telegram").Logger(),
	}, nil
}

// SendMessage posts text to the chat in HTML parse mode. It blocks on the
// rate limiter before the first attempt and retries transient failures.
func (t *Telegram) SendMessage(ctx context.Context, text string, opts SendOptions) error {
	if err := t.limiter.WaitN(ctx, 1); err != nil {
		return fmt.Errorf("limiter.WaitN failed: %w", err)
	}

	payload, err := json.Marshal(map[string]any{
		"chat_id":                  t.chatID,
		"text":                     text,
		"parse_mode":               "HTML",
		"disable_web_page_preview": opts.DisablePreview,
	})
	if err != nil {
		return fmt.Errorf("json.Marshal failed: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.apiBase, t.botToken)

	sendErr := retry.Do(ctx, func() error {
		return t.post(ctx, url, payload)
	}, t.retryOpts)
	if sendErr != nil {
		t.log.Error().Err(sendErr).Msg("failed to send Telegram message")
		return fmt.Errorf("sendMessage failed: %w", sendErr)
	}

	t.log.Info().Msg("Telegram message sent")

	return nil
}

// TestConnection sends a status ping so operators can verify credentials.
func (t *Telegram) TestConnection(ctx context.Context) error {
	text := fmt.Sprintf(
		"✅ <b>TLScontact Watcher is Online</b>\n\n<b>Status:</b> Healthy\n<b>Time:</b> %s\n<b>System:</b> Go watcher",
		time.Now().Format("2006-01-02 15:04:05"),
	)

	return t.SendMessage(ctx, text, SendOptions{DisablePreview: true})
}

func (t *Telegram) post(ctx context.Context, url string, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("http.NewRequestWithContext failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("client.Do failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Description string `json:"description"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)

		return &StatusError{Code: resp.StatusCode, Description: apiErr.Description}
	}

	return nil
}
