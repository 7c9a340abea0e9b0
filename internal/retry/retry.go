// Package retry provides bounded exponential backoff for network calls.
package retry

import (
	"context"
	"errors"
	"net"
	"strings"
	"syscall"
	"time"

	"google.golang.org/api/googleapi"
)

// Options controls the backoff schedule and the retry predicate.
type Options struct {
	// MaxRetries is the number of additional attempts after the first one.
	MaxRetries int
	// InitialDelay is the sleep before the first retry.
	InitialDelay time.Duration
	// MaxDelay caps the backoff.
	MaxDelay time.Duration
	// Factor multiplies the delay after every failed attempt.
	Factor float64
	// ShouldRetry decides whether a failure is worth another attempt.
	// Defaults to IsTransient.
	ShouldRetry func(error) bool
}

// DefaultOptions matches the schedule the notifier has always used:
// up to 3 retries, 1s initial delay, doubled each attempt, capped at 30s.
func DefaultOptions() Options {
	return Options{
		MaxRetries:   3,
		InitialDelay: time.Second,
		MaxDelay:     30 * time.Second,
		Factor:       2,
		ShouldRetry:  IsTransient,
	}
}

// Do runs fn, retrying transient failures with exponential backoff. The final
// error is returned unwrapped; non-retryable failures propagate immediately.
func Do(ctx context.Context, fn func() error, opts Options) error {
	if opts.InitialDelay <= 0 {
		opts.InitialDelay = time.Second
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = 30 * time.Second
	}
	if opts.Factor <= 1 {
		opts.Factor = 2
	}
	if opts.ShouldRetry == nil {
		opts.ShouldRetry = IsTransient
	}

	delay := opts.InitialDelay

	var lastErr error
	for attempt := 0; ; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if attempt == opts.MaxRetries || !opts.ShouldRetry(lastErr) {
			return lastErr
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay = time.Duration(float64(delay) * opts.Factor)
		if delay > opts.MaxDelay {
			delay = opts.MaxDelay
		}
	}
}

// statusCoder is implemented by errors that carry an HTTP status code,
// e.g. notify.StatusError.
type statusCoder interface {
	HTTPStatus() int
}

// IsTransient reports whether err looks like a temporary network or
// provider-side failure: timeouts, connection reset/refused, DNS failures,
// and HTTP 429/500/502/503/504 responses.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ETIMEDOUT) {
		return true
	}

	var sc statusCoder
	if errors.As(err, &sc) {
		return transientStatus(sc.HTTPStatus())
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return transientStatus(gerr.Code)
	}

	// Last resort for errors that hide their type behind string wrapping.
	msg := strings.ToLower(err.Error())
	for _, kw := range []string{"timeout", "connection reset", "connection refused", "no such host", "socket hang up"} {
		if strings.Contains(msg, kw) {
			return true
		}
	}

	return false
}

func transientStatus(code int) bool {
	switch code {
	case 429, 500, 502, 503, 504:
		return true
	}
	return false
}
