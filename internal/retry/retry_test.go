package retry_test

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"

	"github.com/VIGABANC/tls-gmail-watcher/internal/retry"
)

type httpStatusErr struct {
	code int
}

func (e *httpStatusErr) Error() string   { return fmt.Sprintf("status %d", e.code) }
func (e *httpStatusErr) HTTPStatus() int { return e.code }

func fastOptions() retry.Options {
	opts := retry.DefaultOptions()
	opts.InitialDelay = time.Millisecond
	opts.MaxDelay = 5 * time.Millisecond
	return opts
}

func TestDoSucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0

	err := retry.Do(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return &httpStatusErr{code: 503}
		}
		return nil
	}, fastOptions())

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestDoGivesUpAfterMaxRetries(t *testing.T) {
	attempts := 0
	failure := &httpStatusErr{code: 503}

	err := retry.Do(context.Background(), func() error {
		attempts++
		return failure
	}, fastOptions())

	require.Error(t, err)
	assert.Equal(t, 4, attempts, "one initial attempt plus three retries")
	assert.ErrorIs(t, err, failure)
}

func TestDoDoesNotRetryFatalErrors(t *testing.T) {
	attempts := 0

	err := retry.Do(context.Background(), func() error {
		attempts++
		return &httpStatusErr{code: 400}
	}, fastOptions())

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestDoStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	opts := fastOptions()
	opts.InitialDelay = time.Hour

	err := retry.Do(ctx, func() error {
		return &httpStatusErr{code: 503}
	}, opts)

	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsTransient(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		expected bool
	}{
		{name: "nil", err: nil, expected: false},
		{name: "plain error", err: errors.New("boom"), expected: false},
		{name: "http 429", err: &httpStatusErr{code: 429}, expected: true},
		{name: "http 503", err: &httpStatusErr{code: 503}, expected: true},
		{name: "http 400", err: &httpStatusErr{code: 400}, expected: false},
		{name: "http 404", err: &httpStatusErr{code: 404}, expected: false},
		{name: "wrapped http 502", err: fmt.Errorf("send failed: %w", &httpStatusErr{code: 502}), expected: true},
		{name: "googleapi 500", err: &googleapi.Error{Code: 500}, expected: true},
		{name: "googleapi 403", err: &googleapi.Error{Code: 403}, expected: false},
		{name: "connection reset", err: fmt.Errorf("dial: %w", syscall.ECONNRESET), expected: true},
		{name: "connection refused", err: fmt.Errorf("dial: %w", syscall.ECONNREFUSED), expected: true},
		{name: "dns failure", err: &net.DNSError{Err: "no such host", Name: "api.telegram.org", IsNotFound: true}, expected: true},
		{name: "timeout keyword fallback", err: errors.New("request timeout exceeded"), expected: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, retry.IsTransient(tc.err))
		})
	}
}
