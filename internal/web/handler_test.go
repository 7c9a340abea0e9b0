package web_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VIGABANC/tls-gmail-watcher/internal/watch"
	"github.com/VIGABANC/tls-gmail-watcher/internal/web"
)

type cycleRunnerMock struct {
	RunCycleFunc func(ctx context.Context) (watch.Stats, error)
}

func (m *cycleRunnerMock) RunCycle(ctx context.Context) (watch.Stats, error) {
	return m.RunCycleFunc(ctx)
}

type connTesterMock struct {
	TestConnectionFunc func(ctx context.Context) error
}

func (m *connTesterMock) TestConnection(ctx context.Context) error {
	return m.TestConnectionFunc(ctx)
}

func newTestMux(runner *cycleRunnerMock, tester *connTesterMock) *http.ServeMux {
	mux := http.NewServeMux()
	web.NewHandler(runner, tester, zerolog.Nop()).Register(mux)
	return mux
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestHealth(t *testing.T) {
	mux := newTestMux(&cycleRunnerMock{}, &connTesterMock{})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	body := decodeBody(t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "tls-gmail-watcher", body["service"])
}

func TestPollReportsStats(t *testing.T) {
	runner := &cycleRunnerMock{
		RunCycleFunc: func(ctx context.Context) (watch.Stats, error) {
			return watch.Stats{Checked: 5, New: 2, Notified: 1, Errors: []watch.MessageError{}}, nil
		},
	}
	mux := newTestMux(runner, &connTesterMock{})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/poll", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])

	stats, ok := body["stats"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(5), stats["checked"])
	assert.Equal(t, float64(1), stats["notified"])
}

func TestPollFatalCycleFailure(t *testing.T) {
	runner := &cycleRunnerMock{
		RunCycleFunc: func(ctx context.Context) (watch.Stats, error) {
			return watch.Stats{}, errors.New("listing failed")
		},
	}
	mux := newTestMux(runner, &connTesterMock{})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/poll", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Contains(t, body["error"], "listing failed")
}

func TestPollRejectsOtherMethods(t *testing.T) {
	mux := newTestMux(&cycleRunnerMock{}, &connTesterMock{})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/poll", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestTestTelegram(t *testing.T) {
	called := false
	tester := &connTesterMock{
		TestConnectionFunc: func(ctx context.Context) error {
			called = true
			return nil
		},
	}
	mux := newTestMux(&cycleRunnerMock{}, tester)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/test-telegram", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, called)
	assert.Equal(t, true, decodeBody(t, rec)["success"])
}

func TestTestTelegramFailure(t *testing.T) {
	tester := &connTesterMock{
		TestConnectionFunc: func(ctx context.Context) error {
			return errors.New("unauthorized")
		},
	}
	mux := newTestMux(&cycleRunnerMock{}, tester)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/test-telegram", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, false, decodeBody(t, rec)["success"])
}
