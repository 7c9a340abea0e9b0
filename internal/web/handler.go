// Package web exposes the watcher's operational HTTP endpoints.
package web

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/VIGABANC/tls-gmail-watcher/internal/watch"
)

type cycleRunner interface {
	RunCycle(ctx context.Context) (watch.Stats, error)
}

type connTester interface {
	TestConnection(ctx context.Context) error
}

// Handler serves the status, manual-poll and Telegram-test endpoints.
type Handler struct {
	watcher cycleRunner
	tester  connTester
	log     zerolog.Logger
}

func NewHandler(watcher cycleRunner, tester connTester, logger zerolog.Logger) *Handler {
	return &Handler{
		watcher: watcher,
		tester:  tester,
		log:     logger.With().Str("component", "web").Logger(),
	}
}

// Register mounts all endpoints on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.Health)
	mux.HandleFunc("/poll", h.Poll)
	mux.HandleFunc("/test-telegram", h.TestTelegram)
}

func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "tls-gmail-watcher",
	})
}

// Poll triggers one cycle synchronously and reports its stats. Partial
// failures come back inside stats; only a fatal cycle failure yields a 500.
func (h *Handler) Poll(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	h.log.Info().Str("method", r.Method).Msg("manual poll triggered")

	stats, err := h.watcher.RunCycle(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("manual poll failed")
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"stats":     stats,
	})
}

func (h *Handler) TestTelegram(w http.ResponseWriter, r *http.Request) {
	if err := h.tester.TestConnection(r.Context()); err != nil {
		h.log.Error().Err(err).Msg("telegram test failed")
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Test notification sent to Telegram",
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
