// Package watch drives the poll cycle: list candidate messages, fetch and
// classify each unseen one, notify under the per-cycle send budget, and mark
// everything handled so the next cycle never repeats work.
package watch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/VIGABANC/tls-gmail-watcher/internal/gservice"
	"github.com/VIGABANC/tls-gmail-watcher/internal/notify"
	"github.com/VIGABANC/tls-gmail-watcher/internal/parse"
)

type mailbox interface {
	ListMessages(ctx context.Context, query string, limit int64, includeSpamTrash bool) ([]string, error)
	GetMessage(ctx context.Context, msgID string) (*gservice.Message, error)
}

type notifier interface {
	SendMessage(ctx context.Context, text string, opts notify.SendOptions) error
}

type dedup interface {
	Has(messageID string) (bool, error)
	Mark(messageID string) error
	Purge(olderThanDays int) (int64, error)
}

// MessageError records a single message's failure without aborting the cycle.
type MessageError struct {
	MessageID string `json:"messageId"`
	Error     string `json:"error"`
}

// Stats summarizes one poll cycle.
type Stats struct {
	Checked   int            `json:"checked"`
	New       int            `json:"new"`
	Processed int            `json:"processed"`
	Notified  int            `json:"notified"`
	Errors    []MessageError `json:"errors"`
}

// Options configures the poll cycle.
type Options struct {
	// Query is the base Gmail search query.
	Query string
	// Limit caps how many message IDs one cycle lists.
	Limit int64
	// MaxSendsPerRun is the per-cycle notification budget.
	MaxSendsPerRun int
	// SearchInAnywhere widens the search beyond the inbox (spam/trash too).
	SearchInAnywhere bool
	// QueryExtra is appended verbatim to the composed query.
	QueryExtra string
	// RetentionDays controls the dedup store purge window.
	RetentionDays int
}

// Watcher runs poll cycles against one mailbox. Messages within a cycle are
// processed strictly sequentially; concurrent cycles for the same mailbox and
// store must not overlap.
type Watcher struct {
	mbox  mailbox
	ntf   notifier
	store dedup
	cls   *parse.Classifier
	opts  Options
	log   zerolog.Logger
}

// New creates a Watcher. Zero option fields fall back to the service defaults.
func New(mbox mailbox, ntf notifier, store dedup, opts Options, logger zerolog.Logger) *Watcher {
	if opts.Query == "" {
		opts.Query = "from:(tlscontact.com)"
	}
	if opts.Limit <= 0 {
		opts.Limit = 10
	}
	if opts.RetentionDays <= 0 {
		opts.RetentionDays = 30
	}

	return &Watcher{
		mbox:  mbox,
		ntf:   ntf,
		store: store,
		cls:   parse.NewClassifier(logger),
		opts:  opts,
		log:   logger.With().Str("component", "watcher").Logger(),
	}
}

// BuildQuery composes the Gmail search query. Scope widening wraps the base
// query before the recency clause is appended, so newer_than applies to the
// whole OR-combined scope.
func (w *Watcher) BuildQuery() string {
	q := w.opts.Query

	if w.opts.SearchInAnywhere && !strings.Contains(q, "in:anywhere") {
		q = fmt.Sprintf("in:anywhere (%s)", q)
	}
	if !strings.Contains(q, "newer_than:") {
		q += " newer_than:1d"
	}
	if w.opts.QueryExtra != "" {
		q += " " + w.opts.QueryExtra
	}

	return q
}

// RunCycle runs one end-to-end poll pass. Per-message failures are collected
// in the returned Stats and never abort the cycle; only listing/store setup
// failures are returned as an error, in which case nothing was marked.
func (w *Watcher) RunCycle(ctx context.Context) (Stats, error) {
	stats := Stats{Errors: []MessageError{}}

	w.log.Info().Msg("starting poll cycle")

	if _, err := w.store.Purge(w.opts.RetentionDays); err != nil {
		return stats, fmt.Errorf("store.Purge failed: %w", err)
	}

	query := w.BuildQuery()
	w.log.Info().
		Str("query", query).
		Int64("limit", w.opts.Limit).
		Int("maxSends", w.opts.MaxSendsPerRun).
		Bool("searchAnywhere", w.opts.SearchInAnywhere).
		Msg("poll config")

	ids, err := w.mbox.ListMessages(ctx, query, w.opts.Limit, w.opts.SearchInAnywhere)
	if err != nil {
		return stats, fmt.Errorf("mbox.ListMessages failed: %w", err)
	}

	stats.Checked = len(ids)
	if len(ids) == 0 {
		w.log.Info().Msg("no messages found matching query")
		return stats, nil
	}

	sent := 0
	for _, id := range ids {
		if err := w.processOne(ctx, id, &stats, &sent); err != nil {
			w.log.Error().Err(err).Str("id", id).Msg("failed to process message")
			stats.Errors = append(stats.Errors, MessageError{MessageID: id, Error: err.Error()})
		}
	}

	w.log.Info().
		Int("checked", stats.Checked).
		Int("new", stats.New).
		Int("processed", stats.Processed).
		Int("notified", stats.Notified).
		Int("errors", len(stats.Errors)).
		Msg("poll cycle complete")

	return stats, nil
}

// processOne walks a single message through the per-message state machine.
// A returned error leaves the message unmarked so the next cycle retries it.
func (w *Watcher) processOne(ctx context.Context, id string, stats *Stats, sent *int) error {
	seen, err := w.store.Has(id)
	if err != nil {
		return fmt.Errorf("store.Has failed: %w", err)
	}
	if seen {
		w.log.Debug().Str("id", id).Msg("message already processed, skipping")
		stats.Processed++
		return nil
	}

	stats.New++

	msg, err := w.mbox.GetMessage(ctx, id)
	if err != nil {
		return fmt.Errorf("mbox.GetMessage failed: %w", err)
	}

	w.log.Info().Str("id", id).Strs("labels", msg.LabelIDs).Msg("processing message")

	res := w.cls.Classify(msg)

	if !res.IsTLS {
		if err := w.store.Mark(id); err != nil {
			return fmt.Errorf("store.Mark failed: %w", err)
		}
		return nil
	}

	if *sent >= w.opts.MaxSendsPerRun {
		// Marking anyway trades a possibly missed notification for forward
		// progress: the alternative is re-fetching this message every cycle.
		w.log.Warn().Str("id", id).Int("maxSends", w.opts.MaxSendsPerRun).Msg("send budget reached, skipping notification")
		if err := w.store.Mark(id); err != nil {
			return fmt.Errorf("store.Mark failed: %w", err)
		}
		return nil
	}

	text := parse.FormatTelegram(res, id)
	if err := w.ntf.SendMessage(ctx, text, notify.SendOptions{DisablePreview: false}); err != nil {
		return fmt.Errorf("ntf.SendMessage failed: %w", err)
	}

	*sent++
	stats.Notified++

	// Mark strictly after the confirmed send: a crash in between causes a
	// duplicate notification next cycle, never a silently dropped one.
	if err := w.store.Mark(id); err != nil {
		return fmt.Errorf("store.Mark failed: %w", err)
	}

	w.log.Info().Str("id", id).Msg("message processed")

	return nil
}

// Run executes one cycle immediately, then repeats on the interval until ctx
// is cancelled. Fatal cycle errors are logged and swallowed so the loop never
// terminates on its own.
func (w *Watcher) Run(ctx context.Context, interval time.Duration) error {
	w.log.Info().Dur("interval", interval).Msg("starting continuous polling")

	if _, err := w.RunCycle(ctx); err != nil {
		w.log.Error().Err(err).Msg("poll cycle failed")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := w.RunCycle(ctx); err != nil {
				w.log.Error().Err(err).Msg("poll cycle failed")
			}
		}
	}
}
