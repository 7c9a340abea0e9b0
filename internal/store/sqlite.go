// Package store persists the set of already-processed message IDs.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS processed_messages (
	message_id   TEXT PRIMARY KEY,
	processed_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_processed_at ON processed_messages(processed_at);
`

// SQLite is a single-writer embedded dedup store. Presence of a message ID
// means "do not re-notify for this id again".
type SQLite struct {
	db  *sqlx.DB
	log zerolog.Logger
}

// NewSQLite opens (or creates) the database at dbPath, creating parent
// directories as needed, and ensures the schema exists.
func NewSQLite(dbPath string, logger zerolog.Logger) (*SQLite, error) {
	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("os.MkdirAll failed: %w", err)
		}
	}

	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlx.Open failed: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enabling WAL mode failed: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema failed: %w", err)
	}

	log := logger.With().Str("component", "store").Logger()
	log.Info().Str("path", dbPath).Msg("using SQLite dedup store")

	return &SQLite{db: db, log: log}, nil
}

// Has reports whether the message ID was already processed.
func (s *SQLite) Has(messageID string) (bool, error) {
	var n int
	err := s.db.Get(&n, "SELECT COUNT(1) FROM processed_messages WHERE message_id = ?", messageID)
	if err != nil {
		return false, fmt.Errorf("db.Get failed: %w", err)
	}

	return n > 0, nil
}

// Mark records the message ID with the current epoch-millis timestamp.
// Redundant marks are no-ops: the first write wins and never errors.
func (s *SQLite) Mark(messageID string) error {
	_, err := s.db.Exec(
		"INSERT OR IGNORE INTO processed_messages (message_id, processed_at) VALUES (?, ?)",
		messageID, time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("db.Exec failed: %w", err)
	}

	s.log.Debug().Str("id", messageID).Msg("marked as processed")

	return nil
}

// Purge deletes records older than the retention window and returns how many
// were removed.
func (s *SQLite) Purge(olderThanDays int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -olderThanDays).UnixMilli()

	res, err := s.db.Exec("DELETE FROM processed_messages WHERE processed_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("db.Exec failed: %w", err)
	}

	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("res.RowsAffected failed: %w", err)
	}

	if removed > 0 {
		s.log.Info().Int64("removed", removed).Msg("purged old dedup entries")
	}

	return removed, nil
}

// Close closes the underlying database.
func (s *SQLite) Close() error {
	return s.db.Close()
}
