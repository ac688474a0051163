// Package state persists the dashboard's local state: user preferences and the
// journal of dispatched actions.
package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// PreferencesKey is the settings key holding the serialized user preferences.
const PreferencesKey = "userPreferences"

var (
	// ErrNotOpen is returned when the store is used before Open.
	ErrNotOpen = errors.New("database not opened")
	// ErrNotFound is returned when a key has no value.
	ErrNotFound = errors.New("not found")
)

// Outcome is how a journaled action ended.
type Outcome string

// Journal outcomes.
const (
	OutcomeSuccess   Outcome = "success"
	OutcomeFailure   Outcome = "failure"
	OutcomeCancelled Outcome = "cancelled"
)

// JournalEntry is one settled action.
type JournalEntry struct {
	ID         string
	Action     string
	Target     string
	Outcome    Outcome
	Message    string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Duration is how long the action took.
func (e JournalEntry) Duration() time.Duration {
	return e.FinishedAt.Sub(e.StartedAt)
}

// SQLiteStore is the sqlite-backed store.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// NewSQLiteStore creates a store. Call Open before use.
func NewSQLiteStore(logger *slog.Logger) *SQLiteStore {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SQLiteStore{logger: logger}
}

// NewWithDB wraps an existing connection. The schema is assumed to exist.
func NewWithDB(db *sql.DB, logger *slog.Logger) *SQLiteStore {
	s := NewSQLiteStore(logger)
	s.db = db
	return s
}

// Open opens the database at path and runs migrations.
// Use ":memory:" for an in-memory database.
func (s *SQLiteStore) Open(path string) error {
	dsn := ":memory:"
	if path != ":memory:" {
		dsn = fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// a single connection keeps ":memory:" databases shared and serializes writers
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	s.db = db
	s.path = path

	if err := s.Migrate(); err != nil {
		_ = db.Close()
		s.db = nil
		return err
	}

	s.logger.Debug("state store opened", slog.String("path", path))
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Path returns the database path given to Open.
func (s *SQLiteStore) Path() string { return s.path }

// --- Preferences ---

// Preferences returns the stored preferences document.
func (s *SQLiteStore) Preferences(ctx context.Context) (json.RawMessage, error) {
	if s.db == nil {
		return nil, ErrNotOpen
	}

	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, PreferencesKey).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read preferences: %w", err)
	}
	return json.RawMessage(value), nil
}

// SetPreferences stores a preferences document. It must be valid JSON.
func (s *SQLiteStore) SetPreferences(ctx context.Context, doc json.RawMessage) error {
	if s.db == nil {
		return ErrNotOpen
	}
	if !json.Valid(doc) {
		return fmt.Errorf("preferences must be valid JSON")
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		PreferencesKey, string(doc), time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to save preferences: %w", err)
	}
	return nil
}

// ResetPreferences deletes the stored preferences.
func (s *SQLiteStore) ResetPreferences(ctx context.Context) error {
	if s.db == nil {
		return ErrNotOpen
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM settings WHERE key = ?`, PreferencesKey); err != nil {
		return fmt.Errorf("failed to reset preferences: %w", err)
	}
	return nil
}

// --- Journal ---

// RecordOutcome appends a settled action to the journal. A missing ID is filled in.
func (s *SQLiteStore) RecordOutcome(ctx context.Context, e JournalEntry) error {
	if s.db == nil {
		return ErrNotOpen
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO action_journal (id, action, target, outcome, message, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Action, e.Target, string(e.Outcome), e.Message,
		e.StartedAt.UnixMilli(), e.FinishedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to record outcome: %w", err)
	}
	return nil
}

// RecentOutcomes returns up to limit journal entries, newest first.
func (s *SQLiteStore) RecentOutcomes(ctx context.Context, limit int) ([]JournalEntry, error) {
	if s.db == nil {
		return nil, ErrNotOpen
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, action, target, outcome, message, started_at, finished_at
		 FROM action_journal ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []JournalEntry
	for rows.Next() {
		var e JournalEntry
		var outcome string
		var started, finished int64
		if err := rows.Scan(&e.ID, &e.Action, &e.Target, &outcome, &e.Message, &started, &finished); err != nil {
			return nil, fmt.Errorf("failed to scan journal entry: %w", err)
		}
		e.Outcome = Outcome(outcome)
		e.StartedAt = time.UnixMilli(started)
		e.FinishedAt = time.UnixMilli(finished)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate journal: %w", err)
	}
	return out, nil
}
