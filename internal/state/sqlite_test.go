package state

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/haulboard/internal/testutil"
)

func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store := NewSQLiteStore(testutil.NewTestLogger(t))
	require.NoError(t, store.Open(":memory:"))
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_OpenMigrates(t *testing.T) {
	store := setupTestStore(t)

	version, err := store.MigrationVersion()
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)

	for _, table := range []string{"settings", "action_journal"} {
		rows, err := store.db.Query("SELECT 1 FROM " + table + " LIMIT 1")
		require.NoError(t, err, "table %s should exist", table)
		_ = rows.Close()
	}
}

func TestSQLiteStore_OpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")

	store := NewSQLiteStore(nil)
	require.NoError(t, store.Open(path))
	require.NoError(t, store.SetPreferences(context.Background(), json.RawMessage(`{"theme":"dark"}`)))
	require.NoError(t, store.Close())

	reopened := NewSQLiteStore(nil)
	require.NoError(t, reopened.Open(path))
	defer func() { _ = reopened.Close() }()

	prefs, err := reopened.Preferences(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, `{"theme":"dark"}`, string(prefs))
}

func TestSQLiteStore_Preferences(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	_, err := store.Preferences(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.SetPreferences(ctx, json.RawMessage(`{"compact":true}`)))
	require.NoError(t, store.SetPreferences(ctx, json.RawMessage(`{"compact":false,"page_size":25}`)))

	prefs, err := store.Preferences(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"compact":false,"page_size":25}`, string(prefs))

	err = store.SetPreferences(ctx, json.RawMessage(`{broken`))
	assert.Error(t, err)

	require.NoError(t, store.ResetPreferences(ctx))
	_, err = store.Preferences(ctx)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore_Journal(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	base := time.Now().Add(-time.Minute).Truncate(time.Millisecond)
	entries := []JournalEntry{
		{Action: "optimize_route", Target: "r1", Outcome: OutcomeSuccess, Message: "Route optimized successfully", StartedAt: base, FinishedAt: base.Add(200 * time.Millisecond)},
		{Action: "generate_invoice", Target: "42", Outcome: OutcomeFailure, Message: "Failed to generate invoice", StartedAt: base.Add(time.Second), FinishedAt: base.Add(2 * time.Second)},
		{Action: "export_data", Target: "customers", Outcome: OutcomeCancelled, StartedAt: base.Add(2 * time.Second), FinishedAt: base.Add(3 * time.Second)},
	}
	for _, e := range entries {
		require.NoError(t, store.RecordOutcome(ctx, e))
	}

	got, err := store.RecentOutcomes(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "export_data", got[0].Action)
	assert.Equal(t, OutcomeCancelled, got[0].Outcome)
	assert.Equal(t, "generate_invoice", got[1].Action)
	assert.Equal(t, time.Second, got[1].Duration())
	assert.NotEmpty(t, got[0].ID)
}

func TestSQLiteStore_NotOpen(t *testing.T) {
	store := NewSQLiteStore(nil)
	ctx := context.Background()

	_, err := store.Preferences(ctx)
	assert.ErrorIs(t, err, ErrNotOpen)
	assert.ErrorIs(t, store.RecordOutcome(ctx, JournalEntry{}), ErrNotOpen)
	_, err = store.RecentOutcomes(ctx, 1)
	assert.ErrorIs(t, err, ErrNotOpen)
	assert.ErrorIs(t, store.Migrate(), ErrNotOpen)
	assert.NoError(t, store.Close())
}

func TestSQLiteStore_DriverErrors(t *testing.T) {
	tests := []struct {
		name      string
		setupMock func(mock sqlmock.Sqlmock)
		run       func(s *SQLiteStore) error
		errSubstr string
	}{
		{
			name: "read preferences",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT value FROM settings").WillReturnError(errors.New("disk I/O error"))
			},
			run: func(s *SQLiteStore) error {
				_, err := s.Preferences(context.Background())
				return err
			},
			errSubstr: "failed to read preferences",
		},
		{
			name: "record outcome",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("INSERT INTO action_journal").WillReturnError(errors.New("database is locked"))
			},
			run: func(s *SQLiteStore) error {
				return s.RecordOutcome(context.Background(), JournalEntry{Action: "pay_invoice", Outcome: OutcomeSuccess})
			},
			errSubstr: "failed to record outcome",
		},
		{
			name: "scan journal",
			setupMock: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows([]string{"id", "action", "target", "outcome", "message", "started_at", "finished_at"}).
					AddRow("1", "pay_invoice", "9", "success", "", "not-a-number", int64(0))
				mock.ExpectQuery("SELECT id, action, target").WillReturnRows(rows)
			},
			run: func(s *SQLiteStore) error {
				_, err := s.RecentOutcomes(context.Background(), 5)
				return err
			},
			errSubstr: "failed to scan journal entry",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer func() { _ = db.Close() }()

			tt.setupMock(mock)
			err = tt.run(NewWithDB(db, testutil.NewTestLogger(t)))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
