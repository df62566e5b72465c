package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ashureev/agentdesk/internal/domain"
	"github.com/ashureev/agentdesk/internal/shared"
	_ "modernc.org/sqlite"
)

const (
	// DefaultHistoryLimit is used when RecentCommands gets a non-positive limit.
	DefaultHistoryLimit = 50
	maxHistoryLimit     = 500

	maxRetries = 3
	baseDelay  = 100 * time.Millisecond
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	if _, err := s.db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		slog.Debug("Failed to set sqlite journal_mode=WAL", "error", err)
	}

	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS commands (
		id TEXT PRIMARY KEY,
		command TEXT NOT NULL,
		mode TEXT NOT NULL,
		success INTEGER NOT NULL,
		message TEXT NOT NULL DEFAULT '',
		error TEXT NOT NULL DEFAULT '',
		duration_ms INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_commands_created ON commands(created_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// RecordCommand appends one handled command. SQLITE_BUSY and locked errors
// are retried with exponential backoff.
func (s *SQLiteStore) RecordCommand(ctx context.Context, rec *domain.CommandRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	query := `
	INSERT INTO commands (id, command, mode, success, message, error, duration_ms, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	return withRetry(ctx, "record command", func() error {
		_, err := s.db.ExecContext(ctx, query,
			rec.ID, rec.Command, string(rec.Mode), boolToInt(rec.Success),
			rec.Message, rec.Error, rec.DurationMs, rec.CreatedAt.UnixMilli(),
		)
		if err != nil {
			return fmt.Errorf("insert command %s: %w", rec.ID, err)
		}
		return nil
	})
}

// RecentCommands returns up to limit records, newest first.
func (s *SQLiteStore) RecentCommands(ctx context.Context, limit int) ([]domain.CommandRecord, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	limit = min(limit, maxHistoryLimit)

	query := `
		SELECT id, command, mode, success, message, error, duration_ms, created_at
		FROM commands
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query commands: %w", err)
	}
	defer rows.Close()

	records := make([]domain.CommandRecord, 0, limit)
	for rows.Next() {
		var rec domain.CommandRecord
		var mode string
		var success int
		var createdAt int64
		if err := rows.Scan(&rec.ID, &rec.Command, &mode, &success, &rec.Message, &rec.Error, &rec.DurationMs, &createdAt); err != nil {
			return nil, fmt.Errorf("scan command row: %w", err)
		}
		rec.Mode = domain.Mode(mode)
		rec.Success = success != 0
		rec.CreatedAt = time.UnixMilli(createdAt).UTC()
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate command rows: %w", err)
	}
	return records, nil
}

// PruneCommands deletes records created before cutoff and returns how many
// were removed.
func (s *SQLiteStore) PruneCommands(ctx context.Context, cutoff time.Time) (int64, error) {
	var n int64
	err := withRetry(ctx, "prune commands", func() error {
		res, err := s.db.ExecContext(ctx, `DELETE FROM commands WHERE created_at < ?`, cutoff.UnixMilli())
		if err != nil {
			return fmt.Errorf("delete commands: %w", err)
		}
		n, err = res.RowsAffected()
		return err
	})
	return n, err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// withRetry runs fn, retrying SQLite concurrency errors with exponential
// backoff: 100ms, 200ms.
func withRetry(ctx context.Context, op string, fn func() error) error {
	var err error
	for i := 0; i < maxRetries; i++ {
		err = fn()
		if err == nil {
			return nil
		}
		if !shared.IsSQLiteConflictError(err) || i == maxRetries-1 {
			break
		}

		delay := baseDelay * time.Duration(1<<i)
		slog.Debug("SQLite busy, retrying", "op", op, "attempt", i+1, "delay", delay)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
