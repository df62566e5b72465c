package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/ashureev/agentdesk/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "nested", "agentdesk.db"))
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRecordAndListCommands(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		rec := &domain.CommandRecord{
			ID:         fmt.Sprintf("cmd-%d", i),
			Command:    fmt.Sprintf("command %d", i),
			Mode:       domain.ModeSimulatedFallback,
			Success:    true,
			Message:    "ok",
			Error:      "agent unavailable",
			DurationMs: int64(10 * i),
			CreatedAt:  base.Add(time.Duration(i) * time.Second),
		}
		if err := s.RecordCommand(ctx, rec); err != nil {
			t.Fatalf("RecordCommand failed: %v", err)
		}
	}

	got, err := s.RecentCommands(ctx, 2)
	if err != nil {
		t.Fatalf("RecentCommands failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	if got[0].ID != "cmd-2" || got[1].ID != "cmd-1" {
		t.Fatalf("expected newest first, got %s, %s", got[0].ID, got[1].ID)
	}

	first := got[0]
	if first.Mode != domain.ModeSimulatedFallback || !first.Success || first.DurationMs != 20 || first.Error != "agent unavailable" {
		t.Fatalf("unexpected record: %+v", first)
	}
	if !first.CreatedAt.Equal(base.Add(2 * time.Second)) {
		t.Fatalf("CreatedAt = %v", first.CreatedAt)
	}
}

func TestRecordCommandDefaultsCreatedAt(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	rec := &domain.CommandRecord{ID: "x", Command: "c", Mode: domain.ModeReal}
	if err := s.RecordCommand(ctx, rec); err != nil {
		t.Fatalf("RecordCommand failed: %v", err)
	}
	if rec.CreatedAt.IsZero() {
		t.Fatal("expected CreatedAt to be filled in")
	}

	got, err := s.RecentCommands(ctx, 0)
	if err != nil {
		t.Fatalf("RecentCommands failed: %v", err)
	}
	if len(got) != 1 || got[0].Success {
		t.Fatalf("unexpected records: %+v", got)
	}
}

func TestRecordCommandDuplicateID(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	rec := &domain.CommandRecord{ID: "dup", Command: "c", Mode: domain.ModeReal}
	if err := s.RecordCommand(ctx, rec); err != nil {
		t.Fatalf("RecordCommand failed: %v", err)
	}
	if err := s.RecordCommand(ctx, rec); err == nil {
		t.Fatal("expected primary key violation")
	}
}

func TestPing(t *testing.T) {
	s := newTestStore(t)
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
}

func TestWithRetry(t *testing.T) {
	t.Parallel()

	calls := 0
	err := withRetry(context.Background(), "op", func() error {
		calls++
		if calls < 2 {
			return errors.New("database is locked (5) (SQLITE_BUSY)")
		}
		return nil
	})
	if err != nil || calls != 2 {
		t.Fatalf("withRetry = %v after %d calls", err, calls)
	}

	calls = 0
	permanent := errors.New("constraint failed")
	err = withRetry(context.Background(), "op", func() error {
		calls++
		return permanent
	})
	if !errors.Is(err, permanent) || calls != 1 {
		t.Fatalf("withRetry = %v after %d calls, want one attempt", err, calls)
	}

	calls = 0
	err = withRetry(context.Background(), "op", func() error {
		calls++
		return errors.New("SQLITE_BUSY")
	})
	if err == nil || calls != maxRetries {
		t.Fatalf("withRetry = %v after %d calls, want %d attempts", err, calls, maxRetries)
	}
}
