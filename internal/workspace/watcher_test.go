package workspace

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ashureev/agentdesk/internal/domain"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *recordingPublisher) Publish(_ context.Context, event domain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingPublisher) has(typ, path string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e.Type == typ && e.Path == path {
			return true
		}
	}
	return false
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("timed out waiting for condition")
}

func TestWatcherReportsCreateAndDelete(t *testing.T) {
	s := newTestStore(t)
	pub := &recordingPublisher{}
	w := NewWatcher(s, pub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	if _, err := s.Write(ctx, "watched.md", "hello"); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	waitFor(t, func() bool { return pub.has(domain.EventFileCreated, "watched.md") })

	if err := s.Delete(ctx, "watched.md"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	waitFor(t, func() bool { return pub.has(domain.EventFileDeleted, "watched.md") })
}

func TestWatcherStopWithoutStart(t *testing.T) {
	s := newTestStore(t)
	w := NewWatcher(s, &recordingPublisher{})
	w.Stop()
}
