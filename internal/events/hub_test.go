package events

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ashureev/agentdesk/internal/domain"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/go-cmp/cmp"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) domain.Event {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var ev domain.Event
	if err := wsjson.Read(ctx, conn, &ev); err != nil {
		t.Fatalf("read event: %v", err)
	}
	return ev
}

func waitForCount(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if hub.Count() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("hub has %d clients, want %d", hub.Count(), want)
}

func TestHubFansOutEvents(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(NewHandler(hub, []string{"*"}))
	defer srv.Close()

	a := dial(t, srv)
	b := dial(t, srv)
	if ev := readEvent(t, a); ev.Type != TypeHello {
		t.Fatalf("expected hello, got %+v", ev)
	}
	if ev := readEvent(t, b); ev.Type != TypeHello {
		t.Fatalf("expected hello, got %+v", ev)
	}
	waitForCount(t, hub, 2)

	hub.Publish(context.Background(), domain.Event{Type: domain.EventFileCreated, Path: "notes.md"})

	for _, conn := range []*websocket.Conn{a, b} {
		ev := readEvent(t, conn)
		if ev.Type != domain.EventFileCreated || ev.Path != "notes.md" || ev.At.IsZero() {
			t.Fatalf("unexpected event: %+v", ev)
		}
	}
}

func TestHandlerAnswersPing(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(NewHandler(hub, nil))
	defer srv.Close()

	conn := dial(t, srv)
	readEvent(t, conn)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := wsjson.Write(ctx, conn, map[string]string{"type": TypePing}); err != nil {
		t.Fatalf("write ping: %v", err)
	}
	if ev := readEvent(t, conn); ev.Type != TypePong {
		t.Fatalf("expected pong, got %+v", ev)
	}
}

func TestHubDropsClosedClients(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(NewHandler(hub, nil))
	defer srv.Close()

	conn := dial(t, srv)
	readEvent(t, conn)
	waitForCount(t, hub, 1)

	_ = conn.Close(websocket.StatusNormalClosure, "done")
	waitForCount(t, hub, 0)

	// Publishing with no clients is a no-op.
	hub.Publish(context.Background(), domain.Event{Type: domain.EventFileDeleted})
}

func TestOriginPatterns(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   []string
		want []string
	}{
		{nil, []string{"*"}},
		{[]string{"*"}, []string{"*"}},
		{[]string{"http://localhost:5173", " https://desk.example.com "}, []string{"localhost:5173", "desk.example.com"}},
		{[]string{"localhost:3000", "*"}, []string{"*"}},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, originPatterns(tt.in)); diff != "" {
			t.Errorf("originPatterns(%v) mismatch (-want +got):\n%s", tt.in, diff)
		}
	}
}
