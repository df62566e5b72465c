// Package events pushes workspace and command notifications to connected
// desktop clients over WebSocket.
package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ashureev/agentdesk/internal/domain"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

const defaultWriteTimeout = 5 * time.Second

// Hub tracks active WebSocket connections and fans events out to them.
type Hub struct {
	mu           sync.RWMutex
	clients      map[string]*websocket.Conn
	writeTimeout time.Duration
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		clients:      make(map[string]*websocket.Conn),
		writeTimeout: defaultWriteTimeout,
	}
}

// Register adds a connection under id, replacing any previous one.
func (h *Hub) Register(id string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if existing, ok := h.clients[id]; ok && existing != conn {
		_ = existing.Close(websocket.StatusNormalClosure, "client replaced")
	}
	h.clients[id] = conn
	slog.Info("Event client registered", "client_id", id, "clients", len(h.clients))
}

// Unregister removes id if it still maps to conn.
func (h *Hub) Unregister(id string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if current, ok := h.clients[id]; ok && current == conn {
		delete(h.clients, id)
		slog.Info("Event client unregistered", "client_id", id, "clients", len(h.clients))
	}
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Publish sends event to every client. A client whose write fails or
// times out is closed and dropped.
func (h *Hub) Publish(ctx context.Context, event domain.Event) {
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}

	h.mu.RLock()
	targets := make(map[string]*websocket.Conn, len(h.clients))
	for id, conn := range h.clients {
		targets[id] = conn
	}
	h.mu.RUnlock()

	// Events outlive the request that caused them.
	ctx = context.WithoutCancel(ctx)
	for id, conn := range targets {
		writeCtx, cancel := context.WithTimeout(ctx, h.writeTimeout)
		err := wsjson.Write(writeCtx, conn, event)
		cancel()
		if err != nil {
			slog.Debug("Dropping event client after failed write", "client_id", id, "type", event.Type, "error", err)
			_ = conn.Close(websocket.StatusGoingAway, "write failed")
			h.Unregister(id, conn)
		}
	}
}

// CloseAll disconnects every client.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, conn := range h.clients {
		_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
		delete(h.clients, id)
	}
}
