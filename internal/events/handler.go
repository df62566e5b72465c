package events

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ashureev/agentdesk/internal/domain"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
)

// Event types exchanged only on the socket itself.
const (
	TypeHello = "hello"
	TypePing  = "ping"
	TypePong  = "pong"
)

type clientMessage struct {
	Type string `json:"type"`
}

// Handler upgrades GET /ws/events and keeps the connection registered with
// the hub until the client goes away.
type Handler struct {
	hub            *Hub
	originPatterns []string
}

// NewHandler creates a handler accepting the given origins. An empty list
// or "*" accepts any origin.
func NewHandler(hub *Hub, allowedOrigins []string) *Handler {
	return &Handler{hub: hub, originPatterns: originPatterns(allowedOrigins)}
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// The server's read/write timeouts would otherwise survive the hijack.
	rc := http.NewResponseController(w)
	_ = rc.SetReadDeadline(time.Time{})
	_ = rc.SetWriteDeadline(time.Time{})

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		slog.Warn("Failed to accept event WebSocket", "error", err, "ip", r.RemoteAddr)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "bye"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr)
		}
	}()

	clientID := uuid.NewString()
	ctx := r.Context()

	if err := h.write(ctx, ws, domain.Event{Type: TypeHello, At: time.Now().UTC(), Data: map[string]string{"clientId": clientID}}); err != nil {
		slog.Debug("Failed to greet event client", "error", err)
		return
	}

	h.hub.Register(clientID, ws)
	defer h.hub.Unregister(clientID, ws)

	h.readLoop(ctx, ws, clientID)
}

func (h *Handler) readLoop(ctx context.Context, ws *websocket.Conn, clientID string) {
	for {
		var msg clientMessage
		if err := wsjson.Read(ctx, ws, &msg); err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("Event client closed", "client_id", clientID)
			} else {
				slog.Debug("Event client read error", "client_id", clientID, "error", err)
			}
			return
		}

		if msg.Type == TypePing {
			if err := h.write(ctx, ws, domain.Event{Type: TypePong, At: time.Now().UTC()}); err != nil {
				slog.Debug("Failed to answer ping", "client_id", clientID, "error", err)
				return
			}
		}
	}
}

func (h *Handler) write(ctx context.Context, ws *websocket.Conn, ev domain.Event) error {
	ctx, cancel := context.WithTimeout(ctx, h.hub.writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, ws, ev)
}

// originPatterns converts configured origins such as
// "http://localhost:5173" to the host patterns websocket.Accept expects.
func originPatterns(origins []string) []string {
	var patterns []string
	for _, o := range origins {
		o = strings.TrimSpace(o)
		if o == "" {
			continue
		}
		if o == "*" {
			return []string{"*"}
		}
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			patterns = append(patterns, u.Host)
			continue
		}
		patterns = append(patterns, o)
	}
	if len(patterns) == 0 {
		return []string{"*"}
	}
	return patterns
}
