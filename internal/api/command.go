package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ashureev/agentdesk/internal/agent"
	"github.com/ashureev/agentdesk/internal/command"
	"github.com/ashureev/agentdesk/internal/domain"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// CommandExecutor runs desktop commands.
type CommandExecutor interface {
	Execute(ctx context.Context, cmd string) (command.Result, error)
}

// AgentStatus reports agent reachability and usage. Nil means the agent is
// disabled.
type AgentStatus interface {
	Probe(ctx context.Context) agent.Status
	Usage() agent.Usage
}

// CommandHandler handles command submission, status and history.
type CommandHandler struct {
	*Handler
	exec   CommandExecutor
	agent  AgentStatus
	health command.HealthReporter
}

// NewCommandHandler creates a command handler. agentStatus and health may
// be nil.
func NewCommandHandler(base *Handler, exec CommandExecutor, agentStatus AgentStatus, health command.HealthReporter) *CommandHandler {
	return &CommandHandler{Handler: base, exec: exec, agent: agentStatus, health: health}
}

// RegisterRoutes registers command routes.
func (h *CommandHandler) RegisterRoutes(r chi.Router) {
	r.Post("/api/command", h.Command)
	r.Get("/api/status", h.Status)
	r.Get("/api/commands", h.History)
}

// StatusResponse is the body of GET /api/status.
type StatusResponse struct {
	Authenticated bool        `json:"authenticated"`
	AgentMode     domain.Mode `json:"agentMode"`
	AuthError     string      `json:"authError"`
	DebugEnabled  bool        `json:"debugEnabled"`
	Usage         agent.Usage `json:"usage"`
}

// Command runs {command} through the agent or the simulator.
func (h *CommandHandler) Command(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Command string `json:"command"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.exec.Execute(r.Context(), req.Command)
	if errors.Is(err, command.ErrEmptyCommand) {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		slog.Error("Command failed", "request_id", chiMiddleware.GetReqID(r.Context()), "error", err)
		JSON(w, http.StatusInternalServerError, res)
		return
	}
	JSON(w, http.StatusOK, res)
}

// Status reports whether the agent is usable and the accumulated usage.
func (h *CommandHandler) Status(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		AgentMode:    domain.ModeSimulated,
		DebugEnabled: h.debug,
		Usage:        agent.Usage{Totals: map[string]any{}},
	}

	if h.agent == nil {
		resp.AuthError = "agent disabled"
		JSON(w, http.StatusOK, resp)
		return
	}

	st := h.agent.Probe(r.Context())
	if h.health != nil {
		h.health.SetAgentServing(st.Available)
	}
	resp.Authenticated = st.Available
	resp.AuthError = st.Error
	if st.Available {
		resp.AgentMode = domain.ModeReal
	}
	resp.Usage = h.agent.Usage()
	JSON(w, http.StatusOK, resp)
}

// History returns recent commands, newest first.
func (h *CommandHandler) History(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			Error(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	records, err := h.repo.RecentCommands(r.Context(), limit)
	if err != nil {
		slog.Error("Failed to load command history", "error", err)
		Error(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{"success": true, "commands": records})
}
