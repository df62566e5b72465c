package api

import (
	"log/slog"
	"net/http"

	"github.com/ashureev/agentdesk/internal/markdown"
	"github.com/go-chi/chi/v5"
)

// MarkdownHandler converts between markdown and editor HTML.
type MarkdownHandler struct {
	renderer markdown.Renderer
}

// NewMarkdownHandler creates a markdown handler.
func NewMarkdownHandler(renderer markdown.Renderer) *MarkdownHandler {
	return &MarkdownHandler{renderer: renderer}
}

// RegisterRoutes registers markdown routes.
func (h *MarkdownHandler) RegisterRoutes(r chi.Router) {
	r.Post("/api/markdown/render", h.Render)
	r.Post("/api/markdown/serialize", h.Serialize)
}

// Render converts {markdown} to {html}.
func (h *MarkdownHandler) Render(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Markdown string `json:"markdown"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	html, err := h.renderer.Render(req.Markdown)
	if err != nil {
		slog.Error("Failed to render markdown", "error", err)
		Error(w, http.StatusInternalServerError, "failed to render markdown")
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{"success": true, "html": html})
}

// Serialize converts editor {html} back to {markdown}.
func (h *MarkdownHandler) Serialize(w http.ResponseWriter, r *http.Request) {
	var req struct {
		HTML string `json:"html"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	md, err := markdown.SerializeHTML(req.HTML)
	if err != nil {
		Error(w, http.StatusBadRequest, "invalid HTML")
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{"success": true, "markdown": md})
}
