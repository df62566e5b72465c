package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ashureev/agentdesk/internal/domain"
	"github.com/ashureev/agentdesk/internal/markdown"
	"github.com/ashureev/agentdesk/internal/workspace"
	"github.com/go-chi/chi/v5"
)

// FileStore is the workspace file API the handlers need.
type FileStore interface {
	List(ctx context.Context) ([]domain.WorkspaceFile, error)
	Read(ctx context.Context, rel string) (string, error)
	Write(ctx context.Context, rel, content string) (time.Time, error)
	Stat(ctx context.Context, rel string) (domain.WorkspaceFile, error)
	Delete(ctx context.Context, rel string) error
}

// FilesHandler handles workspace file endpoints.
type FilesHandler struct {
	*Handler
	files    FileStore
	renderer markdown.Renderer
}

// NewFilesHandler creates a files handler.
func NewFilesHandler(base *Handler, files FileStore, renderer markdown.Renderer) *FilesHandler {
	return &FilesHandler{Handler: base, files: files, renderer: renderer}
}

// RegisterRoutes registers file routes.
func (h *FilesHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/files", func(r chi.Router) {
		r.Get("/", h.List)
		r.Delete("/", h.Delete)
		r.Get("/content", h.Read)
		r.Put("/content", h.Write)
	})
}

type writeFileRequest struct {
	Path    string  `json:"path"`
	Content *string `json:"content"`
}

type deleteFileRequest struct {
	Path string `json:"path"`
}

// List returns every file in the workspace root.
func (h *FilesHandler) List(w http.ResponseWriter, r *http.Request) {
	files, err := h.files.List(r.Context())
	if err != nil {
		h.fileError(w, "list", "", err)
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{"success": true, "files": files})
}

// Read returns one file's content, plus rendered HTML when render=1.
func (h *FilesHandler) Read(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	content, err := h.files.Read(r.Context(), path)
	if err != nil {
		h.fileError(w, "read", path, err)
		return
	}

	resp := map[string]interface{}{"success": true, "path": path, "content": content}
	if render, _ := strconv.ParseBool(r.URL.Query().Get("render")); render {
		html, err := h.renderer.Render(content)
		if err != nil {
			slog.Error("Failed to render markdown", "path", path, "error", err)
			Error(w, http.StatusInternalServerError, "failed to render file")
			return
		}
		resp["html"] = html
	}
	JSON(w, http.StatusOK, resp)
}

// Write creates or replaces a file and returns its metadata after the save.
func (h *FilesHandler) Write(w http.ResponseWriter, r *http.Request) {
	var req writeFileRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Content == nil {
		Error(w, http.StatusBadRequest, "content is required")
		return
	}

	savedAt, err := h.files.Write(r.Context(), req.Path, *req.Content)
	if err != nil {
		h.fileError(w, "write", req.Path, err)
		return
	}
	resp := map[string]interface{}{"success": true, "path": req.Path, "savedAt": savedAt}
	if meta, err := h.files.Stat(r.Context(), req.Path); err == nil {
		resp["file"] = meta
	} else {
		slog.Warn("Saved file but could not stat it", "path", req.Path, "error", err)
	}
	JSON(w, http.StatusOK, resp)
}

// Delete removes a file named by the JSON body or the path query parameter.
func (h *FilesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" && r.ContentLength != 0 {
		var req deleteFileRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		path = req.Path
	}

	if err := h.files.Delete(r.Context(), path); err != nil {
		h.fileError(w, "delete", path, err)
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

func (h *FilesHandler) fileError(w http.ResponseWriter, op, path string, err error) {
	switch {
	case errors.Is(err, workspace.ErrInvalidPath):
		Error(w, http.StatusBadRequest, "invalid path")
	case errors.Is(err, workspace.ErrNotFound):
		Error(w, http.StatusNotFound, "file not found")
	default:
		slog.Error("Workspace operation failed", "op", op, "path", path, "error", err)
		Error(w, http.StatusInternalServerError, "workspace operation failed")
	}
}
