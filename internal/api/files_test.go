package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ashureev/agentdesk/internal/markdown"
	"github.com/ashureev/agentdesk/internal/workspace"
	"github.com/go-chi/chi/v5"
)

func newFilesRouter(t *testing.T) (*chi.Mux, *workspace.Store) {
	t.Helper()
	files, err := workspace.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	r := chi.NewRouter()
	NewFilesHandler(NewHandler(&fakeRepo{}, false), files, markdown.Basic{}).RegisterRoutes(r)
	return r, files
}

func TestFilesWriteReadList(t *testing.T) {
	r, _ := newFilesRouter(t)

	req := httptest.NewRequest(http.MethodPut, "/api/files/content", strings.NewReader(`{"path":"notes.md","content":"# Hi\n"}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("PUT status = %d, body %s", w.Code, w.Body.String())
	}
	putBody := decodeBody(t, w)
	if putBody["success"] != true || putBody["savedAt"] == nil {
		t.Fatalf("unexpected PUT body: %v", putBody)
	}
	meta, ok := putBody["file"].(map[string]interface{})
	if !ok || meta["path"] != "notes.md" || meta["kind"] != "markdown" || meta["size"] != float64(len("# Hi\n")) {
		t.Fatalf("unexpected file metadata: %v", putBody["file"])
	}

	req = httptest.NewRequest(http.MethodGet, "/api/files/content?path=notes.md&render=1", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("GET status = %d", w.Code)
	}
	body := decodeBody(t, w)
	if body["content"] != "# Hi\n" {
		t.Errorf("content = %q", body["content"])
	}
	if body["html"] != "<h1>Hi</h1>" {
		t.Errorf("html = %q", body["html"])
	}

	req = httptest.NewRequest(http.MethodGet, "/api/files", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	list, ok := decodeBody(t, w)["files"].([]interface{})
	if !ok || len(list) != 1 {
		t.Fatalf("unexpected files: %v", list)
	}
	if f := list[0].(map[string]interface{}); f["name"] != "notes.md" || f["kind"] != "markdown" {
		t.Errorf("unexpected file entry: %v", f)
	}
}

func TestFilesReadWithoutRenderOmitsHTML(t *testing.T) {
	r, files := newFilesRouter(t)
	if _, err := files.Write(context.Background(), "a.txt", "plain"); err != nil {
		t.Fatal(err)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/files/content?path=a.txt", nil))
	body := decodeBody(t, w)
	if _, ok := body["html"]; ok {
		t.Errorf("html present without render: %v", body)
	}
}

func TestFilesErrors(t *testing.T) {
	tests := []struct {
		name   string
		method string
		target string
		body   string
		want   int
	}{
		{"read traversal", http.MethodGet, "/api/files/content?path=../etc/passwd", "", http.StatusBadRequest},
		{"read missing", http.MethodGet, "/api/files/content?path=nope.md", "", http.StatusNotFound},
		{"read empty path", http.MethodGet, "/api/files/content", "", http.StatusBadRequest},
		{"write absolute", http.MethodPut, "/api/files/content", `{"path":"/tmp/x","content":"x"}`, http.StatusBadRequest},
		{"write without content", http.MethodPut, "/api/files/content", `{"path":"x.md"}`, http.StatusBadRequest},
		{"write bad json", http.MethodPut, "/api/files/content", `{`, http.StatusBadRequest},
		{"delete missing", http.MethodDelete, "/api/files?path=gone.md", "", http.StatusNotFound},
		{"delete traversal body", http.MethodDelete, "/api/files", `{"path":"../x"}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := newFilesRouter(t)
			var req *http.Request
			if tt.body != "" {
				req = httptest.NewRequest(tt.method, tt.target, strings.NewReader(tt.body))
			} else {
				req = httptest.NewRequest(tt.method, tt.target, nil)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tt.want, w.Body.String())
			}
			if body := decodeBody(t, w); body["success"] != false {
				t.Errorf("expected success=false, got %v", body)
			}
		})
	}
}

func TestFilesDelete(t *testing.T) {
	r, files := newFilesRouter(t)
	ctx := context.Background()
	for _, name := range []string{"a.md", "b.md"} {
		if _, err := files.Write(ctx, name, "x"); err != nil {
			t.Fatal(err)
		}
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/files?path=a.md", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("query delete status = %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/files", strings.NewReader(`{"path":"b.md"}`)))
	if w.Code != http.StatusOK {
		t.Fatalf("body delete status = %d", w.Code)
	}

	left, err := files.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(left) != 0 {
		t.Fatalf("files left after delete: %v", left)
	}
}
