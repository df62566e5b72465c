package middleware

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestCORS(t *testing.T) {
	tests := []struct {
		name       string
		allowed    []string
		origin     string
		wantOrigin string
		wantCreds  bool
		method     string
		wantStatus int
	}{
		{name: "explicit origin", allowed: []string{"http://localhost:5173"}, origin: "http://localhost:5173", wantOrigin: "http://localhost:5173", wantCreds: true, method: http.MethodGet, wantStatus: http.StatusOK},
		{name: "wildcard has no credentials", allowed: []string{"*"}, origin: "http://evil.test", wantOrigin: "http://evil.test", method: http.MethodGet, wantStatus: http.StatusOK},
		{name: "explicit wins over wildcard", allowed: []string{"*", "http://a.test"}, origin: "http://a.test", wantOrigin: "http://a.test", wantCreds: true, method: http.MethodGet, wantStatus: http.StatusOK},
		{name: "disallowed origin", allowed: []string{"http://a.test"}, origin: "http://b.test", method: http.MethodGet, wantStatus: http.StatusOK},
		{name: "preflight", allowed: []string{"*"}, origin: "http://a.test", wantOrigin: "http://a.test", method: http.MethodOptions, wantStatus: http.StatusNoContent},
		{name: "no origin header", allowed: []string{"*"}, method: http.MethodGet, wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/files", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			w := httptest.NewRecorder()
			CORS(tt.allowed)(okHandler).ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if got := w.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("Allow-Origin = %q, want %q", got, tt.wantOrigin)
			}
			if got := w.Header().Get("Access-Control-Allow-Credentials") == "true"; got != tt.wantCreds {
				t.Errorf("Allow-Credentials = %v, want %v", got, tt.wantCreds)
			}
		})
	}
}

func TestMaxBodyBytes(t *testing.T) {
	var readErr error
	h := MaxBodyBytes(4)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, readErr = io.ReadAll(r.Body)
	}))

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("0123456789"))
	h.ServeHTTP(httptest.NewRecorder(), req)

	var maxErr *http.MaxBytesError
	if !errors.As(readErr, &maxErr) {
		t.Fatalf("expected MaxBytesError, got %v", readErr)
	}
}
