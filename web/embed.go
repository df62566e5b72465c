// Package web embeds the built desktop frontend (dist/) and serves it as a
// single-page application next to the API.
//
// dist/ ships a placeholder index.html until the frontend build replaces it.
// The desktop reads /desk-config.json at boot to learn where the API and the
// event socket live and which experience mode the server runs in.
package web

import (
	"embed"
	"encoding/json"
	"io/fs"
	"log/slog"
	"net/http"
	"path"
	"strings"
)

//go:embed all:dist
var distFS embed.FS

// ConfigPath is where the desktop fetches its runtime settings.
const ConfigPath = "/desk-config.json"

// DeskConfig is the runtime configuration handed to the desktop frontend.
type DeskConfig struct {
	APIBase        string `json:"apiBase"`
	EventsPath     string `json:"eventsPath"`
	ExperienceMode string `json:"experienceMode"`
	AgentEnabled   bool   `json:"agentEnabled"`
}

// SPAHandler serves the embedded desktop with cfg exposed at ConfigPath.
func SPAHandler(cfg DeskConfig) http.Handler {
	subFS, err := fs.Sub(distFS, "dist")
	if err != nil {
		panic("web: failed to create sub filesystem: " + err.Error())
	}
	return spaHandler(subFS, cfg)
}

func spaHandler(assets fs.FS, cfg DeskConfig) http.Handler {
	fileServer := http.FileServer(http.FS(assets))
	configBody, err := json.Marshal(cfg)
	if err != nil {
		panic("web: failed to encode desk config: " + err.Error())
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == ConfigPath {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Cache-Control", "no-store")
			_, _ = w.Write(configBody)
			return
		}

		name := strings.TrimPrefix(path.Clean(r.URL.Path), "/")
		if name != "" && name != "index.html" {
			if f, err := assets.Open(name); err == nil {
				if closeErr := f.Close(); closeErr != nil {
					slog.Debug("web: failed to close embedded file", "path", name, "error", closeErr)
				}
				// Built assets carry content hashes in their names.
				w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
				fileServer.ServeHTTP(w, r)
				return
			}
		}

		// The shell must never be cached or a new build would not load.
		w.Header().Set("Cache-Control", "no-cache")
		r.URL.Path = "/"
		fileServer.ServeHTTP(w, r)
	})
}
