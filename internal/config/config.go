// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	minAgentTimeout = time.Second
	maxAgentTimeout = 10 * time.Minute
)

// Config holds all application configuration.
type Config struct {
	Port                string
	FrontendURL         string
	WorkspaceDir        string
	DBPath              string
	Debug               bool
	ExperienceMode      string // "files" or "component"
	MarkdownEngine      string // "basic" or "commonmark"
	WatchWorkspace      bool
	GRPCHealthAddr      string // empty disables the gRPC health server
	MaxRequestBodyBytes int64
	CORSAllowedOrigins  []string
	InContainer         bool          // set from CONTAINER=true or /.dockerenv
	HistoryRetention    time.Duration // 0 keeps history forever
	Agent               AgentConfig
}

// AgentConfig controls how the external agent is launched.
type AgentConfig struct {
	Enabled        bool
	Command        string
	Args           []string
	Timeout        time.Duration
	Runner         string // "local" or "docker"
	DockerImage    string
	MaxOutputBytes int
	AllowedFiles   []string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:                getEnv("PORT", "8080"),
		FrontendURL:         getEnv("FRONTEND_URL", ""),
		WorkspaceDir:        getEnv("WORKSPACE_DIR", "./data/workspace"),
		DBPath:              getEnv("DB_PATH", "./data/agentdesk.db"),
		Debug:               getEnvBool("DEBUG", false),
		InContainer:         detectContainer(dockerEnvFile),
		ExperienceMode:      strings.ToLower(getEnv("EXPERIENCE_MODE", "files")),
		MarkdownEngine:      strings.ToLower(getEnv("MARKDOWN_ENGINE", "basic")),
		WatchWorkspace:      getEnvBool("WATCH_WORKSPACE", true),
		GRPCHealthAddr:      getEnv("GRPC_HEALTH_ADDR", ""),
		MaxRequestBodyBytes: int64(getEnvInt("MAX_REQUEST_BODY_BYTES", 1<<20)),
		CORSAllowedOrigins:  getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		HistoryRetention:    getEnvDuration("HISTORY_RETENTION", 30*24*time.Hour),
		Agent: AgentConfig{
			Enabled:        getEnvBool("AGENT_ENABLED", true),
			Command:        getEnv("AGENT_COMMAND", "gemini"),
			Args:           strings.Fields(getEnv("AGENT_ARGS", "-p {prompt} --output-format json --yolo")),
			Timeout:        getEnvDuration("AGENT_TIMEOUT", 45*time.Second),
			Runner:         strings.ToLower(getEnv("AGENT_RUNNER", "local")),
			DockerImage:    getEnv("AGENT_DOCKER_IMAGE", ""),
			MaxOutputBytes: getEnvInt("AGENT_MAX_OUTPUT_BYTES", 1<<20),
			AllowedFiles:   getEnvList("AGENT_ALLOWED_FILES", nil),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.WorkspaceDir == "" {
		return fmt.Errorf("WORKSPACE_DIR cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	switch c.ExperienceMode {
	case "files", "component":
	default:
		return fmt.Errorf("EXPERIENCE_MODE must be files or component, got %q", c.ExperienceMode)
	}
	switch c.MarkdownEngine {
	case "basic", "commonmark":
	default:
		return fmt.Errorf("MARKDOWN_ENGINE must be basic or commonmark, got %q", c.MarkdownEngine)
	}
	if c.MaxRequestBodyBytes <= 0 {
		return fmt.Errorf("MAX_REQUEST_BODY_BYTES must be > 0")
	}
	if c.HistoryRetention < 0 {
		return fmt.Errorf("HISTORY_RETENTION cannot be negative")
	}
	return c.Agent.validate()
}

func (a *AgentConfig) validate() error {
	if !a.Enabled {
		return nil
	}
	if a.Command == "" {
		return fmt.Errorf("AGENT_COMMAND cannot be empty when the agent is enabled")
	}
	if a.Timeout < minAgentTimeout || a.Timeout > maxAgentTimeout {
		return fmt.Errorf("AGENT_TIMEOUT must be between %s and %s, got %s", minAgentTimeout, maxAgentTimeout, a.Timeout)
	}
	if a.MaxOutputBytes <= 0 {
		return fmt.Errorf("AGENT_MAX_OUTPUT_BYTES must be > 0")
	}
	switch a.Runner {
	case "local":
	case "docker":
		if a.DockerImage == "" {
			return fmt.Errorf("AGENT_DOCKER_IMAGE is required when AGENT_RUNNER=docker")
		}
	default:
		return fmt.Errorf("AGENT_RUNNER must be local or docker, got %q", a.Runner)
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

// AllowedOrigins returns the CORS origins, including FRONTEND_URL when set.
func (c *Config) AllowedOrigins() []string {
	origins := append([]string(nil), c.CORSAllowedOrigins...)
	if c.FrontendURL != "" {
		origins = append(origins, strings.TrimRight(c.FrontendURL, "/"))
	}
	return origins
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

// getEnvDuration accepts Go durations ("45s") or a bare number of seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	value = strings.TrimSpace(value)
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

const dockerEnvFile = "/.dockerenv"

// detectContainer reports whether the server runs inside a container, either
// because CONTAINER=true or because marker exists.
func detectContainer(marker string) bool {
	if getEnvBool("CONTAINER", false) {
		return true
	}
	_, err := os.Stat(marker)
	return err == nil
}
