package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ashureev/agentdesk/internal/domain"
)

const (
	promptPlaceholder = "{prompt}"
	defaultTimeout    = 45 * time.Second
	stderrTailBytes   = 512
)

// failureSignatures are substrings that the agent CLIs print when the
// upstream model API rejected the call even though the process exited 0.
var failureSignatures = []string{
	"API Error",
	"Invalid API key",
	"authentication_error",
	"permission_error",
	"rate_limit_error",
	"overloaded_error",
	"Credit balance is too low",
	"RESOURCE_EXHAUSTED",
	"Quota exceeded",
	"Please set an Auth method",
}

// Config controls how the agent process is launched.
type Config struct {
	Command string
	// Args may contain {prompt}; without it the prompt is appended.
	Args         []string
	Dir          string
	Env          []string
	Timeout      time.Duration
	AllowedFiles []string
}

// Invoker runs one agent process per command.
type Invoker struct {
	cfg    Config
	runner Runner
	stats  *StatsAccumulator
}

// NewInvoker creates an invoker. stats may be nil.
func NewInvoker(cfg Config, runner Runner, stats *StatsAccumulator) *Invoker {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if stats == nil {
		stats = NewStatsAccumulator(Usage{})
	}
	return &Invoker{cfg: cfg, runner: runner, stats: stats}
}

// Invoke asks the agent to carry out command. Every failure wraps
// ErrAgentUnavailable or ErrAgentOutputEmpty.
func (i *Invoker) Invoke(ctx context.Context, command string) (*domain.AgentInvocationResult, error) {
	ctx, cancel := context.WithTimeout(ctx, i.cfg.Timeout)
	defer cancel()

	spec := RunSpec{
		Command: i.cfg.Command,
		Args:    buildArgs(i.cfg.Args, BuildPrompt(command, i.cfg.AllowedFiles)),
		Dir:     i.cfg.Dir,
		Env:     i.cfg.Env,
	}

	start := time.Now()
	out, err := i.runner.Run(ctx, spec)
	duration := time.Since(start)

	if err != nil {
		i.stats.AddFailure()
		if errors.Is(err, context.DeadlineExceeded) {
			slog.Warn("Agent timed out", "runner", i.runner.Name(), "timeout", i.cfg.Timeout)
			return nil, fmt.Errorf("%w: timed out after %s", ErrAgentUnavailable, i.cfg.Timeout)
		}
		slog.Warn("Agent failed to run", "runner", i.runner.Name(), "error", err)
		return nil, fmt.Errorf("%w: %v", ErrAgentUnavailable, err)
	}

	text, stats, err := ParseOutput(out)
	if err != nil {
		i.stats.AddFailure()
		slog.Warn("Agent call failed", "runner", i.runner.Name(), "exit_code", out.ExitCode, "duration_ms", duration.Milliseconds(), "error", err)
		return nil, err
	}

	i.stats.Add(stats)
	slog.Info("Agent call succeeded", "runner", i.runner.Name(), "duration_ms", duration.Milliseconds(), "output_bytes", len(text))
	return &domain.AgentInvocationResult{
		Succeeded:  true,
		OutputText: text,
		UsageStats: stats,
	}, nil
}

// Probe reports whether the agent can be reached right now.
func (i *Invoker) Probe(ctx context.Context) Status {
	st := Status{Runner: i.runner.Name(), CheckedAt: time.Now().UTC()}
	if err := i.runner.Probe(ctx, i.cfg.Command); err != nil {
		st.Error = err.Error()
		return st
	}
	st.Available = true
	return st
}

// Usage returns the accumulated usage stats.
func (i *Invoker) Usage() Usage {
	return i.stats.Snapshot()
}

// BuildPrompt wraps the user's request with the workspace constraints.
func BuildPrompt(command string, allowedFiles []string) string {
	var b strings.Builder
	b.WriteString("You are editing a desktop workspace on behalf of its user.\n")
	b.WriteString("User request: ")
	b.WriteString(strings.TrimSpace(command))
	b.WriteString("\n")
	if len(allowedFiles) > 0 {
		b.WriteString("Only create or modify files in the current directory and these UI source files: ")
		b.WriteString(strings.Join(allowedFiles, ", "))
		b.WriteString(".\n")
	} else {
		b.WriteString("Only create or modify files in the current directory.\n")
	}
	b.WriteString("When you are done, reply with a short summary of what you changed.")
	return b.String()
}

func buildArgs(template []string, prompt string) []string {
	args := make([]string, 0, len(template)+1)
	substituted := false
	for _, a := range template {
		if strings.Contains(a, promptPlaceholder) {
			a = strings.ReplaceAll(a, promptPlaceholder, prompt)
			substituted = true
		}
		args = append(args, a)
	}
	if !substituted {
		args = append(args, prompt)
	}
	return args
}

type envelope struct {
	Response string         `json:"response"`
	Stats    map[string]any `json:"stats"`
	Error    any            `json:"error"`
}

// ParseOutput extracts the response text and usage stats from a finished
// process. Stdout may be plain text or a JSON envelope
// {"response", "stats", "error"}.
func ParseOutput(out RunOutput) (string, map[string]any, error) {
	if out.ExitCode != 0 {
		return "", nil, fmt.Errorf("%w: exit status %d: %s", ErrAgentUnavailable, out.ExitCode, tail(out.Stderr, stderrTailBytes))
	}
	if sig := findFailureSignature(out.Stderr); sig != "" {
		return "", nil, fmt.Errorf("%w: upstream error %q", ErrAgentUnavailable, sig)
	}

	stdout := strings.TrimSpace(out.Stdout)
	if env, ok := decodeEnvelope(stdout); ok {
		if msg := errorMessage(env.Error); msg != "" {
			return "", nil, fmt.Errorf("%w: %s", ErrAgentUnavailable, msg)
		}
		text := strings.TrimSpace(env.Response)
		if text == "" {
			return "", nil, ErrAgentOutputEmpty
		}
		return text, env.Stats, nil
	}

	if sig := findFailureSignature(stdout); sig != "" {
		return "", nil, fmt.Errorf("%w: upstream error %q", ErrAgentUnavailable, sig)
	}
	if stdout == "" {
		return "", nil, ErrAgentOutputEmpty
	}
	return stdout, nil, nil
}

// decodeEnvelope accepts the whole output as JSON, or the span between the
// first '{' and the last '}' when the CLI printed log lines around it. An
// object is only an envelope when it carries a response, stats or error key;
// any other JSON is part of a plain-text reply.
func decodeEnvelope(s string) (envelope, bool) {
	if env, ok := envelopeFrom(s); ok {
		return env, true
	}
	start, end := strings.Index(s, "{"), strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return envelope{}, false
	}
	return envelopeFrom(s[start : end+1])
}

func envelopeFrom(s string) (envelope, bool) {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal([]byte(s), &keys); err != nil {
		return envelope{}, false
	}
	if !hasAnyKey(keys, "response", "stats", "error") {
		return envelope{}, false
	}
	var env envelope
	if err := json.Unmarshal([]byte(s), &env); err != nil {
		return envelope{}, false
	}
	return env, true
}

func hasAnyKey(m map[string]json.RawMessage, keys ...string) bool {
	for _, k := range keys {
		if _, ok := m[k]; ok {
			return true
		}
	}
	return false
}

func errorMessage(v any) string {
	switch e := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(e)
	case map[string]any:
		if msg, ok := e["message"].(string); ok && msg != "" {
			return msg
		}
		b, _ := json.Marshal(e)
		return string(b)
	case bool:
		if e {
			return "agent reported an error"
		}
		return ""
	default:
		return fmt.Sprint(e)
	}
}

func findFailureSignature(s string) string {
	for _, sig := range failureSignatures {
		if strings.Contains(s, sig) {
			return sig
		}
	}
	return ""
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
