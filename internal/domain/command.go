package domain

import "time"

// Mode reports how a command was fulfilled.
type Mode string

const (
	// ModeReal means the external agent handled the command.
	ModeReal Mode = "REAL"
	// ModeSimulated means the agent is disabled and the simulator answered.
	ModeSimulated Mode = "SIMULATED"
	// ModeSimulatedFallback means the agent failed and the simulator answered instead.
	ModeSimulatedFallback Mode = "SIMULATED_FALLBACK"
)

// AgentInvocationResult is the outcome of one agent process run. It is never persisted.
type AgentInvocationResult struct {
	Succeeded  bool           `json:"succeeded"`
	OutputText string         `json:"outputText"`
	UsageStats map[string]any `json:"usageStats,omitempty"`
}

// CommandRecord is one handled command in the history log.
type CommandRecord struct {
	ID         string    `json:"id"`
	Command    string    `json:"command"`
	Mode       Mode      `json:"mode"`
	Success    bool      `json:"success"`
	Message    string    `json:"message"`
	Error      string    `json:"error,omitempty"`
	DurationMs int64     `json:"durationMs"`
	CreatedAt  time.Time `json:"createdAt"`
}
