// Package agent shells out to an external AI coding tool. Any failure is
// reported as ErrAgentUnavailable or ErrAgentOutputEmpty so the caller can
// fall back to the simulator.
package agent

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrAgentUnavailable covers a missing binary, spawn failure, non-zero
	// exit, timeout and recognised upstream API failures.
	ErrAgentUnavailable = errors.New("agent unavailable")
	// ErrAgentOutputEmpty means the process exited 0 without usable text.
	ErrAgentOutputEmpty = errors.New("agent produced no output")
)

// RunSpec describes one agent process.
type RunSpec struct {
	Command string
	Args    []string
	// Dir is the host workspace directory. Docker runs bind-mount it.
	Dir string
	Env []string
}

// RunOutput is what a finished process left behind.
type RunOutput struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner executes agent processes. Run returns an error only when the
// process could not be started or did not finish; a non-zero exit is
// reported through RunOutput.ExitCode.
type Runner interface {
	Name() string
	Run(ctx context.Context, spec RunSpec) (RunOutput, error)
	Probe(ctx context.Context, command string) error
}

// Status describes whether the agent can currently be invoked.
type Status struct {
	Runner    string    `json:"runner"`
	Available bool      `json:"available"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checkedAt"`
}
