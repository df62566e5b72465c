package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"syscall"
	"time"
)

const defaultKillDelay = 5 * time.Second

// LocalRunner runs the agent as a child process on the host.
type LocalRunner struct {
	// MaxOutputBytes bounds each of stdout and stderr.
	MaxOutputBytes int
	// KillDelay is how long a process gets after SIGTERM before it is killed.
	KillDelay time.Duration
}

// Name implements Runner.
func (r *LocalRunner) Name() string { return "local" }

// Run starts spec and waits for it. When ctx ends the process receives
// SIGTERM, then SIGKILL after KillDelay.
func (r *LocalRunner) Run(ctx context.Context, spec RunSpec) (RunOutput, error) {
	stdout := newRingBuffer(r.MaxOutputBytes)
	stderr := newRingBuffer(r.MaxOutputBytes)

	cmd := exec.CommandContext(ctx, spec.Command, spec.Args...)
	cmd.Dir = spec.Dir
	cmd.Env = append(os.Environ(), spec.Env...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = r.killDelay()

	err := cmd.Run()

	out := RunOutput{Stdout: stdout.String(), Stderr: stderr.String(), ExitCode: -1}
	if cmd.ProcessState != nil {
		out.ExitCode = cmd.ProcessState.ExitCode()
	}
	if n := stdout.Dropped() + stderr.Dropped(); n > 0 {
		slog.Warn("Agent output truncated", "command", spec.Command, "dropped_bytes", n)
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return out, fmt.Errorf("agent process %s: %w", spec.Command, ctxErr)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return out, nil
	}
	if err != nil {
		return out, fmt.Errorf("run %s: %w", spec.Command, err)
	}
	return out, nil
}

// Probe checks that command resolves on PATH.
func (r *LocalRunner) Probe(_ context.Context, command string) error {
	if _, err := exec.LookPath(command); err != nil {
		return fmt.Errorf("agent command %q not found: %w", command, err)
	}
	return nil
}

func (r *LocalRunner) killDelay() time.Duration {
	if r.KillDelay > 0 {
		return r.KillDelay
	}
	return defaultKillDelay
}
