// Package command routes a desktop command to the external agent and falls
// back to the simulator when the agent is disabled or fails.
package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ashureev/agentdesk/internal/agent"
	"github.com/ashureev/agentdesk/internal/domain"
	"github.com/ashureev/agentdesk/internal/simulator"
	"github.com/google/uuid"
)

// ErrEmptyCommand is returned for blank commands.
var ErrEmptyCommand = errors.New("command is required")

// Agent invokes the external agent.
type Agent interface {
	Invoke(ctx context.Context, command string) (*domain.AgentInvocationResult, error)
}

// Experience produces simulated output for a classified command.
type Experience interface {
	Write(ctx context.Context, command string, profile domain.ContentProfile) (simulator.Output, error)
}

// History records handled commands.
type History interface {
	RecordCommand(ctx context.Context, rec *domain.CommandRecord) error
}

// HealthReporter is told whether the latest agent call worked.
type HealthReporter interface {
	SetAgentServing(ok bool)
}

// Publisher fans events out to desktop clients.
type Publisher interface {
	Publish(ctx context.Context, event domain.Event)
}

// Result is the response to one command.
type Result struct {
	ID      string      `json:"id"`
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Mode    domain.Mode `json:"mode"`
	Result  any         `json:"result,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Options wires the service. Agent nil means the agent is disabled.
// History, Health and Events are optional.
type Options struct {
	Agent      Agent
	Experience Experience
	History    History
	Health     HealthReporter
	Events     Publisher
}

// Service executes commands.
type Service struct {
	agent      Agent
	experience Experience
	history    History
	health     HealthReporter
	events     Publisher
}

// NewService creates a command service.
func NewService(opts Options) (*Service, error) {
	if opts.Experience == nil {
		return nil, fmt.Errorf("command service requires an experience writer")
	}
	return &Service{
		agent:      opts.Agent,
		experience: opts.Experience,
		history:    opts.History,
		health:     opts.Health,
		events:     opts.Events,
	}, nil
}

// AgentEnabled reports whether commands are sent to the agent first.
func (s *Service) AgentEnabled() bool {
	return s.agent != nil
}

// Execute handles one command. Agent failures never surface as errors;
// they switch the result to SIMULATED_FALLBACK and carry the agent error
// message. An error is returned only for a blank command or when the
// simulator itself cannot save its output.
func (s *Service) Execute(ctx context.Context, command string) (Result, error) {
	command = strings.TrimSpace(command)
	if command == "" {
		return Result{}, ErrEmptyCommand
	}

	start := time.Now()
	res := Result{ID: uuid.NewString()}

	mode := domain.ModeSimulated
	if s.agent != nil {
		out, err := s.agent.Invoke(ctx, command)
		s.reportAgent(err == nil)
		if err == nil {
			res.Success = true
			res.Mode = domain.ModeReal
			res.Message = "Agent completed the request"
			res.Result = out
			s.finish(ctx, command, res, start)
			return res, nil
		}
		if !errors.Is(err, agent.ErrAgentUnavailable) && !errors.Is(err, agent.ErrAgentOutputEmpty) {
			slog.Warn("Unexpected agent error, falling back", "error", err)
		}
		mode = domain.ModeSimulatedFallback
		res.Error = err.Error()
	}

	profile := simulator.Classify(command)
	out, err := s.experience.Write(ctx, command, profile)
	if err != nil {
		res.Mode = mode
		res.Message = "Simulator failed"
		if res.Error == "" {
			res.Error = err.Error()
		}
		s.finish(ctx, command, res, start)
		return res, fmt.Errorf("simulate %q: %w", simulator.RuleName(command), err)
	}

	res.Success = true
	res.Mode = mode
	res.Message = simulatedMessage(out)
	res.Result = out
	s.finish(ctx, command, res, start)
	return res, nil
}

func simulatedMessage(out simulator.Output) string {
	if out.Path != "" {
		return fmt.Sprintf("Created %s", out.Path)
	}
	return fmt.Sprintf("Generated %s", out.Title)
}

func (s *Service) reportAgent(ok bool) {
	if s.health != nil {
		s.health.SetAgentServing(ok)
	}
}

// finish logs, records and announces a handled command. History failures
// are logged and otherwise ignored.
func (s *Service) finish(ctx context.Context, command string, res Result, start time.Time) {
	duration := time.Since(start)
	slog.Info("Command handled",
		"command_id", res.ID,
		"mode", res.Mode,
		"success", res.Success,
		"duration_ms", duration.Milliseconds(),
	)

	if s.history != nil {
		rec := &domain.CommandRecord{
			ID:         res.ID,
			Command:    command,
			Mode:       res.Mode,
			Success:    res.Success,
			Message:    res.Message,
			Error:      res.Error,
			DurationMs: duration.Milliseconds(),
			CreatedAt:  start.UTC(),
		}
		if err := s.history.RecordCommand(context.WithoutCancel(ctx), rec); err != nil {
			slog.Warn("Failed to record command", "command_id", res.ID, "error", err)
		}
	}

	if s.events != nil {
		s.events.Publish(ctx, domain.Event{
			Type: domain.EventCommandCompleted,
			At:   time.Now().UTC(),
			Data: map[string]any{
				"id":      res.ID,
				"mode":    res.Mode,
				"success": res.Success,
				"message": res.Message,
			},
		})
	}
}
