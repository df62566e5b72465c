package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/containerd/errdefs"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
)

const (
	containerUser    = "1000"
	containerWorkdir = "/workspace"
	removeTimeout    = 10 * time.Second

	// Resource limits.
	memoryLimitBytes = 1024 * 1024 * 1024 // 1GB
	cpuQuota         = 100000             // 1 CPU
	pidsLimit        = 256
)

// DockerRunner runs each agent call in a throwaway container with the
// workspace bind-mounted at /workspace.
type DockerRunner struct {
	cli            *client.Client
	image          string
	maxOutputBytes int
}

// NewDockerRunner connects to the daemon configured in the environment.
func NewDockerRunner(image string, maxOutputBytes int) (*DockerRunner, error) {
	if image == "" {
		return nil, fmt.Errorf("docker runner requires an image")
	}
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}
	slog.Info("Docker client initialized", "image", image)
	return &DockerRunner{cli: cli, image: image, maxOutputBytes: maxOutputBytes}, nil
}

// Name implements Runner.
func (r *DockerRunner) Name() string { return "docker" }

// Run creates, starts and waits for one container. The container is
// removed on every path, including timeout.
func (r *DockerRunner) Run(ctx context.Context, spec RunSpec) (RunOutput, error) {
	cfg, hostCfg := containerSpec(r.image, spec)

	resp, err := r.cli.ContainerCreate(ctx, cfg, hostCfg, nil, nil, "")
	if err != nil {
		return RunOutput{ExitCode: -1}, fmt.Errorf("create agent container: %w", err)
	}
	defer r.remove(resp.ID)

	if err := r.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return RunOutput{ExitCode: -1}, fmt.Errorf("start agent container %s: %w", resp.ID, err)
	}

	exitCode := -1
	waitCh, errCh := r.cli.ContainerWait(ctx, resp.ID, container.WaitConditionNotRunning)
	select {
	case res := <-waitCh:
		exitCode = int(res.StatusCode)
		if res.Error != nil && res.Error.Message != "" {
			slog.Warn("Agent container wait reported error", "container_id", resp.ID, "error", res.Error.Message)
		}
	case err := <-errCh:
		if ctx.Err() != nil {
			return RunOutput{ExitCode: -1}, fmt.Errorf("agent container %s: %w", resp.ID, ctx.Err())
		}
		return RunOutput{ExitCode: -1}, fmt.Errorf("wait for agent container %s: %w", resp.ID, err)
	case <-ctx.Done():
		return RunOutput{ExitCode: -1}, fmt.Errorf("agent container %s: %w", resp.ID, ctx.Err())
	}

	logs, err := r.cli.ContainerLogs(ctx, resp.ID, container.LogsOptions{ShowStdout: true, ShowStderr: true})
	if err != nil {
		return RunOutput{ExitCode: exitCode}, fmt.Errorf("read agent container logs: %w", err)
	}
	defer logs.Close()

	stdout := newRingBuffer(r.maxOutputBytes)
	stderr := newRingBuffer(r.maxOutputBytes)
	if _, err := stdcopy.StdCopy(stdout, stderr, logs); err != nil {
		return RunOutput{ExitCode: exitCode}, fmt.Errorf("demultiplex agent container logs: %w", err)
	}

	return RunOutput{Stdout: stdout.String(), Stderr: stderr.String(), ExitCode: exitCode}, nil
}

func (r *DockerRunner) remove(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), removeTimeout)
	defer cancel()

	if err := r.cli.ContainerRemove(ctx, id, container.RemoveOptions{Force: true}); err != nil {
		if errdefs.IsNotFound(err) || strings.Contains(err.Error(), "is already in progress") {
			return
		}
		slog.Warn("Failed to remove agent container", "container_id", id, "error", err)
	}
}

// Probe pings the daemon and checks the agent image is present locally.
func (r *DockerRunner) Probe(ctx context.Context, _ string) error {
	if _, err := r.cli.Ping(ctx); err != nil {
		return fmt.Errorf("docker daemon unreachable: %w", err)
	}
	if _, err := r.cli.ImageInspect(ctx, r.image); err != nil {
		if errdefs.IsNotFound(err) {
			return fmt.Errorf("agent image %s not found", r.image)
		}
		return fmt.Errorf("inspect agent image %s: %w", r.image, err)
	}
	return nil
}

// Close releases the docker client.
func (r *DockerRunner) Close() error {
	return r.cli.Close()
}

func containerSpec(image string, spec RunSpec) (*container.Config, *container.HostConfig) {
	cfg := &container.Config{
		Image:        image,
		User:         containerUser,
		WorkingDir:   containerWorkdir,
		Cmd:          append([]string{spec.Command}, spec.Args...),
		Env:          spec.Env,
		AttachStdout: true,
		AttachStderr: true,
	}

	hostCfg := &container.HostConfig{
		Resources: container.Resources{
			Memory:    memoryLimitBytes,
			CPUQuota:  cpuQuota,
			PidsLimit: ptr(int64(pidsLimit)),
		},
	}
	if spec.Dir != "" {
		hostCfg.Mounts = []mount.Mount{{
			Type:   mount.TypeBind,
			Source: spec.Dir,
			Target: containerWorkdir,
		}}
	}
	return cfg, hostCfg
}

func ptr[T any](v T) *T {
	return &v
}
