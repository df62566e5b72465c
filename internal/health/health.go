// Package health exposes agent availability over the standard gRPC health
// checking protocol so orchestrators can probe it.
package health

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// AgentService is the health service name reporting agent availability.
const AgentService = "agentdesk.Agent"

// Reporter tracks serving status for the process and the agent.
type Reporter struct {
	srv *health.Server
}

// NewReporter starts with the process serving and the agent status unknown.
func NewReporter() *Reporter {
	srv := health.NewServer()
	srv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	srv.SetServingStatus(AgentService, healthpb.HealthCheckResponse_UNKNOWN)
	return &Reporter{srv: srv}
}

// SetAgentServing records the outcome of the latest agent call or probe.
func (r *Reporter) SetAgentServing(ok bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if ok {
		status = healthpb.HealthCheckResponse_SERVING
	}
	r.srv.SetServingStatus(AgentService, status)
}

// Check returns the current status of service.
func (r *Reporter) Check(ctx context.Context, service string) (healthpb.HealthCheckResponse_ServingStatus, error) {
	resp, err := r.srv.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, err
	}
	return resp.GetStatus(), nil
}

// Shutdown marks every service NOT_SERVING.
func (r *Reporter) Shutdown() {
	r.srv.Shutdown()
}

// Serve runs a gRPC server with the health service on lis until ctx ends.
func Serve(ctx context.Context, lis net.Listener, r *Reporter) error {
	s := grpc.NewServer()
	healthpb.RegisterHealthServer(s, r.srv)

	go func() {
		<-ctx.Done()
		r.Shutdown()
		s.GracefulStop()
	}()

	slog.Info("gRPC health server listening", "addr", lis.Addr().String())
	if err := s.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("serve grpc health: %w", err)
	}
	return nil
}
