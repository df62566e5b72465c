// AgentDesk - agent-driven desktop workspace server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ashureev/agentdesk/internal/agent"
	"github.com/ashureev/agentdesk/internal/api"
	"github.com/ashureev/agentdesk/internal/command"
	"github.com/ashureev/agentdesk/internal/config"
	"github.com/ashureev/agentdesk/internal/events"
	"github.com/ashureev/agentdesk/internal/health"
	"github.com/ashureev/agentdesk/internal/markdown"
	"github.com/ashureev/agentdesk/internal/middleware"
	"github.com/ashureev/agentdesk/internal/simulator"
	"github.com/ashureev/agentdesk/internal/store"
	"github.com/ashureev/agentdesk/internal/workspace"
	"github.com/ashureev/agentdesk/web"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	slog.Info("Starting server",
		"port", cfg.Port,
		"dev", cfg.IsDevelopment(),
		"in_container", cfg.InContainer,
		"agent_enabled", cfg.Agent.Enabled,
		"experience_mode", cfg.ExperienceMode,
	)

	if err := run(cfg); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Server stopped successfully")
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()
	if err := repo.Ping(ctx); err != nil {
		return err
	}
	slog.Info("Database connected")

	store.StartRetentionWorker(ctx, repo, cfg.HistoryRetention)

	files, err := workspace.NewStore(cfg.WorkspaceDir)
	if err != nil {
		return err
	}
	slog.Info("Workspace ready", "root", files.Root())

	renderer, err := markdown.New(cfg.MarkdownEngine)
	if err != nil {
		return err
	}

	experience, err := simulator.NewWriter(cfg.ExperienceMode, files)
	if err != nil {
		return err
	}

	reporter := health.NewReporter()
	hub := events.NewHub()

	// Agent (optional). Both interfaces stay nil when disabled.
	var invoker command.Agent
	var agentStatus api.AgentStatus
	if cfg.Agent.Enabled {
		runner, closeRunner, err := newRunner(cfg.Agent, cfg.InContainer)
		if err != nil {
			return err
		}
		defer closeRunner()

		inv := agent.NewInvoker(agent.Config{
			Command:      cfg.Agent.Command,
			Args:         cfg.Agent.Args,
			Dir:          files.Root(),
			Timeout:      cfg.Agent.Timeout,
			AllowedFiles: cfg.Agent.AllowedFiles,
		}, runner, agent.NewStatsAccumulator(agent.Usage{}))

		st := inv.Probe(ctx)
		reporter.SetAgentServing(st.Available)
		if st.Available {
			slog.Info("Agent available", "runner", st.Runner, "command", cfg.Agent.Command)
		} else {
			slog.Warn("Agent not reachable, commands will fall back to the simulator", "runner", st.Runner, "error", st.Error)
		}
		invoker, agentStatus = inv, inv
	} else {
		slog.Info("Agent disabled, commands will be simulated")
	}

	svc, err := command.NewService(command.Options{
		Agent:      invoker,
		Experience: experience,
		History:    repo,
		Health:     reporter,
		Events:     hub,
	})
	if err != nil {
		return err
	}

	if cfg.WatchWorkspace {
		watcher := workspace.NewWatcher(files, hub)
		if err := watcher.Start(ctx); err != nil {
			slog.Warn("Workspace watcher disabled", "error", err)
		} else {
			defer watcher.Stop()
		}
	}

	// Initialize handlers.
	baseHandler := api.NewHandler(repo, cfg.Debug)
	commandHandler := api.NewCommandHandler(baseHandler, svc, agentStatus, reporter)
	filesHandler := api.NewFilesHandler(baseHandler, files, renderer)
	markdownHandler := api.NewMarkdownHandler(renderer)
	wsHandler := events.NewHandler(hub, cfg.AllowedOrigins())

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/ping"))
	r.Use(middleware.CORS(cfg.AllowedOrigins()))
	r.Use(middleware.MaxBodyBytes(cfg.MaxRequestBodyBytes))

	baseHandler.RegisterHealth(r)
	commandHandler.RegisterRoutes(r)
	filesHandler.RegisterRoutes(r)
	markdownHandler.RegisterRoutes(r)

	// WebSocket endpoint.
	r.Get("/ws/events", wsHandler.ServeHTTP)

	// Serve embedded frontend (SPA catch-all).
	r.Handle("/*", web.SPAHandler(web.DeskConfig{
		APIBase:        "/api",
		EventsPath:     "/ws/events",
		ExperienceMode: cfg.ExperienceMode,
		AgentEnabled:   cfg.Agent.Enabled,
	}))

	// Agent calls can run up to their timeout before the simulator answers.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.Agent.Timeout + 15*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	var grpcLis net.Listener
	if cfg.GRPCHealthAddr != "" {
		grpcLis, err = net.Listen("tcp", cfg.GRPCHealthAddr)
		if err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if grpcLis != nil {
		g.Go(func() error {
			return health.Serve(gctx, grpcLis, reporter)
		})
	}

	g.Go(func() error {
		// Wait for shutdown signal or a failed server.
		<-gctx.Done()
		slog.Info("Shutting down gracefully...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		hub.CloseAll()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server forced to shutdown", "error", err)
			return err
		}
		return nil
	})

	return g.Wait()
}

// newRunner builds the configured agent runner and its cleanup func.
func newRunner(cfg config.AgentConfig, inContainer bool) (agent.Runner, func(), error) {
	if cfg.Runner == "docker" {
		if inContainer && os.Getenv("DOCKER_HOST") == "" {
			slog.Warn("Docker runner inside a container needs the host docker socket mounted or DOCKER_HOST set")
		}
		dr, err := agent.NewDockerRunner(cfg.DockerImage, cfg.MaxOutputBytes)
		if err != nil {
			return nil, nil, err
		}
		return dr, func() {
			if err := dr.Close(); err != nil {
				slog.Debug("Failed to close docker client", "error", err)
			}
		}, nil
	}
	return &agent.LocalRunner{MaxOutputBytes: cfg.MaxOutputBytes}, func() {}, nil
}
