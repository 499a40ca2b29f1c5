// Package ingestapp wires the ingest daemon's dependencies together and
// dispatches its CLI commands.
package ingestapp

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/briarwatch/meetingcap/internal/cli"
	"github.com/briarwatch/meetingcap/internal/config"
	"github.com/briarwatch/meetingcap/internal/doctor"
	"github.com/briarwatch/meetingcap/internal/ingest"
	"github.com/briarwatch/meetingcap/internal/logging"
	"github.com/briarwatch/meetingcap/internal/metrics"
	"github.com/briarwatch/meetingcap/internal/version"
	"github.com/briarwatch/meetingcap/internal/workspace"
)

const binaryName = "ingestd"

const (
	commandServe  cli.Command = "serve"
	commandDoctor cli.Command = "doctor"
)

var spec = cli.Spec{
	BinaryName: binaryName,
	Commands:   []cli.Command{commandServe, commandDoctor},
	Description: map[cli.Command]string{
		commandServe:  "Run the ingest daemon (webhook + calendar HTTP API)",
		commandDoctor: "Check git availability and workspace writability",
	},
	ConfigFlag: "$XDG_CONFIG_HOME/meetingcap/ingestd.yaml",
}

// Runner holds process-level dependencies used by command handlers.
type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
}

// Execute is the package entrypoint used by cmd/ingestd/main.go.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(spec, args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText(spec))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText(spec))
		return 0
	}
	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String(binaryName))
		return 0
	}

	loaded, err := config.LoadIngest(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	cfg := loaded.Config

	switch parsed.Command {
	case commandDoctor:
		report := doctor.RunIngest(cfg)
		fmt.Fprintln(r.Stdout, report.String())
		if report.OK() {
			return 0
		}
		return 1
	case commandServe:
		return r.commandServe(ctx, cfg, loaded.Path)
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}

func (r Runner) commandServe(ctx context.Context, cfg config.IngestConfig, configPath string) int {
	logRuntime, err := logging.New(binaryName)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()
	logger := logRuntime.Logger

	logger.Info("ingestd starting", "config", configPath, "log", logRuntime.Path)

	wsCfg := workspaceConfig(cfg)
	ws := workspace.New(wsCfg, logger)

	if cfg.Sync.OnStartup || cfg.Sync.BeforeAcceptingWebhooks {
		if err := ws.EnsureCheckout(ctx); err != nil {
			logger.Error("ensure checkout failed", "error", err)
			fmt.Fprintf(r.Stderr, "error: ensure checkout: %v\n", err)
			return 1
		}
	}

	reg := prometheus.NewRegistry()
	m := metrics.NewIngest(reg)

	snapshot := ingest.Snapshot{
		Port:                    cfg.Server.Port,
		SyncEnabled:             cfg.Sync.Enabled,
		PollIntervalSeconds:     float64(cfg.Sync.PollIntervalSeconds),
		StandaloneEnabled:       cfg.Processing.Standalone.Enabled,
		StandaloneAsync:         cfg.Processing.Standalone.Async,
		StandaloneCommand:       cfg.Processing.Standalone.Command,
		WorkflowDispatchEnabled: cfg.GitHub.WorkflowDispatch.Enabled,
		WorkflowRepo:            cfg.GitHub.WorkflowDispatch.Repo,
		WorkflowName:            cfg.GitHub.WorkflowDispatch.Workflow,
	}

	server := ingest.NewServer(ws, snapshot, cfg.Git.AutoCommit, logger, m)
	ws.StartBackgroundSync(ctx)

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))
	mux.Handle("/", server)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{Addr: addr, Handler: mux}

	httpErrCh := make(chan error, 1)
	go func() { httpErrCh <- httpServer.ListenAndServe() }()

	logger.Info("ingestd listening", "addr", addr, "data_repo", cfg.DataRepo)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
		return 0
	case err := <-httpErrCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server stopped", "error", err)
			return 1
		}
		return 0
	}
}

// workspaceConfig translates the YAML-loaded ingest config into the
// workspace package's Config shape.
func workspaceConfig(cfg config.IngestConfig) workspace.Config {
	return workspace.Config{
		RepoDir:                 cfg.DataRepo,
		RepositoryURL:           cfg.Git.RepositoryURL,
		AutoCommit:              cfg.Git.AutoCommit,
		AutoPush:                cfg.Git.AutoPush,
		CommitMessageTemplate:   cfg.Git.CommitMessageTemplate,
		Remote:                  cfg.Git.Remote,
		Branch:                  cfg.Git.Branch,
		SyncEnabled:             cfg.Sync.Enabled,
		SyncOnStartup:           cfg.Sync.OnStartup,
		BeforeAcceptingWebhooks: cfg.Sync.BeforeAcceptingWebhooks,
		PollInterval:            time.Duration(cfg.Sync.PollIntervalSeconds) * time.Second,
		FFOnly:                  cfg.Sync.FFOnly,
		WorkflowDispatch: workspace.WorkflowDispatch{
			Enabled:  cfg.GitHub.WorkflowDispatch.Enabled,
			Repo:     cfg.GitHub.WorkflowDispatch.Repo,
			Workflow: cfg.GitHub.WorkflowDispatch.Workflow,
			Ref:      cfg.GitHub.WorkflowDispatch.Ref,
			Inputs:   cfg.GitHub.WorkflowDispatch.Inputs,
		},
		Standalone: workspace.Standalone{
			Enabled:          cfg.Processing.Standalone.Enabled,
			Command:          cfg.Processing.Standalone.Command,
			WorkingDirectory: cfg.Processing.Standalone.WorkingDirectory,
			Timeout:          time.Duration(cfg.Processing.Standalone.TimeoutSeconds) * time.Second,
			Async:            cfg.Processing.Standalone.Async,
		},
		Hook: workspace.Hook{
			Enabled:          cfg.Hooks.OnNewCommits.Enabled,
			Command:          cfg.Hooks.OnNewCommits.Command,
			WorkingDirectory: cfg.Hooks.OnNewCommits.WorkingDirectory,
			Timeout:          time.Duration(cfg.Hooks.OnNewCommits.TimeoutSeconds) * time.Second,
		},
		GitHubToken: func() string { return os.Getenv("GH_TOKEN") },
	}
}
