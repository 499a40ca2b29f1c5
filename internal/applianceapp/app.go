// Package applianceapp wires the transcription appliance's dependencies
// together and dispatches its CLI commands, the appliance's counterpart of
// internal/agentapp.
package applianceapp

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/briarwatch/meetingcap/internal/appliance"
	"github.com/briarwatch/meetingcap/internal/cli"
	"github.com/briarwatch/meetingcap/internal/config"
	"github.com/briarwatch/meetingcap/internal/doctor"
	"github.com/briarwatch/meetingcap/internal/logging"
	"github.com/briarwatch/meetingcap/internal/metrics"
	"github.com/briarwatch/meetingcap/internal/queue"
	"github.com/briarwatch/meetingcap/internal/receiver"
	"github.com/briarwatch/meetingcap/internal/version"
)

const binaryName = "appliance"

const (
	commandServe  cli.Command = "serve"
	commandDoctor cli.Command = "doctor"
)

var spec = cli.Spec{
	BinaryName: binaryName,
	Commands:   []cli.Command{commandServe, commandDoctor},
	Description: map[cli.Command]string{
		commandServe:  "Run the transcription appliance (VBAN receiver + HTTP API)",
		commandDoctor: "Check STT binary and recordings disk space",
	},
	ConfigFlag: "$XDG_CONFIG_HOME/meetingcap/appliance.yaml",
}

// Runner holds process-level dependencies used by command handlers.
type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
}

// Execute is the package entrypoint used by cmd/appliance/main.go.
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

	loaded, err := config.LoadAppliance(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	cfg := loaded.Config

	switch parsed.Command {
	case commandDoctor:
		report := doctor.RunAppliance(cfg)
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

func (r Runner) commandServe(ctx context.Context, cfg config.ApplianceConfig, configPath string) int {
	logRuntime, err := logging.New(binaryName)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()
	logger := logRuntime.Logger

	logger.Info("appliance starting", "config", configPath, "log", logRuntime.Path)

	recv, err := receiver.Listen(cfg.VBAN.ListenAddr, cfg.VBAN.StreamName)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: start VBAN receiver: %v\n", err)
		return 1
	}
	defer recv.Close()

	reg := prometheus.NewRegistry()
	m := metrics.NewAppliance(reg)

	transcriber := appliance.WrapTranscriber(newCommandTranscriber(cfg), m)
	q := queue.New(transcriber)

	server := appliance.NewServer(recv, q, cfg, logger, m)

	cleanupInterval := time.Duration(cfg.CleanupIntervalHours) * time.Hour
	if cleanupInterval <= 0 {
		cleanupInterval = 6 * time.Hour
	}
	server.StartCleanup(ctx, cleanupInterval)

	stopReceiver := make(chan struct{})
	receiverErrCh := make(chan error, 1)
	go func() { receiverErrCh <- recv.Run(stopReceiver) }()

	queueCtx, queueCancel := context.WithCancel(ctx)
	defer queueCancel()
	go q.Run(queueCtx)

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))
	mux.Handle("/", server)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{Addr: addr, Handler: mux}

	httpErrCh := make(chan error, 1)
	go func() { httpErrCh <- httpServer.ListenAndServe() }()

	logger.Info("appliance listening", "addr", addr, "vban", cfg.VBAN.ListenAddr)

	select {
	case <-ctx.Done():
		close(stopReceiver)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
		return 0
	case err := <-receiverErrCh:
		if err != nil {
			logger.Error("VBAN receiver stopped", "error", err)
			return 1
		}
		return 0
	case err := <-httpErrCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server stopped", "error", err)
			return 1
		}
		return 0
	}
}

// newCommandTranscriber builds the STT CommandTranscriber from the
// configured argv template, substituting {model} and {audio} placeholders
// per invocation.
func newCommandTranscriber(cfg config.ApplianceConfig) queue.CommandTranscriber {
	return queue.CommandTranscriber{
		Argv: func(audioPath string) []string {
			argv := make([]string, len(cfg.STT.Command))
			for i, tok := range cfg.STT.Command {
				tok = strings.ReplaceAll(tok, "{model}", cfg.STT.Model)
				tok = strings.ReplaceAll(tok, "{audio}", audioPath)
				argv[i] = tok
			}
			return argv
		},
		Deadline: time.Duration(cfg.STT.TimeoutSeconds) * time.Second,
	}
}
