// Package agentapp wires the capture agent's dependencies together and
// dispatches its CLI commands: a long-running daemon ("run") that
// auto-detects meetings and owns the local IPC control socket, plus
// lightweight commands ("status", "stop", "start") that forward to
// whichever agent process currently holds that socket.
package agentapp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/briarwatch/meetingcap/internal/calendar"
	"github.com/briarwatch/meetingcap/internal/cli"
	"github.com/briarwatch/meetingcap/internal/config"
	"github.com/briarwatch/meetingcap/internal/controller"
	"github.com/briarwatch/meetingcap/internal/detector"
	"github.com/briarwatch/meetingcap/internal/doctor"
	"github.com/briarwatch/meetingcap/internal/indicator"
	"github.com/briarwatch/meetingcap/internal/ipc"
	"github.com/briarwatch/meetingcap/internal/logging"
	"github.com/briarwatch/meetingcap/internal/version"
)

const binaryName = "agent"

const (
	commandRun    cli.Command = "run"
	commandStatus cli.Command = "status"
	commandStop   cli.Command = "stop"
	commandStart  cli.Command = "start"
	commandDoctor cli.Command = "doctor"
)

var spec = cli.Spec{
	BinaryName: binaryName,
	Commands:   []cli.Command{commandRun, commandStatus, commandStop, commandStart, commandDoctor},
	Description: map[cli.Command]string{
		commandRun:    "Run the capture agent (detector + IPC control socket)",
		commandStatus: "Print the active agent's current phase",
		commandStop:   "Stop the active agent's current recording",
		commandStart:  "Start a manual recording (no title argument is accepted)",
		commandDoctor: "Check audio device selection and appliance reachability",
	},
	ConfigFlag: "$XDG_CONFIG_HOME/meetingcap/agent.yaml",
}

// Runner holds process-level dependencies used by command handlers.
type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
}

// Execute is the package entrypoint used by cmd/agent/main.go.
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

	loaded, err := config.LoadAgent(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	cfg := loaded.Config

	switch parsed.Command {
	case commandDoctor:
		report := doctor.RunAgent(ctx, cfg)
		fmt.Fprintln(r.Stdout, report.String())
		if report.OK() {
			return 0
		}
		return 1
	case commandRun:
		return r.commandRunAgent(ctx, cfg, loaded.Path)
	case commandStatus:
		return r.commandForward(ctx, "status")
	case commandStop:
		return r.commandForward(ctx, "stop")
	case commandStart:
		return r.commandForward(ctx, "start")
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}

// commandForward sends command to the running agent's IPC socket and
// prints its response, failing if no agent is running.
func (r Runner) commandForward(ctx context.Context, command string) int {
	socketPath, err := ipc.RuntimeSocketPath(binaryName)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	resp, err := ipc.Send(ctx, socketPath, ipc.Request{Command: command}, 500*time.Millisecond)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: no active agent: %v\n", err)
		return 1
	}
	if !resp.OK {
		fmt.Fprintf(r.Stderr, "error: %s\n", resp.Error)
		return 1
	}
	if resp.State != "" {
		fmt.Fprintln(r.Stdout, resp.State)
	}
	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
	return 0
}

func (r Runner) commandRunAgent(ctx context.Context, cfg config.AgentConfig, configPath string) int {
	logRuntime, err := logging.New(binaryName)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()
	logger := logRuntime.Logger

	logger.Info("agent starting", "config", configPath, "log", logRuntime.Path)

	socketPath, err := ipc.RuntimeSocketPath(binaryName)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	listener, err := ipc.Acquire(ctx, socketPath, 180*time.Millisecond, 8, nil)
	if err != nil {
		if errors.Is(err, ipc.ErrAlreadyRunning) {
			fmt.Fprintln(r.Stderr, "error: an agent is already running")
			return 1
		}
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() {
		_ = listener.Close()
		_ = os.Remove(socketPath)
	}()

	applianceClient := controller.NewApplianceClient(cfg.Appliance.BaseURL, nil)
	sender := newLocalSender(cfg, logger)
	indicatorCtl := newIndicator(cfg, logger)
	ctrl := controller.New(logger, applianceClient, sender, indicatorCtl)

	serverCtx, serverCancel := context.WithCancel(ctx)
	defer serverCancel()

	serverErrCh := make(chan error, 1)
	go func() { serverErrCh <- ipc.Serve(serverCtx, listener, newIPCHandler(ctrl)) }()

	detectorErrCh := make(chan struct{})
	if cfg.Detector.Enabled {
		go runDetectorLoop(serverCtx, cfg, ctrl, logger, detectorErrCh)
	} else {
		close(detectorErrCh)
	}

	<-ctx.Done()
	serverCancel()
	<-serverErrCh
	<-detectorErrCh

	if ctrl.State() == controller.StateRecording {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = ctrl.ManualStop(stopCtx)
	}

	return 0
}

// newIndicator translates the agent config's indicator block into
// indicator.Config's field names.
func newIndicator(cfg config.AgentConfig, logger *slog.Logger) *indicator.Notifier {
	return indicator.New(indicator.Config{
		Enable:         cfg.Indicator.Enabled,
		SoundEnable:    cfg.Indicator.SoundEnabled,
		DesktopAppName: cfg.Indicator.DesktopAppName,
		ErrorTimeoutMS: cfg.Indicator.ErrorTimeoutMS,
	}, logger)
}

// runDetectorLoop polls the meeting detector at the configured interval,
// driving the controller's auto-start/auto-stop transitions until ctx is
// cancelled.
func runDetectorLoop(ctx context.Context, cfg config.AgentConfig, ctrl *controller.Controller, logger *slog.Logger, done chan<- struct{}) {
	defer close(done)

	poll := time.Duration(cfg.Detector.PollSeconds) * time.Second
	if poll <= 0 {
		poll = 5 * time.Second
	}
	det := detector.New()
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			app, active, err := det.Detect(ctx)
			if err != nil {
				logger.Warn("meeting detection failed", "error", err)
				continue
			}

			snap := ctrl.Snapshot()
			switch {
			case active && snap.Phase == controller.StateIdle:
				entries := loadCalendarEntries(cfg.Calendar.Path, logger)
				if err := ctrl.AutoStart(ctx, string(app), entries, time.Now()); err != nil && !errors.Is(err, controller.ErrWrongState) {
					logger.Warn("auto-start failed", "error", err)
				}
			case !active && snap.Phase == controller.StateRecording && snap.AutoDetected:
				if err := ctrl.AutoStop(ctx, snap.OriginatingApp); err != nil && !errors.Is(err, controller.ErrWrongState) {
					logger.Warn("auto-stop failed", "error", err)
				}
			case !active:
				ctrl.ClearSuppressAuto()
			}
		}
	}
}

// loadCalendarEntries reads and parses the configured calendar export,
// returning no entries (never an error) if the file is missing or
// unreadable, since a stale or absent calendar should not block auto-start.
func loadCalendarEntries(path string, logger *slog.Logger) []calendar.Entry {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	data, err := os.ReadFile(expandHome(path))
	if err != nil {
		logger.Debug("calendar read failed", "error", err, "path", path)
		return nil
	}
	return calendar.Parse(string(data))
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return home + path[1:]
}
