// Package indicator surfaces the recording controller's phase (idle, busy,
// recording, error) as desktop notifications plus short audio cues, so the
// person at the keyboard always has a passive signal of whether a meeting
// is currently being captured.
package indicator

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Config controls how the indicator surfaces phase changes.
type Config struct {
	Enable         bool
	SoundEnable    bool
	DesktopAppName string
	ErrorTimeoutMS int
}

// Notifier implements controller.Indicator via freedesktop DBus
// notifications and synthesized audio cues.
type Notifier struct {
	cfg      Config
	logger   *slog.Logger
	messages messages

	mu                    sync.Mutex
	desktopNotificationID uint32
	soundMu               sync.Mutex
}

// New creates a Notifier from cfg.
func New(cfg Config, logger *slog.Logger) *Notifier {
	return &Notifier{cfg: cfg, logger: logger, messages: indicatorMessagesFromEnv()}
}

// ShowIdle clears any active notification and plays the idle cue.
func (n *Notifier) ShowIdle(ctx context.Context) {
	n.playCue(ctx, cueIdle)
	if !n.cfg.Enable {
		return
	}
	n.run(ctx, n.dismiss)
}

// ShowBusy signals a start or stop transition in progress.
func (n *Notifier) ShowBusy(ctx context.Context) {
	if !n.cfg.Enable {
		return
	}
	n.run(ctx, func(ctx context.Context) error {
		return n.notify(ctx, 1500, n.messages.busy)
	})
}

// ShowRecording signals an active recording and plays the start cue.
func (n *Notifier) ShowRecording(ctx context.Context, title string) {
	n.playCue(ctx, cueRecording)
	if !n.cfg.Enable {
		return
	}
	text := n.messages.recording
	if title != "" {
		text = text + ": " + title
	}
	n.run(ctx, func(ctx context.Context) error {
		return n.notify(ctx, 0, text)
	})
}

// ShowError displays an error-state notification and plays the error cue.
func (n *Notifier) ShowError(ctx context.Context, text string) {
	n.playCue(ctx, cueError)
	if !n.cfg.Enable {
		return
	}
	if text == "" {
		text = n.messages.errorText
	}
	timeout := n.cfg.ErrorTimeoutMS
	if timeout <= 0 {
		timeout = 4000
	}
	n.run(ctx, func(ctx context.Context) error {
		return n.notify(ctx, timeout, text)
	})
}

// notify sends a replaceable desktop notification and stores its ID.
func (n *Notifier) notify(ctx context.Context, timeoutMS int, text string) error {
	n.mu.Lock()
	replaceID := n.desktopNotificationID
	n.mu.Unlock()

	appName := strings.TrimSpace(n.cfg.DesktopAppName)
	if appName == "" {
		appName = "meetingcap"
	}

	id, err := desktopNotify(ctx, appName, replaceID, text, timeoutMS)
	if err != nil {
		return err
	}

	n.mu.Lock()
	n.desktopNotificationID = id
	n.mu.Unlock()
	return nil
}

// dismiss closes the current desktop notification ID when present.
func (n *Notifier) dismiss(ctx context.Context) error {
	n.mu.Lock()
	id := n.desktopNotificationID
	n.desktopNotificationID = 0
	n.mu.Unlock()

	if id == 0 {
		return nil
	}
	return desktopDismiss(ctx, id)
}

// run executes an indicator operation with a bounded timeout.
func (n *Notifier) run(ctx context.Context, fn func(context.Context) error) {
	runCtx, cancel := context.WithTimeout(ctx, 400*time.Millisecond)
	defer cancel()
	if err := fn(runCtx); err != nil {
		n.log("indicator dispatch failed", err)
	}
}

// playCue serializes cue playback and emits audio asynchronously.
func (n *Notifier) playCue(ctx context.Context, kind cueKind) {
	if !n.cfg.SoundEnable {
		return
	}
	go func() {
		n.soundMu.Lock()
		defer n.soundMu.Unlock()
		if err := emitCue(ctx, kind); err != nil {
			n.log("indicator audio cue failed", err)
		}
	}()
}

// log emits debug-only indicator failures to the runtime logger.
func (n *Notifier) log(message string, err error) {
	if n.logger == nil || err == nil {
		return
	}
	n.logger.Debug(message, "error", err.Error())
}
