// Package controller implements the recording controller: the
// state machine that decides when to start and stop recording and
// coordinates the local sender with the appliance's start/stop API.
package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/briarwatch/meetingcap/internal/calendar"
	"github.com/briarwatch/meetingcap/internal/fsm"
)

// applianceSettleDelay is how long the controller waits after starting the
// local sender before calling the appliance, to let the UDP stream
// establish.
var applianceSettleDelay = 3 * time.Second

// ErrBusy is returned when a start/stop is requested while one is already
// in flight.
var ErrBusy = errors.New("controller busy")

// ErrWrongState is returned when a start/stop is requested from a phase
// that does not permit it.
var ErrWrongState = errors.New("operation not valid in current state")

// LocalSender is the controller's view of the laptop-side capture+VBAN
// sender pair (C2+C3).
type LocalSender interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Indicator is the controller-facing subset of menu-bar/notification
// behavior.
type Indicator interface {
	ShowIdle(context.Context)
	ShowBusy(context.Context)
	ShowRecording(context.Context, string)
	ShowError(context.Context, string)
}

// noopIndicator preserves controller flow when no indicator is wired.
type noopIndicator struct{}

func (noopIndicator) ShowIdle(context.Context)             {}
func (noopIndicator) ShowBusy(context.Context)             {}
func (noopIndicator) ShowRecording(context.Context, string) {}
func (noopIndicator) ShowError(context.Context, string)    {}

// Snapshot is the meeting-state token exposed to callers.
type Snapshot struct {
	Phase          fsm.State
	Title          string
	OriginatingApp string
	StartedAt      time.Time
	AutoDetected   bool
	SuppressAuto   bool
}

// Controller orchestrates IDLE/BUSY/RECORDING transitions.
type Controller struct {
	logger    *slog.Logger
	appliance Appliance
	sender    LocalSender
	indicator Indicator

	mu             sync.RWMutex
	state          fsm.State
	title          string
	originatingApp string
	startedAt      time.Time
	autoDetected   bool
	suppressAuto   bool
}

// New constructs a controller. A nil indicator is replaced with a no-op.
func New(logger *slog.Logger, appliance Appliance, sender LocalSender, indicator Indicator) *Controller {
	if indicator == nil {
		indicator = noopIndicator{}
	}
	return &Controller{
		logger:    logger,
		appliance: appliance,
		sender:    sender,
		indicator: indicator,
		state:     StateIdle,
	}
}

// State returns the current phase.
func (c *Controller) State() fsm.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Snapshot returns the full meeting-state token.
func (c *Controller) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Snapshot{
		Phase:          c.state,
		Title:          c.title,
		OriginatingApp: c.originatingApp,
		StartedAt:      c.startedAt,
		AutoDetected:   c.autoDetected,
		SuppressAuto:   c.suppressAuto,
	}
}

func (c *Controller) transition(event fsm.Event) (fsm.State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	next, err := fsm.Transition(table, c.state, event)
	if err != nil {
		return c.state, err
	}
	c.state = next
	return next, nil
}

// ManualStart starts a recording with an explicit, user-supplied title.
func (c *Controller) ManualStart(ctx context.Context, title string) error {
	return c.start(ctx, title, "", false)
}

// AutoStart starts a recording detected by app (e.g. "Zoom", "Teams"). The
// title is resolved from entries via calendar.MatchTitle, falling back to
// a generated "<App> Meeting YYYY-MM-DD HH:MM" title.
func (c *Controller) AutoStart(ctx context.Context, app string, entries []calendar.Entry, now time.Time) error {
	if c.State() != StateIdle {
		return ErrWrongState
	}
	c.mu.Lock()
	suppressed := c.suppressAuto
	c.mu.Unlock()
	if suppressed {
		return ErrWrongState
	}

	title, ok := calendar.MatchTitle(entries, now)
	if !ok {
		title = fmt.Sprintf("%s Meeting %s", app, now.Format("2006-01-02 15:04"))
	}
	return c.start(ctx, title, app, true)
}

func (c *Controller) start(ctx context.Context, title, originatingApp string, auto bool) error {
	if c.State() != StateIdle {
		return ErrWrongState
	}
	if _, err := c.transition(eventBeginStart); err != nil {
		return ErrBusy
	}
	c.indicator.ShowBusy(ctx)

	if !c.appliance.Reachable(ctx) {
		c.failStart(ctx, "appliance unreachable")
		return fmt.Errorf("appliance unreachable")
	}

	if err := c.sender.Start(ctx); err != nil {
		c.failStart(ctx, "capture failed to start")
		return fmt.Errorf("start local sender: %w", err)
	}

	select {
	case <-time.After(applianceSettleDelay):
	case <-ctx.Done():
		_ = c.sender.Stop(context.Background())
		c.failStart(ctx, "cancelled")
		return ctx.Err()
	}

	result, err := c.appliance.Start(ctx, title)
	if err != nil {
		_ = c.sender.Stop(context.Background())
		if errors.Is(err, ErrApplianceBusy) {
			c.failStart(ctx, "appliance already recording")
			return ErrApplianceBusy
		}
		c.failStart(ctx, "appliance rejected start")
		return fmt.Errorf("appliance start: %w", err)
	}

	c.mu.Lock()
	c.title = title
	c.originatingApp = originatingApp
	c.autoDetected = auto
	c.startedAt = time.Now()
	c.mu.Unlock()

	if _, err := c.transition(eventStartSucceeded); err != nil {
		c.logger.Error("unexpected transition failure after successful start", "error", err)
	}
	c.indicator.ShowRecording(ctx, result.Title)
	return nil
}

func (c *Controller) failStart(ctx context.Context, reason string) {
	if _, err := c.transition(eventStartFailed); err != nil {
		c.logger.Error("failed to return to idle after failed start", "error", err)
	}
	c.indicator.ShowError(ctx, reason)
}

// ManualStop stops the active recording in response to a user action. If
// the active recording was auto-detected, suppress-auto is set so the
// detector does not immediately restart it.
func (c *Controller) ManualStop(ctx context.Context) error {
	snap := c.Snapshot()
	if snap.AutoDetected {
		c.mu.Lock()
		c.suppressAuto = true
		c.mu.Unlock()
	}
	return c.stop(ctx)
}

// AutoStop stops the active recording when the detector reports the
// originating app's meeting has ended. Stops originating from a
// different app than the active recording are ignored.
func (c *Controller) AutoStop(ctx context.Context, app string) error {
	snap := c.Snapshot()
	if snap.Phase != StateRecording || snap.OriginatingApp != app {
		return ErrWrongState
	}
	return c.stop(ctx)
}

// ClearSuppressAuto resets suppress-auto once the detector reports no
// meeting is active.
func (c *Controller) ClearSuppressAuto() {
	c.mu.Lock()
	c.suppressAuto = false
	c.mu.Unlock()
}

func (c *Controller) stop(ctx context.Context) error {
	if c.State() != StateRecording {
		return ErrWrongState
	}
	if _, err := c.transition(eventBeginStop); err != nil {
		return ErrBusy
	}
	c.indicator.ShowBusy(ctx)

	if _, err := c.appliance.Stop(ctx); err != nil {
		c.logger.Warn("appliance stop failed, tearing down locally anyway", "error", err)
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.sender.Stop(stopCtx); err != nil {
		c.logger.Warn("local sender stop error", "error", err)
	}

	c.mu.Lock()
	c.title = ""
	c.originatingApp = ""
	c.autoDetected = false
	c.mu.Unlock()

	if _, err := c.transition(eventStopDone); err != nil {
		c.logger.Error("unexpected transition failure after stop", "error", err)
	}
	c.indicator.ShowIdle(ctx)
	return nil
}
