// Package detector implements the meeting detector: it infers whether
// a Zoom or Teams call is active by probing for known process names and,
// for Teams, cross-checking physical microphone activity and a bounded
// log lookback for the call's own recording-state transitions.
package detector

import (
	"context"
	"strings"
	"time"

	"github.com/briarwatch/meetingcap/internal/audio"
	"github.com/briarwatch/meetingcap/internal/probe"
)

// App identifies the detected meeting application.
type App string

const (
	AppZoom  App = "Zoom"
	AppTeams App = "Teams"
)

// Process names probed via pgrep -x, grounded on the reference meeting-bar
// implementation.
const (
	zoomProcessName  = "CptHost"
	teamsProcessName = "MSTeams"
)

// virtualDeviceNames are audio devices known to be meeting-app loopback
// sinks rather than a physical microphone; their activity never counts as
// evidence of someone actually speaking into Teams.
var virtualDeviceNames = []string{"blackhole", "zoomaudiodevice", "teams audio"}

// teamsLookback bounds how far back the Teams end-detection log query
// searches for the call's most recent isRecording transition.
const teamsLookback = 2 * time.Minute

// Detector infers active-meeting state from OS-level process and audio
// signals. Zero value is ready to use.
type Detector struct {
	// ListDevices is overridable for tests; defaults to audio.ListDevices.
	ListDevices func(ctx context.Context) ([]audio.Device, error)

	// RunProbe is overridable for tests; defaults to probe.Run.
	RunProbe func(ctx context.Context, name string, args ...string) (string, bool, error)
}

// New returns a Detector wired to the real OS process probes.
func New() *Detector {
	return &Detector{ListDevices: audio.ListDevices, RunProbe: probe.Run}
}

func (d *Detector) runProbe(ctx context.Context, name string, args ...string) (string, bool, error) {
	if d.RunProbe != nil {
		return d.RunProbe(ctx, name, args...)
	}
	return probe.Run(ctx, name, args...)
}

// Detect reports the meeting app currently active, if any. Zoom is
// reported purely on process presence; Teams additionally requires a
// physical (non-loopback) microphone to be actively capturing, since the
// Teams client process can be running in the background with no call
// underway.
func (d *Detector) Detect(ctx context.Context) (App, bool, error) {
	zoomActive, err := d.processRunning(ctx, zoomProcessName)
	if err != nil {
		return "", false, err
	}
	if zoomActive {
		return AppZoom, true, nil
	}

	teamsProcess, err := d.processRunning(ctx, teamsProcessName)
	if err != nil {
		return "", false, err
	}
	if !teamsProcess {
		return "", false, nil
	}

	micActive, err := d.physicalMicActive(ctx)
	if err != nil {
		return "", false, err
	}
	if !micActive {
		return "", false, nil
	}

	return AppTeams, true, nil
}

func (d *Detector) processRunning(ctx context.Context, name string) (bool, error) {
	_, ok, err := d.runProbe(ctx, "pgrep", "-x", name)
	return ok, err
}

func (d *Detector) physicalMicActive(ctx context.Context) (bool, error) {
	listFn := d.ListDevices
	if listFn == nil {
		listFn = audio.ListDevices
	}
	devices, err := listFn(ctx)
	if err != nil {
		return false, err
	}

	for _, dev := range devices {
		if isVirtualDevice(dev) {
			continue
		}
		if dev.State == "running" {
			return true, nil
		}
	}
	return false, nil
}

func isVirtualDevice(dev audio.Device) bool {
	id := strings.ToLower(dev.ID)
	desc := strings.ToLower(dev.Description)
	for _, v := range virtualDeviceNames {
		if strings.Contains(id, v) || strings.Contains(desc, v) {
			return true
		}
	}
	return false
}

// TeamsCallStillRecording queries the unified log for the most recent
// audiomxd isRecording transition attributed to MSTeams within
// teamsLookback, returning whether the call is still active. An
// empty lookback window fails open: the meeting is assumed still active
// rather than ended, since a missed log entry is a more common failure
// mode than a genuinely silent window during an active call.
func (d *Detector) TeamsCallStillRecording(ctx context.Context) (bool, error) {
	since := time.Now().Add(-teamsLookback).Format("2006-01-02 15:04:05")
	out, ok, err := d.runProbe(ctx, "log", "show",
		"--predicate", `process == "audiomxd" AND eventMessage CONTAINS "MSTeams" AND eventMessage CONTAINS "isRecording"`,
		"--start", since,
	)
	if err != nil {
		return false, err
	}
	if !ok || strings.TrimSpace(out) == "" {
		return true, nil // fail open
	}

	lines := strings.Split(out, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := lines[i]
		if strings.Contains(line, "isRecording: true") {
			return true, nil
		}
		if strings.Contains(line, "isRecording: false") {
			return false, nil
		}
	}
	return true, nil // fail open: no recognizable transition found
}
