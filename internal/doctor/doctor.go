// Package doctor runs pre-flight readiness diagnostics for the capture
// agent, transcription appliance, and ingest daemon: each binary gets its
// own check set instead of a single shared one, since the three processes
// depend on disjoint external resources.
package doctor

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/briarwatch/meetingcap/internal/audio"
	"github.com/briarwatch/meetingcap/internal/config"
)

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// RunAgent checks the capture agent's dependencies: the selected audio
// device and reachability of the configured appliance.
func RunAgent(ctx context.Context, cfg config.AgentConfig) Report {
	checks := []Check{checkAudioSelection(ctx, cfg.Audio.Input, cfg.Audio.Fallback)}
	if cfg.Audio.MicInput != "" {
		checks = append(checks, checkAudioSelection(ctx, cfg.Audio.MicInput, ""))
	}
	checks = append(checks, checkApplianceReachable(ctx, cfg.Appliance.BaseURL))
	return Report{Checks: checks}
}

// RunAppliance checks the transcription appliance's dependencies: the
// configured STT binary and free space on the recordings volume.
func RunAppliance(cfg config.ApplianceConfig) Report {
	checks := []Check{checkCommand(cfg.STT.Command, "stt_command")}
	checks = append(checks, checkDiskFree(cfg.RecordingsDir, cfg.DiskFreeMinGB))
	return Report{Checks: checks}
}

// RunIngest checks the ingest daemon's dependencies: the git binary and a
// writable workspace repository directory.
func RunIngest(cfg config.IngestConfig) Report {
	checks := []Check{checkBinary("git", "workspace sync requires git")}
	checks = append(checks, checkWorkspaceWritable(cfg.DataRepo))
	return Report{Checks: checks}
}

// checkCommand validates that argv contains a runnable command.
func checkCommand(argv []string, name string) Check {
	if len(argv) == 0 {
		return Check{Name: name, Pass: false, Message: "command is empty"}
	}
	return checkBinary(argv[0], fmt.Sprintf("%s command is available", name))
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}

// checkAudioSelection runs live device selection to surface selection or
// fallback issues before the capture agent starts recording.
func checkAudioSelection(ctx context.Context, input, fallback string) Check {
	selection, err := audio.SelectDevice(ctx, input, fallback)
	if err != nil {
		return Check{Name: "audio.device", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("selected %q", selection.Device.ID)
	if selection.Warning != "" {
		message = message + " (" + selection.Warning + ")"
	}
	return Check{Name: "audio.device", Pass: true, Message: message}
}

// checkApplianceReachable probes the appliance's /status endpoint.
func checkApplianceReachable(ctx context.Context, baseURL string) Check {
	if strings.TrimSpace(baseURL) == "" {
		return Check{Name: "appliance.reachable", Pass: false, Message: "appliance.base_url is empty"}
	}
	client := http.Client{Timeout: 2 * time.Second}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(baseURL, "/")+"/status", nil)
	if err != nil {
		return Check{Name: "appliance.reachable", Pass: false, Message: err.Error()}
	}
	resp, err := client.Do(req)
	if err != nil {
		return Check{Name: "appliance.reachable", Pass: false, Message: fmt.Sprintf("request failed: %v", err)}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Check{Name: "appliance.reachable", Pass: false, Message: fmt.Sprintf("HTTP %d from %s", resp.StatusCode, baseURL)}
	}
	return Check{Name: "appliance.reachable", Pass: true, Message: fmt.Sprintf("reachable at %s", baseURL)}
}

// checkDiskFree reports whether the recordings directory's filesystem has
// at least minGB free, creating the directory first if it does not exist
// so a fresh install doesn't fail this check spuriously.
func checkDiskFree(dir string, minGB float64) Check {
	if strings.TrimSpace(dir) == "" {
		return Check{Name: "disk.free", Pass: false, Message: "recordings_dir is empty"}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Check{Name: "disk.free", Pass: false, Message: fmt.Sprintf("create %s: %v", dir, err)}
	}

	var stat syscall.Statfs_t
	if err := syscall.Statfs(dir, &stat); err != nil {
		return Check{Name: "disk.free", Pass: false, Message: fmt.Sprintf("statfs %s: %v", dir, err)}
	}
	freeGB := float64(stat.Bavail) * float64(stat.Bsize) / (1 << 30)
	if minGB > 0 && freeGB < minGB {
		return Check{Name: "disk.free", Pass: false, Message: fmt.Sprintf("%.1fGB free, below minimum %.1fGB", freeGB, minGB)}
	}
	return Check{Name: "disk.free", Pass: true, Message: fmt.Sprintf("%.1fGB free at %s", freeGB, dir)}
}

// checkWorkspaceWritable verifies the workspace repository directory (or
// its parent, if the clone hasn't happened yet) accepts new files.
func checkWorkspaceWritable(repoDir string) Check {
	if strings.TrimSpace(repoDir) == "" {
		return Check{Name: "workspace.writable", Pass: false, Message: "data_repo is empty"}
	}

	target := repoDir
	if _, err := os.Stat(repoDir); os.IsNotExist(err) {
		target = parentOrSelf(repoDir)
	}
	if err := os.MkdirAll(target, 0o755); err != nil {
		return Check{Name: "workspace.writable", Pass: false, Message: fmt.Sprintf("create %s: %v", target, err)}
	}

	probe, err := os.CreateTemp(target, ".doctor-write-check-*")
	if err != nil {
		return Check{Name: "workspace.writable", Pass: false, Message: fmt.Sprintf("write probe in %s: %v", target, err)}
	}
	name := probe.Name()
	probe.Close()
	os.Remove(name)

	return Check{Name: "workspace.writable", Pass: true, Message: fmt.Sprintf("%s is writable", repoDir)}
}

func parentOrSelf(dir string) string {
	trimmed := strings.TrimRight(dir, "/")
	idx := strings.LastIndex(trimmed, "/")
	if idx <= 0 {
		return "."
	}
	return trimmed[:idx]
}
