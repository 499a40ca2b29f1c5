package doctor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/briarwatch/meetingcap/internal/config"
	"github.com/stretchr/testify/require"
)

func TestReportOKAndString(t *testing.T) {
	report := Report{Checks: []Check{
		{Name: "one", Pass: true, Message: "good"},
		{Name: "two", Pass: false, Message: "bad"},
	}}

	require.False(t, report.OK())
	text := report.String()
	require.Contains(t, text, "[OK] one: good")
	require.Contains(t, text, "[FAIL] two: bad")
}

func TestCheckCommandEmpty(t *testing.T) {
	check := checkCommand(nil, "stt_command")
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "command is empty")
}

func TestCheckBinaryFound(t *testing.T) {
	check := checkBinary("sh", "shell available")
	require.True(t, check.Pass)
	require.Contains(t, check.Message, "shell available")
}

func TestCheckBinaryMissing(t *testing.T) {
	check := checkBinary("definitely-not-a-real-binary", "unused")
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "binary not found")
}

func TestCheckCommandUsesBinaryFromPath(t *testing.T) {
	dir := t.TempDir()
	scriptPath := filepath.Join(dir, "fake-bin")
	require.NoError(t, os.WriteFile(scriptPath, []byte("#!/usr/bin/env bash\nexit 0\n"), 0o755))
	t.Setenv("PATH", dir+":"+os.Getenv("PATH"))

	check := checkCommand([]string{"fake-bin", "--arg"}, "stt_command")
	require.True(t, check.Pass)
	require.Contains(t, check.Message, "stt_command command is available")
}

func TestCheckApplianceReachableSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/status", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	check := checkApplianceReachable(context.Background(), server.URL)
	require.True(t, check.Pass)
	require.Contains(t, check.Message, "reachable at")
}

func TestCheckApplianceReachableFailureStatusCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(server.Close)

	check := checkApplianceReachable(context.Background(), server.URL)
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "HTTP 503")
}

func TestCheckApplianceReachableEmptyBaseURL(t *testing.T) {
	check := checkApplianceReachable(context.Background(), "")
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "base_url is empty")
}

func TestCheckAudioSelectionFailureWithInvalidPulseServer(t *testing.T) {
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")

	check := checkAudioSelection(context.Background(), "", "")
	require.False(t, check.Pass)
	require.Contains(t, check.Name, "audio.device")
}

func TestCheckDiskFreeCreatesDirectoryAndPasses(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "recordings")
	check := checkDiskFree(dir, 0)
	require.True(t, check.Pass)

	_, err := os.Stat(dir)
	require.NoError(t, err)
}

func TestCheckDiskFreeEmptyDir(t *testing.T) {
	check := checkDiskFree("", 10)
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "recordings_dir is empty")
}

func TestCheckDiskFreeFailsBelowMinimum(t *testing.T) {
	dir := t.TempDir()
	check := checkDiskFree(dir, 1e12)
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "below minimum")
}

func TestCheckWorkspaceWritableExistingDir(t *testing.T) {
	dir := t.TempDir()
	check := checkWorkspaceWritable(dir)
	require.True(t, check.Pass)
}

func TestCheckWorkspaceWritableCreatesMissingParent(t *testing.T) {
	parent := t.TempDir()
	repoDir := filepath.Join(parent, "not-yet-cloned")
	check := checkWorkspaceWritable(repoDir)
	require.True(t, check.Pass)
}

func TestCheckWorkspaceWritableEmptyPath(t *testing.T) {
	check := checkWorkspaceWritable("")
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "data_repo is empty")
}

func TestRunAgentCombinesChecks(t *testing.T) {
	cfg := config.DefaultAgent()
	cfg.Appliance.BaseURL = "http://127.0.0.1:1"
	report := RunAgent(context.Background(), cfg)
	require.NotEmpty(t, report.Checks)
}

func TestRunApplianceCombinesChecks(t *testing.T) {
	cfg := config.DefaultAppliance()
	cfg.RecordingsDir = filepath.Join(t.TempDir(), "recordings")
	report := RunAppliance(cfg)
	require.Len(t, report.Checks, 2)
}

func TestRunIngestCombinesChecks(t *testing.T) {
	cfg := config.DefaultIngest()
	cfg.DataRepo = t.TempDir()
	report := RunIngest(cfg)
	require.Len(t, report.Checks, 2)
}
