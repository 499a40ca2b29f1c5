package applianceapp

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/briarwatch/meetingcap/internal/config"
)

func configWithSTT(command []string, model string) config.ApplianceConfig {
	cfg := config.DefaultAppliance()
	cfg.STT.Command = command
	cfg.STT.Model = model
	return cfg
}

func TestExecuteVersionPrintsBinaryName(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := Execute(context.Background(), []string{"--version"}, &stdout, &stderr)
	require.Equal(t, 0, code)
	require.Contains(t, stdout.String(), "appliance")
}

func TestExecuteHelpShowsUsage(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := Execute(context.Background(), []string{"--help"}, &stdout, &stderr)
	require.Equal(t, 0, code)
	require.Contains(t, stdout.String(), "Usage:")
	require.Contains(t, stdout.String(), "serve")
	require.Contains(t, stdout.String(), "doctor")
}

func TestExecuteUnknownCommandFails(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := Execute(context.Background(), []string{"bogus"}, &stdout, &stderr)
	require.Equal(t, 2, code)
	require.Contains(t, stderr.String(), "unknown command")
}

func TestExecuteDoctorReportsMissingSTTBinary(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "appliance.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(
		"recordings_dir: "+dir+"\n"+
			"stt:\n  command: [\"definitely-not-a-real-binary\"]\n",
	), 0o644))

	var stdout, stderr bytes.Buffer
	code := Execute(context.Background(), []string{"--config", cfgPath, "doctor"}, &stdout, &stderr)
	require.Equal(t, 1, code)
	require.Contains(t, stdout.String(), "FAIL")
}

func TestNewCommandTranscriberSubstitutesPlaceholders(t *testing.T) {
	cfg := configWithSTT([]string{"whisper-cli", "-m", "{model}", "-f", "{audio}"}, "ggml-medium.en.bin")
	ct := newCommandTranscriber(cfg)
	argv := ct.Argv("/tmp/meeting.wav")
	require.Equal(t, []string{"whisper-cli", "-m", "ggml-medium.en.bin", "-f", "/tmp/meeting.wav"}, argv)
}
