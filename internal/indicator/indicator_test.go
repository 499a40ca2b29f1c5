package indicator

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNotifierDispatchesDesktopNotifications(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "busctl-args.log")
	t.Setenv("BUSCTL_ARGS_FILE", argsFile)
	installBusctlStub(t, `
printf '%s\n' "$*" >> "${BUSCTL_ARGS_FILE}"
echo "u 7"
`)

	cfg := Config{Enable: true, SoundEnable: false, DesktopAppName: "meetingcap"}
	notify := New(cfg, nil)

	notify.ShowBusy(context.Background())
	notify.ShowRecording(context.Background(), "Design Review")
	notify.ShowError(context.Background(), "")
	notify.ShowIdle(context.Background())

	data, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 4)
	require.Contains(t, lines[0], "Starting recording…")
	require.Contains(t, lines[1], "Recording meeting: Design Review")
	require.Contains(t, lines[2], "Meeting capture error")
	require.Contains(t, lines[3], "CloseNotification")
}

func TestShowErrorUsesProvidedTextAndDefaultTimeout(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "busctl-args.log")
	t.Setenv("BUSCTL_ARGS_FILE", argsFile)
	installBusctlStub(t, `
printf '%s\n' "$*" >> "${BUSCTL_ARGS_FILE}"
echo "u 1"
`)

	cfg := Config{Enable: true, SoundEnable: false, ErrorTimeoutMS: 0}
	notify := New(cfg, nil)
	notify.ShowError(context.Background(), "custom error")

	data, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	require.Contains(t, string(data), "custom error")
	require.Contains(t, string(data), "4000")
}

func TestDisabledSkipsDesktopDispatch(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "busctl-args.log")
	t.Setenv("BUSCTL_ARGS_FILE", argsFile)
	installBusctlStub(t, `
printf '%s\n' "$*" >> "${BUSCTL_ARGS_FILE}"
echo "u 1"
`)

	cfg := Config{Enable: false, SoundEnable: false}
	notify := New(cfg, nil)
	notify.ShowBusy(context.Background())
	notify.ShowRecording(context.Background(), "x")
	notify.ShowError(context.Background(), "ignored")
	notify.ShowIdle(context.Background())

	_, err := os.Stat(argsFile)
	require.Error(t, err)
	require.True(t, os.IsNotExist(err))
}

func installBusctlStub(t *testing.T, body string) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "busctl")
	script := "#!/usr/bin/env bash\nset -euo pipefail\n" + body + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	t.Setenv("PATH", dir+":"+os.Getenv("PATH"))
}
