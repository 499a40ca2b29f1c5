package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadAgentFallsBackToDefaultsWhenFileMissing(t *testing.T) {
	loaded, err := LoadAgent(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.False(t, loaded.Exists)
	require.Equal(t, DefaultAgent(), loaded.Config)
}

func TestLoadApplianceOverlaysYAMLOntoDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "appliance.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9090\nrecordings_dir: /data/recordings\n"), 0o644))

	loaded, err := LoadAppliance(path)
	require.NoError(t, err)
	require.True(t, loaded.Exists)
	require.Equal(t, 9090, loaded.Config.Server.Port)
	require.Equal(t, "/data/recordings", loaded.Config.RecordingsDir)
	require.Equal(t, DefaultAppliance().VBAN.SampleRate, loaded.Config.VBAN.SampleRate)
}

func TestLoadIngestRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ingestd.yaml")
	require.NoError(t, os.WriteFile(path, []byte("data_repo: [unterminated"), 0o644))

	_, err := LoadIngest(path)
	require.Error(t, err)
}
