package probe

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunCapturesStdout(t *testing.T) {
	out, ok, err := Run(context.Background(), "echo", "-n", "hello")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "hello", out)
}

func TestRunTreatsEmptyNonzeroExitAsNotFound(t *testing.T) {
	_, ok, err := Run(context.Background(), "sh", "-c", "exit 1")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRunReturnsErrorWhenNonzeroExitHasOutput(t *testing.T) {
	_, ok, err := Run(context.Background(), "sh", "-c", "echo boom; exit 1")
	require.Error(t, err)
	require.False(t, ok)
}

func TestProcessRunningFalseForBogusName(t *testing.T) {
	running, err := ProcessRunning(context.Background(), "definitely-not-a-real-process-xyz")
	require.NoError(t, err)
	require.False(t, running)
}
