package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateAgentAcceptsDefaults(t *testing.T) {
	warnings, err := ValidateAgent(DefaultAgent())
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	require.Contains(t, warnings[0].Message, "audio.mic_input")
}

func TestValidateAgentRejectsEmptyInput(t *testing.T) {
	c := DefaultAgent()
	c.Audio.Input = ""
	_, err := ValidateAgent(c)
	require.Error(t, err)
}

func TestValidateAgentWarnsOnMissingCalendarPath(t *testing.T) {
	c := DefaultAgent()
	c.Calendar.Path = ""
	c.Audio.MicInput = "USB Microphone"
	warnings, err := ValidateAgent(c)
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	require.Contains(t, warnings[0].Message, "calendar.path")
}

func TestValidateApplianceRejectsEmptySTTCommand(t *testing.T) {
	c := DefaultAppliance()
	c.STT.Command = nil
	_, err := ValidateAppliance(c)
	require.Error(t, err)
}

func TestValidateApplianceWarnsOnMissingWebhookURL(t *testing.T) {
	c := DefaultAppliance()
	warnings, err := ValidateAppliance(c)
	require.NoError(t, err)
	require.Len(t, warnings, 1)
}

func TestValidateIngestRejectsEmptyDataRepo(t *testing.T) {
	c := DefaultIngest()
	c.DataRepo = ""
	_, err := ValidateIngest(c)
	require.Error(t, err)
}

func TestValidateIngestRejectsStandaloneWithoutCommand(t *testing.T) {
	c := DefaultIngest()
	c.Processing.Standalone.Enabled = true
	c.Processing.Standalone.Command = nil
	_, err := ValidateIngest(c)
	require.Error(t, err)
}

func TestValidateIngestRejectsWorkflowDispatchWithoutRepo(t *testing.T) {
	c := DefaultIngest()
	c.GitHub.WorkflowDispatch.Enabled = true
	_, err := ValidateIngest(c)
	require.Error(t, err)
}

func TestValidateIngestWarnsOnAutoPushWithoutRepositoryURL(t *testing.T) {
	c := DefaultIngest()
	warnings, err := ValidateIngest(c)
	require.NoError(t, err)
	require.Len(t, warnings, 1)
}
