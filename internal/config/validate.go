package config

import "fmt"

// ValidateAgent checks an AgentConfig for missing required fields and
// returns non-fatal warnings for questionable-but-usable settings.
func ValidateAgent(c AgentConfig) ([]Warning, error) {
	var warnings []Warning

	if c.Audio.Input == "" {
		return nil, fmt.Errorf("audio.input must not be empty")
	}
	if c.VBAN.Addr == "" {
		return nil, fmt.Errorf("vban.addr must not be empty")
	}
	if c.Appliance.BaseURL == "" {
		return nil, fmt.Errorf("appliance.base_url must not be empty")
	}
	if c.Audio.SampleRate <= 0 {
		return nil, fmt.Errorf("audio.sample_rate must be positive")
	}
	if c.Calendar.Path == "" {
		warnings = append(warnings, Warning{Message: "calendar.path is empty, title lookup disabled"})
	}
	if c.Audio.MicInput == "" {
		warnings = append(warnings, Warning{Message: "audio.mic_input is empty, recordings carry only the primary source"})
	}
	return warnings, nil
}

// ValidateAppliance checks an ApplianceConfig for missing required
// fields and returns non-fatal warnings.
func ValidateAppliance(c ApplianceConfig) ([]Warning, error) {
	var warnings []Warning

	if c.VBAN.ListenAddr == "" {
		return nil, fmt.Errorf("vban.listen_addr must not be empty")
	}
	if c.RecordingsDir == "" {
		return nil, fmt.Errorf("recordings_dir must not be empty")
	}
	if len(c.STT.Command) == 0 {
		return nil, fmt.Errorf("stt.command must not be empty")
	}
	if c.Server.Port <= 0 {
		return nil, fmt.Errorf("server.port must be positive")
	}
	if c.DiskFreeMinGB <= 0 {
		warnings = append(warnings, Warning{Message: "disk_free_min_gb is zero or negative, disk guard disabled"})
	}
	if c.Webhook.URL == "" {
		warnings = append(warnings, Warning{Message: "webhook.url is empty, transcripts will not be delivered"})
	}
	return warnings, nil
}

// ValidateIngest checks an IngestConfig for missing required fields
// and returns non-fatal warnings.
func ValidateIngest(c IngestConfig) ([]Warning, error) {
	var warnings []Warning

	if c.DataRepo == "" {
		return nil, fmt.Errorf("data_repo must not be empty")
	}
	if c.Server.Port <= 0 {
		return nil, fmt.Errorf("server.port must be positive")
	}
	if c.Git.AutoPush && c.Git.RepositoryURL == "" {
		warnings = append(warnings, Warning{Message: "git.auto_push is enabled but git.repository_url is empty"})
	}
	if c.Processing.Standalone.Enabled && len(c.Processing.Standalone.Command) == 0 {
		return nil, fmt.Errorf("processing.standalone.command must not be empty when standalone processing is enabled")
	}
	if c.GitHub.WorkflowDispatch.Enabled && c.GitHub.WorkflowDispatch.Repo == "" {
		return nil, fmt.Errorf("github.workflow_dispatch.repo must not be empty when workflow dispatch is enabled")
	}
	return warnings, nil
}
