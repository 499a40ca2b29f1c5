package config

// DefaultAgent returns the capture agent's baseline configuration.
func DefaultAgent() AgentConfig {
	var c AgentConfig
	c.Audio.Input = "default"
	c.Audio.Fallback = "default"
	c.Audio.MicGain = 1.0
	c.Audio.SampleRate = 48000
	c.VBAN.Addr = "127.0.0.1:6980"
	c.VBAN.StreamName = "MeetingAudio"
	c.Appliance.BaseURL = "http://127.0.0.1:8090"
	c.Calendar.Path = "~/.config/meetingcap/calendar.org"
	c.Detector.Enabled = true
	c.Detector.PollSeconds = 5
	c.Indicator.Enabled = true
	c.Indicator.SoundEnabled = true
	c.Indicator.DesktopAppName = "meetingcap"
	c.Indicator.ErrorTimeoutMS = 4000
	return c
}

// DefaultAppliance returns the transcription appliance's baseline configuration.
func DefaultAppliance() ApplianceConfig {
	var c ApplianceConfig
	c.Server.Host = "0.0.0.0"
	c.Server.Port = 8090
	c.VBAN.ListenAddr = "0.0.0.0:6980"
	c.VBAN.StreamName = "MeetingAudio"
	c.VBAN.SampleRate = 48000
	c.RecordingsDir = "~/meetingcap/recordings"
	c.STT.Command = []string{"whisper-cli", "-m", "{model}", "-f", "{audio}"}
	c.STT.Model = "ggml-medium.en.bin"
	c.STT.TimeoutSeconds = 1800
	c.Webhook.TimeoutSeconds = 30
	c.DiskFreeMinGB = 5
	c.RecordingMaxAgeDays = 7
	c.CleanupIntervalHours = 6
	return c
}

// DefaultIngest returns the ingest daemon's baseline configuration.
func DefaultIngest() IngestConfig {
	var c IngestConfig
	c.Server.Host = "0.0.0.0"
	c.Server.Port = 8091
	c.DataRepo = "~/meetingcap/workspace"
	c.Git.AutoCommit = true
	c.Git.AutoPush = true
	c.Git.CommitMessageTemplate = "Add meeting notes: {title}"
	c.Git.Remote = "origin"
	c.Git.Branch = "main"
	c.Sync.Enabled = true
	c.Sync.OnStartup = true
	c.Sync.BeforeAcceptingWebhooks = true
	c.Sync.PollIntervalSeconds = 300
	c.Sync.FFOnly = true
	c.Processing.Standalone.TimeoutSeconds = 600
	c.Processing.Standalone.Async = true
	c.Hooks.OnNewCommits.TimeoutSeconds = 300
	return c
}
