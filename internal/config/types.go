// Package config loads and validates the per-binary YAML configuration
// for the agent, appliance, and ingest daemon.
package config

// Warning is a non-fatal configuration concern surfaced to the operator
// without aborting startup.
type Warning struct {
	Message string
}

// AgentConfig is the capture agent's configuration.
type AgentConfig struct {
	Audio struct {
		Input        string  `yaml:"input"`
		Fallback     string  `yaml:"fallback"`
		MicInput     string  `yaml:"mic_input"`
		MicGain      float64 `yaml:"mic_gain"`
		SampleRate   int     `yaml:"sample_rate"`
	} `yaml:"audio"`

	VBAN struct {
		Addr       string `yaml:"addr"`
		StreamName string `yaml:"stream_name"`
	} `yaml:"vban"`

	Appliance struct {
		BaseURL string `yaml:"base_url"`
	} `yaml:"appliance"`

	Calendar struct {
		Path string `yaml:"path"`
	} `yaml:"calendar"`

	Detector struct {
		Enabled      bool `yaml:"enabled"`
		PollSeconds  int  `yaml:"poll_interval_seconds"`
	} `yaml:"detector"`

	Indicator struct {
		Enabled        bool   `yaml:"enabled"`
		SoundEnabled   bool   `yaml:"sound_enabled"`
		DesktopAppName string `yaml:"desktop_app_name"`
		ErrorTimeoutMS int    `yaml:"error_timeout_ms"`
	} `yaml:"indicator"`
}

// ApplianceConfig is the transcription appliance's configuration.
type ApplianceConfig struct {
	Server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"server"`

	VBAN struct {
		ListenAddr string `yaml:"listen_addr"`
		StreamName string `yaml:"stream_name"`
		SampleRate int    `yaml:"sample_rate"`
	} `yaml:"vban"`

	RecordingsDir string `yaml:"recordings_dir"`

	STT struct {
		Command        []string `yaml:"command"`
		Model          string   `yaml:"model"`
		TimeoutSeconds int      `yaml:"timeout_seconds"`
	} `yaml:"stt"`

	Webhook struct {
		URL            string `yaml:"url"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
	} `yaml:"webhook"`

	DiskFreeMinGB      float64 `yaml:"disk_free_min_gb"`
	RecordingMaxAgeDays int    `yaml:"recording_max_age_days"`
	CleanupIntervalHours int  `yaml:"cleanup_interval_hours"`
}

// IngestConfig is the ingest daemon's configuration.
type IngestConfig struct {
	Server struct {
		Host string `yaml:"host"`
		Port int     `yaml:"port"`
	} `yaml:"server"`

	DataRepo string `yaml:"data_repo"`

	Git struct {
		AutoCommit             bool   `yaml:"auto_commit"`
		AutoPush               bool   `yaml:"auto_push"`
		RepositoryURL          string `yaml:"repository_url"`
		CommitMessageTemplate  string `yaml:"commit_message_template"`
		Remote                 string `yaml:"remote"`
		Branch                 string `yaml:"branch"`
	} `yaml:"git"`

	Sync struct {
		Enabled                 bool `yaml:"enabled"`
		OnStartup               bool `yaml:"on_startup"`
		BeforeAcceptingWebhooks bool `yaml:"before_accepting_webhooks"`
		PollIntervalSeconds     int  `yaml:"poll_interval_seconds"`
		FFOnly                  bool `yaml:"ff_only"`
	} `yaml:"sync"`

	Processing struct {
		Standalone struct {
			Enabled          bool     `yaml:"enabled"`
			Command          []string `yaml:"command"`
			WorkingDirectory string   `yaml:"working_directory"`
			TimeoutSeconds   int      `yaml:"timeout_seconds"`
			Async            bool     `yaml:"async"`
		} `yaml:"standalone"`
	} `yaml:"processing"`

	GitHub struct {
		WorkflowDispatch struct {
			Enabled bool              `yaml:"enabled"`
			Repo    string            `yaml:"repo"`
			Workflow string           `yaml:"workflow"`
			Ref     string            `yaml:"ref"`
			Inputs  map[string]string `yaml:"inputs"`
		} `yaml:"workflow_dispatch"`
	} `yaml:"github"`

	Hooks struct {
		OnNewCommits struct {
			Enabled          bool   `yaml:"enabled"`
			Command          string `yaml:"command"`
			WorkingDirectory string `yaml:"working_directory"`
			TimeoutSeconds   int    `yaml:"timeout_seconds"`
		} `yaml:"on_new_commits"`
	} `yaml:"hooks"`
}
