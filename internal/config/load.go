package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Loaded wraps a parsed configuration with the path it came from and
// whether the file existed on disk (a missing file is not an error —
// the caller runs on defaults).
type Loaded[T any] struct {
	Path    string
	Config  T
	Exists  bool
}

func load[T any](component, explicit string, defaults T) (Loaded[T], error) {
	path, err := ResolvePath(component, explicit)
	if err != nil {
		return Loaded[T]{}, err
	}

	cfg := defaults
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Loaded[T]{Path: path, Config: cfg, Exists: false}, nil
	}
	if err != nil {
		return Loaded[T]{}, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Loaded[T]{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return Loaded[T]{Path: path, Config: cfg, Exists: true}, nil
}

// LoadAgent loads the capture agent's configuration, starting from
// DefaultAgent() and overlaying whatever the YAML file at explicit (or
// the resolved XDG path) provides.
func LoadAgent(explicit string) (Loaded[AgentConfig], error) {
	return load("agent", explicit, DefaultAgent())
}

// LoadAppliance loads the transcription appliance's configuration.
func LoadAppliance(explicit string) (Loaded[ApplianceConfig], error) {
	return load("appliance", explicit, DefaultAppliance())
}

// LoadIngest loads the ingest daemon's configuration.
func LoadIngest(explicit string) (Loaded[IngestConfig], error) {
	return load("ingestd", explicit, DefaultIngest())
}
