package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// ResolvePath determines the on-disk config path for component
// ("agent", "appliance", or "ingestd"). An explicit path, if non-empty,
// always wins. Otherwise it checks $XDG_CONFIG_HOME/meetingcap/<component>.yaml,
// falling back to ~/.config/meetingcap/<component>.yaml.
func ResolvePath(component, explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}

	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "meetingcap", component+".yaml"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve config path: %w", err)
	}
	return filepath.Join(home, ".config", "meetingcap", component+".yaml"), nil
}
