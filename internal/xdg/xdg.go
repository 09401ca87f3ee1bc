// Package xdg provides XDG Base Directory paths for EnvStudio.
package xdg

import (
	"fmt"
	"os"
	"path/filepath"
)

const appName = "envstudio"

// ConfigDir returns the XDG config directory for envstudio.
// Checks XDG_CONFIG_HOME first, falls back to ~/.config.
func ConfigDir() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		base = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(base, appName)
}

// DataDir returns the XDG data directory for envstudio.
// Checks XDG_DATA_HOME first, falls back to ~/.local/share.
func DataDir() string {
	base := os.Getenv("XDG_DATA_HOME")
	if base == "" {
		base = filepath.Join(os.Getenv("HOME"), ".local", "share")
	}
	return filepath.Join(base, appName)
}

// StateDir returns the XDG state directory for envstudio.
// Checks XDG_STATE_HOME first, falls back to ~/.local/state.
func StateDir() string {
	base := os.Getenv("XDG_STATE_HOME")
	if base == "" {
		base = filepath.Join(os.Getenv("HOME"), ".local", "state")
	}
	return filepath.Join(base, appName)
}

// PluginsDir returns the default plugins root.
func PluginsDir() string {
	return filepath.Join(DataDir(), "plugins")
}

// StateFile returns the default enabled-state file path.
func StateFile() string {
	return filepath.Join(StateDir(), "plugin_state.json")
}

// BoltPath returns the default Bolt database path for the bolt state
// backend and the plugin key/value store.
func BoltPath() string {
	return filepath.Join(StateDir(), "plugins.db")
}

// ConfigFile returns the default configuration file path.
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "envstudio.yaml")
}

// EnsureDir creates a directory and all parent directories if they don't exist.
// Directories are created with 0700 permissions.
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0o700); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", path, err)
	}
	return nil
}
