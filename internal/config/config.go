// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EnvStudio Contributors

// Package config loads host configuration for the plugin manager and
// pluginctl: built-in defaults, then an optional YAML file, then any
// changed command-line flags, in that order of precedence.
package config

import (
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/envstudio/envstudio/internal/xdg"
)

// State backends for persisting per-plugin enabled state.
const (
	BackendFile = "file"
	BackendBolt = "bolt"
)

// Config is the effective host configuration.
type Config struct {
	App           AppConfig           `koanf:"app"`
	Plugins       PluginsConfig       `koanf:"plugins"`
	Log           LogConfig           `koanf:"log"`
	Observability ObservabilityConfig `koanf:"observability"`
}

// AppConfig identifies the host application plugins run inside.
type AppConfig struct {
	// Name is reported to plugins through the app context.
	Name string `koanf:"name"`
	// Version gates plugins whose manifest declares a required_version.
	// Empty or non-semver values (dev builds) disable the gate.
	Version string `koanf:"version"`
}

// PluginsConfig locates plugins and their persisted state.
type PluginsConfig struct {
	// Dir is the directory scanned for plugin manifests.
	Dir string `koanf:"dir"`
	// StateBackend selects where enabled state lives: "file" or "bolt".
	StateBackend string `koanf:"state_backend"`
	// StatePath overrides the backend's default location.
	StatePath string `koanf:"state_path"`
	// Ignore holds glob patterns for directory names discovery skips.
	Ignore []string `koanf:"ignore"`
}

// LogConfig controls the default slog handler.
type LogConfig struct {
	// Level: "debug", "info", "warn", or "error".
	Level string `koanf:"level"`
	// Format: "json" or "text".
	Format string `koanf:"format"`
}

// ObservabilityConfig controls the metrics/health HTTP server.
type ObservabilityConfig struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr"`
}

// Default returns the built-in configuration. The enabled-state file
// mirrors the desktop application's plugin_state.json, so the file
// backend is the default.
func Default() Config {
	return Config{
		App: AppConfig{
			Name: "EnvStudio",
		},
		Plugins: PluginsConfig{
			Dir:          xdg.PluginsDir(),
			StateBackend: BackendFile,
			StatePath:    xdg.StateFile(),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Observability: ObservabilityConfig{
			Addr: "127.0.0.1:9100",
		},
	}
}

// flagKeys maps command-line flag names to config keys. Flags not
// listed here do not participate in config loading.
var flagKeys = map[string]string{
	"plugins-dir":   "plugins.dir",
	"state-backend": "plugins.state_backend",
	"state-path":    "plugins.state_path",
	"host-version":  "app.version",
	"log-level":     "log.level",
	"log-format":    "log.format",
	"metrics":       "observability.enabled",
	"metrics-addr":  "observability.addr",
}

// Load builds the effective configuration. path names a YAML config
// file and may be empty to skip the file layer; a named file that
// cannot be read is an error. flags may be nil; flag defaults never
// override file values, changed flags always win.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, oops.
				In("config").
				With("path", path).
				Hint("check that the config file exists and contains valid YAML").
				Wrapf(err, "load config file")
		}
	}

	if flags != nil {
		provider := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return Config{}, oops.In("config").Wrapf(err, "load flags")
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, oops.In("config").Wrapf(err, "unmarshal config")
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyDefaults fills fields the file and flags left unset.
// StateBackend resolves before StatePath so the path default follows
// the chosen backend.
func (c *Config) applyDefaults() {
	def := Default()
	if c.App.Name == "" {
		c.App.Name = def.App.Name
	}
	if c.Plugins.Dir == "" {
		c.Plugins.Dir = def.Plugins.Dir
	}
	if c.Plugins.StateBackend == "" {
		c.Plugins.StateBackend = def.Plugins.StateBackend
	}
	if c.Plugins.StatePath == "" {
		if c.Plugins.StateBackend == BackendBolt {
			c.Plugins.StatePath = xdg.BoltPath()
		} else {
			c.Plugins.StatePath = xdg.StateFile()
		}
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = def.Log.Format
	}
	if c.Observability.Addr == "" {
		c.Observability.Addr = def.Observability.Addr
	}
}

// Validate checks the enumerated fields. Log level is not checked here
// because logging.ParseLevel treats unknown levels as info.
func (c *Config) Validate() error {
	if c.Plugins.StateBackend != BackendFile && c.Plugins.StateBackend != BackendBolt {
		return oops.
			In("config").
			With("state_backend", c.Plugins.StateBackend).
			Errorf("state_backend must be %q or %q", BackendFile, BackendBolt)
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return oops.
			In("config").
			With("format", c.Log.Format).
			Errorf("log format must be %q or %q", "json", "text")
	}
	return nil
}
