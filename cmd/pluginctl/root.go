package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/envstudio/envstudio/internal/config"
	"github.com/envstudio/envstudio/internal/logging"
	"github.com/envstudio/envstudio/internal/xdg"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the pluginctl CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pluginctl",
		Short: "pluginctl - EnvStudio plugin management",
		Long: `pluginctl manages EnvStudio plugins outside the GUI: list and inspect
discovered plugins, flip their enabled state, validate that they load,
fire hooks with hand-built payloads, and run a standalone host loop for
plugin development.`,
	}

	// Global flags. Everything except --config overlays the config file.
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	cmd.PersistentFlags().String("plugins-dir", "", "plugins directory")
	cmd.PersistentFlags().String("state-backend", "", `enabled-state backend: "file" or "bolt"`)
	cmd.PersistentFlags().String("state-path", "", "enabled-state location")
	cmd.PersistentFlags().String("host-version", "", "host application version for compatibility gating")
	cmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, or error")
	cmd.PersistentFlags().String("log-format", "", `log format: "json" or "text"`)

	// Add subcommands
	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newInfoCmd())
	cmd.AddCommand(newEnableCmd())
	cmd.AddCommand(newDisableCmd())
	cmd.AddCommand(newValidateCmd())
	cmd.AddCommand(newFireCmd())
	cmd.AddCommand(newRunCmd())

	return cmd
}

// loadConfig builds the effective configuration for a command: the
// --config file (or the default config file when one exists), overlaid
// with any changed flags. It also installs the default logger so
// commands log the way the config says before doing real work.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path := configFile
	if path == "" {
		if _, err := os.Stat(xdg.ConfigFile()); err == nil {
			path = xdg.ConfigFile()
		}
	}

	cfg, err := config.Load(path, cmd.Flags())
	if err != nil {
		return config.Config{}, err
	}
	if cfg.App.Version == "" {
		cfg.App.Version = version
	}

	logging.SetDefault("pluginctl", version, cfg.Log.Format, cfg.Log.Level)
	return cfg, nil
}
