package main

import (
	"github.com/spf13/cobra"
)

// newDisableCmd creates the disable subcommand.
func newDisableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disable <plugin>",
		Short: "Disable a plugin",
		Long: `Disable a plugin and persist the change. The plugin is unloaded if
loaded and stays off across application restarts until re-enabled.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runSetEnabled(cmd.Context(), cmd, cfg, args[0], false)
		},
	}
}
