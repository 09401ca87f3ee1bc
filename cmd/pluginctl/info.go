package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/envstudio/envstudio/internal/config"
)

// pluginInfo is the full manifest view of one discovered plugin.
type pluginInfo struct {
	Name            string   `json:"name"`
	Version         string   `json:"version"`
	Author          string   `json:"author"`
	Description     string   `json:"description"`
	Runtime         string   `json:"runtime"`
	EntryPoint      string   `json:"entry_point"`
	RequiredVersion string   `json:"required_version"`
	Dependencies    []string `json:"dependencies,omitempty"`
	Hooks           []string `json:"hooks"`
	Dir             string   `json:"dir"`
	Enabled         bool     `json:"enabled"`
}

// newInfoCmd creates the info subcommand.
func newInfoCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "info <plugin>",
		Short: "Show a plugin's manifest and state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runInfo(cmd.Context(), cmd, cfg, args[0], jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	return cmd
}

// runInfo executes the info command.
func runInfo(ctx context.Context, cmd *cobra.Command, cfg config.Config, name string, jsonOutput bool) error {
	h, err := openHost(cfg, false)
	if err != nil {
		return err
	}
	defer func() { _ = h.Close(ctx) }()

	if _, err := h.mgr.Discover(ctx); err != nil {
		return err
	}
	if err := h.mgr.RestoreState(ctx); err != nil {
		return err
	}

	dp, ok := findDiscovered(h.mgr, name)
	if !ok {
		return fmt.Errorf("plugin %q not found under %s", name, h.mgr.PluginsDir())
	}

	m := dp.Manifest
	info := pluginInfo{
		Name:            m.Name,
		Version:         m.Version,
		Author:          m.Author,
		Description:     m.Description,
		Runtime:         string(m.Runtime),
		EntryPoint:      m.EntryPoint,
		RequiredVersion: m.RequiredVersion,
		Dependencies:    m.Dependencies,
		Hooks:           m.Hooks,
		Dir:             dp.Dir,
		Enabled:         h.mgr.Enabled(m.Name),
	}

	if jsonOutput {
		data, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal info: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Println(formatInfo(info))
	return nil
}

// formatInfo formats plugin details as aligned key/value lines.
func formatInfo(info pluginInfo) string {
	enabled := "yes"
	if !info.Enabled {
		enabled = "no"
	}

	var buf []byte
	w := tabwriter.NewWriter((*byteWriter)(&buf), 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintf(w, "Name:\t%s\n", info.Name)
	_, _ = fmt.Fprintf(w, "Version:\t%s\n", info.Version)
	_, _ = fmt.Fprintf(w, "Author:\t%s\n", info.Author)
	_, _ = fmt.Fprintf(w, "Description:\t%s\n", info.Description)
	_, _ = fmt.Fprintf(w, "Runtime:\t%s\n", info.Runtime)
	_, _ = fmt.Fprintf(w, "Entry point:\t%s\n", info.EntryPoint)
	_, _ = fmt.Fprintf(w, "Requires host:\t%s\n", info.RequiredVersion)
	if len(info.Dependencies) > 0 {
		_, _ = fmt.Fprintf(w, "Dependencies:\t%s\n", strings.Join(info.Dependencies, ", "))
	}
	_, _ = fmt.Fprintf(w, "Hooks:\t%s\n", strings.Join(info.Hooks, ", "))
	_, _ = fmt.Fprintf(w, "Directory:\t%s\n", info.Dir)
	_, _ = fmt.Fprintf(w, "Enabled:\t%s\n", enabled)

	_ = w.Flush()
	return string(buf)
}
