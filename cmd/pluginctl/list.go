package main

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/envstudio/envstudio/internal/config"
)

// pluginRow is one list entry.
type pluginRow struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Runtime     string `json:"runtime"`
	Enabled     bool   `json:"enabled"`
	Hooks       int    `json:"hooks"`
	Description string `json:"description"`
	Dir         string `json:"dir"`
}

// listOutput is the full list result, including directories discovery
// skipped.
type listOutput struct {
	Plugins  []pluginRow `json:"plugins"`
	Warnings []string    `json:"warnings,omitempty"`
}

// newListCmd creates the list subcommand.
func newListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List discovered plugins",
		Long: `List every plugin discovered under the plugins directory with its
version, runtime, enabled state, and hook count. Directories skipped
during discovery are reported as warnings.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runList(cmd.Context(), cmd, cfg, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	return cmd
}

// runList executes the list command.
func runList(ctx context.Context, cmd *cobra.Command, cfg config.Config, jsonOutput bool) error {
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

	var out listOutput
	for _, dp := range h.mgr.Discovered() {
		m := dp.Manifest
		out.Plugins = append(out.Plugins, pluginRow{
			Name:        m.Name,
			Version:     m.Version,
			Runtime:     string(m.Runtime),
			Enabled:     h.mgr.Enabled(m.Name),
			Hooks:       len(m.Hooks),
			Description: m.Description,
			Dir:         dp.Dir,
		})
	}
	for _, w := range h.mgr.Warnings() {
		out.Warnings = append(out.Warnings, fmt.Sprintf("%s: %v", w.Dir, w.Err))
	}

	if jsonOutput {
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal list: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Println(formatListTable(out))
	return nil
}

// formatListTable formats the list as a human-readable table.
func formatListTable(out listOutput) string {
	var buf []byte
	w := tabwriter.NewWriter((*byteWriter)(&buf), 0, 0, 2, ' ', 0)

	// Header
	_, _ = fmt.Fprintln(w, "NAME\tVERSION\tRUNTIME\tENABLED\tHOOKS")
	_, _ = fmt.Fprintln(w, "----\t-------\t-------\t-------\t-----")

	for _, row := range out.Plugins {
		enabled := "yes"
		if !row.Enabled {
			enabled = "no"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n",
			row.Name, row.Version, row.Runtime, enabled, row.Hooks)
	}
	if len(out.Plugins) == 0 {
		_, _ = fmt.Fprintln(w, "(no plugins discovered)")
	}

	_ = w.Flush()

	for _, warning := range out.Warnings {
		buf = append(buf, []byte("warning: "+warning+"\n")...)
	}
	return string(buf)
}

// byteWriter is a simple writer that appends to a byte slice.
type byteWriter []byte

func (w *byteWriter) Write(p []byte) (int, error) {
	*w = append(*w, p...)
	return len(p), nil
}
