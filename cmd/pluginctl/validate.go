package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/envstudio/envstudio/internal/config"
	"github.com/envstudio/envstudio/internal/plugin"
)

// validateResult is the load outcome for one plugin.
type validateResult struct {
	Name   string `json:"name"`
	Status string `json:"status"` // "ok", "inactive", or "failed"
	Detail string `json:"detail,omitempty"`
}

// validateOutput is the full validate result.
type validateOutput struct {
	Results  []validateResult `json:"results"`
	Warnings []string         `json:"warnings,omitempty"`
}

// newValidateCmd creates the validate subcommand.
func newValidateCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "validate [plugin...]",
		Short: "Check that plugins load and pass their self-checks",
		Long: `Run the full load pipeline for the named plugins, or for every
discovered plugin when none are named: version and dependency gates,
entry-point resolution, the plugin's own validation, and initialization.
The command fails when any checked plugin does not come up active, and,
when validating everything, when discovery skipped a directory.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runValidate(cmd.Context(), cmd, cfg, args, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	return cmd
}

// runValidate executes the validate command.
func runValidate(ctx context.Context, cmd *cobra.Command, cfg config.Config, names []string, jsonOutput bool) error {
	h, err := openHost(cfg, true)
	if err != nil {
		return err
	}
	defer func() { _ = h.Close(ctx) }()

	if _, err := h.mgr.Discover(ctx); err != nil {
		return err
	}

	// Named plugins must exist before any of them load.
	for _, name := range names {
		if _, ok := findDiscovered(h.mgr, name); !ok {
			return fmt.Errorf("plugin %q not found under %s", name, h.mgr.PluginsDir())
		}
	}

	all := len(names) == 0
	if all {
		for _, dp := range h.mgr.Discovered() {
			names = append(names, dp.Manifest.Name)
		}
	}

	var out validateOutput
	notActive := 0
	for _, name := range names {
		_, err := h.mgr.Load(ctx, name)
		switch {
		case err == nil:
			out.Results = append(out.Results, validateResult{Name: name, Status: "ok"})
		default:
			notActive++
			var vErr *plugin.ValidationError
			if errors.As(err, &vErr) {
				out.Results = append(out.Results, validateResult{Name: name, Status: "inactive", Detail: vErr.Reason})
			} else {
				out.Results = append(out.Results, validateResult{Name: name, Status: "failed", Detail: err.Error()})
			}
		}
	}
	skipped := h.mgr.Warnings()
	for _, w := range skipped {
		out.Warnings = append(out.Warnings, fmt.Sprintf("%s: %v", w.Dir, w.Err))
		out.Warnings = append(out.Warnings, schemaCauses(h.mgr.PluginsDir(), w.Dir)...)
	}

	if jsonOutput {
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal results: %w", err)
		}
		cmd.Println(string(data))
	} else {
		cmd.Println(formatValidateTable(out))
	}

	if notActive > 0 {
		return fmt.Errorf("%d of %d plugins did not come up active", notActive, len(names))
	}
	// A skipped directory is a broken manifest; when validating the
	// whole tree that is a failure even though it never produced a name.
	if all && len(skipped) > 0 {
		return fmt.Errorf("discovery skipped %d directories", len(skipped))
	}
	return nil
}

// schemaCauses runs a skipped directory's manifest through the JSON
// Schema validator. The schema error lists every violated constraint,
// which pins down a broken manifest faster than the first parse error
// alone.
func schemaCauses(pluginsDir, dir string) []string {
	data, err := os.ReadFile(filepath.Join(pluginsDir, dir, "plugin.yaml"))
	if err != nil {
		return nil
	}
	if err := plugin.ValidateSchema(data); err != nil {
		return []string{fmt.Sprintf("%s: %s", dir, plugin.FormatSchemaError(err))}
	}
	return nil
}

// formatValidateTable formats validate results as a table.
func formatValidateTable(out validateOutput) string {
	var buf []byte
	w := tabwriter.NewWriter((*byteWriter)(&buf), 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintln(w, "PLUGIN\tSTATUS\tDETAIL")
	_, _ = fmt.Fprintln(w, "------\t------\t------")

	for _, res := range out.Results {
		detail := res.Detail
		if detail == "" {
			detail = "-"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", res.Name, res.Status, detail)
	}
	if len(out.Results) == 0 {
		_, _ = fmt.Fprintln(w, "(no plugins to validate)")
	}

	_ = w.Flush()

	for _, warning := range out.Warnings {
		buf = append(buf, []byte("warning: "+warning+"\n")...)
	}
	return string(buf)
}
