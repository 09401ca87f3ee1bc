package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/envstudio/envstudio/internal/config"
	pluginsdk "github.com/envstudio/envstudio/pkg/plugin"
)

// fireResult is the outcome of one plugin's handler: its status plus
// the payload it returned. Handlers that fail or return nothing carry
// the original payload.
type fireResult struct {
	Plugin  string          `json:"plugin"`
	Status  string          `json:"status"` // "ok" or "error"
	Error   string          `json:"error,omitempty"`
	Payload json.RawMessage `json:"payload"`
}

// fireOutput is the full fire result.
type fireOutput struct {
	Hook    string       `json:"hook"`
	Results []fireResult `json:"results"`
}

// newFireCmd creates the fire subcommand.
func newFireCmd() *cobra.Command {
	var (
		payloadPath string
		jsonOutput  bool
	)

	cmd := &cobra.Command{
		Use:   "fire <hook>",
		Short: "Fire a hook through every enabled plugin",
		Long: `Load the enabled plugins and dispatch one hook event through them in
registration order, the way the application would. Every plugin sees
the same payload, built from --payload when given and from the hook's
zero payload otherwise; each result row shows the payload that plugin
handed back.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runFire(cmd.Context(), cmd, cfg, args[0], payloadPath, jsonOutput)
		},
	}

	cmd.Flags().StringVar(&payloadPath, "payload", "", "JSON payload file, or - for stdin")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	return cmd
}

// runFire executes the fire command.
func runFire(ctx context.Context, cmd *cobra.Command, cfg config.Config, hookName, payloadPath string, jsonOutput bool) error {
	hook := pluginsdk.Hook(hookName)
	if !hook.Valid() {
		return fmt.Errorf("unknown hook %q, see pluginctl list for subscriptions", hookName)
	}

	payload, err := readPayload(cmd, hook, payloadPath)
	if err != nil {
		return err
	}

	h, err := openHost(cfg, true)
	if err != nil {
		return err
	}
	defer func() { _ = h.Close(ctx) }()

	if err := h.mgr.RestoreState(ctx); err != nil {
		return err
	}
	if err := h.mgr.LoadEnabled(ctx); err != nil {
		return err
	}

	results, err := h.mgr.ExecuteHook(ctx, hook, payload)
	if err != nil {
		return err
	}

	out := fireOutput{Hook: hookName}
	for _, res := range results {
		fr := fireResult{Plugin: res.Plugin, Status: "ok"}
		if res.Err != nil {
			fr.Status = "error"
			fr.Error = res.Err.Error()
		}
		data, err := pluginsdk.MarshalPayload(res.Payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload from %s: %w", res.Plugin, err)
		}
		fr.Payload = data
		out.Results = append(out.Results, fr)
	}

	if jsonOutput {
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal results: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(out.Results) == 0 {
		cmd.Printf("no plugins subscribe to %s\n", hookName)
		return nil
	}
	cmd.Println(formatFireTable(out))
	return nil
}

// readPayload builds the event payload from --payload, falling back to
// the hook's zero payload.
func readPayload(cmd *cobra.Command, hook pluginsdk.Hook, path string) (pluginsdk.Payload, error) {
	if path == "" {
		return hook.NewPayload(), nil
	}
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read payload: %w", err)
	}
	payload, err := pluginsdk.UnmarshalPayload(hook, data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse payload: %w", err)
	}
	return payload, nil
}

// formatFireTable formats per-plugin results as a table. The RESULT
// column holds the returned payload for successful handlers and the
// error for failed ones.
func formatFireTable(out fireOutput) string {
	var buf []byte
	w := tabwriter.NewWriter((*byteWriter)(&buf), 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintln(w, "PLUGIN\tSTATUS\tRESULT")
	_, _ = fmt.Fprintln(w, "------\t------\t------")

	for _, res := range out.Results {
		result := string(res.Payload)
		if res.Error != "" {
			result = res.Error
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", res.Plugin, res.Status, result)
	}

	_ = w.Flush()
	return string(buf)
}
