// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EnvStudio Contributors

// Package eventlog is the compiled-in reference plugin. It appends one
// JSON line per received event to events.jsonl in its plugin
// directory, plus a summary line when unloaded. Useful for auditing
// which hooks fire and with what payloads.
package eventlog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/envstudio/envstudio/internal/plugin"
	pluginsdk "github.com/envstudio/envstudio/pkg/plugin"
)

// EntryPoint is the builtin registry key manifests reference.
const EntryPoint = "eventlog"

// FileName is the log file written inside the plugin directory.
const FileName = "events.jsonl"

func init() {
	plugin.RegisterBuiltin(EntryPoint, func() pluginsdk.Plugin { return New() })
}

// Plugin appends received events to a JSONL file.
type Plugin struct {
	pluginsdk.Base

	logger *slog.Logger
	path   string
	file   *os.File
	count  int
}

var _ pluginsdk.Plugin = (*Plugin)(nil)

// New creates an unstarted eventlog plugin.
func New() *Plugin {
	return &Plugin{logger: slog.Default()}
}

// Metadata describes the plugin. The name matches the shipped
// manifest.
func (p *Plugin) Metadata() pluginsdk.Metadata {
	return pluginsdk.Metadata{
		Name:        "eventlog",
		Version:     "1.0.0",
		Author:      "EnvStudio Team",
		Description: "Appends every plugin event to events.jsonl for debugging and audit.",
		EntryPoint:  EntryPoint,
		Hooks:       pluginsdk.Hooks(),
	}
}

// Initialize opens the log file inside the plugin's directory, which
// the manager exposes as the plugin_dir service.
func (p *Plugin) Initialize(_ context.Context, app *pluginsdk.AppContext) error {
	var dir string
	if app != nil {
		p.logger = app.Logger().With("plugin", "eventlog")
		if svc, ok := app.Service(pluginsdk.ServicePluginDir); ok {
			dir, _ = svc.(string)
		}
	}
	if dir == "" {
		return fmt.Errorf("eventlog: plugin_dir service not available")
	}

	path := filepath.Join(dir, FileName)
	file, err := os.OpenFile(filepath.Clean(path), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("eventlog: open %s: %w", path, err)
	}

	p.path = path
	p.file = file
	p.logger.Info("event log opened", "path", path)
	return nil
}

// logEntry is one line in events.jsonl.
type logEntry struct {
	EventID  string          `json:"event_id"`
	Hook     string          `json:"hook"`
	FiredAt  int64           `json:"fired_at"`
	LoggedAt string          `json:"logged_at"`
	Payload  json.RawMessage `json:"payload"`
}

// Execute appends the event and leaves the payload untouched.
func (p *Plugin) Execute(_ context.Context, ev pluginsdk.Event) (pluginsdk.Payload, error) {
	if p.file == nil {
		return nil, fmt.Errorf("eventlog: not initialized")
	}

	payload, err := pluginsdk.MarshalPayload(ev.Payload)
	if err != nil {
		return nil, fmt.Errorf("eventlog: encode payload: %w", err)
	}

	line := logEntry{
		EventID:  ev.ID,
		Hook:     string(ev.Hook),
		FiredAt:  ev.FiredAt,
		LoggedAt: time.Now().UTC().Format(time.RFC3339),
		Payload:  payload,
	}
	if err := json.NewEncoder(p.file).Encode(line); err != nil {
		return nil, fmt.Errorf("eventlog: write entry: %w", err)
	}

	p.count++
	return nil, nil
}

// Cleanup writes a closing summary line and closes the file.
func (p *Plugin) Cleanup(context.Context) error {
	if p.file == nil {
		return nil
	}

	summary := map[string]any{
		"summary":      true,
		"total_events": p.count,
		"closed_at":    time.Now().UTC().Format(time.RFC3339),
	}
	encodeErr := json.NewEncoder(p.file).Encode(summary)
	closeErr := p.file.Close()
	p.file = nil

	p.logger.Info("event log closed", "path", p.path, "events", p.count)
	if encodeErr != nil {
		return fmt.Errorf("eventlog: write summary: %w", encodeErr)
	}
	return closeErr
}
