// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EnvStudio Contributors

// Package main implements the verscan plugin for EnvStudio, an example
// of a plugin running in its own process.
//
// Build it next to its manifest:
//
//	go build -o verscan ./plugins/verscan
//
// The host launches the executable named by entry_point and speaks to
// it over the SDK's RPC protocol; Serve at the bottom wires that up.
package main

import (
	"context"
	"fmt"
	"os"

	pluginsdk "github.com/envstudio/envstudio/pkg/plugin"
)

// defaultPython is pinned onto new environments that omit a version.
const defaultPython = "3.12"

type verscan struct {
	pluginsdk.Base
}

func (v *verscan) Metadata() pluginsdk.Metadata {
	return pluginsdk.Metadata{
		Name:        "verscan",
		Version:     "0.2.0",
		Author:      "EnvStudio Team",
		Description: "Flags high-severity scan findings and pins a default Python version for new environments.",
		EntryPoint:  "verscan",
		Hooks: []pluginsdk.Hook{
			pluginsdk.HookBeforeCreateEnv,
			pluginsdk.HookOnScanComplete,
		},
	}
}

func (v *verscan) Initialize(context.Context, *pluginsdk.AppContext) error {
	return nil
}

func (v *verscan) Execute(_ context.Context, ev pluginsdk.Event) (pluginsdk.Payload, error) {
	switch payload := ev.Payload.(type) {
	case *pluginsdk.EnvCreate:
		if payload.PythonVersion == "" {
			return &pluginsdk.EnvCreate{
				EnvName:       payload.EnvName,
				PythonVersion: defaultPython,
				PythonPath:    payload.PythonPath,
			}, nil
		}
	case *pluginsdk.ScanReport:
		high := payload.SeverityCounts["high"] + payload.SeverityCounts["critical"]
		if high > 0 {
			fmt.Fprintf(os.Stderr, "verscan: %s has %d high-severity findings\n", payload.EnvName, high)
		}
	}
	return nil, nil
}

func main() {
	pluginsdk.Serve(&pluginsdk.ServeConfig{Plugin: &verscan{}})
}
