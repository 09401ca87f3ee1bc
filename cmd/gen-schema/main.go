// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EnvStudio Contributors

// Command gen-schema generates the plugin manifest and hook payload
// JSON Schema files.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/envstudio/envstudio/internal/plugin"
)

func main() {
	if err := os.MkdirAll("schemas", 0o750); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating directory: %v\n", err)
		os.Exit(1)
	}

	outputs := []struct {
		path     string
		generate func() ([]byte, error)
	}{
		{filepath.Join("schemas", "plugin.schema.json"), plugin.GenerateSchema},
		{filepath.Join("schemas", "hooks.schema.json"), plugin.GeneratePayloadSchemas},
	}

	for _, out := range outputs {
		data, err := out.generate()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error generating schema: %v\n", err)
			os.Exit(1)
		}
		if err := os.WriteFile(out.path, data, 0o600); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing file: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Generated %s\n", out.path)
	}
}
