package plugin_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/envstudio/envstudio/internal/plugin"
)

func TestValidateSchema_ValidBuiltinManifest(t *testing.T) {
	yaml := `
name: eventlog
version: 1.0.0
author: EnvStudio Team
description: Records every hook to a log file
entry_point: eventlog
hooks:
  - on_app_start
  - on_app_shutdown
`
	err := plugin.ValidateSchema([]byte(yaml))
	if err != nil {
		t.Errorf("ValidateSchema() error = %v, want nil", err)
	}
}

func TestValidateSchema_ValidLuaManifest(t *testing.T) {
	yaml := `
name: envwatch
version: 0.3.0
author: Jane Doe
description: Watches environment lifecycle events
runtime: lua
entry_point: envwatch.lua
required_version: 1.2.0
dependencies:
  - "requests>=2.28"
hooks:
  - before_create_env
  - after_create_env
`
	err := plugin.ValidateSchema([]byte(yaml))
	if err != nil {
		t.Errorf("ValidateSchema() error = %v, want nil", err)
	}
}

func TestValidateSchema_NameTooLong(t *testing.T) {
	// 65 characters - one over the 64 char limit (boundary test)
	yaml := `
name: a2345678901234567890123456789012345678901234567890123456789012345
version: 1.0.0
author: A
description: D
entry_point: ep
hooks: []
`
	err := plugin.ValidateSchema([]byte(yaml))
	if err == nil {
		t.Error("ValidateSchema() expected error for name exceeding 64 chars")
	}
}

func TestValidateSchema_NameExactlyMaxLength(t *testing.T) {
	// Exactly 64 characters - should be valid (boundary test)
	yaml := `
name: a234567890123456789012345678901234567890123456789012345678901234
version: 1.0.0
author: A
description: D
entry_point: ep
hooks: []
`
	err := plugin.ValidateSchema([]byte(yaml))
	if err != nil {
		t.Errorf("ValidateSchema() error = %v, want nil for 64 char name", err)
	}
}

func TestValidateSchema_MissingRequiredFields(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "missing name",
			yaml: `
version: 1.0.0
author: A
description: D
entry_point: ep
hooks: []
`,
		},
		{
			name: "missing version",
			yaml: `
name: sample
author: A
description: D
entry_point: ep
hooks: []
`,
		},
		{
			name: "missing entry_point",
			yaml: `
name: sample
version: 1.0.0
author: A
description: D
hooks: []
`,
		},
		{
			name: "missing hooks",
			yaml: `
name: sample
version: 1.0.0
author: A
description: D
entry_point: ep
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := plugin.ValidateSchema([]byte(tt.yaml))
			if err == nil {
				t.Errorf("ValidateSchema() expected error for %s", tt.name)
			}
		})
	}
}

func TestValidateSchema_InvalidNamePattern(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "uppercase not allowed",
			yaml: `
name: Invalid-Name
version: 1.0.0
author: A
description: D
entry_point: ep
hooks: []
`,
		},
		{
			name: "starts with number",
			yaml: `
name: 1plugin
version: 1.0.0
author: A
description: D
entry_point: ep
hooks: []
`,
		},
		{
			name: "starts with dash",
			yaml: `
name: -plugin
version: 1.0.0
author: A
description: D
entry_point: ep
hooks: []
`,
		},
		{
			name: "trailing separator not allowed",
			yaml: `
name: test-plugin-
version: 1.0.0
author: A
description: D
entry_point: ep
hooks: []
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := plugin.ValidateSchema([]byte(tt.yaml))
			if err == nil {
				t.Errorf("ValidateSchema() expected error for %s", tt.name)
			}
		})
	}
}

func TestValidateSchema_InvalidRuntime(t *testing.T) {
	yaml := `
name: sample
version: 1.0.0
author: A
description: D
runtime: wasm
entry_point: ep
hooks: []
`
	err := plugin.ValidateSchema([]byte(yaml))
	if err == nil {
		t.Error("ValidateSchema() expected error for invalid runtime")
	}
}

func TestValidateSchema_EmptyInput(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
	}{
		{name: "nil input", input: nil},
		{name: "empty slice", input: []byte{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := plugin.ValidateSchema(tt.input)
			if err == nil {
				t.Error("ValidateSchema() expected error for empty input")
			}
		})
	}
}

func TestGenerateSchema(t *testing.T) {
	schema, err := plugin.GenerateSchema()
	if err != nil {
		t.Fatalf("GenerateSchema() error = %v", err)
	}

	// Schema should be valid JSON
	if len(schema) == 0 {
		t.Error("GenerateSchema() returned empty schema")
	}

	// Schema should contain expected fields
	schemaStr := string(schema)
	expectedFields := []string{
		`"name"`,
		`"version"`,
		`"runtime"`,
		`"entry_point"`,
		`"hooks"`,
		`"$schema"`,
	}
	for _, field := range expectedFields {
		if !strings.Contains(schemaStr, field) {
			t.Errorf("GenerateSchema() missing expected field %s", field)
		}
	}
}

func TestGeneratePayloadSchemas(t *testing.T) {
	schemas, err := plugin.GeneratePayloadSchemas()
	if err != nil {
		t.Fatalf("GeneratePayloadSchemas() error = %v", err)
	}

	schemaStr := string(schemas)
	expected := []string{
		`"$id"`,
		`"on_app_start"`,
		`"before_create_env"`,
		`"on_scan_complete"`,
		`"env_name"`,
		`"severity_counts"`,
	}
	for _, field := range expected {
		if !strings.Contains(schemaStr, field) {
			t.Errorf("GeneratePayloadSchemas() missing expected field %s", field)
		}
	}
}

func TestResetSchemaCache(t *testing.T) {
	// First validation compiles and caches the schema
	yaml := `
name: sample
version: 1.0.0
author: A
description: D
entry_point: ep
hooks: []
`
	err := plugin.ValidateSchema([]byte(yaml))
	if err != nil {
		t.Fatalf("ValidateSchema() error = %v", err)
	}

	// Reset cache
	plugin.ResetSchemaCache()

	// Validation should still work (recompiles schema)
	err = plugin.ValidateSchema([]byte(yaml))
	if err != nil {
		t.Errorf("ValidateSchema() after reset error = %v", err)
	}
}

func TestGetSchemaID(t *testing.T) {
	id := plugin.GetSchemaID()
	if id == "" {
		t.Error("GetSchemaID() returned empty string")
	}
	if !strings.Contains(id, "envstudio") {
		t.Errorf("GetSchemaID() = %q, want to contain 'envstudio'", id)
	}
}

func TestFormatSchemaError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "nil error",
			err:  nil,
			want: "",
		},
		{
			name: "simple error",
			err:  fmt.Errorf("test error"),
			want: "test error",
		},
		{
			name: "schema validation error",
			err:  fmt.Errorf("schema validation failed: missing required field"),
			want: "missing required field",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := plugin.FormatSchemaError(tt.err)
			if got != tt.want {
				t.Errorf("FormatSchemaError() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidateSchema_InvalidYAML(t *testing.T) {
	yaml := `name: sample
version: 1.0.0
hooks: [invalid`
	err := plugin.ValidateSchema([]byte(yaml))
	if err == nil {
		t.Error("ValidateSchema() expected error for invalid YAML")
	}
}
