package main

import (
	"encoding/json"
	"os"
	"strings"
	"testing"
)

// readStateFile parses the file-backend enabled-state record.
func readStateFile(t *testing.T, path string) map[string]bool {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read state file: %v", err)
	}
	var states map[string]bool
	if err := json.Unmarshal(data, &states); err != nil {
		t.Fatalf("state file is not valid JSON: %v\n%s", err, data)
	}
	return states
}

func TestDisable_PersistsState(t *testing.T) {
	pluginsDir, statePath := testEnv(t)
	writePlugin(t, pluginsDir, "alpha", alphaManifest, map[string]string{"alpha.lua": alphaScript})

	output, err := runCommand(t, "disable", "alpha", "--plugins-dir", pluginsDir, "--state-path", statePath)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(output, "disabled plugin alpha") {
		t.Errorf("output = %q, want confirmation", output)
	}

	states := readStateFile(t, statePath)
	if enabled, ok := states["alpha"]; !ok || enabled {
		t.Errorf("state file should record alpha as disabled: %v", states)
	}
}

func TestEnable_LoadsAndPersists(t *testing.T) {
	pluginsDir, statePath := testEnv(t)
	writePlugin(t, pluginsDir, "alpha", alphaManifest, map[string]string{"alpha.lua": alphaScript})
	if err := os.WriteFile(statePath, []byte(`{"alpha": false}`), 0o644); err != nil {
		t.Fatal(err)
	}

	output, err := runCommand(t, "enable", "alpha", "--plugins-dir", pluginsDir, "--state-path", statePath)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(output, "enabled plugin alpha") {
		t.Errorf("output = %q, want confirmation", output)
	}

	states := readStateFile(t, statePath)
	if !states["alpha"] {
		t.Errorf("state file should record alpha as enabled: %v", states)
	}
}

func TestEnable_InactivePlugin(t *testing.T) {
	pluginsDir, statePath := testEnv(t)
	manifest := `name: unwell
version: 1.0.0
author: Test Author
description: Always fails its self-check.
runtime: lua
entry_point: unwell.lua
hooks:
  - after_create_env
`
	script := `function validate()
	return false
end

function after_create_env(ev)
end
`
	writePlugin(t, pluginsDir, "unwell", manifest, map[string]string{"unwell.lua": script})

	output, err := runCommand(t, "enable", "unwell", "--plugins-dir", pluginsDir, "--state-path", statePath)
	if err != nil {
		t.Fatalf("an inactive plugin still enables, got: %v", err)
	}
	if !strings.Contains(output, "loads inactive") {
		t.Errorf("output should note the inactive load: %q", output)
	}

	states := readStateFile(t, statePath)
	if !states["unwell"] {
		t.Errorf("state file should record unwell as enabled: %v", states)
	}
}

func TestEnable_LoadFailureStillPersists(t *testing.T) {
	pluginsDir, statePath := testEnv(t)
	manifest := `name: hollow
version: 1.0.0
author: Test Author
description: Points at an entry point that does not exist.
runtime: lua
entry_point: missing.lua
hooks:
  - after_create_env
`
	writePlugin(t, pluginsDir, "hollow", manifest, nil)

	_, err := runCommand(t, "enable", "hollow", "--plugins-dir", pluginsDir, "--state-path", statePath)
	if err == nil {
		t.Fatal("expected an error when the entry point cannot load")
	}
	if !strings.Contains(err.Error(), "now enabled") {
		t.Errorf("error should say the flag was still persisted, got: %v", err)
	}

	// The enabled flag sticks even though loading failed.
	states := readStateFile(t, statePath)
	if !states["hollow"] {
		t.Errorf("state file should record hollow as enabled: %v", states)
	}
}

func TestEnableDisable_UnknownPlugin(t *testing.T) {
	pluginsDir, statePath := testEnv(t)

	for _, sub := range []string{"enable", "disable"} {
		_, err := runCommand(t, sub, "ghost", "--plugins-dir", pluginsDir, "--state-path", statePath)
		if err == nil {
			t.Fatalf("%s ghost: expected an error", sub)
		}
		if !strings.Contains(err.Error(), "not found") {
			t.Errorf("%s ghost: error should mention not found, got: %v", sub, err)
		}
	}
}

func TestDisable_RoundTripWithList(t *testing.T) {
	pluginsDir, statePath := testEnv(t)
	writePlugin(t, pluginsDir, "beta", betaManifest, map[string]string{"beta.lua": betaScript})

	if _, err := runCommand(t, "disable", "beta", "--plugins-dir", pluginsDir, "--state-path", statePath); err != nil {
		t.Fatalf("disable: %v", err)
	}

	output, err := runCommand(t, "list", "--json", "--plugins-dir", pluginsDir, "--state-path", statePath)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var out listOutput
	if err := json.Unmarshal([]byte(output), &out); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, output)
	}
	if len(out.Plugins) != 1 || out.Plugins[0].Enabled {
		t.Errorf("beta should list as disabled after the round trip: %+v", out.Plugins)
	}
}
