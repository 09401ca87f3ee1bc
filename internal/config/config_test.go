// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EnvStudio Contributors

package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/envstudio/envstudio/internal/config"
)

// writeConfig writes a YAML config file into a temp dir and returns its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "envstudio.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// testFlags builds a flag set with the names Load recognizes, the way
// pluginctl registers them.
func testFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("plugins-dir", "", "plugins directory")
	flags.String("state-backend", "", "state backend")
	flags.String("state-path", "", "state path")
	flags.String("host-version", "", "host version")
	flags.String("log-level", "info", "log level")
	flags.String("log-format", "text", "log format")
	flags.Bool("metrics", false, "serve metrics")
	flags.String("metrics-addr", "", "metrics address")
	return flags
}

func TestDefault(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/data")
	t.Setenv("XDG_STATE_HOME", "/state")

	cfg := config.Default()

	assert.Equal(t, "EnvStudio", cfg.App.Name)
	assert.Empty(t, cfg.App.Version, "dev builds run without a host-version gate")
	assert.Equal(t, "/data/envstudio/plugins", cfg.Plugins.Dir)
	assert.Equal(t, config.BackendFile, cfg.Plugins.StateBackend)
	assert.Equal(t, "/state/envstudio/plugin_state.json", cfg.Plugins.StatePath)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.False(t, cfg.Observability.Enabled)
	assert.Equal(t, "127.0.0.1:9100", cfg.Observability.Addr)
}

func TestLoad_NoFileNoFlags(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/data")
	t.Setenv("XDG_STATE_HOME", "/state")

	cfg, err := config.Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, config.Default(), cfg)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
app:
  name: EnvStudio Pro
  version: 2.1.0
plugins:
  dir: /opt/plugins
  state_backend: bolt
  ignore:
    - "*.bak"
    - _disabled
log:
  level: debug
  format: json
observability:
  enabled: true
  addr: 127.0.0.1:9200
`)

	cfg, err := config.Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "EnvStudio Pro", cfg.App.Name)
	assert.Equal(t, "2.1.0", cfg.App.Version)
	assert.Equal(t, "/opt/plugins", cfg.Plugins.Dir)
	assert.Equal(t, config.BackendBolt, cfg.Plugins.StateBackend)
	assert.Equal(t, []string{"*.bak", "_disabled"}, cfg.Plugins.Ignore)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.True(t, cfg.Observability.Enabled)
	assert.Equal(t, "127.0.0.1:9200", cfg.Observability.Addr)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/data")
	t.Setenv("XDG_STATE_HOME", "/state")

	path := writeConfig(t, `
plugins:
  dir: /opt/plugins
`)

	cfg, err := config.Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "/opt/plugins", cfg.Plugins.Dir)
	assert.Equal(t, "EnvStudio", cfg.App.Name)
	assert.Equal(t, config.BackendFile, cfg.Plugins.StateBackend)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoad_StatePathFollowsBackend(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", "/state")

	path := writeConfig(t, `
plugins:
  state_backend: bolt
`)

	cfg, err := config.Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "/state/envstudio/plugins.db", cfg.Plugins.StatePath)
}

func TestLoad_ExplicitStatePathWins(t *testing.T) {
	path := writeConfig(t, `
plugins:
  state_backend: bolt
  state_path: /custom/state.db
`)

	cfg, err := config.Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "/custom/state.db", cfg.Plugins.StatePath)
}

func TestLoad_ChangedFlagsOverrideFile(t *testing.T) {
	path := writeConfig(t, `
plugins:
  dir: /opt/plugins
log:
  level: debug
`)

	flags := testFlags()
	require.NoError(t, flags.Parse([]string{"--plugins-dir", "/tmp/plugins", "--metrics"}))

	cfg, err := config.Load(path, flags)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/plugins", cfg.Plugins.Dir, "changed flag wins over file")
	assert.Equal(t, "debug", cfg.Log.Level, "file value survives unchanged flag default")
	assert.True(t, cfg.Observability.Enabled)
}

func TestLoad_FlagDefaultDoesNotOverrideFile(t *testing.T) {
	path := writeConfig(t, `
log:
  format: json
`)

	flags := testFlags()
	require.NoError(t, flags.Parse(nil))

	cfg, err := config.Load(path, flags)
	require.NoError(t, err)

	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_FlagsWithoutFile(t *testing.T) {
	flags := testFlags()
	require.NoError(t, flags.Parse([]string{
		"--state-backend", "bolt",
		"--state-path", "/custom/plugins.db",
		"--host-version", "2.1.0",
	}))

	cfg, err := config.Load("", flags)
	require.NoError(t, err)

	assert.Equal(t, config.BackendBolt, cfg.Plugins.StateBackend)
	assert.Equal(t, "/custom/plugins.db", cfg.Plugins.StatePath)
	assert.Equal(t, "2.1.0", cfg.App.Version)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load config file")
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := writeConfig(t, "plugins: [not: a: mapping\n")

	_, err := config.Load(path, nil)
	require.Error(t, err)
}

func TestLoad_RejectsUnknownBackend(t *testing.T) {
	path := writeConfig(t, `
plugins:
  state_backend: redis
`)

	_, err := config.Load(path, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "state_backend")
}

func TestLoad_RejectsUnknownLogFormat(t *testing.T) {
	path := writeConfig(t, `
log:
  format: logfmt
`)

	_, err := config.Load(path, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log format")
}

func TestValidate_DefaultIsValid(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, cfg.Validate())
}
