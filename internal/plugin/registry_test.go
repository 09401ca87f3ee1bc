// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EnvStudio Contributors

package plugin_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/envstudio/envstudio/internal/plugin"
	pluginsdk "github.com/envstudio/envstudio/pkg/plugin"
)

func TestRegisterBuiltin(t *testing.T) {
	t.Cleanup(plugin.ResetBuiltins)

	fake := newFakePlugin("one")
	plugin.RegisterBuiltin("one", func() pluginsdk.Plugin { return fake })

	factory, ok := plugin.LookupBuiltin("one")
	require.True(t, ok)
	assert.Same(t, fake, factory().(*fakePlugin))

	_, ok = plugin.LookupBuiltin("unregistered")
	assert.False(t, ok)
}

func TestRegisterBuiltin_ReplaceWins(t *testing.T) {
	t.Cleanup(plugin.ResetBuiltins)

	first := newFakePlugin("dup")
	second := newFakePlugin("dup")
	plugin.RegisterBuiltin("dup", func() pluginsdk.Plugin { return first })
	plugin.RegisterBuiltin("dup", func() pluginsdk.Plugin { return second })

	factory, ok := plugin.LookupBuiltin("dup")
	require.True(t, ok)
	assert.Same(t, second, factory().(*fakePlugin), "later registration replaces the earlier one")
}

func TestRegisterBuiltin_Panics(t *testing.T) {
	t.Cleanup(plugin.ResetBuiltins)

	assert.Panics(t, func() {
		plugin.RegisterBuiltin("", func() pluginsdk.Plugin { return newFakePlugin("x") })
	})
	assert.Panics(t, func() {
		plugin.RegisterBuiltin("nil-factory", nil)
	})
}

func TestBuiltinEntryPoints(t *testing.T) {
	t.Cleanup(plugin.ResetBuiltins)

	for _, name := range []string{"zeta", "alpha", "mid"} {
		fake := newFakePlugin(name)
		plugin.RegisterBuiltin(name, func() pluginsdk.Plugin { return fake })
	}

	assert.Equal(t, []string{"alpha", "mid", "zeta"}, plugin.BuiltinEntryPoints())

	plugin.ResetBuiltins()
	assert.Empty(t, plugin.BuiltinEntryPoints())
}
