// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EnvStudio Contributors

package lua

import (
	"context"
	"os"
	"path/filepath"

	"github.com/samber/oops"

	"github.com/envstudio/envstudio/internal/plugin"
	"github.com/envstudio/envstudio/internal/plugin/hostfunc"
	pluginsdk "github.com/envstudio/envstudio/pkg/plugin"
)

// Runtime resolves manifests with runtime "lua" into script-backed
// plugin instances.
type Runtime struct {
	factory *StateFactory
}

var _ plugin.Runtime = (*Runtime)(nil)

// NewRuntime creates the Lua runtime. hostFuncs may be nil.
func NewRuntime(hostFuncs *hostfunc.Functions) *Runtime {
	return &Runtime{factory: NewStateFactory(hostFuncs)}
}

// Type reports the manifest runtime selector this runtime serves.
func (r *Runtime) Type() plugin.RuntimeType { return plugin.RuntimeLua }

// Resolve reads and executes the plugin's entry script. The script's
// top level runs once here; the globals it defines become the
// plugin's handlers.
func (r *Runtime) Resolve(ctx context.Context, manifest *plugin.Manifest, dir string) (pluginsdk.Plugin, error) {
	entryPath := filepath.Join(dir, manifest.EntryPoint)
	code, err := os.ReadFile(filepath.Clean(entryPath))
	if err != nil {
		return nil, oops.In("lua").
			With("plugin", manifest.Name).
			With("operation", "resolve").
			With("path", entryPath).
			Hint("check that the entry_point file exists and is readable").
			Wrap(err)
	}

	ls := r.factory.NewState(manifest.Name, dir)
	ls.SetContext(ctx)
	if err := ls.DoString(string(code)); err != nil {
		ls.Close()
		return nil, oops.In("lua").
			With("plugin", manifest.Name).
			With("operation", "resolve").
			With("entry_point", manifest.EntryPoint).
			Wrap(err)
	}

	return &scriptPlugin{
		name: manifest.Name,
		meta: manifest.Metadata(),
		ls:   ls,
	}, nil
}

// Close implements plugin.Runtime. Interpreters are torn down per
// plugin in Cleanup; the runtime itself holds nothing.
func (r *Runtime) Close(context.Context) error { return nil }
