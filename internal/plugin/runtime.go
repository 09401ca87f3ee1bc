// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EnvStudio Contributors

package plugin

import (
	"context"
	"fmt"

	pluginsdk "github.com/envstudio/envstudio/pkg/plugin"
)

// Runtime resolves plugin instances for one manifest runtime type.
// The manager owns one runtime per type; the lua and binary runtimes
// live in their own subpackages and are wired in by the host.
type Runtime interface {
	// Type reports which manifest runtime this handles.
	Type() RuntimeType

	// Resolve turns a discovered manifest into a live plugin instance.
	// The instance is not yet validated or initialized.
	Resolve(ctx context.Context, manifest *Manifest, dir string) (pluginsdk.Plugin, error)

	// Close releases runtime-wide resources. Per-plugin resources are
	// released by each instance's Cleanup.
	Close(ctx context.Context) error
}

// builtinRuntime resolves compiled-in plugins from the builtin registry.
type builtinRuntime struct{}

// NewBuiltinRuntime creates the runtime for compiled-in plugins.
func NewBuiltinRuntime() Runtime {
	return builtinRuntime{}
}

func (builtinRuntime) Type() RuntimeType { return RuntimeBuiltin }

func (builtinRuntime) Resolve(_ context.Context, manifest *Manifest, _ string) (pluginsdk.Plugin, error) {
	factory, ok := LookupBuiltin(manifest.EntryPoint)
	if !ok {
		return nil, fmt.Errorf("no builtin plugin registered for entry point %q", manifest.EntryPoint)
	}
	return factory(), nil
}

func (builtinRuntime) Close(context.Context) error { return nil }
