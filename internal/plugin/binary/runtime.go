// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EnvStudio Contributors

// Package binary runs plugins as separate executables over
// hashicorp/go-plugin. Each resolved plugin owns one child process;
// unloading it kills the process.
package binary

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	hashiplug "github.com/hashicorp/go-plugin"

	"github.com/envstudio/envstudio/internal/plugin"
	pluginsdk "github.com/envstudio/envstudio/pkg/plugin"
)

// PluginClient abstracts the go-plugin client for testing.
type PluginClient interface {
	Client() (hashiplug.ClientProtocol, error)
	Kill()
}

// ClientFactory creates plugin clients. Production uses
// DefaultClientFactory; tests substitute fakes.
type ClientFactory interface {
	NewClient(execPath string) PluginClient
}

// DefaultClientFactory creates real go-plugin clients.
type DefaultClientFactory struct{}

// NewClient creates a client for the plugin executable.
func (f *DefaultClientFactory) NewClient(execPath string) PluginClient {
	return hashiplug.NewClient(&hashiplug.ClientConfig{
		HandshakeConfig: pluginsdk.Handshake,
		Plugins: map[string]hashiplug.Plugin{
			pluginsdk.RPCPluginName: &pluginsdk.RPCPlugin{},
		},
		Cmd:              exec.Command(execPath), // #nosec G204 -- path comes from a validated manifest
		AllowedProtocols: []hashiplug.Protocol{hashiplug.ProtocolNetRPC},
	})
}

// remotePlugin is the dispensed client side of a plugin process. The
// SDK's RPCClient satisfies it.
type remotePlugin interface {
	pluginsdk.Plugin
	FetchMetadata() (pluginsdk.Metadata, error)
}

// Runtime resolves manifests with runtime "binary" into plugins that
// live in their own processes.
type Runtime struct {
	factory ClientFactory
	clients map[string]PluginClient
}

var _ plugin.Runtime = (*Runtime)(nil)

// NewRuntime creates the binary runtime with the production client
// factory.
func NewRuntime() *Runtime {
	return NewRuntimeWithFactory(&DefaultClientFactory{})
}

// NewRuntimeWithFactory creates the runtime with a custom client
// factory. Panics if factory is nil.
func NewRuntimeWithFactory(factory ClientFactory) *Runtime {
	if factory == nil {
		panic("binary: client factory must not be nil")
	}
	return &Runtime{
		factory: factory,
		clients: make(map[string]PluginClient),
	}
}

// Type reports the manifest runtime selector this runtime serves.
func (r *Runtime) Type() plugin.RuntimeType { return plugin.RuntimeBinary }

// Resolve launches the plugin executable and performs the handshake,
// fetching metadata so later Metadata calls need no round trip. The
// child process is killed on any failure along the way.
func (r *Runtime) Resolve(_ context.Context, manifest *plugin.Manifest, dir string) (pluginsdk.Plugin, error) {
	execPath := filepath.Join(dir, manifest.EntryPoint)
	if _, err := os.Stat(execPath); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("plugin executable not found: %s", execPath)
		}
		return nil, fmt.Errorf("stat plugin executable %s: %w", execPath, err)
	}

	client := r.factory.NewClient(execPath)

	proto, err := client.Client()
	if err != nil {
		client.Kill()
		return nil, fmt.Errorf("failed to connect to plugin %s: %w", manifest.Name, err)
	}

	raw, err := proto.Dispense(pluginsdk.RPCPluginName)
	if err != nil {
		client.Kill()
		return nil, fmt.Errorf("failed to dispense plugin %s: %w", manifest.Name, err)
	}

	remote, ok := raw.(remotePlugin)
	if !ok {
		client.Kill()
		return nil, fmt.Errorf("plugin %s has unexpected client type %T", manifest.Name, raw)
	}

	if _, err := remote.FetchMetadata(); err != nil {
		client.Kill()
		return nil, fmt.Errorf("plugin %s metadata handshake: %w", manifest.Name, err)
	}

	r.clients[manifest.Name] = client
	return &processPlugin{
		name:    manifest.Name,
		remote:  remote,
		client:  client,
		release: func() { delete(r.clients, manifest.Name) },
	}, nil
}

// Close kills any plugin processes still tracked. Normal unloads kill
// their own process in Cleanup; this catches instances that never
// reached a clean unload.
func (r *Runtime) Close(context.Context) error {
	for name, client := range r.clients {
		slog.Warn("killing leftover plugin process", "plugin", name)
		client.Kill()
	}
	clear(r.clients)
	return nil
}

// processPlugin proxies the plugin contract to a child process.
type processPlugin struct {
	name    string
	remote  remotePlugin
	client  PluginClient
	release func()
	killed  bool
}

var _ pluginsdk.Plugin = (*processPlugin)(nil)

// Metadata returns the metadata fetched during the resolve handshake.
func (p *processPlugin) Metadata() pluginsdk.Metadata { return p.remote.Metadata() }

func (p *processPlugin) Initialize(ctx context.Context, app *pluginsdk.AppContext) error {
	return p.remote.Initialize(ctx, app)
}

func (p *processPlugin) Execute(ctx context.Context, ev pluginsdk.Event) (pluginsdk.Payload, error) {
	return p.remote.Execute(ctx, ev)
}

func (p *processPlugin) Validate() bool { return p.remote.Validate() }

// Cleanup tells the plugin process to release its resources, then
// kills it regardless of the outcome. Safe to call more than once.
func (p *processPlugin) Cleanup(ctx context.Context) error {
	if p.killed {
		return nil
	}
	p.killed = true

	err := p.remote.Cleanup(ctx)
	p.client.Kill()
	p.release()
	if err != nil {
		return fmt.Errorf("plugin %s cleanup: %w", p.name, err)
	}
	return nil
}
