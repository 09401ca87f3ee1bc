// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EnvStudio Contributors

package plugin

import (
	hashiplug "github.com/hashicorp/go-plugin"
)

// ServeConfig configures the plugin server for out-of-process plugins.
type ServeConfig struct {
	// Plugin is the implementation to serve.
	// Required; Serve will panic if nil.
	Plugin Plugin
}

// Serve starts the plugin server. Call it from main() of a binary
// plugin; it blocks and never returns under normal operation.
//
// Example usage:
//
//	package main
//
//	import (
//		"context"
//
//		"github.com/envstudio/envstudio/pkg/plugin"
//	)
//
//	type Notifier struct {
//		plugin.Base
//	}
//
//	func (n *Notifier) Metadata() plugin.Metadata {
//		return plugin.Metadata{
//			Name:    "notifier",
//			Version: "1.0.0",
//			Hooks:   []plugin.Hook{plugin.HookAfterCreateEnv},
//		}
//	}
//
//	func (n *Notifier) Initialize(ctx context.Context, app *plugin.AppContext) error {
//		return nil
//	}
//
//	func (n *Notifier) Execute(ctx context.Context, ev plugin.Event) (plugin.Payload, error) {
//		return ev.Payload, nil
//	}
//
//	func main() {
//		plugin.Serve(&plugin.ServeConfig{Plugin: &Notifier{}})
//	}
func Serve(config *ServeConfig) {
	if config == nil {
		panic("plugin: config cannot be nil")
	}
	if config.Plugin == nil {
		panic("plugin: config.Plugin cannot be nil")
	}
	hashiplug.Serve(&hashiplug.ServeConfig{
		HandshakeConfig: Handshake,
		Plugins: map[string]hashiplug.Plugin{
			RPCPluginName: &RPCPlugin{Impl: config.Plugin},
		},
	})
}
