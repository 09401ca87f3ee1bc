// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EnvStudio Contributors

package plugin

import (
	"context"
	"encoding/json"
	"fmt"
	"net/rpc"

	hashiplug "github.com/hashicorp/go-plugin"
)

// RPCPluginName is the go-plugin dispense key shared by host and
// plugin processes.
const RPCPluginName = "envstudio"

// Handshake is the go-plugin handshake configuration. Both host and
// plugins must use the same values.
var Handshake = hashiplug.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "ENVSTUDIO_PLUGIN",
	MagicCookieValue: "envstudio-v1",
}

// InitializeArgs is the serializable slice of the app context a binary
// plugin receives. Live host handles cannot cross the process
// boundary; out-of-process plugins get the app identity and log
// through their own stderr, which go-plugin forwards to the host log.
type InitializeArgs struct {
	AppName    string
	AppVersion string
}

// ExecuteArgs carries one hook firing, JSON-encoded.
type ExecuteArgs struct {
	EventJSON []byte
}

// ExecuteReply carries the returned payload, JSON-encoded, or nil.
type ExecuteReply struct {
	PayloadJSON []byte
}

// MetadataReply carries the plugin's metadata.
type MetadataReply struct {
	Metadata Metadata
}

// ValidateReply carries the validation verdict.
type ValidateReply struct {
	OK bool
}

// RPCPlugin implements go-plugin's Plugin interface over net/rpc.
// The host side leaves Impl nil; the serving side sets it.
type RPCPlugin struct {
	Impl Plugin
}

var _ hashiplug.Plugin = (*RPCPlugin)(nil)

// Server returns the RPC server object registered in the plugin
// process.
func (p *RPCPlugin) Server(*hashiplug.MuxBroker) (interface{}, error) {
	if p.Impl == nil {
		return nil, fmt.Errorf("plugin: no implementation to serve")
	}
	return &rpcServer{impl: p.Impl}, nil
}

// Client returns the host-side proxy.
func (p *RPCPlugin) Client(_ *hashiplug.MuxBroker, c *rpc.Client) (interface{}, error) {
	return &RPCClient{client: c}, nil
}

// rpcServer adapts a Plugin to net/rpc in the plugin process.
type rpcServer struct {
	impl Plugin
}

func (s *rpcServer) Metadata(_ struct{}, reply *MetadataReply) error {
	reply.Metadata = s.impl.Metadata()
	return nil
}

func (s *rpcServer) Initialize(args InitializeArgs, _ *struct{}) error {
	app := NewAppContext(nil, NewAppInfo(args.AppName, args.AppVersion))
	return s.impl.Initialize(context.Background(), app)
}

func (s *rpcServer) Execute(args ExecuteArgs, reply *ExecuteReply) error {
	ev, err := UnmarshalEvent(args.EventJSON)
	if err != nil {
		return err
	}
	out, err := s.impl.Execute(context.Background(), ev)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	data, err := MarshalPayload(out)
	if err != nil {
		return err
	}
	reply.PayloadJSON = data
	return nil
}

func (s *rpcServer) Validate(_ struct{}, reply *ValidateReply) error {
	reply.OK = s.impl.Validate()
	return nil
}

func (s *rpcServer) Cleanup(_ struct{}, _ *struct{}) error {
	return s.impl.Cleanup(context.Background())
}

// RPCClient is the host-side proxy for an out-of-process plugin. It
// implements Plugin; the binary runtime prefetches metadata at resolve
// time so Metadata stays error-free afterwards.
type RPCClient struct {
	client *rpc.Client
	meta   Metadata
}

var _ Plugin = (*RPCClient)(nil)

// FetchMetadata performs the metadata RPC and caches the result.
func (c *RPCClient) FetchMetadata() (Metadata, error) {
	var reply MetadataReply
	if err := c.client.Call("Plugin.Metadata", struct{}{}, &reply); err != nil {
		return Metadata{}, fmt.Errorf("plugin metadata call: %w", err)
	}
	c.meta = reply.Metadata
	return c.meta, nil
}

// Metadata returns the metadata cached by FetchMetadata.
func (c *RPCClient) Metadata() Metadata { return c.meta }

// Initialize forwards the app identity. Cancellation does not cross
// the process boundary.
func (c *RPCClient) Initialize(_ context.Context, app *AppContext) error {
	var args InitializeArgs
	if app != nil && app.App() != nil {
		args.AppName = app.App().Name()
		args.AppVersion = app.App().Version()
	}
	return c.client.Call("Plugin.Initialize", args, &struct{}{})
}

// Execute ships the event as JSON and decodes the reply payload using
// the event's hook.
func (c *RPCClient) Execute(_ context.Context, ev Event) (Payload, error) {
	evJSON, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	var reply ExecuteReply
	if err := c.client.Call("Plugin.Execute", ExecuteArgs{EventJSON: evJSON}, &reply); err != nil {
		return nil, err
	}
	if len(reply.PayloadJSON) == 0 {
		return nil, nil
	}
	return UnmarshalPayload(ev.Hook, reply.PayloadJSON)
}

// Validate returns false when the verdict cannot be obtained; an
// unreachable plugin is treated as unvalidated, not as failed.
func (c *RPCClient) Validate() bool {
	var reply ValidateReply
	if err := c.client.Call("Plugin.Validate", struct{}{}, &reply); err != nil {
		return false
	}
	return reply.OK
}

// Cleanup tells the plugin process to release its resources. The
// binary runtime kills the process afterwards.
func (c *RPCClient) Cleanup(context.Context) error {
	return c.client.Call("Plugin.Cleanup", struct{}{}, &struct{}{})
}
