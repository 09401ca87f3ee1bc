// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EnvStudio Contributors

package plugin

import (
	"context"
	"errors"
	"net"
	"net/rpc"
	"strings"
	"testing"
)

// echoPlugin tags the env name so tests can see the payload crossed
// both directions.
type echoPlugin struct {
	Base

	initialized bool
	appName     string
	cleanedUp   bool
	executeErr  error
}

func (p *echoPlugin) Metadata() Metadata {
	return Metadata{
		Name:    "echo",
		Version: "1.0.0",
		Hooks:   []Hook{HookAfterCreateEnv},
	}
}

func (p *echoPlugin) Initialize(_ context.Context, app *AppContext) error {
	p.initialized = true
	if app != nil && app.App() != nil {
		p.appName = app.App().Name()
	}
	return nil
}

func (p *echoPlugin) Execute(_ context.Context, ev Event) (Payload, error) {
	if p.executeErr != nil {
		return nil, p.executeErr
	}
	env, ok := ev.Payload.(*EnvCreate)
	if !ok {
		return ev.Payload, nil
	}
	env.EnvName = "seen:" + env.EnvName
	return env, nil
}

func (p *echoPlugin) Cleanup(context.Context) error {
	p.cleanedUp = true
	return nil
}

// newLoopback wires an RPCClient to an rpcServer over an in-memory
// pipe, standing in for the go-plugin transport.
func newLoopback(t *testing.T, impl Plugin) *RPCClient {
	t.Helper()

	srvConn, cliConn := net.Pipe()
	server := rpc.NewServer()
	if err := server.RegisterName("Plugin", &rpcServer{impl: impl}); err != nil {
		t.Fatalf("register: %v", err)
	}
	go server.ServeConn(srvConn)

	client := rpc.NewClient(cliConn)
	t.Cleanup(func() { _ = client.Close() })
	return &RPCClient{client: client}
}

func TestRPC_MetadataPrefetch(t *testing.T) {
	client := newLoopback(t, &echoPlugin{})

	meta, err := client.FetchMetadata()
	if err != nil {
		t.Fatalf("FetchMetadata: %v", err)
	}
	if meta.Name != "echo" || len(meta.Hooks) != 1 {
		t.Errorf("metadata = %+v", meta)
	}
	if client.Metadata().Name != "echo" {
		t.Error("Metadata() should return the prefetched value")
	}
}

func TestRPC_InitializeCarriesAppIdentity(t *testing.T) {
	impl := &echoPlugin{}
	client := newLoopback(t, impl)

	app := NewAppContext(nil, NewAppInfo("envstudio", "1.4.0"))
	if err := client.Initialize(context.Background(), app); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if !impl.initialized || impl.appName != "envstudio" {
		t.Errorf("plugin saw initialized=%v app=%q", impl.initialized, impl.appName)
	}
}

func TestRPC_ExecuteRoundTrip(t *testing.T) {
	client := newLoopback(t, &echoPlugin{})

	out, err := client.Execute(context.Background(), Event{
		ID:      "01JX",
		Hook:    HookAfterCreateEnv,
		FiredAt: 1,
		Payload: &EnvCreate{EnvName: "demo"},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	env, ok := out.(*EnvCreate)
	if !ok {
		t.Fatalf("result type = %T", out)
	}
	if env.EnvName != "seen:demo" {
		t.Errorf("EnvName = %q, want %q", env.EnvName, "seen:demo")
	}
}

func TestRPC_ExecuteErrorCrossesBoundary(t *testing.T) {
	client := newLoopback(t, &echoPlugin{executeErr: errors.New("boom")})

	_, err := client.Execute(context.Background(), Event{
		ID:      "01JX",
		Hook:    HookAfterCreateEnv,
		Payload: &EnvCreate{EnvName: "demo"},
	})
	if err == nil {
		t.Fatal("expected the plugin error")
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Errorf("error = %v, want it to carry the cause", err)
	}
}

func TestRPC_ValidateAndCleanup(t *testing.T) {
	impl := &echoPlugin{}
	client := newLoopback(t, impl)

	if !client.Validate() {
		t.Error("Validate should report the Base default true")
	}
	if err := client.Cleanup(context.Background()); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if !impl.cleanedUp {
		t.Error("Cleanup should reach the implementation")
	}
}

func TestRPC_ValidateFalseOnDeadClient(t *testing.T) {
	client := newLoopback(t, &echoPlugin{})
	// Closing the underlying transport makes every call fail.
	_ = client.client.Close()

	if client.Validate() {
		t.Error("unreachable plugin should validate false")
	}
}
