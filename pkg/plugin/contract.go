// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EnvStudio Contributors

package plugin

import (
	"context"
	"log/slog"
)

// Plugin is the capability set every plugin implements.
//
// The manager drives the lifecycle: Metadata and Validate run before
// Initialize; Execute runs only after Initialize succeeded; Cleanup
// runs exactly once during unload, after which the instance receives
// no further calls. Errors and panics from Initialize, Execute, and
// Cleanup never propagate past the manager.
type Plugin interface {
	// Metadata is pure and callable before initialization.
	Metadata() Metadata

	// Initialize is called exactly once, before any Execute. The app
	// context is shared across plugins and read-only by convention.
	// An error aborts loading this plugin only.
	Initialize(ctx context.Context, app *AppContext) error

	// Execute handles one hook firing the plugin is subscribed to and
	// returns the (possibly mutated) payload. How a plugin routes
	// between hooks internally is its own business.
	Execute(ctx context.Context, ev Event) (Payload, error)

	// Validate is checked once after instantiation; returning false
	// loads the plugin in an inactive, warning state instead of
	// failing the load.
	Validate() bool

	// Cleanup releases whatever the plugin holds.
	Cleanup(ctx context.Context) error
}

// Base provides defaults for the optional contract methods. Embed it
// and implement Metadata, Initialize, and Execute.
type Base struct{}

// Validate reports the plugin healthy.
func (Base) Validate() bool { return true }

// Cleanup does nothing.
func (Base) Cleanup(context.Context) error { return nil }

// AppHandle is the host application as plugins see it.
type AppHandle interface {
	Name() string
	Version() string
}

// AppContext is the read-only bundle of host services handed to a
// plugin at Initialize. It always carries a logger and an app handle;
// hosts may attach further named services, and plugins must degrade
// gracefully when an optional service is absent.
type AppContext struct {
	logger   *slog.Logger
	app      AppHandle
	services map[string]any
}

// AppContextOption configures an AppContext at construction.
type AppContextOption func(*AppContext)

// WithService attaches a named host service.
func WithService(name string, svc any) AppContextOption {
	return func(c *AppContext) {
		c.services[name] = svc
	}
}

// NewAppContext builds an app context. A nil logger falls back to
// slog.Default.
func NewAppContext(logger *slog.Logger, app AppHandle, opts ...AppContextOption) *AppContext {
	if logger == nil {
		logger = slog.Default()
	}
	c := &AppContext{
		logger:   logger,
		app:      app,
		services: make(map[string]any),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Logger returns the host logger handle.
func (c *AppContext) Logger() *slog.Logger { return c.logger }

// App returns the host application handle.
func (c *AppContext) App() AppHandle { return c.app }

// Service looks up an optional named service.
func (c *AppContext) Service(name string) (any, bool) {
	svc, ok := c.services[name]
	return svc, ok
}

// WithExtra derives a context sharing the logger, app handle, and
// existing services, plus the given additions. The receiver is not
// modified; the manager uses this to attach per-plugin services such
// as "plugin_dir".
func (c *AppContext) WithExtra(opts ...AppContextOption) *AppContext {
	derived := &AppContext{
		logger:   c.logger,
		app:      c.app,
		services: make(map[string]any, len(c.services)),
	}
	for name, svc := range c.services {
		derived.services[name] = svc
	}
	for _, opt := range opts {
		opt(derived)
	}
	return derived
}

// ServicePluginDir is the per-plugin service name under which the
// manager exposes the plugin's own directory path.
const ServicePluginDir = "plugin_dir"

// AppInfo is a minimal AppHandle built from static strings, for hosts
// and harnesses that have no richer application object.
type AppInfo struct {
	name    string
	version string
}

var _ AppHandle = AppInfo{}

// NewAppInfo builds an AppInfo handle.
func NewAppInfo(name, version string) AppInfo {
	return AppInfo{name: name, version: version}
}

// Name returns the application name.
func (a AppInfo) Name() string { return a.name }

// Version returns the application version.
func (a AppInfo) Version() string { return a.version }
