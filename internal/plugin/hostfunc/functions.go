// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EnvStudio Contributors

// Package hostfunc provides host functions to Lua plugins.
//
// Host functions expose application services to plugin scripts through
// a single global table. Scripts run with the user's own privileges,
// so there is no capability gating; the table exists to give scripts a
// stable API surface rather than to confine them.
package hostfunc

import (
	"context"
	"log/slog"

	"github.com/oklog/ulid/v2"
	lua "github.com/yuin/gopher-lua"

	pluginsdk "github.com/envstudio/envstudio/pkg/plugin"
)

// GlobalName is the Lua global under which host functions are
// installed.
const GlobalName = "envstudio"

// KVStore provides namespaced key-value storage.
type KVStore interface {
	Get(ctx context.Context, namespace, key string) ([]byte, error)
	Set(ctx context.Context, namespace, key string, value []byte) error
	Delete(ctx context.Context, namespace, key string) error
}

// Functions provides host functions to Lua plugins.
type Functions struct {
	app     pluginsdk.AppHandle
	kvStore KVStore
}

// New creates host functions backed by the given application handle
// and KV store. Both may be nil; the corresponding functions then
// degrade (empty app identity, kv errors).
func New(app pluginsdk.AppHandle, kvStore KVStore) *Functions {
	return &Functions{app: app, kvStore: kvStore}
}

// Register installs the host function table as the global "envstudio"
// in the Lua state. pluginName namespaces storage and log output; dir
// is the plugin's own directory.
func (f *Functions) Register(ls *lua.LState, pluginName, dir string) {
	mod := ls.NewTable()

	ls.SetField(mod, "log", ls.NewFunction(f.logFn(pluginName)))
	ls.SetField(mod, "app_name", ls.NewFunction(f.appNameFn()))
	ls.SetField(mod, "app_version", ls.NewFunction(f.appVersionFn()))
	ls.SetField(mod, "plugin_dir", ls.NewFunction(pluginDirFn(dir)))
	ls.SetField(mod, "new_event_id", ls.NewFunction(newEventIDFn()))
	ls.SetField(mod, "kv_get", ls.NewFunction(f.kvGetFn(pluginName)))
	ls.SetField(mod, "kv_set", ls.NewFunction(f.kvSetFn(pluginName)))
	ls.SetField(mod, "kv_delete", ls.NewFunction(f.kvDeleteFn(pluginName)))

	ls.SetGlobal(GlobalName, mod)
}

// stateContext returns the context attached to the Lua state, or
// context.Background when none was set.
func stateContext(ls *lua.LState) context.Context {
	if ctx := ls.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// logFn returns a function that logs a message at the given level.
// Lua signature: envstudio.log(level, message)
func (f *Functions) logFn(pluginName string) lua.LGFunction {
	return func(ls *lua.LState) int {
		level := ls.CheckString(1)
		msg := ls.CheckString(2)

		logger := slog.Default().With("plugin", pluginName)
		switch level {
		case "debug":
			logger.Debug(msg)
		case "info":
			logger.Info(msg)
		case "warn":
			logger.Warn(msg)
		case "error":
			logger.Error(msg)
		default:
			logger.Info(msg, "level", level)
		}
		return 0
	}
}

// appNameFn returns the host application name.
// Lua signature: envstudio.app_name() -> string
func (f *Functions) appNameFn() lua.LGFunction {
	return func(ls *lua.LState) int {
		if f.app == nil {
			ls.Push(lua.LString(""))
			return 1
		}
		ls.Push(lua.LString(f.app.Name()))
		return 1
	}
}

// appVersionFn returns the host application version.
// Lua signature: envstudio.app_version() -> string
func (f *Functions) appVersionFn() lua.LGFunction {
	return func(ls *lua.LState) int {
		if f.app == nil {
			ls.Push(lua.LString(""))
			return 1
		}
		ls.Push(lua.LString(f.app.Version()))
		return 1
	}
}

// pluginDirFn returns the plugin's own directory path.
// Lua signature: envstudio.plugin_dir() -> string
func pluginDirFn(dir string) lua.LGFunction {
	return func(ls *lua.LState) int {
		ls.Push(lua.LString(dir))
		return 1
	}
}

// newEventIDFn generates a ULID for correlation.
// Lua signature: envstudio.new_event_id() -> string
func newEventIDFn() lua.LGFunction {
	return func(ls *lua.LState) int {
		ls.Push(lua.LString(ulid.Make().String()))
		return 1
	}
}

// kvGetFn retrieves a value from the plugin's KV namespace.
// Lua signature: envstudio.kv_get(key) -> value, err
// Returns (value, nil) on success, (nil, nil) when the key is absent,
// (nil, error_message) on failure.
func (f *Functions) kvGetFn(pluginName string) lua.LGFunction {
	return func(ls *lua.LState) int {
		key := ls.CheckString(1)

		if f.kvStore == nil {
			ls.Push(lua.LNil)
			ls.Push(lua.LString("kv store not available"))
			return 2
		}

		value, err := f.kvStore.Get(stateContext(ls), pluginName, key)
		if err != nil {
			ls.Push(lua.LNil)
			ls.Push(lua.LString(err.Error()))
			return 2
		}
		if value == nil {
			ls.Push(lua.LNil)
			ls.Push(lua.LNil)
			return 2
		}

		ls.Push(lua.LString(value))
		ls.Push(lua.LNil)
		return 2
	}
}

// kvSetFn stores a value in the plugin's KV namespace.
// Lua signature: envstudio.kv_set(key, value) -> err
// Returns nil on success, error_message on failure.
func (f *Functions) kvSetFn(pluginName string) lua.LGFunction {
	return func(ls *lua.LState) int {
		key := ls.CheckString(1)
		value := ls.CheckString(2)

		if f.kvStore == nil {
			ls.Push(lua.LString("kv store not available"))
			return 1
		}

		if err := f.kvStore.Set(stateContext(ls), pluginName, key, []byte(value)); err != nil {
			ls.Push(lua.LString(err.Error()))
			return 1
		}

		ls.Push(lua.LNil)
		return 1
	}
}

// kvDeleteFn removes a key from the plugin's KV namespace.
// Lua signature: envstudio.kv_delete(key) -> err
// Returns nil on success, error_message on failure. Deleting an absent
// key is not an error.
func (f *Functions) kvDeleteFn(pluginName string) lua.LGFunction {
	return func(ls *lua.LState) int {
		key := ls.CheckString(1)

		if f.kvStore == nil {
			ls.Push(lua.LString("kv store not available"))
			return 1
		}

		if err := f.kvStore.Delete(stateContext(ls), pluginName, key); err != nil {
			ls.Push(lua.LString(err.Error()))
			return 1
		}

		ls.Push(lua.LNil)
		return 1
	}
}
