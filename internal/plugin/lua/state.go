// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EnvStudio Contributors

// Package lua runs plugins written as Lua scripts.
//
// Each plugin gets one persistent interpreter for its whole loaded
// life, so state kept in script globals survives across hook firings.
// The full Lua standard library is open: plugins are automation the
// user installed deliberately, running with the host's own privileges
// like any other code on the machine.
package lua

import (
	"path/filepath"

	lua "github.com/yuin/gopher-lua"

	"github.com/envstudio/envstudio/internal/plugin/hostfunc"
)

// StateFactory builds Lua states wired with EnvStudio host functions.
type StateFactory struct {
	hostFuncs *hostfunc.Functions
}

// NewStateFactory creates a factory. hostFuncs may be nil, in which
// case states carry no "envstudio" table.
func NewStateFactory(hostFuncs *hostfunc.Functions) *StateFactory {
	return &StateFactory{hostFuncs: hostFuncs}
}

// NewState creates the interpreter for one plugin. require() resolves
// modules shipped next to the plugin manifest before falling back to
// the default search path.
func (f *StateFactory) NewState(pluginName, dir string) *lua.LState {
	ls := lua.NewState()

	if dir != "" {
		seedPackagePath(ls, dir)
	}
	if f.hostFuncs != nil {
		f.hostFuncs.Register(ls, pluginName, dir)
	}
	return ls
}

func seedPackagePath(ls *lua.LState, dir string) {
	pkg, ok := ls.GetGlobal("package").(*lua.LTable)
	if !ok {
		return
	}
	seeded := filepath.Join(dir, "?.lua") + ";" + filepath.Join(dir, "?", "init.lua")
	if existing := lua.LVAsString(pkg.RawGetString("path")); existing != "" {
		seeded += ";" + existing
	}
	pkg.RawSetString("path", lua.LString(seeded))
}
