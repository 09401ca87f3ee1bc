// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EnvStudio Contributors

package lua

import (
	"context"
	"log/slog"

	"github.com/samber/oops"
	lua "github.com/yuin/gopher-lua"

	pluginsdk "github.com/envstudio/envstudio/pkg/plugin"
)

// scriptPlugin adapts one resolved script to the plugin contract. Not
// safe for concurrent use; the manager serializes all calls.
type scriptPlugin struct {
	name   string
	meta   pluginsdk.Metadata
	ls     *lua.LState
	closed bool
}

var _ pluginsdk.Plugin = (*scriptPlugin)(nil)

// Metadata returns the manifest-derived metadata. Scripts do not
// self-describe; the manifest is the source of identity.
func (p *scriptPlugin) Metadata() pluginsdk.Metadata { return p.meta }

// Initialize calls the script's optional initialize(app) function.
func (p *scriptPlugin) Initialize(ctx context.Context, app *pluginsdk.AppContext) error {
	fn := p.ls.GetGlobal("initialize")
	if fn.Type() == lua.LTNil {
		return nil
	}

	p.ls.SetContext(ctx)
	appTable := p.ls.NewTable()
	if app != nil && app.App() != nil {
		p.ls.SetField(appTable, "name", lua.LString(app.App().Name()))
		p.ls.SetField(appTable, "version", lua.LString(app.App().Version()))
	}
	if err := p.ls.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, appTable); err != nil {
		return oops.In("lua").
			With("plugin", p.name).
			With("operation", "initialize").
			Wrap(err)
	}
	return nil
}

// Execute dispatches one event. A global function named exactly after
// the hook wins; otherwise the generic on_event handler runs. A script
// defining neither leaves the payload untouched.
func (p *scriptPlugin) Execute(ctx context.Context, ev pluginsdk.Event) (pluginsdk.Payload, error) {
	fn := p.ls.GetGlobal(string(ev.Hook))
	if fn.Type() == lua.LTNil {
		fn = p.ls.GetGlobal("on_event")
	}
	if fn.Type() == lua.LTNil {
		return nil, nil
	}

	p.ls.SetContext(ctx)
	evTable, err := p.eventTable(ev)
	if err != nil {
		return nil, oops.In("lua").
			With("plugin", p.name).
			With("operation", "execute").
			With("hook", string(ev.Hook)).
			Wrap(err)
	}

	if err := p.ls.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, evTable); err != nil {
		return nil, oops.In("lua").
			With("plugin", p.name).
			With("operation", "execute").
			With("hook", string(ev.Hook)).
			Wrap(err)
	}

	ret := p.ls.Get(-1)
	p.ls.Pop(1)
	if ret.Type() == lua.LTNil {
		return nil, nil
	}
	table, ok := ret.(*lua.LTable)
	if !ok {
		return nil, oops.In("lua").
			With("plugin", p.name).
			With("hook", string(ev.Hook)).
			Errorf("handler returned %s, want table or nil", ret.Type().String())
	}

	payload, err := payloadFromTable(ev.Hook, table)
	if err != nil {
		return nil, oops.In("lua").
			With("plugin", p.name).
			With("hook", string(ev.Hook)).
			Hint("the returned table must match the hook's payload shape").
			Wrap(err)
	}
	return payload, nil
}

// Validate calls the script's optional validate() function. Scripts
// without one are considered healthy.
func (p *scriptPlugin) Validate() bool {
	fn := p.ls.GetGlobal("validate")
	if fn.Type() == lua.LTNil {
		return true
	}

	p.ls.SetContext(context.Background())
	if err := p.ls.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}); err != nil {
		slog.Warn("plugin validate() raised an error", "plugin", p.name, "error", err)
		return false
	}
	ret := p.ls.Get(-1)
	p.ls.Pop(1)
	return lua.LVAsBool(ret)
}

// Cleanup calls the script's optional cleanup() function and closes
// the interpreter. Safe to call more than once.
func (p *scriptPlugin) Cleanup(ctx context.Context) error {
	if p.closed {
		return nil
	}
	p.closed = true
	defer p.ls.Close()

	fn := p.ls.GetGlobal("cleanup")
	if fn.Type() == lua.LTNil {
		return nil
	}
	p.ls.SetContext(ctx)
	if err := p.ls.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}); err != nil {
		return oops.In("lua").
			With("plugin", p.name).
			With("operation", "cleanup").
			Wrap(err)
	}
	return nil
}

// eventTable builds the Lua-side view of an event: id, hook, fired_at
// and the payload rendered as a nested table.
func (p *scriptPlugin) eventTable(ev pluginsdk.Event) (*lua.LTable, error) {
	t := p.ls.NewTable()
	p.ls.SetField(t, "id", lua.LString(ev.ID))
	p.ls.SetField(t, "hook", lua.LString(string(ev.Hook)))
	p.ls.SetField(t, "fired_at", lua.LNumber(ev.FiredAt))

	fields, err := payloadFields(ev.Payload)
	if err != nil {
		return nil, err
	}
	p.ls.SetField(t, "payload", toLValue(p.ls, fields))
	return t, nil
}
