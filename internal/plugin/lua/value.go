// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EnvStudio Contributors

package lua

import (
	"encoding/json"
	"fmt"

	lua "github.com/yuin/gopher-lua"

	pluginsdk "github.com/envstudio/envstudio/pkg/plugin"
)

// payloadFields renders a payload as the generic map its JSON form
// decodes to. A nil payload yields an empty map, so scripts always see
// a table.
func payloadFields(p pluginsdk.Payload) (map[string]any, error) {
	data, err := pluginsdk.MarshalPayload(p)
	if err != nil {
		return nil, err
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("decode payload fields: %w", err)
	}
	return fields, nil
}

// payloadFromTable decodes a handler's returned table into the typed
// payload for the hook.
func payloadFromTable(hook pluginsdk.Hook, table *lua.LTable) (pluginsdk.Payload, error) {
	generic := fromLValue(table)
	if generic == nil {
		return nil, nil
	}
	data, err := json.Marshal(generic)
	if err != nil {
		return nil, fmt.Errorf("encode handler result: %w", err)
	}
	return pluginsdk.UnmarshalPayload(hook, data)
}

// toLValue converts a JSON-decoded Go value into a Lua value.
func toLValue(ls *lua.LState, v any) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(val)
	case float64:
		return lua.LNumber(val)
	case string:
		return lua.LString(val)
	case []any:
		t := ls.NewTable()
		for _, item := range val {
			t.Append(toLValue(ls, item))
		}
		return t
	case map[string]any:
		t := ls.NewTable()
		for key, item := range val {
			t.RawSetString(key, toLValue(ls, item))
		}
		return t
	default:
		return lua.LString(fmt.Sprint(val))
	}
}

// fromLValue converts a Lua value into a JSON-encodable Go value.
// Tables with a sequence part become arrays. Empty tables become nil:
// Lua cannot tell an empty list from an empty record, and nil decodes
// cleanly into either Go shape.
func fromLValue(v lua.LValue) any {
	switch val := v.(type) {
	case lua.LBool:
		return bool(val)
	case lua.LNumber:
		return float64(val)
	case lua.LString:
		return string(val)
	case *lua.LTable:
		if n := val.MaxN(); n > 0 {
			arr := make([]any, 0, n)
			for i := 1; i <= n; i++ {
				arr = append(arr, fromLValue(val.RawGetInt(i)))
			}
			return arr
		}
		var m map[string]any
		val.ForEach(func(key, item lua.LValue) {
			if m == nil {
				m = make(map[string]any)
			}
			m[lua.LVAsString(key)] = fromLValue(item)
		})
		if m == nil {
			return nil
		}
		return m
	default:
		return nil
	}
}
