// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EnvStudio Contributors

// Package plugin defines the contract between EnvStudio and its
// plugins: the Plugin interface, the fixed hook registry with its
// typed payloads, the dispatch envelope, and the serving entry point
// for out-of-process plugins.
package plugin

import (
	"encoding/json"
	"fmt"
)

// Event is the envelope a hook firing travels in. One Event is built
// per ExecuteHook call and delivered to every subscriber in turn.
type Event struct {
	// ID is a ULID unique to this firing, for log correlation.
	ID string `json:"id"`
	// Hook names the extension point that fired.
	Hook Hook `json:"hook"`
	// FiredAt is the firing time in Unix milliseconds.
	FiredAt int64 `json:"fired_at"`
	// Payload is the typed context; its concrete type is determined
	// by Hook. May be nil for hooks fired with no context.
	Payload Payload `json:"-"`
}

// wireEvent is the JSON shape crossing Lua and process boundaries.
type wireEvent struct {
	ID      string          `json:"id"`
	Hook    Hook            `json:"hook"`
	FiredAt int64           `json:"fired_at"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// MarshalJSON encodes the event with its payload inlined as an object.
func (e Event) MarshalJSON() ([]byte, error) {
	we := wireEvent{ID: e.ID, Hook: e.Hook, FiredAt: e.FiredAt}
	if e.Payload != nil {
		data, err := MarshalPayload(e.Payload)
		if err != nil {
			return nil, err
		}
		we.Payload = data
	}
	return json.Marshal(we)
}

// UnmarshalEvent decodes an event, resolving the payload type from the
// hook name. The hook must be registered.
func UnmarshalEvent(data []byte) (Event, error) {
	var we wireEvent
	if err := json.Unmarshal(data, &we); err != nil {
		return Event{}, fmt.Errorf("unmarshal event: %w", err)
	}
	if !we.Hook.Valid() {
		return Event{}, fmt.Errorf("unknown hook %q in event %s", we.Hook, we.ID)
	}
	ev := Event{ID: we.ID, Hook: we.Hook, FiredAt: we.FiredAt}
	if len(we.Payload) > 0 {
		p, err := UnmarshalPayload(we.Hook, we.Payload)
		if err != nil {
			return Event{}, err
		}
		ev.Payload = p
	}
	return ev, nil
}
