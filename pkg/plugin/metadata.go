// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EnvStudio Contributors

package plugin

// Metadata is the immutable description of a plugin, built from its
// manifest. A plugin's Metadata().Name must match the manifest it was
// loaded from; a mismatch marks the plugin inactive.
type Metadata struct {
	// Name is the unique registry key: lowercase, no spaces.
	Name string `json:"name"`
	// Version is the plugin's own semantic version.
	Version string `json:"version"`
	// Author and Description are free text.
	Author      string `json:"author"`
	Description string `json:"description"`
	// EntryPoint locates the implementation; its shape depends on the
	// runtime (factory key for builtin, script for lua, executable for
	// binary).
	EntryPoint string `json:"entry_point"`
	// RequiredVersion is the minimum host application version the
	// plugin declares compatibility with.
	RequiredVersion string `json:"required_version,omitempty"`
	// Dependencies are requirement strings for packages the plugin
	// needs present in the host's Python tooling, e.g. "requests>=2.28".
	Dependencies []string `json:"dependencies,omitempty"`
	// Hooks are the lifecycle hooks the plugin subscribes to.
	Hooks []Hook `json:"hooks"`
}

// Subscribed reports whether the metadata declares a subscription to h.
func (m Metadata) Subscribed(h Hook) bool {
	for _, hook := range m.Hooks {
		if hook == h {
			return true
		}
	}
	return false
}
