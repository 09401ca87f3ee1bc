// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EnvStudio Contributors

package plugin

import (
	"encoding/json"
	"fmt"
)

// Payload is the typed context a hook fires with. Each hook maps to
// exactly one concrete payload type; the field sets below are the
// authoritative schema for what crosses the plugin boundary.
//
// Payloads serialize as flat JSON objects at the Lua and binary
// boundaries, keyed by the json tags.
type Payload interface {
	payloadKind() string
}

// EnvCreate is the payload for before_create_env and after_create_env.
type EnvCreate struct {
	EnvName       string `json:"env_name"`
	PythonVersion string `json:"python_version,omitempty"`
	PythonPath    string `json:"python_path,omitempty"`
}

// EnvDelete is the payload for before_delete_env and after_delete_env.
type EnvDelete struct {
	EnvName string `json:"env_name"`
}

// EnvActivate is the payload for before_activate_env and
// after_activate_env. OpenPath and Tool describe what the host opens
// alongside the activation (editor, terminal).
type EnvActivate struct {
	EnvName  string `json:"env_name"`
	OpenPath string `json:"open_path,omitempty"`
	Tool     string `json:"tool,omitempty"`
}

// EnvRename is the payload for before_rename_env and after_rename_env.
type EnvRename struct {
	EnvName string `json:"env_name"`
	NewName string `json:"new_name"`
}

// PackageChange is the payload for the install_package and
// update_package hook pairs, which share a field set.
type PackageChange struct {
	EnvName     string `json:"env_name"`
	PackageName string `json:"package_name"`
	Version     string `json:"version,omitempty"`
}

// PackageRemove is the payload for before_uninstall_package and
// after_uninstall_package.
type PackageRemove struct {
	EnvName     string `json:"env_name"`
	PackageName string `json:"package_name"`
}

// AppLifecycle is the payload for on_app_start and on_app_shutdown.
// Version carries the host application version on start and may be
// empty on shutdown.
type AppLifecycle struct {
	Version string `json:"version,omitempty"`
}

// Severity describes how serious a vulnerability finding is.
type Severity struct {
	Type  string `json:"type,omitempty"`
	Score string `json:"score,omitempty"`
	Level string `json:"level,omitempty"`
}

// Vulnerability is a single finding from the host's security scanner.
type Vulnerability struct {
	ID                 string   `json:"vulnerability_id"`
	Summary            string   `json:"summary,omitempty"`
	Severity           Severity `json:"severity"`
	AffectedComponents []string `json:"affected_components,omitempty"`
	FixedVersions      []string `json:"fixed_versions,omitempty"`
}

// ScanReport is the payload for on_scan_complete. SeverityCounts is
// keyed by lowercase level name ("critical", "high", ...).
type ScanReport struct {
	EnvName         string          `json:"env_name"`
	Vulnerabilities []Vulnerability `json:"vulnerabilities"`
	SeverityCounts  map[string]int  `json:"severity_counts"`
}

func (*EnvCreate) payloadKind() string     { return "env_create" }
func (*EnvDelete) payloadKind() string     { return "env_delete" }
func (*EnvActivate) payloadKind() string   { return "env_activate" }
func (*EnvRename) payloadKind() string     { return "env_rename" }
func (*PackageChange) payloadKind() string { return "package_change" }
func (*PackageRemove) payloadKind() string { return "package_remove" }
func (*AppLifecycle) payloadKind() string  { return "app_lifecycle" }
func (*ScanReport) payloadKind() string    { return "scan_report" }

// NewPayload returns a zero value of the payload type h fires with.
// Unregistered hooks return nil.
func (h Hook) NewPayload() Payload {
	switch h {
	case HookBeforeCreateEnv, HookAfterCreateEnv:
		return &EnvCreate{}
	case HookBeforeDeleteEnv, HookAfterDeleteEnv:
		return &EnvDelete{}
	case HookBeforeActivateEnv, HookAfterActivateEnv:
		return &EnvActivate{}
	case HookBeforeRenameEnv, HookAfterRenameEnv:
		return &EnvRename{}
	case HookBeforeInstallPackage, HookAfterInstallPackage,
		HookBeforeUpdatePackage, HookAfterUpdatePackage:
		return &PackageChange{}
	case HookBeforeUninstallPackage, HookAfterUninstallPackage:
		return &PackageRemove{}
	case HookOnAppStart, HookOnAppShutdown:
		return &AppLifecycle{}
	case HookOnScanComplete:
		return &ScanReport{}
	default:
		return nil
	}
}

// MarshalPayload serializes p as its boundary JSON object.
// A nil payload marshals as an empty object.
func MarshalPayload(p Payload) ([]byte, error) {
	if p == nil {
		return []byte("{}"), nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", p.payloadKind(), err)
	}
	return data, nil
}

// UnmarshalPayload parses data into the payload type registered for h.
func UnmarshalPayload(h Hook, data []byte) (Payload, error) {
	p := h.NewPayload()
	if p == nil {
		return nil, fmt.Errorf("no payload type for hook %q", h)
	}
	if len(data) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("unmarshal %s payload: %w", h, err)
	}
	return p, nil
}
