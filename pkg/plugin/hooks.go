// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EnvStudio Contributors

package plugin

// Hook names a lifecycle extension point the host fires.
// The set of hooks is fixed; plugins subscribe to them by name in
// their manifest and cannot define new ones at runtime.
type Hook string

// Environment lifecycle hooks.
const (
	HookBeforeCreateEnv   Hook = "before_create_env"
	HookAfterCreateEnv    Hook = "after_create_env"
	HookBeforeDeleteEnv   Hook = "before_delete_env"
	HookAfterDeleteEnv    Hook = "after_delete_env"
	HookBeforeActivateEnv Hook = "before_activate_env"
	HookAfterActivateEnv  Hook = "after_activate_env"
	HookBeforeRenameEnv   Hook = "before_rename_env"
	HookAfterRenameEnv    Hook = "after_rename_env"
)

// Package lifecycle hooks.
const (
	HookBeforeInstallPackage   Hook = "before_install_package"
	HookAfterInstallPackage    Hook = "after_install_package"
	HookBeforeUninstallPackage Hook = "before_uninstall_package"
	HookAfterUninstallPackage  Hook = "after_uninstall_package"
	HookBeforeUpdatePackage    Hook = "before_update_package"
	HookAfterUpdatePackage     Hook = "after_update_package"
)

// Application lifecycle hooks.
const (
	HookOnAppStart     Hook = "on_app_start"
	HookOnAppShutdown  Hook = "on_app_shutdown"
	HookOnScanComplete Hook = "on_scan_complete"
)

// Group classifies hooks by the host domain that fires them.
type Group string

// Hook groups.
const (
	GroupEnvironment Group = "environment"
	GroupPackage     Group = "package"
	GroupApplication Group = "application"
)

// hookOrder is the canonical registry order, used by Hooks and for
// documentation output. Grouped environment, package, application.
var hookOrder = []Hook{
	HookBeforeCreateEnv,
	HookAfterCreateEnv,
	HookBeforeDeleteEnv,
	HookAfterDeleteEnv,
	HookBeforeActivateEnv,
	HookAfterActivateEnv,
	HookBeforeRenameEnv,
	HookAfterRenameEnv,
	HookBeforeInstallPackage,
	HookAfterInstallPackage,
	HookBeforeUninstallPackage,
	HookAfterUninstallPackage,
	HookBeforeUpdatePackage,
	HookAfterUpdatePackage,
	HookOnAppStart,
	HookOnAppShutdown,
	HookOnScanComplete,
}

var hookGroups = map[Hook]Group{
	HookBeforeCreateEnv:        GroupEnvironment,
	HookAfterCreateEnv:         GroupEnvironment,
	HookBeforeDeleteEnv:        GroupEnvironment,
	HookAfterDeleteEnv:         GroupEnvironment,
	HookBeforeActivateEnv:      GroupEnvironment,
	HookAfterActivateEnv:       GroupEnvironment,
	HookBeforeRenameEnv:        GroupEnvironment,
	HookAfterRenameEnv:         GroupEnvironment,
	HookBeforeInstallPackage:   GroupPackage,
	HookAfterInstallPackage:    GroupPackage,
	HookBeforeUninstallPackage: GroupPackage,
	HookAfterUninstallPackage:  GroupPackage,
	HookBeforeUpdatePackage:    GroupPackage,
	HookAfterUpdatePackage:     GroupPackage,
	HookOnAppStart:             GroupApplication,
	HookOnAppShutdown:          GroupApplication,
	HookOnScanComplete:         GroupApplication,
}

// Hooks returns every registered hook in registry order.
// The returned slice is a copy.
func Hooks() []Hook {
	out := make([]Hook, len(hookOrder))
	copy(out, hookOrder)
	return out
}

// Valid reports whether h names a registered hook.
func (h Hook) Valid() bool {
	_, ok := hookGroups[h]
	return ok
}

// Group returns the domain group for h, or the empty Group for
// unregistered hooks.
func (h Hook) Group() Group {
	return hookGroups[h]
}

// String returns the hook name.
func (h Hook) String() string { return string(h) }
