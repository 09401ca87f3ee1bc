package plugin

import (
	"errors"
	"fmt"

	pluginsdk "github.com/envstudio/envstudio/pkg/plugin"
)

// Sentinel errors for programmatic error checking.
var (
	// ErrManagerClosed is returned when operations are attempted on a closed manager.
	ErrManagerClosed = errors.New("manager is closed")
	// ErrNotDiscovered is returned when loading a plugin no discovery run has seen.
	ErrNotDiscovered = errors.New("plugin not discovered")
	// ErrUnknownRuntime is returned when no runtime is registered for a manifest's runtime type.
	ErrUnknownRuntime = errors.New("no runtime for plugin type")
	// ErrIncompatibleHost is returned when the host version is below the plugin's required_version.
	ErrIncompatibleHost = errors.New("incompatible host version")
	// ErrMissingDependency is returned when a declared dependency is absent or too old.
	ErrMissingDependency = errors.New("missing dependency")
)

// LoadError reports a failure to load one plugin: a manifest that was
// never discovered, an entry point that cannot be resolved, a missing
// dependency, or a failed Initialize. It aborts loading that plugin
// only and leaves others unaffected.
type LoadError struct {
	Plugin string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load plugin %s: %v", e.Plugin, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// ValidationError reports a plugin whose Validate returned false or
// whose self-reported metadata does not match its manifest. The plugin
// stays loaded in an inactive, warning state and receives no hooks.
type ValidationError struct {
	Plugin string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validate plugin %s: %s", e.Plugin, e.Reason)
}

// ExecutionError reports an error or panic inside a plugin callback.
// It is caught at the manager boundary, logged, and never propagated
// to other plugins or the host.
type ExecutionError struct {
	Plugin string
	Op     string // "initialize", "execute", or "cleanup"
	Hook   pluginsdk.Hook
	Err    error
}

func (e *ExecutionError) Error() string {
	if e.Hook != "" {
		return fmt.Sprintf("plugin %s: %s %s: %v", e.Plugin, e.Op, e.Hook, e.Err)
	}
	return fmt.Sprintf("plugin %s: %s: %v", e.Plugin, e.Op, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }
