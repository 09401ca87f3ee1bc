package plugin

import (
	"log/slog"
	"sort"
	"sync"

	pluginsdk "github.com/envstudio/envstudio/pkg/plugin"
)

// Factory constructs a fresh plugin instance. Called once per load, so
// a plugin that cycles loaded and unloaded always starts clean.
type Factory func() pluginsdk.Plugin

// builtinMu guards the builtin registry, which is mutated from package
// init functions and read by the builtin runtime.
var (
	builtinMu sync.RWMutex
	builtins  = make(map[string]Factory)
)

// RegisterBuiltin registers a factory under an entry point name.
// Compiled-in plugins call this from their package init. A later
// registration under the same entry point replaces the earlier one
// with a warning. Panics if entryPoint is empty or factory is nil.
func RegisterBuiltin(entryPoint string, factory Factory) {
	if entryPoint == "" {
		panic("plugin: RegisterBuiltin entry point cannot be empty")
	}
	if factory == nil {
		panic("plugin: RegisterBuiltin factory cannot be nil")
	}

	builtinMu.Lock()
	defer builtinMu.Unlock()

	if _, ok := builtins[entryPoint]; ok {
		slog.Warn("replacing builtin plugin registration",
			"entry_point", entryPoint)
	}
	builtins[entryPoint] = factory
}

// LookupBuiltin returns the factory registered under an entry point.
func LookupBuiltin(entryPoint string) (Factory, bool) {
	builtinMu.RLock()
	defer builtinMu.RUnlock()

	factory, ok := builtins[entryPoint]
	return factory, ok
}

// BuiltinEntryPoints returns the registered entry point names, sorted.
func BuiltinEntryPoints() []string {
	builtinMu.RLock()
	defer builtinMu.RUnlock()

	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ResetBuiltins clears the registry. Used for testing.
func ResetBuiltins() {
	builtinMu.Lock()
	defer builtinMu.Unlock()
	builtins = make(map[string]Factory)
}
