package plugin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/gobwas/glob"
	"github.com/oklog/ulid/v2"

	"github.com/envstudio/envstudio/internal/plugin/depspec"
	"github.com/envstudio/envstudio/internal/plugin/state"
	"github.com/envstudio/envstudio/pkg/errutil"
	pluginsdk "github.com/envstudio/envstudio/pkg/plugin"
)

// Status reports whether a loaded plugin receives hooks.
type Status string

// Instance statuses.
const (
	// StatusActive plugins are initialized and registered for their hooks.
	StatusActive Status = "active"
	// StatusInactive plugins failed validation. They stay loaded for
	// inspection but are never initialized and receive no hooks.
	StatusInactive Status = "inactive"
)

// DiscoveredPlugin contains a manifest and its directory.
type DiscoveredPlugin struct {
	Manifest *Manifest
	Dir      string
}

// Warning records a plugin directory skipped during discovery.
type Warning struct {
	Dir string
	Err error
}

// Instance is a loaded plugin and its bookkeeping. Metadata is derived
// from the manifest, which is authoritative for identity and hook
// subscriptions.
type Instance struct {
	Plugin   pluginsdk.Plugin
	Metadata pluginsdk.Metadata
	Dir      string
	Runtime  RuntimeType
	Status   Status
	Reason   string // set when Status is StatusInactive
	loadedAt time.Time
}

// LoadedAt reports when the instance was loaded.
func (i *Instance) LoadedAt() time.Time { return i.loadedAt }

// HookResult is one plugin's outcome for a dispatched hook. When Err
// is set, Payload carries the original payload the hook fired with.
type HookResult struct {
	Plugin  string
	Payload pluginsdk.Payload
	Err     error
}

// DependencyResolver reports which external packages the host
// environment has installed. Lookups use normalized package names
// (see depspec.Normalize). A nil resolver disables the dependency
// gate.
type DependencyResolver interface {
	Installed(name string) (version string, ok bool)
}

// Manager owns all mutable plugin state: the discovered set, loaded
// instances, the hook index, and the enabled record.
//
// The manager is not safe for concurrent use. Lifecycle operations and
// hook dispatch run synchronously on the caller's goroutine, and the
// manager holds no locks; hosts with more than one goroutine must
// serialize access themselves.
type Manager struct {
	pluginsDir  string
	hostVersion string
	appCtx      *pluginsdk.AppContext
	runtimes    map[RuntimeType]Runtime
	deps        DependencyResolver
	store       state.Store
	ignore      []glob.Glob

	discovered map[string]*DiscoveredPlugin
	loaded     map[string]*Instance
	hookIndex  map[pluginsdk.Hook][]string
	enabled    map[string]bool
	warnings   []Warning
	closed     bool
}

// ManagerOption configures the Manager.
type ManagerOption func(*Manager)

// WithRuntime adds a plugin runtime. The builtin runtime is always
// present; lua and binary runtimes are wired in by the host.
func WithRuntime(r Runtime) ManagerOption {
	return func(m *Manager) {
		m.runtimes[r.Type()] = r
	}
}

// WithStateStore sets the enabled-state store.
func WithStateStore(s state.Store) ManagerOption {
	return func(m *Manager) {
		m.store = s
	}
}

// WithDependencyResolver sets the installed-package resolver backing
// the dependency gate.
func WithDependencyResolver(d DependencyResolver) ManagerOption {
	return func(m *Manager) {
		m.deps = d
	}
}

// WithHostVersion sets the host application version checked against
// each manifest's required_version. Empty disables the gate.
func WithHostVersion(v string) ManagerOption {
	return func(m *Manager) {
		m.hostVersion = v
	}
}

// WithAppContext sets the base app context handed to plugins at
// Initialize. The manager derives a per-plugin context from it.
func WithAppContext(appCtx *pluginsdk.AppContext) ManagerOption {
	return func(m *Manager) {
		m.appCtx = appCtx
	}
}

// WithIgnorePatterns sets glob patterns for directory names discovery
// skips. Invalid patterns are logged and dropped.
func WithIgnorePatterns(patterns []string) ManagerOption {
	return func(m *Manager) {
		for _, pattern := range patterns {
			g, err := glob.Compile(pattern)
			if err != nil {
				slog.Warn("dropping invalid ignore pattern",
					"pattern", pattern,
					"error", err)
				continue
			}
			m.ignore = append(m.ignore, g)
		}
	}
}

// NewManager creates a plugin manager rooted at pluginsDir.
func NewManager(pluginsDir string, opts ...ManagerOption) *Manager {
	m := &Manager{
		pluginsDir: pluginsDir,
		runtimes:   map[RuntimeType]Runtime{RuntimeBuiltin: NewBuiltinRuntime()},
		discovered: make(map[string]*DiscoveredPlugin),
		loaded:     make(map[string]*Instance),
		hookIndex:  make(map[pluginsdk.Hook][]string),
		enabled:    make(map[string]bool),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.appCtx == nil {
		m.appCtx = pluginsdk.NewAppContext(nil, pluginsdk.NewAppInfo("envstudio", m.hostVersion))
	}
	return m
}

// Discover scans the plugins directory for one manifest per immediate
// subdirectory. Unreadable or invalid manifests are skipped with a
// warning, recorded for aggregate reporting, and never abort the scan.
// Each call replaces the previous discovery; loaded instances are
// unaffected. Results come back in directory name order, which
// os.ReadDir guarantees is deterministic.
func (m *Manager) Discover(_ context.Context) ([]*DiscoveredPlugin, error) {
	if m.closed {
		return nil, ErrManagerClosed
	}

	m.discovered = make(map[string]*DiscoveredPlugin)
	m.warnings = nil

	entries, err := os.ReadDir(m.pluginsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil // No plugins directory
		}
		return nil, fmt.Errorf("failed to read plugins directory: %w", err)
	}

	var plugins []*DiscoveredPlugin
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if m.ignored(entry.Name()) {
			slog.Debug("ignoring plugin directory", "dir", entry.Name())
			continue
		}

		pluginDir := filepath.Join(m.pluginsDir, entry.Name())
		manifestPath := filepath.Join(pluginDir, ManifestFileName)

		data, err := os.ReadFile(manifestPath) //nolint:gosec // manifestPath is constructed from ReadDir entries
		if err != nil {
			m.skip(entry.Name(), fmt.Errorf("no readable manifest: %w", err))
			continue
		}

		manifest, err := ParseManifest(data)
		if err != nil {
			m.skip(entry.Name(), fmt.Errorf("invalid manifest: %w", err))
			continue
		}

		if prev, ok := m.discovered[manifest.Name]; ok {
			m.skip(entry.Name(), fmt.Errorf("duplicate plugin name %q, already provided by %s", manifest.Name, prev.Dir))
			continue
		}

		dp := &DiscoveredPlugin{Manifest: manifest, Dir: pluginDir}
		m.discovered[manifest.Name] = dp
		plugins = append(plugins, dp)
	}

	return plugins, nil
}

// skip records a discovery warning.
func (m *Manager) skip(dir string, err error) {
	slog.Warn("skipping plugin directory",
		"dir", dir,
		"error", err)
	m.warnings = append(m.warnings, Warning{Dir: dir, Err: err})
}

func (m *Manager) ignored(name string) bool {
	for _, g := range m.ignore {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// Load loads a discovered plugin by name: the host-version and
// dependency gates run first, then the runtime resolves an instance,
// which is validated, initialized, and registered under each of its
// hooks. Hook registration is all-or-nothing; a plugin is never left
// partially registered. Loading an already-loaded plugin returns the
// existing instance.
//
// A *ValidationError return still carries a live instance: the plugin
// stays loaded in an inactive state and receives no hooks.
func (m *Manager) Load(ctx context.Context, name string) (*Instance, error) {
	if m.closed {
		return nil, ErrManagerClosed
	}

	if inst, ok := m.loaded[name]; ok {
		slog.Debug("plugin already loaded", "plugin", name)
		return inst, nil
	}

	inst, err := m.load(ctx, name)
	switch {
	case err == nil:
		RecordPluginLoad(name, LoadStatusLoaded)
	case inst != nil:
		RecordPluginLoad(name, LoadStatusInactive)
	default:
		RecordPluginLoad(name, LoadStatusFailed)
	}
	SetPluginsLoaded(len(m.loaded))
	return inst, err
}

func (m *Manager) load(ctx context.Context, name string) (*Instance, error) {
	dp, ok := m.discovered[name]
	if !ok {
		return nil, &LoadError{Plugin: name, Err: ErrNotDiscovered}
	}
	manifest := dp.Manifest

	if err := m.checkHostVersion(manifest); err != nil {
		return nil, &LoadError{Plugin: name, Err: err}
	}
	if err := m.checkDependencies(manifest); err != nil {
		return nil, &LoadError{Plugin: name, Err: err}
	}

	rt, ok := m.runtimes[manifest.Runtime]
	if !ok {
		return nil, &LoadError{Plugin: name, Err: fmt.Errorf("%w: %s", ErrUnknownRuntime, manifest.Runtime)}
	}

	p, err := rt.Resolve(ctx, manifest, dp.Dir)
	if err != nil {
		return nil, &LoadError{Plugin: name, Err: err}
	}

	inst := &Instance{
		Plugin:   p,
		Metadata: manifest.Metadata(),
		Dir:      dp.Dir,
		Runtime:  manifest.Runtime,
		Status:   StatusActive,
		loadedAt: time.Now(),
	}

	// Validation failures keep the instance loaded but inactive. The
	// instance is released on unload like any other, so its Cleanup
	// still runs even though Initialize never did.
	if reported := p.Metadata().Name; reported != manifest.Name {
		return m.keepInactive(inst, name,
			fmt.Sprintf("metadata name %q does not match manifest name %q", reported, manifest.Name))
	}
	if !p.Validate() {
		return m.keepInactive(inst, name, "plugin validation returned false")
	}

	pluginCtx := m.appCtx.WithExtra(pluginsdk.WithService(pluginsdk.ServicePluginDir, dp.Dir))
	if err := m.initialize(ctx, inst, pluginCtx); err != nil {
		// The instance never became loaded, so no unload will release
		// its runtime resources. Do it here.
		m.cleanup(ctx, inst)
		return nil, &LoadError{Plugin: name, Err: err}
	}

	m.loaded[name] = inst
	for _, h := range inst.Metadata.Hooks {
		m.hookIndex[h] = append(m.hookIndex[h], name)
	}

	slog.Info("loaded plugin",
		"plugin", name,
		"runtime", manifest.Runtime,
		"version", manifest.Version,
		"hooks", len(inst.Metadata.Hooks))

	return inst, nil
}

// keepInactive records an instance that failed validation.
func (m *Manager) keepInactive(inst *Instance, name, reason string) (*Instance, error) {
	inst.Status = StatusInactive
	inst.Reason = reason
	m.loaded[name] = inst
	slog.Warn("plugin loaded inactive",
		"plugin", name,
		"reason", reason)
	return inst, &ValidationError{Plugin: name, Reason: reason}
}

// initialize runs the plugin's Initialize inside the error boundary.
func (m *Manager) initialize(ctx context.Context, inst *Instance, appCtx *pluginsdk.AppContext) (err error) {
	name := inst.Metadata.Name
	defer func() {
		if r := recover(); r != nil {
			err = &ExecutionError{Plugin: name, Op: "initialize", Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	if ierr := inst.Plugin.Initialize(ctx, appCtx); ierr != nil {
		return &ExecutionError{Plugin: name, Op: "initialize", Err: ierr}
	}
	return nil
}

// checkHostVersion gates loading on the manifest's required_version.
// An empty or unparseable host version (dev builds) skips the gate.
func (m *Manager) checkHostVersion(manifest *Manifest) error {
	if m.hostVersion == "" {
		return nil
	}
	host, err := semver.NewVersion(m.hostVersion)
	if err != nil {
		slog.Debug("host version is not a semantic version, skipping compatibility gate",
			"host_version", m.hostVersion)
		return nil
	}
	required, err := semver.NewVersion(manifest.RequiredVersion)
	if err != nil {
		// Unreachable for parsed manifests; Validate checks this.
		return fmt.Errorf("required_version %q: %w", manifest.RequiredVersion, err)
	}
	if host.LessThan(required) {
		return fmt.Errorf("%w: plugin requires %s, host is %s", ErrIncompatibleHost, manifest.RequiredVersion, m.hostVersion)
	}
	return nil
}

// checkDependencies gates loading on declared external packages.
// Versions that cannot be compared are accepted with a debug log; the
// gate only rejects a dependency that is absent or provably too old.
func (m *Manager) checkDependencies(manifest *Manifest) error {
	if m.deps == nil {
		if len(manifest.Dependencies) > 0 {
			slog.Debug("no dependency resolver configured, skipping dependency gate",
				"plugin", manifest.Name)
		}
		return nil
	}

	for _, dep := range manifest.Dependencies {
		req, err := depspec.Parse(dep)
		if err != nil {
			// Unreachable for parsed manifests; Validate checks this.
			return fmt.Errorf("invalid dependency %q: %w", dep, err)
		}

		installed, ok := m.deps.Installed(req.Key())
		if !ok {
			return fmt.Errorf("%w: %s", ErrMissingDependency, req.Name)
		}

		satisfied, err := req.Matches(installed)
		if err != nil {
			slog.Debug("dependency version not comparable, accepting installed version",
				"plugin", manifest.Name,
				"dependency", dep,
				"installed", installed,
				"error", err)
			continue
		}
		if !satisfied {
			return fmt.Errorf("%w: %s (installed %s does not satisfy %s)",
				ErrMissingDependency, req.Name, installed, req.String())
		}
	}
	return nil
}

// Unload tears down a loaded plugin: Cleanup runs inside the error
// boundary, every hook-index entry for the name is removed, and the
// instance is released. Unloading a plugin that is not loaded is a
// no-op, so calling Unload twice never double-runs Cleanup.
func (m *Manager) Unload(ctx context.Context, name string) error {
	if m.closed {
		return ErrManagerClosed
	}

	inst, ok := m.loaded[name]
	if !ok {
		slog.Debug("plugin not loaded, nothing to unload", "plugin", name)
		return nil
	}

	m.cleanup(ctx, inst)

	for h, names := range m.hookIndex {
		m.hookIndex[h] = removeName(names, name)
		if len(m.hookIndex[h]) == 0 {
			delete(m.hookIndex, h)
		}
	}
	delete(m.loaded, name)
	SetPluginsLoaded(len(m.loaded))

	slog.Info("unloaded plugin", "plugin", name)
	return nil
}

// cleanup runs the plugin's Cleanup inside the error boundary.
// Failures are logged and swallowed; unload always completes. Cleanup
// runs for inactive instances too, since runtimes release per-plugin
// resources there.
func (m *Manager) cleanup(ctx context.Context, inst *Instance) {
	name := inst.Metadata.Name
	defer func() {
		if r := recover(); r != nil {
			execErr := &ExecutionError{Plugin: name, Op: "cleanup", Err: fmt.Errorf("panic: %v", r)}
			errutil.LogError(slog.Default(), "plugin cleanup panicked", execErr)
		}
	}()

	if err := inst.Plugin.Cleanup(ctx); err != nil {
		execErr := &ExecutionError{Plugin: name, Op: "cleanup", Err: err}
		errutil.LogError(slog.Default(), "plugin cleanup failed", execErr)
	}
}

// removeName returns names with every occurrence of name removed,
// preserving order.
func removeName(names []string, name string) []string {
	out := names[:0]
	for _, n := range names {
		if n != name {
			out = append(out, n)
		}
	}
	return out
}

// ExecuteHook fires a hook at every subscribed plugin, sequentially,
// in registration order, on the caller's goroutine. Each plugin
// receives the same original payload: dispatch is a fan-out to
// independent observers, not a pipeline, and no plugin can veto
// delivery to another. An error or panic in one plugin is logged,
// recorded in that plugin's result with the original payload
// substituted, and never stops the dispatch or propagates to the
// caller. No timeout is applied; a hanging plugin stalls the caller.
func (m *Manager) ExecuteHook(ctx context.Context, hook pluginsdk.Hook, payload pluginsdk.Payload) ([]HookResult, error) {
	if m.closed {
		return nil, ErrManagerClosed
	}
	if !hook.Valid() {
		return nil, fmt.Errorf("unknown hook %q", hook)
	}

	names := m.hookIndex[hook]
	if len(names) == 0 {
		return nil, nil
	}

	ev := pluginsdk.Event{
		ID:      ulid.Make().String(),
		Hook:    hook,
		FiredAt: time.Now().UnixMilli(),
		Payload: payload,
	}

	results := make([]HookResult, 0, len(names))
	for _, name := range names {
		inst, ok := m.loaded[name]
		if !ok {
			continue
		}

		start := time.Now()
		out, status, execErr := m.execute(ctx, inst, ev)
		RecordHookDuration(string(hook), name, time.Since(start))
		RecordHookExecution(string(hook), name, status)

		if execErr != nil {
			errutil.LogError(slog.Default(), "hook execution failed", execErr)
			results = append(results, HookResult{Plugin: name, Payload: payload, Err: execErr})
			continue
		}
		if out == nil {
			// Observers that return nothing pass the context through.
			out = payload
		}
		results = append(results, HookResult{Plugin: name, Payload: out})
	}

	return results, nil
}

// execute runs one plugin's Execute inside the error boundary.
func (m *Manager) execute(ctx context.Context, inst *Instance, ev pluginsdk.Event) (out pluginsdk.Payload, status string, execErr *ExecutionError) {
	name := inst.Metadata.Name
	defer func() {
		if r := recover(); r != nil {
			out = nil
			status = ExecStatusPanic
			execErr = &ExecutionError{Plugin: name, Op: "execute", Hook: ev.Hook, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	result, err := inst.Plugin.Execute(ctx, ev)
	if err != nil {
		return nil, ExecStatusError, &ExecutionError{Plugin: name, Op: "execute", Hook: ev.Hook, Err: err}
	}
	return result, ExecStatusOK, nil
}

// SetEnabled flips a plugin's enabled flag, persists the record, and
// loads or unloads the plugin accordingly. A persistence failure is
// logged, not fatal: the in-memory effect still applies for the
// current process. Errors from the triggered load are returned.
func (m *Manager) SetEnabled(ctx context.Context, name string, enabled bool) error {
	if m.closed {
		return ErrManagerClosed
	}

	m.enabled[name] = enabled
	m.persist(ctx)

	if enabled {
		_, err := m.Load(ctx, name)
		return err
	}
	return m.Unload(ctx, name)
}

// persist writes the enabled record through the store, if one is set.
func (m *Manager) persist(ctx context.Context) {
	if m.store == nil {
		return
	}
	if err := m.store.Save(ctx, m.enabled); err != nil {
		errutil.LogError(slog.Default(), "failed to persist plugin state", err)
	}
}

// RestoreState reads the persisted enabled record, typically once at
// startup before LoadEnabled. A store failure is logged and leaves
// every plugin default-enabled rather than blocking startup.
func (m *Manager) RestoreState(ctx context.Context) error {
	if m.closed {
		return ErrManagerClosed
	}
	if m.store == nil {
		return nil
	}

	states, err := m.store.Load(ctx)
	if err != nil {
		errutil.LogError(slog.Default(), "failed to restore plugin state", err)
		m.enabled = make(map[string]bool)
		return nil
	}
	m.enabled = states
	return nil
}

// Enabled reports whether a plugin should auto-load. Names missing
// from the record default to enabled.
func (m *Manager) Enabled(name string) bool {
	if enabled, ok := m.enabled[name]; ok {
		return enabled
	}
	return true
}

// LoadEnabled discovers plugins and loads every enabled one.
// Individual load failures are logged and skipped so the host starts
// with the plugins that did load; callers who need strict loading use
// Discover and Load individually.
func (m *Manager) LoadEnabled(ctx context.Context) error {
	discovered, err := m.Discover(ctx)
	if err != nil {
		return err
	}

	for _, dp := range discovered {
		name := dp.Manifest.Name
		if !m.Enabled(name) {
			slog.Debug("plugin disabled, skipping", "plugin", name)
			continue
		}
		if _, err := m.Load(ctx, name); err != nil {
			var vErr *ValidationError
			if errors.As(err, &vErr) {
				continue // loaded inactive, already logged
			}
			slog.Error("failed to load plugin",
				"plugin", name,
				"error", err)
			continue
		}
	}

	return nil
}

// Plugin returns a loaded instance by name.
func (m *Manager) Plugin(name string) (*Instance, bool) {
	inst, ok := m.loaded[name]
	return inst, ok
}

// ListPlugins returns names of all loaded plugins.
func (m *Manager) ListPlugins() []string {
	names := make([]string, 0, len(m.loaded))
	for name := range m.loaded {
		names = append(names, name)
	}

	// Sort for deterministic output
	sort.Strings(names)
	return names
}

// Instances returns all loaded instances, sorted by name.
func (m *Manager) Instances() []*Instance {
	insts := make([]*Instance, 0, len(m.loaded))
	for _, name := range m.ListPlugins() {
		insts = append(insts, m.loaded[name])
	}
	return insts
}

// Discovered returns the current discovered set, sorted by name.
func (m *Manager) Discovered() []*DiscoveredPlugin {
	names := make([]string, 0, len(m.discovered))
	for name := range m.discovered {
		names = append(names, name)
	}
	sort.Strings(names)

	plugins := make([]*DiscoveredPlugin, 0, len(names))
	for _, name := range names {
		plugins = append(plugins, m.discovered[name])
	}
	return plugins
}

// Warnings returns discovery warnings from the most recent scan, for
// aggregate reporting.
func (m *Manager) Warnings() []Warning {
	out := make([]Warning, len(m.warnings))
	copy(out, m.warnings)
	return out
}

// HookSubscribers returns plugin names registered under a hook, in
// registration order.
func (m *Manager) HookSubscribers(hook pluginsdk.Hook) []string {
	names := m.hookIndex[hook]
	out := make([]string, len(names))
	copy(out, names)
	return out
}

// PluginsDir returns the discovery root.
func (m *Manager) PluginsDir() string { return m.pluginsDir }

// Close unloads every plugin, shuts down the runtimes, and closes the
// state store. The manager rejects further operations afterwards.
func (m *Manager) Close(ctx context.Context) error {
	if m.closed {
		return nil
	}

	for _, name := range m.ListPlugins() {
		if err := m.Unload(ctx, name); err != nil {
			slog.Error("failed to unload plugin during close",
				"plugin", name,
				"error", err)
		}
	}

	var errs []error
	for _, rt := range m.runtimes {
		if err := rt.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close %s runtime: %w", rt.Type(), err))
		}
	}
	if m.store != nil {
		if err := m.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close state store: %w", err))
		}
	}

	m.closed = true
	return errors.Join(errs...)
}
