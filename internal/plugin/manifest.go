// Package plugin provides plugin management and lifecycle control.
package plugin

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"

	"github.com/envstudio/envstudio/internal/plugin/depspec"
	pluginsdk "github.com/envstudio/envstudio/pkg/plugin"
)

// RuntimeType identifies the plugin runtime.
type RuntimeType string

// Plugin runtimes supported by the system.
const (
	RuntimeBuiltin RuntimeType = "builtin"
	RuntimeLua     RuntimeType = "lua"
	RuntimeBinary  RuntimeType = "binary"
)

// DefaultRequiredVersion is assumed when a manifest omits required_version.
const DefaultRequiredVersion = "1.0.0"

// ManifestFileName is the manifest file expected in each plugin directory.
const ManifestFileName = "plugin.yaml"

// Manifest represents a plugin.yaml file. The jsonschema tags feed the
// generated manifest schema; Validate enforces the same constraints at
// parse time plus the ones a schema cannot express.
type Manifest struct {
	Name            string      `yaml:"name" json:"name" jsonschema:"pattern=^[a-z]([a-z0-9_-]*[a-z0-9])?$,maxLength=64"`
	Version         string      `yaml:"version" json:"version" jsonschema:"minLength=1"`
	Author          string      `yaml:"author" json:"author" jsonschema:"minLength=1"`
	Description     string      `yaml:"description" json:"description" jsonschema:"minLength=1"`
	Runtime         RuntimeType `yaml:"runtime,omitempty" json:"runtime,omitempty" jsonschema:"enum=builtin,enum=lua,enum=binary"`
	EntryPoint      string      `yaml:"entry_point" json:"entry_point" jsonschema:"minLength=1"`
	RequiredVersion string      `yaml:"required_version,omitempty" json:"required_version,omitempty"`
	Dependencies    []string    `yaml:"dependencies,omitempty" json:"dependencies,omitempty"`
	Hooks           []string    `yaml:"hooks" json:"hooks"`
}

// maxNameLength is the maximum allowed length for plugin names.
const maxNameLength = 64

// namePattern validates plugin names: must start with a lowercase letter,
// followed by lowercase letters, digits, hyphens, or underscores.
// Cannot end with a separator. Single character names are allowed.
var namePattern = regexp.MustCompile(`^[a-z]([a-z0-9_-]*[a-z0-9])?$`)

// ParseManifest parses and validates a plugin.yaml file. Omitted
// optional fields are filled with their defaults before validation.
func ParseManifest(data []byte) (*Manifest, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("manifest data is empty")
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}

	m.applyDefaults()

	if err := m.Validate(); err != nil {
		return nil, err
	}

	return &m, nil
}

// applyDefaults fills optional fields: runtime defaults to builtin,
// required_version to DefaultRequiredVersion.
func (m *Manifest) applyDefaults() {
	if m.Runtime == "" {
		m.Runtime = RuntimeBuiltin
	}
	if m.RequiredVersion == "" {
		m.RequiredVersion = DefaultRequiredVersion
	}
}

// Validate checks manifest constraints.
func (m *Manifest) Validate() error {
	if m.Name == "" || !namePattern.MatchString(m.Name) {
		return fmt.Errorf("name %q must start with a-z, contain only a-z, 0-9, hyphens, underscores, and not end with a separator", m.Name)
	}
	if len(m.Name) > maxNameLength {
		return fmt.Errorf("name must be %d characters or less, got %d", maxNameLength, len(m.Name))
	}

	if m.Version == "" {
		return fmt.Errorf("version is required")
	}
	if _, err := semver.NewVersion(m.Version); err != nil {
		return fmt.Errorf("version %q is not a valid version: %w", m.Version, err)
	}

	if m.Author == "" {
		return fmt.Errorf("author is required")
	}
	if m.Description == "" {
		return fmt.Errorf("description is required")
	}

	if m.EntryPoint == "" {
		return fmt.Errorf("entry_point is required")
	}

	// Script and binary entry points are paths resolved inside the
	// plugin directory; the manifest must not reach outside it.
	switch m.Runtime {
	case RuntimeBuiltin:
	case RuntimeLua:
		if !strings.HasSuffix(m.EntryPoint, ".lua") {
			return fmt.Errorf("lua entry_point must be a .lua file, got %q", m.EntryPoint)
		}
		if !filepath.IsLocal(m.EntryPoint) {
			return fmt.Errorf("entry_point %q must be a relative path inside the plugin directory", m.EntryPoint)
		}
	case RuntimeBinary:
		if !filepath.IsLocal(m.EntryPoint) {
			return fmt.Errorf("entry_point %q must be a relative path inside the plugin directory", m.EntryPoint)
		}
	default:
		return fmt.Errorf("runtime must be 'builtin', 'lua', or 'binary', got %q", m.Runtime)
	}

	if m.RequiredVersion != "" {
		if _, err := semver.NewVersion(m.RequiredVersion); err != nil {
			return fmt.Errorf("required_version %q is not a valid version: %w", m.RequiredVersion, err)
		}
	}

	for _, dep := range m.Dependencies {
		if _, err := depspec.Parse(dep); err != nil {
			return fmt.Errorf("invalid dependency %q: %w", dep, err)
		}
	}

	if m.Hooks == nil {
		return fmt.Errorf("hooks is required (an empty list is allowed)")
	}
	seen := make(map[string]bool, len(m.Hooks))
	for _, h := range m.Hooks {
		if !pluginsdk.Hook(h).Valid() {
			return fmt.Errorf("unknown hook %q", h)
		}
		if seen[h] {
			return fmt.Errorf("duplicate hook %q", h)
		}
		seen[h] = true
	}

	return nil
}

// Metadata converts the manifest into the immutable metadata handed to
// plugins and hosts. The manifest is the authoritative source for a
// plugin's identity and hook subscriptions.
func (m *Manifest) Metadata() pluginsdk.Metadata {
	hooks := make([]pluginsdk.Hook, len(m.Hooks))
	for i, h := range m.Hooks {
		hooks[i] = pluginsdk.Hook(h)
	}
	deps := make([]string, len(m.Dependencies))
	copy(deps, m.Dependencies)
	return pluginsdk.Metadata{
		Name:            m.Name,
		Version:         m.Version,
		Author:          m.Author,
		Description:     m.Description,
		EntryPoint:      m.EntryPoint,
		RequiredVersion: m.RequiredVersion,
		Dependencies:    deps,
		Hooks:           hooks,
	}
}
