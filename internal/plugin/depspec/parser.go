// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EnvStudio Contributors

package depspec

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/samber/oops"
)

// parser is the singleton participle parser instance.
var parser *participle.Parser[Requirement]

func init() {
	var err error
	parser, err = NewParser()
	if err != nil {
		panic(fmt.Sprintf("failed to build requirement parser: %v", err))
	}
}

// Parse parses a dependency requirement string into a Requirement.
// Returns a descriptive error with position info on failure.
func Parse(text string) (*Requirement, error) {
	req, err := parser.ParseString("", text)
	if err != nil {
		return nil, oops.Wrapf(err, "parsing requirement %q", text)
	}

	if err := validateRequirement(req); err != nil {
		return nil, oops.Wrapf(err, "parsing requirement %q", text)
	}

	return req, nil
}

// validateRequirement performs post-parse validation checks.
func validateRequirement(r *Requirement) error {
	for _, spec := range r.Specs {
		if err := validateSpec(spec); err != nil {
			return err
		}
	}
	return nil
}

// validateSpec rejects specifier shapes the grammar accepts but the
// version semantics do not. Wildcard segments only make sense for
// equality checks, and a compatible release clause needs at least two
// release segments to define what "compatible" means.
func validateSpec(s *VersionSpec) error {
	wild := strings.Contains(s.Version, "*")
	switch s.Op {
	case "~=":
		if wild {
			return fmt.Errorf("compatible release %q cannot use a wildcard", s.Op+s.Version)
		}
		if strings.Count(s.Version, ".") == 0 {
			return fmt.Errorf("compatible release %q needs at least two version segments", s.Op+s.Version)
		}
	case "==", "!=":
		// Wildcards allowed.
	default:
		if wild {
			return fmt.Errorf("wildcard version %q only allowed with == or !=", s.Op+s.Version)
		}
	}
	return nil
}

// Key returns the normalized lookup name for the requirement:
// lowercase, with runs of ".", "-", and "_" collapsed to a single "-".
// Installed-package indexes are expected to be keyed the same way.
func (r *Requirement) Key() string {
	return Normalize(r.Name)
}

// Normalize canonicalizes a package name for case- and
// separator-insensitive comparison.
func Normalize(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	prevSep := false
	for _, c := range strings.ToLower(name) {
		if c == '.' || c == '-' || c == '_' {
			prevSep = true
			continue
		}
		if prevSep && b.Len() > 0 {
			b.WriteByte('-')
		}
		prevSep = false
		b.WriteRune(c)
	}
	return b.String()
}

// String renders the requirement in canonical form with no spaces,
// e.g. "requests[security]>=2.28,<3.0".
func (r *Requirement) String() string {
	var b strings.Builder
	b.WriteString(r.Name)
	if len(r.Extras) > 0 {
		b.WriteByte('[')
		b.WriteString(strings.Join(r.Extras, ","))
		b.WriteByte(']')
	}
	for i, spec := range r.Specs {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(spec.Op)
		b.WriteString(spec.Version)
	}
	return b.String()
}
