// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EnvStudio Contributors

package depspec

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/samber/oops"
)

// Constraint translates the requirement's version specifiers into a
// semver constraint set. A requirement with no specifiers matches any
// version. Specifiers that cannot be expressed in semver terms (local
// version labels, four-segment releases) return an error; callers
// decide whether that is fatal.
func (r *Requirement) Constraint() (*semver.Constraints, error) {
	if len(r.Specs) == 0 {
		return semver.NewConstraint("*")
	}

	clauses := make([]string, 0, len(r.Specs))
	for _, spec := range r.Specs {
		clause, err := translateSpec(spec)
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, clause)
	}

	c, err := semver.NewConstraint(strings.Join(clauses, ", "))
	if err != nil {
		return nil, oops.Wrapf(err, "building constraint for %q", r.String())
	}
	return c, nil
}

// Matches reports whether an installed version satisfies the
// requirement's specifiers. Returns an error when either side cannot
// be interpreted as a version.
func (r *Requirement) Matches(installed string) (bool, error) {
	c, err := r.Constraint()
	if err != nil {
		return false, err
	}
	v, err := semver.NewVersion(installed)
	if err != nil {
		return false, oops.Wrapf(err, "parsing installed version %q", installed)
	}
	return c.Check(v), nil
}

// translateSpec converts one specifier clause into semver constraint
// syntax. Compatible release clauses expand to their two-sided form:
// ~=X.Y becomes ">=X.Y, X.*" and ~=X.Y.Z becomes ">=X.Y.Z, X.Y.*".
func translateSpec(s *VersionSpec) (string, error) {
	switch s.Op {
	case "~=":
		idx := strings.LastIndex(s.Version, ".")
		if idx <= 0 {
			return "", fmt.Errorf("compatible release %q needs at least two version segments", "~="+s.Version)
		}
		return fmt.Sprintf(">=%s, %s.*", s.Version, s.Version[:idx]), nil
	case "==":
		if strings.Contains(s.Version, "*") {
			return s.Version, nil
		}
		return "=" + padRelease(s.Version), nil
	case "!=":
		if strings.Contains(s.Version, "*") {
			return "!=" + s.Version, nil
		}
		return "!=" + padRelease(s.Version), nil
	case ">=", "<=", ">", "<":
		return s.Op + padRelease(s.Version), nil
	default:
		return "", fmt.Errorf("unsupported version operator %q", s.Op)
	}
}

// padRelease zero-pads a purely numeric release to three segments so
// that "==2.28" means exactly 2.28.0 rather than the 2.28.x range.
// Versions with non-numeric segments pass through unchanged.
func padRelease(version string) string {
	parts := strings.Split(version, ".")
	if len(parts) >= 3 {
		return version
	}
	for _, part := range parts {
		if part == "" || strings.Trim(part, "0123456789") != "" {
			return version
		}
	}
	for len(parts) < 3 {
		parts = append(parts, "0")
	}
	return strings.Join(parts, ".")
}
