// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EnvStudio Contributors

// Package depspec parses plugin dependency requirement strings of the
// form "name[extras]op version, op version" as found in plugin
// manifests, e.g. "requests>=2.28,<3.0". The grammar is a subset of
// the requirement syntax Python packaging tools accept: a package
// name, optional bracketed extras, and zero or more comma-separated
// version specifiers.
package depspec

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// reqLexer defines the token types for requirement strings.
// Operators are matched before versions so that ">=2.28" splits into
// an Op token and a Version token rather than a single run.
var reqLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Op", Pattern: `~=|==|!=|>=|<=|>|<`},
	{Name: "Version", Pattern: `[0-9][0-9A-Za-z.*+!_-]*`},
	{Name: "Name", Pattern: `[A-Za-z][A-Za-z0-9._-]*`},
	{Name: "Punct", Pattern: `[\[\],]`},
	{Name: "whitespace", Pattern: `\s+`},
})

// Requirement represents a single parsed dependency requirement.
//
// Grammar: name [ "[" extra ("," extra)* "]" ] [ spec ("," spec)* ]
type Requirement struct {
	Pos    lexer.Position `parser:"" json:"-"`
	Name   string         `parser:"@Name" json:"name"`
	Extras []string       `parser:"('[' @Name (',' @Name)* ']')?" json:"extras,omitempty"`
	Specs  []*VersionSpec `parser:"(@@ (',' @@)*)?" json:"specs,omitempty"`
}

// VersionSpec is one version specifier clause: an operator and a version.
type VersionSpec struct {
	Pos     lexer.Position `parser:"" json:"-"`
	Op      string         `parser:"@Op" json:"op"`
	Version string         `parser:"@Version" json:"version"`
}

// NewParser constructs a participle parser for the Requirement grammar.
func NewParser() (*participle.Parser[Requirement], error) {
	return participle.Build[Requirement](
		participle.Lexer(reqLexer),
	)
}
