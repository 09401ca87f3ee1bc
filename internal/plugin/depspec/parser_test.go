// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 EnvStudio Contributors

package depspec_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/envstudio/envstudio/internal/plugin/depspec"
)

func TestParse_ValidRequirements(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"bare name", `requests`},
		{"single spec", `requests>=2.28`},
		{"exact pin", `packaging==23.1`},
		{"exclusion", `urllib3!=1.25.0`},
		{"compatible release", `rich~=13.0`},
		{"wildcard equality", `pyqt6==6.5.*`},
		{"multiple specs", `requests>=2.28,<3.0`},
		{"spaces around operators", `requests >= 2.28, < 3.0`},
		{"extras", `requests[security,socks]>=2.28`},
		{"dotted name", `zope.interface>=5.0`},
		{"underscored name", `typing_extensions`},
		{"epoch version", `weird==1!2.0`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := depspec.Parse(tt.text)
			require.NoError(t, err)
			require.NotNil(t, req)

			// Verify round-trip via String()
			rendered := req.String()
			reparsed, err := depspec.Parse(rendered)
			require.NoError(t, err, "round-trip should parse: %s", rendered)
			assert.Equal(t, req.Name, reparsed.Name)
			assert.Equal(t, len(req.Specs), len(reparsed.Specs))
		})
	}
}

func TestParse_Fields(t *testing.T) {
	req, err := depspec.Parse(`requests[security,socks] >= 2.28, < 3.0`)
	require.NoError(t, err)

	assert.Equal(t, "requests", req.Name)
	assert.Equal(t, []string{"security", "socks"}, req.Extras)
	require.Len(t, req.Specs, 2)
	assert.Equal(t, ">=", req.Specs[0].Op)
	assert.Equal(t, "2.28", req.Specs[0].Version)
	assert.Equal(t, "<", req.Specs[1].Op)
	assert.Equal(t, "3.0", req.Specs[1].Version)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"empty", ``},
		{"missing version", `requests>=`},
		{"missing name", `>=2.28`},
		{"leading digit name", `3to2>=1.0`},
		{"single-segment compatible release", `requests~=2`},
		{"compatible release wildcard", `requests~=2.*`},
		{"wildcard with ordering operator", `requests>=2.*`},
		{"trailing comma", `requests>=2.28,`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := depspec.Parse(tt.text)
			assert.Error(t, err)
		})
	}
}

func TestRequirement_String(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected string
	}{
		{"bare name", `requests`, `requests`},
		{"spaces stripped", `requests >= 2.28 , < 3.0`, `requests>=2.28,<3.0`},
		{"extras kept", `requests[security]>=2.28`, `requests[security]>=2.28`},
		{"compatible release", `rich ~= 13.0`, `rich~=13.0`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := depspec.Parse(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, req.String())
		})
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"lowercase", "Requests", "requests"},
		{"underscores", "typing_extensions", "typing-extensions"},
		{"dots", "zope.interface", "zope-interface"},
		{"mixed separators", "ruamel.yaml_clib", "ruamel-yaml-clib"},
		{"separator runs", "a--b__c", "a-b-c"},
		{"already canonical", "requests", "requests"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, depspec.Normalize(tt.input))
		})
	}
}

func TestRequirement_Key(t *testing.T) {
	req, err := depspec.Parse(`Typing_Extensions>=4.0`)
	require.NoError(t, err)
	assert.Equal(t, "typing-extensions", req.Key())
}
