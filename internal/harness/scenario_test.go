package harness

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/flowlua/internal/ir"
)

const minimalScenario = `
name: minimal
description: "minimal"
rules:
  - name: r
    script: "function match(p) return false end"
    flowint: [1, 0]
    flowvar: [2]
packets:
  - flow: a
    payload: hello
    locked: true
  - flow: a
    teardown: true
assertions:
  - type: unset
    flow: a
    index: 1
`

func TestDecodeScenario_Valid(t *testing.T) {
	s, err := DecodeScenario(strings.NewReader(minimalScenario))
	require.NoError(t, err)

	assert.Equal(t, "minimal", s.Name)
	require.Len(t, s.Packets, 2)
	assert.Equal(t, "hello", s.Packets[0].Payload)
	assert.True(t, s.Packets[0].Locked)
	assert.True(t, s.Packets[1].Teardown)

	rules := s.IRRules()
	require.Len(t, rules, 1)
	assert.Equal(t, []ir.StorageIndex{1, ir.Unbound}, rules[0].Flowints)
	assert.Equal(t, []ir.StorageIndex{2}, rules[0].Flowvars)
}

func TestLoadScenario_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimalScenario), 0o644))

	s, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, "minimal", s.Name)
}

func TestLoadScenario_Missing(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestDecodeScenario_UnknownField(t *testing.T) {
	src := strings.Replace(minimalScenario, "assertions:", "assertion:", 1)
	_, err := DecodeScenario(strings.NewReader(src))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestDecodeScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		old     string
		new     string
		message string
	}{
		{"no name", "name: minimal", "name: \"\"", "name is required"},
		{"no description", `description: "minimal"`, `description: ""`, "description is required"},
		{"bad dispatch", "rules:", "dispatch: random\nrules:", "dispatch"},
		{"negative workers", "rules:", "workers: -1\nrules:", "workers must be non-negative"},
		{"negative memcap", "rules:", "memcap: -5\nrules:", "memcap must be non-negative"},
		{"rule without name", "  - name: r\n", "  - name: \"\"\n", "rules[0]: name is required"},
		{"unknown assertion", "type: unset", "type: vibes", "unknown assertion type"},
		{"zero index", "index: 1", "index: 0", "index must be non-zero"},
		{"slot without flow", "    flow: a\n    index: 1", "    index: 1", "flow is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := strings.Replace(minimalScenario, tt.old, tt.new, 1)
			require.NotEqual(t, minimalScenario, src, "replacement did not apply")

			_, err := DecodeScenario(strings.NewReader(src))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestDecodeScenario_ValueTypes(t *testing.T) {
	base := strings.Replace(minimalScenario, "  - type: unset\n    flow: a\n    index: 1\n", "", 1)

	_, err := DecodeScenario(strings.NewReader(base + "  - type: flowint\n    flow: a\n    index: 1\n    value: abc\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "flowint value must be an integer")

	_, err = DecodeScenario(strings.NewReader(base + "  - type: flowvar\n    flow: a\n    index: 2\n    value: 3\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "flowvar value must be a string")

	_, err = DecodeScenario(strings.NewReader(base + "  - type: flowvar\n    flow: a\n    index: 2\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "value is required")
}
