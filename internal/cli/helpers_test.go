package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const countRule = `package rules

rule: count: {
	script: """
		function match(p)
		  local n = ScFlowintIncr(0)
		  return n == 2
		end
		"""
	flowint: [1]
}
`

const rememberRule = `package rules

rule: remember: {
	script: """
		function match(p)
		  ScFlowvarSet(0, p.payload, #p.payload)
		  return false
		end
		"""
	flowvar: [2]
}
`

const threePackets = `packets:
  - flow: a
    payload: GET
  - flow: a
    payload: POST
  - flow: b
    payload: GET
`

// writeFile writes content to dir/name and returns the full path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// rulesDir creates a temp directory holding one CUE file per content.
func rulesDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		writeFile(t, dir, name, content)
	}
	return dir
}

// execute runs the root command with args and returns stdout and the error.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}
