package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile_Text(t *testing.T) {
	dir := rulesDir(t, map[string]string{"count.cue": countRule})

	out, err := execute(t, "compile", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Compiled 1 rule(s)")
	assert.Contains(t, out, "count: 0 flowvar id(s), 1 flowint id(s)")
}

func TestCompile_JSON(t *testing.T) {
	dir := rulesDir(t, map[string]string{
		"count.cue":    countRule,
		"remember.cue": rememberRule,
	})

	out, err := execute(t, "--format", "json", "compile", dir)
	require.NoError(t, err)

	var resp struct {
		Status string            `json:"status"`
		Data   CompilationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Len(t, resp.Data.Rules, 2)
}

func TestCompile_OutputFile(t *testing.T) {
	dir := rulesDir(t, map[string]string{"count.cue": countRule})
	outPath := filepath.Join(t.TempDir(), "rules.json")

	out, err := execute(t, "compile", dir, "-o", outPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote rules to "+outPath)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	var result CompilationResult
	require.NoError(t, json.Unmarshal(data, &result))
	require.Len(t, result.Rules, 1)
	assert.Equal(t, "count", result.Rules[0].Name)
	assert.Contains(t, result.Rules[0].Script, "ScFlowintIncr")
}

func TestCompile_InvalidRuleExitsTwo(t *testing.T) {
	dir := rulesDir(t, map[string]string{
		"bad.cue": "package rules\n\nrule: broken: {\n\tflowint: [1]\n}\n",
	})

	out, err := execute(t, "compile", dir)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "✗ Compilation failed")
	assert.Contains(t, out, "E110: rule broken: script is required")
}

func TestCompile_MissingDirectory(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewCompileCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{filepath.Join(t.TempDir(), "missing")})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), ErrCodeNotFound)
	assert.Contains(t, buf.String(), "not found")
}

func TestCompile_RequiresOneArg(t *testing.T) {
	_, err := execute(t, "compile")
	require.Error(t, err)
}
