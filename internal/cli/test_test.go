package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const counterScenario = `name: counter
description: "Counts packets per flow"
rules:
  - name: count
    script: |
      function match(p)
        local n = ScFlowintIncr(0)
        return n == 2
      end
    flowint: [1]
packets:
  - flow: a
    payload: GET
  - flow: a
    payload: POST
assertions:
  - type: flowint
    flow: a
    index: 1
    value: 2
  - type: match_count
    rule: count
    count: 1
`

const failingScenario = `name: wrong
description: "Expects a count the rule never reaches"
rules:
  - name: count
    script: |
      function match(p)
        ScFlowintIncr(0)
        return false
      end
    flowint: [1]
packets:
  - flow: a
    payload: GET
assertions:
  - type: flowint
    flow: a
    index: 1
    value: 5
`

func TestTest_PassingScenario(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "counter.yaml", counterScenario)

	out, err := execute(t, "test", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ counter")
	assert.Contains(t, out, "Test Summary: 1 passed, 0 failed, 1 total")
}

func TestTest_FailingScenarioExitsOne(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "counter.yaml", counterScenario)
	writeFile(t, dir, "wrong.yaml", failingScenario)

	out, err := execute(t, "--format", "json", "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
		Error  *CLIError  `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "E_TEST_FAILED", resp.Error.Code)
	assert.Equal(t, 1, resp.Data.Passed)
	assert.Equal(t, 1, resp.Data.Failed)

	for _, s := range resp.Data.Scenarios {
		if s.Name == "wrong" {
			require.NotEmpty(t, s.Errors)
			assert.Contains(t, s.Errors[0], "flowint")
		}
	}
}

func TestTest_GoldenUpdateAndCompare(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "counter.yaml", counterScenario)
	goldenPath := filepath.Join(dir, "golden", "counter.golden")

	out, err := execute(t, "test", "--update", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "(golden updated)")

	golden, err := os.ReadFile(goldenPath)
	require.NoError(t, err)
	assert.Contains(t, string(golden), `"scenario_name":"counter"`)

	// The golden directory is not scanned for scenarios.
	out, err = execute(t, "test", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "1 total")

	require.NoError(t, os.WriteFile(goldenPath, []byte("{}"), 0o644))
	out, err = execute(t, "test", dir)
	require.Error(t, err)
	assert.Contains(t, out, "trace does not match golden file")
}

func TestTest_ExtraRules(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "counter.yaml", counterScenario)
	rules := rulesDir(t, map[string]string{"count.cue": `package rules

rule: again: {
	script: """
		function match(p)
		  ScFlowintIncr(0)
		  return false
		end
		"""
	flowint: [1]
}
`})

	// The extra rule increments the same slot, so the asserted count is off.
	out, err := execute(t, "test", "--rules", rules, dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ counter")
}

func TestTest_Filter(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "counter.yaml", counterScenario)
	writeFile(t, dir, "wrong.yaml", failingScenario)

	out, err := execute(t, "test", "--filter", "count*", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "1 total")

	out, err = execute(t, "test", "--filter", "nothing*", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")
}

func TestTest_InvalidScenarioFails(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "broken.yaml", "name: broken\nrules: []\n")

	out, err := execute(t, "test", dir)
	require.Error(t, err)
	assert.Contains(t, out, "failed to load scenario")
}

func TestTest_MissingDirectory(t *testing.T) {
	_, err := execute(t, "test", filepath.Join(t.TempDir(), "none"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestFindScenarioFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", counterScenario)
	writeFile(t, dir, "b.yml", counterScenario)
	writeFile(t, dir, "golden/a.golden", "{}")
	writeFile(t, dir, "golden/c.yaml", counterScenario)
	writeFile(t, dir, "notes.txt", "")

	files, err := findScenarioFiles(dir, "")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{filepath.Join(dir, "a.yaml"), filepath.Join(dir, "b.yml")}, files)

	_, err = findScenarioFiles(dir, "[")
	assert.Error(t, err)
}
