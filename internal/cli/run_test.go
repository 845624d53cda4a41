package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type runResponse struct {
	Status string `json:"status"`
	Data   struct {
		Stats struct {
			Packets      int            `json:"packets"`
			Teardowns    int            `json:"teardowns"`
			Matches      map[string]int `json:"matches"`
			ScriptErrors int            `json:"script_errors"`
			LastSeq      int64          `json:"last_seq"`
		} `json:"stats"`
		Flows []map[string]any `json:"flows"`
	} `json:"data"`
}

func TestRun_Text(t *testing.T) {
	rules := rulesDir(t, map[string]string{
		"count.cue":    countRule,
		"remember.cue": rememberRule,
	})
	packets := writeFile(t, t.TempDir(), "packets.yaml", threePackets)

	out, err := execute(t, "run", rules, packets)
	require.NoError(t, err)
	assert.Contains(t, out, "Packets:       3")
	assert.Contains(t, out, "Matches:       1")
	assert.Contains(t, out, "Script errors: 0")
	assert.Contains(t, out, "Live flows:    2")
}

func TestRun_JSON(t *testing.T) {
	rules := rulesDir(t, map[string]string{"count.cue": countRule})
	packets := writeFile(t, t.TempDir(), "packets.yaml", threePackets)

	out, err := execute(t, "--format", "json", "run", "--workers", "2", rules, packets)
	require.NoError(t, err)

	var resp runResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 3, resp.Data.Stats.Packets)
	assert.Equal(t, 1, resp.Data.Stats.Matches["count"])
	assert.Equal(t, int64(3), resp.Data.Stats.LastSeq)
	assert.Len(t, resp.Data.Flows, 2)
}

func TestRun_Teardown(t *testing.T) {
	rules := rulesDir(t, map[string]string{"count.cue": countRule})
	packets := writeFile(t, t.TempDir(), "packets.yaml", `packets:
  - flow: a
    payload: GET
  - flow: a
    payload: FIN
    teardown: true
`)

	out, err := execute(t, "--format", "json", "run", rules, packets)
	require.NoError(t, err)

	var resp runResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, 1, resp.Data.Stats.Teardowns)
	assert.Empty(t, resp.Data.Flows)
}

func TestRun_ScriptErrorExitsOne(t *testing.T) {
	rules := rulesDir(t, map[string]string{"boom.cue": `package rules

rule: boom: {
	script: "function match(p) error('boom') end"
}
`})
	packets := writeFile(t, t.TempDir(), "packets.yaml", threePackets)

	out, err := execute(t, "run", rules, packets)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "3 script error(s)")
	assert.Contains(t, out, "Script errors: 3")
	assert.Contains(t, out, "boom")
}

func TestRun_MetricsOut(t *testing.T) {
	rules := rulesDir(t, map[string]string{"count.cue": countRule})
	packets := writeFile(t, t.TempDir(), "packets.yaml", threePackets)
	metricsPath := filepath.Join(t.TempDir(), "metrics.txt")

	_, err := execute(t, "run", "--metrics-out", metricsPath, rules, packets)
	require.NoError(t, err)

	data, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "flowlua_packets_total")
	assert.Contains(t, string(data), "flowlua_binding_calls_total")
}

func TestRun_CommandErrors(t *testing.T) {
	rules := rulesDir(t, map[string]string{"count.cue": countRule})
	packets := writeFile(t, t.TempDir(), "packets.yaml", threePackets)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing rules", []string{"run", filepath.Join(t.TempDir(), "none"), packets}, "failed to load rules"},
		{"missing packets", []string{"run", rules, filepath.Join(t.TempDir(), "none.yaml")}, "failed to load packets"},
		{"bad dispatch", []string{"run", "--dispatch", "random", rules, packets}, "invalid --dispatch"},
		{"zero workers", []string{"run", "--workers", "0", rules, packets}, "--workers must be at least 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRun_MalformedPackets(t *testing.T) {
	rules := rulesDir(t, map[string]string{"count.cue": countRule})
	packets := writeFile(t, t.TempDir(), "packets.yaml", "packets:\n  - flow: a\n    bogus: 1\n")

	_, err := execute(t, "run", rules, packets)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
