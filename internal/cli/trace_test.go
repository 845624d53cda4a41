package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/flowlua/internal/store"
)

// recordRun runs the count and remember rules over three packets into a
// fresh audit log and returns its path.
func recordRun(t *testing.T) string {
	t.Helper()
	rules := rulesDir(t, map[string]string{
		"count.cue":    countRule,
		"remember.cue": rememberRule,
	})
	packets := writeFile(t, t.TempDir(), "packets.yaml", threePackets)
	db := filepath.Join(t.TempDir(), "audit.db")

	_, err := execute(t, "run", "--db", db, rules, packets)
	require.NoError(t, err)
	return db
}

type traceResponse struct {
	Status string      `json:"status"`
	Data   TraceResult `json:"data"`
}

func traceJSON(t *testing.T, args ...string) TraceResult {
	t.Helper()
	out, err := execute(t, append([]string{"--format", "json", "trace"}, args...)...)
	require.NoError(t, err)

	var resp traceResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Equal(t, "ok", resp.Status)
	return resp.Data
}

func TestTrace_AllCalls(t *testing.T) {
	db := recordRun(t)

	result := traceJSON(t, "--db", db)
	assert.Len(t, result.Calls, 6)
	assert.Len(t, result.Matches, 1)
	assert.Equal(t, TraceStats{Calls: 6, Failures: 0, Matches: 1}, result.Stats)

	first := result.Calls[0]
	assert.Equal(t, int64(1), first.Seq)
	assert.Equal(t, "a", first.FlowToken)
	assert.Equal(t, "[0]", first.Args)
	assert.Equal(t, "1", first.Result)

	m := result.Matches[0]
	assert.Equal(t, "count", m.Rule)
	assert.Equal(t, "a", m.FlowToken)
	assert.Equal(t, int64(2), m.Seq)
}

func TestTrace_Filters(t *testing.T) {
	db := recordRun(t)

	byFlow := traceJSON(t, "--db", db, "--flow", "b")
	assert.Equal(t, "b", byFlow.FlowToken)
	assert.Len(t, byFlow.Calls, 2)
	assert.Empty(t, byFlow.Matches)

	byBinding := traceJSON(t, "--db", db, "--binding", "ScFlowvarSet")
	require.Len(t, byBinding.Calls, 3)
	for _, c := range byBinding.Calls {
		assert.Equal(t, "remember", c.Rule)
	}

	byRule := traceJSON(t, "--db", db, "--rule", "count")
	assert.Len(t, byRule.Calls, 3)

	failed := traceJSON(t, "--db", db, "--failed")
	assert.Empty(t, failed.Calls)
}

func TestTrace_Failures(t *testing.T) {
	rules := rulesDir(t, map[string]string{"sample.cue": `package rules

rule: sample: {
	script: """
		function match(p)
		  ScFlowintGet(15)
		  return false
		end
		"""
	flowint: [1]
}
`})
	packets := writeFile(t, t.TempDir(), "packets.yaml", threePackets)
	db := filepath.Join(t.TempDir(), "audit.db")
	_, err := execute(t, "run", "--db", db, rules, packets)
	require.NoError(t, err)

	result := traceJSON(t, "--db", db, "--failed")
	require.Len(t, result.Calls, 3)
	assert.Equal(t, 3, result.Stats.Failures)
	assert.Equal(t, "flowint id out of range", result.Calls[0].Err)
}

func TestTrace_SeqContinuesAcrossRuns(t *testing.T) {
	rules := rulesDir(t, map[string]string{"count.cue": countRule})
	packets := writeFile(t, t.TempDir(), "packets.yaml", threePackets)
	db := filepath.Join(t.TempDir(), "audit.db")

	for range 2 {
		_, err := execute(t, "run", "--db", db, rules, packets)
		require.NoError(t, err)
	}

	result := traceJSON(t, "--db", db)
	require.Len(t, result.Calls, 6)
	for i, c := range result.Calls {
		assert.Equal(t, int64(i+1), c.Seq)
	}
}

func TestTrace_Summary(t *testing.T) {
	db := recordRun(t)

	out, err := execute(t, "--format", "json", "trace", "--db", db, "--summary")
	require.NoError(t, err)

	var resp struct {
		Data []store.FlowSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 2)

	byFlow := map[string]store.FlowSummary{}
	for _, s := range resp.Data {
		byFlow[s.FlowToken] = s
	}
	assert.Equal(t, 4, byFlow["a"].Calls)
	assert.Equal(t, 1, byFlow["a"].Matches)
	assert.Equal(t, 2, byFlow["b"].Calls)

	out, err = execute(t, "trace", "--db", db, "--summary")
	require.NoError(t, err)
	assert.Contains(t, out, "FLOW")
	assert.Contains(t, out, "MATCHES")
}

func TestTrace_Text(t *testing.T) {
	db := recordRun(t)

	out, err := execute(t, "trace", "--db", db, "--flow", "a")
	require.NoError(t, err)
	assert.Contains(t, out, "Trace for Flow: a")
	assert.Contains(t, out, "=== Calls ===")
	assert.Contains(t, out, "[1] count ScFlowintIncr[0] -> 1")
	assert.Contains(t, out, "=== Matches ===")
	assert.Contains(t, out, "[2] count flow=a")
	assert.Contains(t, out, "Matches:  1")
}

func TestTrace_DatabaseErrors(t *testing.T) {
	_, err := execute(t, "trace", "--db", filepath.Join(t.TempDir(), "missing.db"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "database not found")

	_, err = execute(t, "trace")
	require.Error(t, err)
}
