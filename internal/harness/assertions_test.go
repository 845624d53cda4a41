package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/flowlua/internal/engine"
	"github.com/roach88/flowlua/internal/flow"
	"github.com/roach88/flowlua/internal/ir"
	"github.com/roach88/flowlua/internal/store"
)

func testResult() *Result {
	r := NewResult()
	r.Stats = &engine.Stats{Packets: 2, ScriptErrors: 1, Matches: map[string]int{"r": 1}}
	r.Flows["a"] = flow.Snapshot{
		Token:    "a",
		Flowvars: map[ir.StorageIndex][]byte{2: []byte("GET")},
		Flowints: map[ir.StorageIndex]uint32{1: 7},
	}
	r.Calls = []store.CallRecord{
		{Seq: 1, FlowToken: "a", Rule: "r", Binding: "ScFlowintIncr", Args: "[0]", Result: "7"},
		{Seq: 2, FlowToken: "a", Rule: "r", Binding: "ScFlowvarSet", Args: `[0,"x",9]`, Err: "len exceeds value length"},
	}
	r.Matches = []store.MatchRecord{{Seq: 1, FlowToken: "a", Rule: "r"}}
	return r
}

func TestEvaluateAssertions_AllPass(t *testing.T) {
	errs := EvaluateAssertions(testResult(), []Assertion{
		{Type: AssertFlowint, Flow: "a", Index: 1, Value: 7},
		{Type: AssertFlowvar, Flow: "a", Index: 2, Value: "GET"},
		{Type: AssertUnset, Flow: "a", Index: 3},
		{Type: AssertUnset, Flow: "gone", Index: 1},
		{Type: AssertMatchCount, Rule: "r", Count: 1},
		{Type: AssertMatchCount, Rule: "other", Count: 0},
		{Type: AssertCallCount, Binding: "ScFlowintIncr", Count: 1},
		{Type: AssertCallCount, Binding: "ScFlowvarSet", Failed: true, Count: 1},
		{Type: AssertCallError, Binding: "ScFlowvarSet", Error: "len exceeds value length"},
		{Type: AssertScriptErrors, Count: 1},
	})
	assert.Empty(t, errs)
}

func TestEvaluateAssertions_Failures(t *testing.T) {
	tests := []struct {
		name      string
		assertion Assertion
		contains  string
	}{
		{"wrong int", Assertion{Type: AssertFlowint, Flow: "a", Index: 1, Value: 8}, "Actual: 7"},
		{"missing flow", Assertion{Type: AssertFlowint, Flow: "b", Index: 1, Value: 1}, "flow not found"},
		{"int slot holds nothing", Assertion{Type: AssertFlowint, Flow: "a", Index: 2, Value: 1}, "no integer in slot"},
		{"wrong string", Assertion{Type: AssertFlowvar, Flow: "a", Index: 2, Value: "PUT"}, `Actual: "GET"`},
		{"string slot holds nothing", Assertion{Type: AssertFlowvar, Flow: "a", Index: 1, Value: "x"}, "no string in slot"},
		{"set int", Assertion{Type: AssertUnset, Flow: "a", Index: 1}, "flowint 7"},
		{"set string", Assertion{Type: AssertUnset, Flow: "a", Index: 2}, `flowvar "GET"`},
		{"match count", Assertion{Type: AssertMatchCount, Rule: "r", Count: 3}, "matched 1 time(s)"},
		{"call count", Assertion{Type: AssertCallCount, Binding: "ScFlowintIncr", Count: 2}, "called 2 time(s)"},
		{"failed count", Assertion{Type: AssertCallCount, Binding: "ScFlowintIncr", Failed: true, Count: 1}, "failed 1 time(s)"},
		{"call error", Assertion{Type: AssertCallError, Binding: "ScFlowvarSet", Error: "out of memory"}, "len exceeds value length"},
		{"no failed calls", Assertion{Type: AssertCallError, Binding: "ScFlowintIncr", Error: "x"}, "no failed calls"},
		{"script errors", Assertion{Type: AssertScriptErrors, Count: 0}, "1 script error(s)"},
		{"unknown", Assertion{Type: "vibes"}, "unknown assertion type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := EvaluateAssertions(testResult(), []Assertion{tt.assertion})
			require.Len(t, errs, 1)
			assert.Contains(t, errs[0], tt.contains)
		})
	}
}

func TestEvaluateAssertions_Order(t *testing.T) {
	errs := EvaluateAssertions(testResult(), []Assertion{
		{Type: AssertScriptErrors, Count: 5},
		{Type: AssertMatchCount, Rule: "r", Count: 1},
		{Type: AssertMatchCount, Rule: "r", Count: 9},
	})
	require.Len(t, errs, 2)
	assert.Contains(t, errs[0], "assertion 0 (script_errors)")
	assert.Contains(t, errs[1], "assertion 2 (match_count)")
}

func TestResult_AddError(t *testing.T) {
	r := NewResult()
	assert.True(t, r.Pass)
	r.AddError("boom")
	assert.False(t, r.Pass)
	assert.Equal(t, []string{"boom"}, r.Errors)
}

func TestTraceBytes_Canonical(t *testing.T) {
	data, err := TraceBytes("unit", testResult())
	require.NoError(t, err)

	s := string(data)
	assert.Contains(t, s, `"scenario_name":"unit"`)
	assert.Contains(t, s, `"flows":[{"flowints":{"1":7},"flowvars":{"2":"GET"},"token":"a"}]`)
	assert.Contains(t, s, `"error":"len exceeds value length"`)
	assert.NotContains(t, s, "worker")

	again, err := TraceBytes("unit", testResult())
	require.NoError(t, err)
	assert.Equal(t, data, again)
}
