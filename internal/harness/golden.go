package harness

import (
	"sort"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/flowlua/internal/ir"
)

// GoldenDir is where RunWithGolden keeps its fixtures, relative to the
// package under test.
const GoldenDir = "testdata/golden"

// TraceSnapshot captures everything a scenario run produced that is
// stable across runs. Worker ids are left out: they depend on dispatch,
// not on rule semantics.
type TraceSnapshot struct {
	ScenarioName string
	Result       *Result
}

// toCanonicalMap converts a TraceSnapshot to a map[string]any for canonical JSON serialization.
// This is required because ir.MarshalCanonical only handles IR types and primitives.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	r := s.Result

	calls := make([]any, len(r.Calls))
	for i, c := range r.Calls {
		call := map[string]any{
			"seq":     c.Seq,
			"flow":    c.FlowToken,
			"rule":    c.Rule,
			"binding": c.Binding,
			"args":    c.Args,
		}
		if c.Result != "" {
			call["result"] = c.Result
		}
		if c.Err != "" {
			call["error"] = c.Err
		}
		calls[i] = call
	}

	matches := make([]any, len(r.Matches))
	for i, m := range r.Matches {
		matches[i] = map[string]any{
			"seq":  m.Seq,
			"flow": m.FlowToken,
			"rule": m.Rule,
		}
	}

	tokens := make([]string, 0, len(r.Flows))
	for token := range r.Flows {
		tokens = append(tokens, token)
	}
	sort.Strings(tokens)
	flows := make([]any, 0, len(tokens))
	for _, token := range tokens {
		flows = append(flows, r.Flows[token].Canonical())
	}

	out := map[string]any{
		"scenario_name": s.ScenarioName,
		"calls":         calls,
		"matches":       matches,
		"flows":         flows,
	}
	if r.Stats != nil {
		perRule := make(map[string]any, len(r.Stats.Matches))
		for rule, n := range r.Stats.Matches {
			perRule[rule] = n
		}
		out["stats"] = map[string]any{
			"packets":       r.Stats.Packets,
			"teardowns":     r.Stats.Teardowns,
			"script_errors": r.Stats.ScriptErrors,
			"matches":       perRule,
		}
	}
	return out
}

// TraceBytes renders the canonical golden form of a scenario result.
func TraceBytes(scenarioName string, result *Result) ([]byte, error) {
	snapshot := TraceSnapshot{ScenarioName: scenarioName, Result: result}
	return ir.MarshalCanonical(snapshot.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares its trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the trace doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	traceJSON, err := TraceBytes(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir(GoldenDir),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, traceJSON)

	return nil
}
