package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/flowlua/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

// assertFlowint checks the integer slot of one flow.
func assertFlowint(result *Result, a Assertion) error {
	n, ok := a.Value.(int)
	if !ok {
		return fmt.Errorf("flowint value %v is not an integer", a.Value)
	}
	want := uint32(n)
	expected := fmt.Sprintf("flow %s flowint[%d] = %d", a.Flow, a.Index, want)

	snap, ok := result.Flows[a.Flow]
	if !ok {
		return &AssertionError{Type: a.Type, Expected: expected, Actual: "flow not found"}
	}
	got, ok := snap.Flowints[a.Index]
	if !ok {
		return &AssertionError{Type: a.Type, Expected: expected, Actual: "no integer in slot"}
	}
	if got != want {
		return &AssertionError{Type: a.Type, Expected: expected, Actual: fmt.Sprintf("%d", got)}
	}
	return nil
}

// assertFlowvar checks the string slot of one flow.
func assertFlowvar(result *Result, a Assertion) error {
	want, ok := a.Value.(string)
	if !ok {
		return fmt.Errorf("flowvar value %v is not a string", a.Value)
	}
	expected := fmt.Sprintf("flow %s flowvar[%d] = %q", a.Flow, a.Index, want)

	snap, ok := result.Flows[a.Flow]
	if !ok {
		return &AssertionError{Type: a.Type, Expected: expected, Actual: "flow not found"}
	}
	got, ok := snap.Flowvars[a.Index]
	if !ok {
		return &AssertionError{Type: a.Type, Expected: expected, Actual: "no string in slot"}
	}
	if string(got) != want {
		return &AssertionError{Type: a.Type, Expected: expected, Actual: fmt.Sprintf("%q", got)}
	}
	return nil
}

// assertUnset checks that a slot holds nothing. A flow that is gone, for
// instance after teardown, has no slots at all.
func assertUnset(result *Result, a Assertion) error {
	snap, ok := result.Flows[a.Flow]
	if !ok {
		return nil
	}
	expected := fmt.Sprintf("flow %s slot %d unset", a.Flow, a.Index)
	if v, ok := snap.Flowints[a.Index]; ok {
		return &AssertionError{Type: a.Type, Expected: expected, Actual: fmt.Sprintf("flowint %d", v)}
	}
	if v, ok := snap.Flowvars[a.Index]; ok {
		return &AssertionError{Type: a.Type, Expected: expected, Actual: fmt.Sprintf("flowvar %q", v)}
	}
	return nil
}

// assertMatchCount checks how often a rule matched.
func assertMatchCount(result *Result, a Assertion) error {
	count := 0
	for _, m := range result.Matches {
		if m.Rule == a.Rule {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("rule %s matched %d time(s)", a.Rule, a.Count),
			Actual:   fmt.Sprintf("matched %d time(s)", count),
		}
	}
	return nil
}

// assertCallCount checks how often a binding was called.
func assertCallCount(result *Result, a Assertion) error {
	count := 0
	for _, c := range callsOf(result.Calls, a.Binding) {
		if a.Failed && c.Err == "" {
			continue
		}
		count++
	}
	if count != a.Count {
		what := "called"
		if a.Failed {
			what = "failed"
		}
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%s %s %d time(s)", a.Binding, what, a.Count),
			Actual:   fmt.Sprintf("%d time(s)", count),
		}
	}
	return nil
}

// assertCallError checks that some call of a binding failed with a message.
func assertCallError(result *Result, a Assertion) error {
	var seen []string
	for _, c := range callsOf(result.Calls, a.Binding) {
		if c.Err == a.Error {
			return nil
		}
		if c.Err != "" {
			seen = append(seen, c.Err)
		}
	}
	actual := "no failed calls"
	if len(seen) > 0 {
		actual = fmt.Sprintf("errors %q", seen)
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("%s returned error %q", a.Binding, a.Error),
		Actual:   actual,
	}
}

// assertScriptErrors checks the number of match calls that raised.
func assertScriptErrors(result *Result, a Assertion) error {
	got := 0
	if result.Stats != nil {
		got = result.Stats.ScriptErrors
	}
	if got != a.Count {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%d script error(s)", a.Count),
			Actual:   fmt.Sprintf("%d script error(s)", got),
		}
	}
	return nil
}

func callsOf(calls []store.CallRecord, binding string) []store.CallRecord {
	var out []store.CallRecord
	for _, c := range calls {
		if c.Binding == binding {
			out = append(out, c)
		}
	}
	return out
}

// EvaluateAssertions runs every assertion against result and returns the
// failure messages in assertion order.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertFlowint:
			err = assertFlowint(result, a)
		case AssertFlowvar:
			err = assertFlowvar(result, a)
		case AssertUnset:
			err = assertUnset(result, a)
		case AssertMatchCount:
			err = assertMatchCount(result, a)
		case AssertCallCount:
			err = assertCallCount(result, a)
		case AssertCallError:
			err = assertCallError(result, a)
		case AssertScriptErrors:
			err = assertScriptErrors(result, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d (%s): %v", i, a.Type, err))
		}
	}
	return errs
}
