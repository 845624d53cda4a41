package harness

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/flowlua/internal/engine"
	"github.com/roach88/flowlua/internal/ir"
)

// Scenario defines a conformance test scenario.
// Scenarios replay a packet stream through a rule set and assert on the
// resulting flow variables and audit log.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Workers is the engine worker count. Zero means one worker.
	Workers int `yaml:"workers,omitempty"`

	// Dispatch is "flow-hash" (default) or "round-robin".
	Dispatch string `yaml:"dispatch,omitempty"`

	// Memcap caps the bytes held by all flowvar strings. Zero is unlimited.
	Memcap int64 `yaml:"memcap,omitempty"`

	// Rules are evaluated for every packet in list order.
	Rules []RuleSpec `yaml:"rules"`

	// Packets is the stream to replay.
	Packets []engine.Packet `yaml:"packets"`

	// Assertions validate the final flow state and the audit log.
	Assertions []Assertion `yaml:"assertions"`
}

// RuleSpec is a rule written inline in a scenario.
type RuleSpec struct {
	Name     string            `yaml:"name"`
	Script   string            `yaml:"script"`
	Flowvars []ir.StorageIndex `yaml:"flowvar,omitempty"`
	Flowints []ir.StorageIndex `yaml:"flowint,omitempty"`
}

// Assertion validates final state or the audit log.
type Assertion struct {
	// Type selects the check; see the package documentation.
	Type string `yaml:"type"`

	// Flow and Index address a slot (flowint, flowvar, unset).
	Flow  string          `yaml:"flow,omitempty"`
	Index ir.StorageIndex `yaml:"index,omitempty"`

	// Value is the expected slot value: an integer for flowint, a string
	// for flowvar.
	Value any `yaml:"value,omitempty"`

	// Rule names the rule (match_count).
	Rule string `yaml:"rule,omitempty"`

	// Binding names the bound function (call_count, call_error).
	Binding string `yaml:"binding,omitempty"`

	// Failed restricts call_count to calls that returned an error.
	Failed bool `yaml:"failed,omitempty"`

	// Error is the expected message (call_error).
	Error string `yaml:"error,omitempty"`

	// Count is the expected number of occurrences.
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertFlowint      = "flowint"
	AssertFlowvar      = "flowvar"
	AssertUnset        = "unset"
	AssertMatchCount   = "match_count"
	AssertCallCount    = "call_count"
	AssertCallError    = "call_error"
	AssertScriptErrors = "script_errors"
)

// IRRules converts the inline rules to their compiled form.
func (s *Scenario) IRRules() []ir.Rule {
	rules := make([]ir.Rule, len(s.Rules))
	for i, r := range s.Rules {
		rules[i] = ir.Rule{
			Name:     r.Name,
			Script:   r.Script,
			Flowvars: r.Flowvars,
			Flowints: r.Flowints,
		}
	}
	return rules
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return DecodeScenario(bytes.NewReader(data))
}

// DecodeScenario parses and validates a scenario from r.
func DecodeScenario(r io.Reader) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Workers < 0 {
		return fmt.Errorf("workers must be non-negative")
	}

	if s.Memcap < 0 {
		return fmt.Errorf("memcap must be non-negative")
	}

	if s.Dispatch != "" {
		if _, err := engine.ParseDispatch(s.Dispatch); err != nil {
			return err
		}
	}

	if len(s.Rules) == 0 {
		return fmt.Errorf("rules list is required and must be non-empty")
	}

	if len(s.Packets) == 0 {
		return fmt.Errorf("packets list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, r := range s.Rules {
		if r.Name == "" {
			return fmt.Errorf("rules[%d]: name is required", i)
		}
		if r.Script == "" {
			return fmt.Errorf("rules[%d]: script is required", i)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertFlowint, AssertFlowvar, AssertUnset:
		if a.Flow == "" {
			return fmt.Errorf("assertions[%d]: flow is required for %s", index, a.Type)
		}
		if !a.Index.IsBound() {
			return fmt.Errorf("assertions[%d]: index must be non-zero for %s", index, a.Type)
		}
		if a.Type != AssertUnset && a.Value == nil {
			return fmt.Errorf("assertions[%d]: value is required for %s", index, a.Type)
		}
		if a.Type == AssertFlowint {
			if _, ok := a.Value.(int); !ok {
				return fmt.Errorf("assertions[%d]: flowint value must be an integer", index)
			}
		}
		if a.Type == AssertFlowvar {
			if _, ok := a.Value.(string); !ok {
				return fmt.Errorf("assertions[%d]: flowvar value must be a string", index)
			}
		}
	case AssertMatchCount:
		if a.Rule == "" {
			return fmt.Errorf("assertions[%d]: rule is required for match_count", index)
		}
	case AssertCallCount:
		if a.Binding == "" {
			return fmt.Errorf("assertions[%d]: binding is required for call_count", index)
		}
	case AssertCallError:
		if a.Binding == "" || a.Error == "" {
			return fmt.Errorf("assertions[%d]: binding and error are required for call_error", index)
		}
	case AssertScriptErrors:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	if a.Count < 0 {
		return fmt.Errorf("assertions[%d]: count must be non-negative", index)
	}

	return nil
}
