package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/flowlua/internal/ir"
)

// Validation error codes (E100-E199)
const (
	ErrRuleNameEmpty       = "E101" // rule name is required
	ErrRuleScriptEmpty     = "E102" // script is required
	ErrDuplicateRule       = "E103" // duplicate rule name
	ErrTableOverCapacity   = "E104" // id table longer than its namespace
	ErrIndexNamespaceClash = "E105" // storage index used as flowvar and flowint
)

// ValidationError represents a rule set validation error.
type ValidationError struct {
	Rule    string `json:"rule,omitempty"`
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Rule != "" {
		return fmt.Sprintf("[%s] rule %s: %s: %s", e.Code, e.Rule, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// ValidateRules validates a compiled rule set.
// Returns all errors found (does not fail-fast), in rule order.
func ValidateRules(rules []ir.Rule) []ValidationError {
	var errs []ValidationError

	seen := make(map[string]bool, len(rules))
	// Storage indices are engine-wide: remember which namespace first
	// claimed each one and which rule did it.
	type claim struct {
		ns   ir.Namespace
		rule string
	}
	claims := make(map[ir.StorageIndex]claim)

	for _, r := range rules {
		if strings.TrimSpace(r.Name) == "" {
			errs = append(errs, ValidationError{
				Field:   "name",
				Message: "rule name is required",
				Code:    ErrRuleNameEmpty,
			})
		} else if seen[r.Name] {
			errs = append(errs, ValidationError{
				Rule:    r.Name,
				Field:   "name",
				Message: "duplicate rule name",
				Code:    ErrDuplicateRule,
			})
		}
		seen[r.Name] = true

		if strings.TrimSpace(r.Script) == "" {
			errs = append(errs, ValidationError{
				Rule:    r.Name,
				Field:   "script",
				Message: "script is required and must be non-empty",
				Code:    ErrRuleScriptEmpty,
			})
		}

		for _, t := range []struct {
			ns    ir.Namespace
			table []ir.StorageIndex
		}{
			{ir.NamespaceFlowvar, r.Flowvars},
			{ir.NamespaceFlowint, r.Flowints},
		} {
			if len(t.table) > t.ns.Capacity() {
				errs = append(errs, ValidationError{
					Rule:    r.Name,
					Field:   t.ns.String(),
					Message: fmt.Sprintf("%d ids declared, max %d", len(t.table), t.ns.Capacity()),
					Code:    ErrTableOverCapacity,
				})
			}
			for id, idx := range t.table {
				if !idx.IsBound() {
					continue
				}
				c, ok := claims[idx]
				if !ok {
					claims[idx] = claim{ns: t.ns, rule: r.Name}
					continue
				}
				if c.ns != t.ns {
					errs = append(errs, ValidationError{
						Rule:  r.Name,
						Field: fmt.Sprintf("%s[%d]", t.ns, id),
						Message: fmt.Sprintf("storage index %d is a %s here but a %s in rule %s",
							idx, t.ns, c.ns, c.rule),
						Code: ErrIndexNamespaceClash,
					})
				}
			}
		}
	}

	return errs
}
