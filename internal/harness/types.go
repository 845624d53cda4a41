package harness

import (
	"github.com/roach88/flowlua/internal/engine"
	"github.com/roach88/flowlua/internal/flow"
	"github.com/roach88/flowlua/internal/store"
)

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if all assertions hold.
	Pass bool `json:"pass"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Stats are the engine counters of the run.
	Stats *engine.Stats `json:"stats"`

	// Flows holds the final variables of every live flow, keyed by token.
	// Flows torn down during the run are absent.
	Flows map[string]flow.Snapshot `json:"-"`

	// Calls and Matches are the audit log of the run, in seq order.
	Calls   []store.CallRecord  `json:"calls"`
	Matches []store.MatchRecord `json:"matches"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Errors:  []string{},
		Flows:   make(map[string]flow.Snapshot),
		Calls:   []store.CallRecord{},
		Matches: []store.MatchRecord{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
