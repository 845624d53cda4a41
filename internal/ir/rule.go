package ir

// Rule is a compiled detection rule: a Lua script plus its pre-compiled id
// tables.
//
// Flowvars[id] and Flowints[id] hold the storage index bound to script id
// id; Unbound leaves the id uninitialized. Storage indices form a single
// engine-wide space: an index names the same slot in every rule, and one
// index is never used by both namespaces.
type Rule struct {
	// Name identifies the rule in logs, metrics and the audit store.
	Name string `json:"name"`

	// Script is the Lua source. It must define a global function
	// match(packet) returning a boolean.
	Script string `json:"script"`

	// Flowvars maps flowvar ids to storage indices.
	Flowvars []StorageIndex `json:"flowvar,omitempty"`

	// Flowints maps flowint ids to storage indices.
	Flowints []StorageIndex `json:"flowint,omitempty"`
}

// MatchFunction is the global every rule script defines.
const MatchFunction = "match"
