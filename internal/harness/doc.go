// Package harness provides conformance testing for flowlua rule sets.
//
// A scenario bundles a rule set, an engine configuration and a packet
// stream together with assertions on the final flow state and on the
// audit log the run produced.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: http_counter
//	description: "Counts packets per flow"
//	workers: 2
//	dispatch: flow-hash
//	rules:
//	  - name: count
//	    script: |
//	      function match(p)
//	        return ScFlowintIncr(0) == 3
//	      end
//	    flowint: [1]
//	packets:
//	  - flow: a
//	    payload: GET
//	assertions:
//	  - type: flowint
//	    flow: a
//	    index: 1
//	    value: 1
//
// # Assertion Types
//
//   - flowint: the integer slot at index holds value
//   - flowvar: the string slot at index holds value
//   - unset: the slot at index holds nothing
//   - match_count: rule matched exactly count times
//   - call_count: binding was called count times (optionally only failures)
//   - call_error: some call of binding returned the message error
//   - script_errors: exactly count match calls raised a Lua error
//
// # Deterministic Testing
//
// Every scenario runs against a fresh tracker, an in-memory SQLite audit
// log and sequence flow tokens ("gen-1", "gen-2", ...) for packets without
// a flow. With one worker or flow-hash dispatch the audit log is identical
// across runs, which is what golden comparison relies on.
package harness
