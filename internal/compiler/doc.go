// Package compiler turns CUE rule definitions into ir.Rule values.
//
// A rule file declares rules under the top-level "rule" struct:
//
//	rule: http_count: {
//		script: """
//			function match(p)
//				return ScFlowintIncr(0) >= 3
//			end
//			"""
//		flowint: [1]
//		flowvar: [2, 0, 3]
//	}
//
// flowvar and flowint are the pre-compiled id tables: position is the
// script id, the element the storage index (0 leaves the id unbound).
// CompileRule checks one rule in isolation, including Lua syntax;
// ValidateRules checks a rule set as a whole.
package compiler
