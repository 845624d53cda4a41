package compiler

import (
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/flowlua/internal/ir"
)

func compileRuleString(t *testing.T, src, name string) (*ir.Rule, error) {
	t.Helper()
	ctx := cuecontext.New()
	v := ctx.CompileString(src)
	require.NoError(t, v.Err())
	return CompileRule(v.LookupPath(cue.MakePath(cue.Str("rule"), cue.Str(name))))
}

func TestCompileRule_Minimal(t *testing.T) {
	rule, err := compileRuleString(t, `
rule: count: {
	script: "function match(p) return true end"
}
`, "count")
	require.NoError(t, err)

	assert.Equal(t, "count", rule.Name)
	assert.Equal(t, "function match(p) return true end", rule.Script)
	assert.Nil(t, rule.Flowvars)
	assert.Nil(t, rule.Flowints)
}

func TestCompileRule_Tables(t *testing.T) {
	rule, err := compileRuleString(t, `
rule: "http-count": {
	script: """
		function match(p)
		  return flowint_incr(0) ~= nil
		end
		"""
	flowint: [7, 0, 9]
	flowvar: [3]
}
`, "http-count")
	require.NoError(t, err)

	assert.Equal(t, "http-count", rule.Name)
	assert.Equal(t, []ir.StorageIndex{7, ir.Unbound, 9}, rule.Flowints)
	assert.Equal(t, []ir.StorageIndex{3}, rule.Flowvars)
}

func TestCompileRule_MissingScript(t *testing.T) {
	_, err := compileRuleString(t, `rule: r: { flowint: [1] }`, "r")
	require.Error(t, err)

	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "script", ce.Field)
	assert.Contains(t, ce.Message, "required")
}

func TestCompileRule_EmptyScript(t *testing.T) {
	_, err := compileRuleString(t, `rule: r: { script: "   " }`, "r")

	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "script", ce.Field)
	assert.Contains(t, ce.Message, "non-empty")
}

func TestCompileRule_LuaSyntaxError(t *testing.T) {
	_, err := compileRuleString(t, `rule: r: { script: "function match(p) return" }`, "r")

	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "script", ce.Field)
	assert.Contains(t, ce.Message, "lua syntax")
}

func TestCompileRule_TableErrors(t *testing.T) {
	tests := []struct {
		name    string
		table   string
		field   string
		message string
	}{
		{"not a list", `flowint: 3`, "flowint", "must be a list"},
		{"not an integer", `flowvar: ["a"]`, "flowvar", "must be an integer"},
		{"negative", `flowint: [-1]`, "flowint", "out of range"},
		{"too large", `flowvar: [65536]`, "flowvar", "out of range"},
		{"over capacity", `flowint: [1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16]`, "flowint", "16 ids declared, max 15"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := `rule: r: { script: "function match(p) return false end", ` + tt.table + ` }`
			_, err := compileRuleString(t, src, "r")

			var ce *CompileError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.field, ce.Field)
			assert.Contains(t, ce.Message, tt.message)
		})
	}
}

func TestCompileRule_FullCapacity(t *testing.T) {
	rule, err := compileRuleString(t, `
rule: r: {
	script: "function match(p) return false end"
	flowvar: [1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15]
}
`, "r")
	require.NoError(t, err)
	assert.Len(t, rule.Flowvars, ir.MaxFlowvars)
}

func TestCompileError_Format(t *testing.T) {
	err := &CompileError{Field: "script", Message: "script is required"}
	assert.Equal(t, "script: script is required", err.Error())
}

func TestCompileRule_ScriptNotString(t *testing.T) {
	_, err := compileRuleString(t, `rule: r: { script: 42 }`, "r")

	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "cue", ce.Field)
	assert.NotEmpty(t, ce.Message)
}
