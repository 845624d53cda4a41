package compiler

import (
	"fmt"
	"math"
	"strings"

	"cuelang.org/go/cue"
	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"

	"github.com/roach88/flowlua/internal/ir"
)

// CompileRule parses a CUE value into a Rule.
//
// The CUE value should be the rule struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`rule: count: { script: "..." }`)
//	rule, err := CompileRule(v.LookupPath(cue.ParsePath("rule.count")))
func CompileRule(v cue.Value) (*ir.Rule, error) {
	if err := v.Err(); err != nil {
		return nil, cueError(err)
	}

	rule := &ir.Rule{}

	// Rule name is the struct label (the path selector)
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		rule.Name = unquote(labels[len(labels)-1].String())
	}

	scriptVal := v.LookupPath(cue.ParsePath("script"))
	if !scriptVal.Exists() {
		return nil, &CompileError{
			Field:   "script",
			Message: "script is required",
			Pos:     v.Pos(),
		}
	}
	script, err := scriptVal.String()
	if err != nil {
		return nil, cueError(err)
	}
	if strings.TrimSpace(script) == "" {
		return nil, &CompileError{
			Field:   "script",
			Message: "script must be non-empty",
			Pos:     scriptVal.Pos(),
		}
	}
	if err := checkLuaSyntax(rule.Name, script); err != nil {
		return nil, &CompileError{
			Field:   "script",
			Message: err.Error(),
			Pos:     scriptVal.Pos(),
		}
	}
	rule.Script = script

	rule.Flowvars, err = parseTable(v, ir.NamespaceFlowvar)
	if err != nil {
		return nil, err
	}
	rule.Flowints, err = parseTable(v, ir.NamespaceFlowint)
	if err != nil {
		return nil, err
	}

	return rule, nil
}

// parseTable reads the optional id table of namespace ns.
func parseTable(v cue.Value, ns ir.Namespace) ([]ir.StorageIndex, error) {
	field := ns.String()
	tableVal := v.LookupPath(cue.ParsePath(field))
	if !tableVal.Exists() {
		return nil, nil
	}

	iter, err := tableVal.List()
	if err != nil {
		return nil, &CompileError{
			Field:   field,
			Message: "must be a list of storage indices",
			Pos:     tableVal.Pos(),
		}
	}

	var table []ir.StorageIndex
	for iter.Next() {
		elem := iter.Value()
		n, err := elem.Int64()
		if err != nil {
			return nil, &CompileError{
				Field:   field,
				Message: fmt.Sprintf("id %d: storage index must be an integer", len(table)),
				Pos:     elem.Pos(),
			}
		}
		if n < 0 || n > math.MaxUint16 {
			return nil, &CompileError{
				Field:   field,
				Message: fmt.Sprintf("id %d: storage index %d out of range [0, %d]", len(table), n, math.MaxUint16),
				Pos:     elem.Pos(),
			}
		}
		table = append(table, ir.StorageIndex(n))
	}

	if len(table) > ns.Capacity() {
		return nil, &CompileError{
			Field:   field,
			Message: fmt.Sprintf("%d ids declared, max %d", len(table), ns.Capacity()),
			Pos:     tableVal.Pos(),
		}
	}

	return table, nil
}

// checkLuaSyntax parses and compiles script without running it.
func checkLuaSyntax(name, script string) error {
	chunk, err := parse.Parse(strings.NewReader(script), name)
	if err != nil {
		return fmt.Errorf("lua syntax: %w", err)
	}
	if _, err := lua.Compile(chunk, name); err != nil {
		return fmt.Errorf("lua compile: %w", err)
	}
	return nil
}

// unquote strips the quotes CUE keeps on labels that are not identifiers,
// e.g. "http-count".
func unquote(label string) string {
	if len(label) >= 2 && label[0] == '"' && label[len(label)-1] == '"' {
		return label[1 : len(label)-1]
	}
	return label
}
