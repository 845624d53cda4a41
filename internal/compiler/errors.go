package compiler

import (
	"fmt"

	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// CompileError is a rule that failed to compile. Field names the rule field
// at fault ("script", "flowvar", "flowint"), or "cue" when the CUE value
// itself did not evaluate.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if !e.Pos.IsValid() {
		return e.Field + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s: %s", e.Pos.Position().String(), e.Field, e.Message)
}

// cueError turns a CUE evaluation error into a CompileError positioned at
// its first error. Further errors are counted in the message.
func cueError(err error) error {
	if err == nil {
		return nil
	}

	list := errors.Errors(err)
	if len(list) == 0 {
		return &CompileError{Field: "cue", Message: err.Error()}
	}

	ce := &CompileError{Field: "cue", Message: list[0].Error()}
	if pos := errors.Positions(list[0]); len(pos) > 0 {
		ce.Pos = pos[0]
	}
	if more := len(list) - 1; more > 0 {
		ce.Message = fmt.Sprintf("%s (and %d more)", ce.Message, more)
	}
	return ce
}
