package engine

import (
	"errors"
	"fmt"
)

// RuntimeError represents an error detected while loading or running rules.
//
// Runtime errors include:
//   - Invalid rule: duplicate name or an id table over capacity
//   - Script load: the script failed to compile or lacks a match function
//   - Script error: match raised a Lua error for one packet
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode `json:"code"`

	// Message is a human-readable description.
	Message string `json:"message"`

	// Rule identifies the rule involved.
	Rule string `json:"rule,omitempty"`

	// Seq and FlowToken identify the packet, for script errors.
	Seq       int64  `json:"seq,omitempty"`
	FlowToken string `json:"flow,omitempty"`

	// Err is the underlying cause.
	Err error `json:"-"`
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeInvalidRule indicates a rule that cannot be installed.
	ErrCodeInvalidRule RuntimeErrorCode = "INVALID_RULE"

	// ErrCodeScriptLoad indicates a script that failed to load.
	ErrCodeScriptLoad RuntimeErrorCode = "SCRIPT_LOAD"

	// ErrCodeScriptError indicates a Lua error raised during evaluation.
	ErrCodeScriptError RuntimeErrorCode = "SCRIPT_ERROR"

	// ErrCodeInvalidDispatch indicates an unknown dispatch mode.
	ErrCodeInvalidDispatch RuntimeErrorCode = "INVALID_DISPATCH"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.Rule != "" && e.Seq != 0 {
		return fmt.Sprintf("%s: %s (rule=%s, seq=%d)", e.Code, e.Message, e.Rule, e.Seq)
	}
	if e.Rule != "" {
		return fmt.Sprintf("%s: %s (rule=%s)", e.Code, e.Message, e.Rule)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// IsScriptError returns true if the error is a Lua error raised by a script.
// Uses errors.As to handle wrapped errors.
func IsScriptError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeScriptError
	}
	return false
}

// IsScriptLoadError returns true if a script failed to load.
func IsScriptLoadError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeScriptLoad
	}
	return false
}

// IsInvalidRule returns true if a rule could not be installed.
func IsInvalidRule(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeInvalidRule
	}
	return false
}

func newScriptError(rule string, p Packet, token string, err error) *RuntimeError {
	return &RuntimeError{
		Code:      ErrCodeScriptError,
		Message:   err.Error(),
		Rule:      rule,
		Seq:       p.Seq,
		FlowToken: token,
		Err:       err,
	}
}
