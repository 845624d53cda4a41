package flowvar

import (
	"errors"
	"fmt"

	"github.com/roach88/flowlua/internal/ir"
)

// ErrorCode categorizes accessor failures.
type ErrorCode string

const (
	// ErrCodeArgumentType indicates a script passed a value of the wrong type.
	ErrCodeArgumentType ErrorCode = "ARGUMENT_TYPE"

	// ErrCodeRange indicates an id, length or value outside its bounds.
	ErrCodeRange ErrorCode = "RANGE"

	// ErrCodeUnbound indicates an id never bound at compile time, or a bound
	// id whose slot was never set on this flow.
	ErrCodeUnbound ErrorCode = "UNBOUND"

	// ErrCodeMissingContext indicates the call context was not published.
	ErrCodeMissingContext ErrorCode = "MISSING_CONTEXT"

	// ErrCodeNoFlow indicates a call outside of any flow.
	ErrCodeNoFlow ErrorCode = "NO_FLOW"

	// ErrCodeOutOfMemory indicates the string buffer could not be allocated.
	ErrCodeOutOfMemory ErrorCode = "OUT_OF_MEMORY"

	// ErrCodeInvalidHint indicates a lock hint outside the defined set.
	ErrCodeInvalidHint ErrorCode = "INVALID_HINT"
)

// Script-facing messages. Rule authors match on these strings.
const (
	MsgNoFlow        = "no flow"
	MsgNoVar         = "no flow var"
	MsgNoTable       = "internal error: no ld"
	MsgNoDetect      = "internal error: no det_ctx"
	MsgInvalidHint   = "internal error: invalid lock hint"
	MsgLenRange      = "len out of range: max 64k"
	MsgLenExceeds    = "len exceeds value length"
	MsgValueRange    = "value out of range, value must be unsigned 32bit int"
	MsgOutOfMemory   = "out of memory"
	MsgArg1NotNumber = "1st arg not a number"
	MsgArg2NotString = "2nd arg not a string"
	MsgArg2NotNumber = "2nd arg not a number"
	MsgArg3NotNumber = "3rd arg not a number"
)

// Error is the failure of one accessor call.
//
// Message is the exact string returned to the script; Error() adds the code
// and, when known, the namespace and id for logs.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is the script-facing description.
	Message string

	// Namespace and ID locate the variable, when the failure concerns one.
	Namespace ir.Namespace
	ID        int

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Namespace != 0 {
		return fmt.Sprintf("%s: %s (%s id=%d)", e.Code, e.Message, e.Namespace, e.ID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// CodeOf returns the code of an accessor error, or "" if err is not one.
// Uses errors.As to handle wrapped errors.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// MessageOf returns the script-facing message of err. Errors that are not
// accessor errors yield err.Error().
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// IsRangeError reports whether err is a RANGE error.
func IsRangeError(err error) bool { return CodeOf(err) == ErrCodeRange }

// IsUnbound reports whether err is an UNBOUND error.
func IsUnbound(err error) bool { return CodeOf(err) == ErrCodeUnbound }

// IsMissingContext reports whether err is a MISSING_CONTEXT error.
func IsMissingContext(err error) bool { return CodeOf(err) == ErrCodeMissingContext }

// IsOutOfMemory reports whether err is an OUT_OF_MEMORY error.
func IsOutOfMemory(err error) bool { return CodeOf(err) == ErrCodeOutOfMemory }

// IsEngineFault reports whether err points at a fault outside the script:
// a missing context, a bad lock hint or memory exhaustion. These are logged
// in addition to being returned to the script.
func IsEngineFault(err error) bool {
	switch CodeOf(err) {
	case ErrCodeMissingContext, ErrCodeOutOfMemory, ErrCodeInvalidHint:
		return true
	default:
		return false
	}
}

// NewArgumentError creates an ARGUMENT_TYPE error with a script-facing message.
func NewArgumentError(msg string) *Error {
	return &Error{Code: ErrCodeArgumentType, Message: msg}
}

func outOfRange(ns ir.Namespace, id int, cause error) *Error {
	return &Error{
		Code:      ErrCodeRange,
		Message:   ns.String() + " id out of range",
		Namespace: ns,
		ID:        id,
		Err:       cause,
	}
}

func uninitialized(ns ir.Namespace, id int, cause error) *Error {
	return &Error{
		Code:      ErrCodeUnbound,
		Message:   ns.String() + " id uninitialized",
		Namespace: ns,
		ID:        id,
		Err:       cause,
	}
}

func noVar(ns ir.Namespace, id int) *Error {
	return &Error{Code: ErrCodeUnbound, Message: MsgNoVar, Namespace: ns, ID: id}
}

func rangeError(msg string, ns ir.Namespace, id int) *Error {
	return &Error{Code: ErrCodeRange, Message: msg, Namespace: ns, ID: id}
}
