package flowvar

import (
	"errors"

	"github.com/roach88/flowlua/internal/detect"
	"github.com/roach88/flowlua/internal/flow"
	"github.com/roach88/flowlua/internal/flowlock"
	"github.com/roach88/flowlua/internal/ir"
	"github.com/roach88/flowlua/internal/varid"
)

// CallContext is the state an accessor needs for one script invocation.
// It is owned by a single worker and never shared.
type CallContext struct {
	// Table maps script ids to storage indices for the running rule.
	Table *varid.Table

	// Detect is the worker's detection context. Required by writes.
	Detect *detect.ThreadCtx

	// Flow is the flow the packet belongs to.
	Flow *flow.Flow

	// Hint states whether the caller already holds Flow's lock.
	Hint flowlock.Hint
}

// CheckRead validates the parts of cc every accessor needs.
func (cc CallContext) CheckRead() error {
	if cc.Table == nil {
		return &Error{Code: ErrCodeMissingContext, Message: MsgNoTable}
	}
	if cc.Flow == nil {
		return &Error{Code: ErrCodeNoFlow, Message: MsgNoFlow}
	}
	return nil
}

// CheckWrite validates cc for the Set accessors, which also require the
// detection context.
func (cc CallContext) CheckWrite() error {
	if cc.Table == nil {
		return &Error{Code: ErrCodeMissingContext, Message: MsgNoTable}
	}
	if cc.Detect == nil {
		return &Error{Code: ErrCodeMissingContext, Message: MsgNoDetect}
	}
	if cc.Flow == nil {
		return &Error{Code: ErrCodeNoFlow, Message: MsgNoFlow}
	}
	return nil
}

// resolve maps a varid error onto the script-facing error.
func (cc CallContext) resolve(ns ir.Namespace, id int) (ir.StorageIndex, error) {
	idx, err := varid.Resolve(cc.Table, ns, id)
	switch {
	case err == nil:
		return idx, nil
	case errors.Is(err, varid.ErrOutOfRange):
		return ir.Unbound, outOfRange(ns, id, err)
	case errors.Is(err, varid.ErrUnbound):
		return ir.Unbound, uninitialized(ns, id, err)
	case errors.Is(err, varid.ErrNoTable):
		return ir.Unbound, &Error{Code: ErrCodeMissingContext, Message: MsgNoTable, Err: err}
	default:
		return ir.Unbound, &Error{Code: ErrCodeMissingContext, Message: err.Error(), Namespace: ns, ID: id, Err: err}
	}
}

// locked maps a lock coordinator failure onto the script-facing error.
// Accessor errors returned from inside the critical section pass through.
func locked(err error) error {
	if errors.Is(err, flowlock.ErrInvalidHint) {
		return &Error{Code: ErrCodeInvalidHint, Message: MsgInvalidHint, Err: err}
	}
	return err
}
