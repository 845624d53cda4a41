package flowvar

import (
	"errors"

	"github.com/roach88/flowlua/internal/flow"
	"github.com/roach88/flowlua/internal/flowlock"
	"github.com/roach88/flowlua/internal/ir"
)

// GetString returns a copy of the string flowvar id of the context's flow.
// The result has exactly the stored length.
func GetString(cc CallContext, id int) ([]byte, error) {
	if err := cc.CheckRead(); err != nil {
		return nil, err
	}
	idx, err := cc.resolve(ir.NamespaceFlowvar, id)
	if err != nil {
		return nil, err
	}

	var out []byte
	err = flowlock.Read(cc.Flow, cc.Hint, func() error {
		slot := cc.Flow.GetSlot(idx)
		if slot == nil || slot.Kind != flow.KindString {
			return noVar(ir.NamespaceFlowvar, id)
		}
		out = make([]byte, len(slot.Str))
		copy(out, slot.Str)
		return nil
	})
	if err != nil {
		return nil, locked(err)
	}
	return out, nil
}

// SetString stores the first length bytes of value in flowvar id, replacing
// any previous value.
func SetString(cc CallContext, id int, value []byte, length int) error {
	if err := cc.CheckWrite(); err != nil {
		return err
	}

	// An unbound id is reported only after the length checks.
	idx, resolveErr := cc.resolve(ir.NamespaceFlowvar, id)
	if resolveErr != nil && !IsUnbound(resolveErr) {
		return resolveErr
	}
	if length < 0 || length > ir.MaxStringLen {
		return rangeError(MsgLenRange, ir.NamespaceFlowvar, id)
	}
	if length > len(value) {
		return rangeError(MsgLenExceeds, ir.NamespaceFlowvar, id)
	}
	if resolveErr != nil {
		return resolveErr
	}

	buf, err := cc.Flow.AllocString(length)
	if err != nil {
		if errors.Is(err, flow.ErrMemcapExceeded) {
			return &Error{Code: ErrCodeOutOfMemory, Message: MsgOutOfMemory, Namespace: ir.NamespaceFlowvar, ID: id, Err: err}
		}
		return err
	}
	copy(buf, value[:length])

	err = flowlock.Store(cc.Hint,
		func() { cc.Flow.SetStringSlot(idx, buf) },
		func() { cc.Flow.SetStringSlotNoLock(idx, buf) },
	)
	if err != nil {
		cc.Flow.FreeString(buf)
		return locked(err)
	}
	return nil
}
