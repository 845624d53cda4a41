package flowvar

import (
	"math"

	"github.com/roach88/flowlua/internal/flow"
	"github.com/roach88/flowlua/internal/flowlock"
	"github.com/roach88/flowlua/internal/ir"
)

// GetInt returns flowint id of the context's flow.
func GetInt(cc CallContext, id int) (uint32, error) {
	if err := cc.CheckRead(); err != nil {
		return 0, err
	}
	idx, err := cc.resolve(ir.NamespaceFlowint, id)
	if err != nil {
		return 0, err
	}

	var out uint32
	err = flowlock.Read(cc.Flow, cc.Hint, func() error {
		slot := cc.Flow.GetSlot(idx)
		if slot == nil || slot.Kind != flow.KindInt {
			return noVar(ir.NamespaceFlowint, id)
		}
		out = slot.Int
		return nil
	})
	if err != nil {
		return 0, locked(err)
	}
	return out, nil
}

// SetInt stores value in flowint id. value must fit in a uint32.
func SetInt(cc CallContext, id int, value int64) error {
	if err := cc.CheckWrite(); err != nil {
		return err
	}

	idx, resolveErr := cc.resolve(ir.NamespaceFlowint, id)
	if resolveErr != nil && !IsUnbound(resolveErr) {
		return resolveErr
	}
	if value < 0 || value > math.MaxUint32 {
		return rangeError(MsgValueRange, ir.NamespaceFlowint, id)
	}
	if resolveErr != nil {
		return resolveErr
	}

	err := flowlock.Store(cc.Hint,
		func() { cc.Flow.SetIntSlot(idx, uint32(value)) },
		func() { cc.Flow.SetIntSlotNoLock(idx, uint32(value)) },
	)
	return locked(err)
}

// Incr adds one to flowint id and returns the stored value. An unset slot
// becomes 1; the value saturates at math.MaxUint32.
func Incr(cc CallContext, id int) (uint32, error) {
	return update(cc, id, func(v uint32, ok bool) uint32 {
		if !ok {
			return 1
		}
		if v == math.MaxUint32 {
			return v
		}
		return v + 1
	})
}

// Decr subtracts one from flowint id and returns the stored value. An unset
// slot becomes 0; the value is floored at 0.
func Decr(cc CallContext, id int) (uint32, error) {
	return update(cc, id, func(v uint32, ok bool) uint32 {
		if !ok || v == 0 {
			return 0
		}
		return v - 1
	})
}

// update runs one read-modify-write of a flowint inside a single exclusive
// critical section. A slot holding a string counts as unset.
func update(cc CallContext, id int, next func(v uint32, ok bool) uint32) (uint32, error) {
	if err := cc.CheckRead(); err != nil {
		return 0, err
	}
	idx, err := cc.resolve(ir.NamespaceFlowint, id)
	if err != nil {
		return 0, err
	}

	var out uint32
	err = flowlock.Write(cc.Flow, cc.Hint, func() error {
		var cur uint32
		ok := false
		if slot := cc.Flow.GetSlot(idx); slot != nil && slot.Kind == flow.KindInt {
			cur, ok = slot.Int, true
		}
		out = next(cur, ok)
		cc.Flow.SetIntSlotNoLock(idx, out)
		return nil
	})
	if err != nil {
		return 0, locked(err)
	}
	return out, nil
}
