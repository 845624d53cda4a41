package varid

import (
	"github.com/roach88/flowlua/internal/ir"
)

// Resolve maps id to its storage index in namespace ns.
//
// Errors:
//   - ErrNoTable if t is nil
//   - ErrUnknownNamespace if ns is not flowvar or flowint
//   - ErrOutOfRange if id is outside [0, ns.Capacity())
//   - ErrUnbound if the id maps to ir.Unbound
func Resolve(t *Table, ns ir.Namespace, id int) (ir.StorageIndex, error) {
	if t == nil {
		return ir.Unbound, ErrNoTable
	}
	slots, err := t.slots(ns)
	if err != nil {
		return ir.Unbound, err
	}
	return bounded(slots).resolve(id)
}

// bounded is the single bound-checked lookup shared by both namespaces.
// The capacity is the slice length, so a namespace can never be checked
// against another namespace's bound.
type bounded []ir.StorageIndex

func (b bounded) resolve(id int) (ir.StorageIndex, error) {
	if id < 0 || id >= len(b) {
		return ir.Unbound, ErrOutOfRange
	}
	idx := b[id]
	if !idx.IsBound() {
		return ir.Unbound, ErrUnbound
	}
	return idx, nil
}
