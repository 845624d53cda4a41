// Package varid resolves script-facing variable ids to storage indices.
//
// A rule's scripts address flow variables with small integer ids. The rule
// compiler binds each id to an engine-wide storage index and stores the
// mapping in a Table. The table has two independent namespaces (flowvar and
// flowint), each a fixed-capacity array where index 0 means "unbound".
//
// Resolution is pure: no locking, no allocation, no side effects.
package varid

import (
	"errors"
	"fmt"

	"github.com/roach88/flowlua/internal/ir"
)

var (
	// ErrOutOfRange is returned for an id outside [0, capacity).
	ErrOutOfRange = errors.New("id out of range")

	// ErrUnbound is returned for an id whose storage index is 0.
	ErrUnbound = errors.New("id uninitialized")

	// ErrNoTable is returned when resolving against a nil table.
	ErrNoTable = errors.New("no identifier table")

	// ErrUnknownNamespace is returned for a namespace other than flowvar/flowint.
	ErrUnknownNamespace = errors.New("unknown namespace")
)

// Table maps ids to storage indices for one rule.
// The zero value has every id unbound.
type Table struct {
	flowvar [ir.MaxFlowvars]ir.StorageIndex
	flowint [ir.MaxFlowints]ir.StorageIndex
}

// NewTable builds a table from per-namespace lists where position is the id
// and the element is the storage index (0 leaves the id unbound).
// Returns an error if either list exceeds its namespace capacity.
func NewTable(flowvars, flowints []ir.StorageIndex) (*Table, error) {
	if len(flowvars) > ir.MaxFlowvars {
		return nil, fmt.Errorf("flowvar table has %d entries, max %d", len(flowvars), ir.MaxFlowvars)
	}
	if len(flowints) > ir.MaxFlowints {
		return nil, fmt.Errorf("flowint table has %d entries, max %d", len(flowints), ir.MaxFlowints)
	}

	t := &Table{}
	copy(t.flowvar[:], flowvars)
	copy(t.flowint[:], flowints)
	return t, nil
}

// Bind maps id to idx in the given namespace.
// Binding to ir.Unbound clears the id.
func (t *Table) Bind(ns ir.Namespace, id int, idx ir.StorageIndex) error {
	slots, err := t.slots(ns)
	if err != nil {
		return err
	}
	if id < 0 || id >= len(slots) {
		return fmt.Errorf("%s id %d: %w", ns, id, ErrOutOfRange)
	}
	slots[id] = idx
	return nil
}

// Indices returns a copy of the namespace's id to index mapping, trimmed of
// trailing unbound ids.
func (t *Table) Indices(ns ir.Namespace) []ir.StorageIndex {
	slots, err := t.slots(ns)
	if err != nil {
		return nil
	}
	n := len(slots)
	for n > 0 && !slots[n-1].IsBound() {
		n--
	}
	return append([]ir.StorageIndex(nil), slots[:n]...)
}

func (t *Table) slots(ns ir.Namespace) ([]ir.StorageIndex, error) {
	switch ns {
	case ir.NamespaceFlowvar:
		return t.flowvar[:], nil
	case ir.NamespaceFlowint:
		return t.flowint[:], nil
	default:
		return nil, fmt.Errorf("%s: %w", ns, ErrUnknownNamespace)
	}
}
