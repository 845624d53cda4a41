package flow

import (
	"sort"
	"strconv"

	"github.com/roach88/flowlua/internal/ir"
)

// Snapshot is a copy of a flow's variables safe to use without locking.
type Snapshot struct {
	Token    string
	Flowvars map[ir.StorageIndex][]byte
	Flowints map[ir.StorageIndex]uint32
}

// Snapshot copies the flow's variables under the shared lock.
func (f *Flow) Snapshot() Snapshot {
	f.RLock()
	defer f.RUnlock()
	return f.SnapshotNoLock()
}

// SnapshotNoLock copies the flow's variables. Caller holds a lock.
func (f *Flow) SnapshotNoLock() Snapshot {
	s := Snapshot{
		Token:    f.token,
		Flowvars: make(map[ir.StorageIndex][]byte),
		Flowints: make(map[ir.StorageIndex]uint32),
	}
	for idx, slot := range f.slots {
		switch slot.Kind {
		case KindString:
			s.Flowvars[idx] = append([]byte(nil), slot.Str...)
		case KindInt:
			s.Flowints[idx] = slot.Int
		}
	}
	return s
}

// Canonical renders the snapshot as a map suitable for ir.MarshalCanonical.
// Storage indices become decimal string keys.
func (s Snapshot) Canonical() map[string]any {
	vars := make(map[string]any, len(s.Flowvars))
	for idx, v := range s.Flowvars {
		vars[strconv.Itoa(int(idx))] = string(v)
	}
	ints := make(map[string]any, len(s.Flowints))
	for idx, v := range s.Flowints {
		ints[strconv.Itoa(int(idx))] = v
	}
	return map[string]any{
		"token":    s.Token,
		"flowvars": vars,
		"flowints": ints,
	}
}

// SortedIndices returns the storage indices present in m in ascending order.
func SortedIndices[V any](m map[ir.StorageIndex]V) []ir.StorageIndex {
	out := make([]ir.StorageIndex, 0, len(m))
	for idx := range m {
		out = append(out, idx)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
