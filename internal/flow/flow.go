package flow

import (
	"sync"

	"github.com/roach88/flowlua/internal/flowlock"
	"github.com/roach88/flowlua/internal/ir"
)

// Kind tags the value held by a Slot.
type Kind uint8

const (
	// KindString marks a flowvar byte buffer.
	KindString Kind = iota + 1
	// KindInt marks a flowint value.
	KindInt
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	default:
		return "unknown"
	}
}

// Slot is one flow variable.
// Str is owned by the flow; callers must copy it before releasing the lock.
type Slot struct {
	Kind Kind
	Str  []byte
	Int  uint32
}

// Flow holds the variables of one network flow.
type Flow struct {
	token  string
	lock   flowlock.RWLocker
	memcap *Memcap

	// Guarded by lock.
	slots map[ir.StorageIndex]*Slot
	dead  bool
}

// Option configures a Flow.
type Option func(*Flow)

// UseLocker replaces the default sync.RWMutex. Used by tests to inject
// lock doubles.
func UseLocker(l flowlock.RWLocker) Option {
	return func(f *Flow) {
		f.lock = l
	}
}

// UseMemcap charges string slots against m.
func UseMemcap(m *Memcap) Option {
	return func(f *Flow) {
		f.memcap = m
	}
}

// New creates an empty flow.
func New(token string, opts ...Option) *Flow {
	f := &Flow{
		token: token,
		slots: make(map[ir.StorageIndex]*Slot),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.lock == nil {
		f.lock = &sync.RWMutex{}
	}
	return f
}

// Token returns the flow's identity.
func (f *Flow) Token() string { return f.token }

// RLock takes the flow lock shared.
func (f *Flow) RLock() { f.lock.RLock() }

// RUnlock releases a shared lock.
func (f *Flow) RUnlock() { f.lock.RUnlock() }

// Lock takes the flow lock exclusively.
func (f *Flow) Lock() { f.lock.Lock() }

// Unlock releases the exclusive lock.
func (f *Flow) Unlock() { f.lock.Unlock() }

// GetSlot returns the slot at idx or nil. Caller holds the lock.
func (f *Flow) GetSlot(idx ir.StorageIndex) *Slot {
	return f.slots[idx]
}

// AllocString returns an n-byte buffer charged against the flow's memcap.
// The buffer must be handed to SetStringSlot/SetStringSlotNoLock or given
// back with FreeString.
func (f *Flow) AllocString(n int) ([]byte, error) {
	if !f.memcap.Reserve(n) {
		return nil, ErrMemcapExceeded
	}
	return make([]byte, n), nil
}

// FreeString returns an unused AllocString buffer to the memcap.
func (f *Flow) FreeString(buf []byte) {
	f.memcap.Release(len(buf))
}

// SetStringSlot stores buf at idx under the exclusive lock.
func (f *Flow) SetStringSlot(idx ir.StorageIndex, buf []byte) {
	f.Lock()
	defer f.Unlock()
	f.SetStringSlotNoLock(idx, buf)
}

// SetStringSlotNoLock stores buf at idx, taking ownership of it and
// releasing any previous buffer. Caller holds the exclusive lock.
func (f *Flow) SetStringSlotNoLock(idx ir.StorageIndex, buf []byte) {
	if f.dead {
		f.memcap.Release(len(buf))
		return
	}
	if old := f.slots[idx]; old != nil {
		f.memcap.Release(len(old.Str))
	}
	f.slots[idx] = &Slot{Kind: KindString, Str: buf}
}

// SetIntSlot stores v at idx under the exclusive lock.
func (f *Flow) SetIntSlot(idx ir.StorageIndex, v uint32) {
	f.Lock()
	defer f.Unlock()
	f.SetIntSlotNoLock(idx, v)
}

// SetIntSlotNoLock stores v at idx, replacing any previous slot.
// Caller holds the exclusive lock.
func (f *Flow) SetIntSlotNoLock(idx ir.StorageIndex, v uint32) {
	if f.dead {
		return
	}
	if old := f.slots[idx]; old != nil {
		if old.Kind == KindInt {
			old.Int = v
			return
		}
		f.memcap.Release(len(old.Str))
	}
	f.slots[idx] = &Slot{Kind: KindInt, Int: v}
}

// Release drops every slot and marks the flow dead; later writes are
// discarded. Caller holds the exclusive lock.
func (f *Flow) Release() {
	for idx, s := range f.slots {
		f.memcap.Release(len(s.Str))
		delete(f.slots, idx)
	}
	f.dead = true
}

// Dead reports whether the flow was torn down. Caller holds a lock.
func (f *Flow) Dead() bool { return f.dead }

// Len returns the number of slots. Caller holds a lock.
func (f *Flow) Len() int { return len(f.slots) }
