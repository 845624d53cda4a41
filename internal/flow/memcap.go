package flow

import (
	"errors"
	"sync/atomic"
)

// ErrMemcapExceeded is returned by AllocString when the memcap is exhausted.
var ErrMemcapExceeded = errors.New("flowvar memcap exceeded")

// Memcap is a byte budget shared by string slots.
// A nil *Memcap is unlimited. Safe for concurrent use.
type Memcap struct {
	limit int64
	used  atomic.Int64
}

// NewMemcap returns a budget of limit bytes. limit <= 0 means unlimited.
func NewMemcap(limit int64) *Memcap {
	return &Memcap{limit: limit}
}

// Reserve charges n bytes. Returns false, charging nothing, if that would
// exceed the limit.
func (m *Memcap) Reserve(n int) bool {
	if m == nil || n <= 0 {
		return true
	}
	for {
		cur := m.used.Load()
		next := cur + int64(n)
		if m.limit > 0 && next > m.limit {
			return false
		}
		if m.used.CompareAndSwap(cur, next) {
			return true
		}
	}
}

// Release returns n bytes to the budget.
func (m *Memcap) Release(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.used.Add(-int64(n))
}

// Used returns the bytes currently charged.
func (m *Memcap) Used() int64 {
	if m == nil {
		return 0
	}
	return m.used.Load()
}

// Limit returns the configured limit, 0 when unlimited.
func (m *Memcap) Limit() int64 {
	if m == nil || m.limit < 0 {
		return 0
	}
	return m.limit
}
