// Package flowlock decides who takes a flow's lock.
//
// The pipeline sometimes already holds a flow's exclusive lock when it runs
// scripts (multi-rule evaluation, flow teardown). Re-locking a sync.RWMutex
// from the same goroutine deadlocks, so every script call carries a Hint
// saying whether the caller holds the lock. Read and Write apply the rule:
//
//	hint               read            write
//	NotLockedByCaller  RLock/RUnlock   Lock/Unlock around the whole fn
//	LockedByCaller     no locking      no locking
//
// A caller passing LockedByCaller must hold the exclusive lock; a shared lock
// is not enough for writes.
package flowlock

import (
	"errors"
	"fmt"
)

// Hint states whether the caller already holds the flow lock.
type Hint uint8

const (
	// NotLockedByCaller means the operation must take the lock itself.
	NotLockedByCaller Hint = iota
	// LockedByCaller means the caller holds the exclusive lock.
	LockedByCaller
)

// ErrInvalidHint is returned for a hint value outside the defined set.
var ErrInvalidHint = errors.New("invalid lock hint")

// String returns a short name for logs.
func (h Hint) String() string {
	switch h {
	case NotLockedByCaller:
		return "not-locked"
	case LockedByCaller:
		return "locked-by-caller"
	default:
		return fmt.Sprintf("hint(%d)", uint8(h))
	}
}

// Valid reports whether h is one of the defined hints.
func (h Hint) Valid() bool {
	return h == NotLockedByCaller || h == LockedByCaller
}

// RWLocker is the lock a flow exposes. *sync.RWMutex satisfies it.
type RWLocker interface {
	RLock()
	RUnlock()
	Lock()
	Unlock()
}
