// Package testutil holds test doubles shared across packages.
package testutil

import (
	"sync"
	"sync/atomic"
	"testing"
)

// ReentryLocker is a flow lock double that reports re-entry.
//
// Hold simulates a pipeline that already owns the flow's exclusive lock.
// While held, any RLock or Lock call is a re-entry that would deadlock a real
// sync.RWMutex: the double reports it through t.Errorf and returns without
// blocking so the test finishes. Outside Hold it behaves like a
// sync.RWMutex.
//
// Thread-safety: safe for concurrent use.
type ReentryLocker struct {
	mu           sync.RWMutex
	t            testing.TB
	held         atomic.Bool
	acquisitions atomic.Int64
}

// NewReentryLocker creates a lock double reporting to t.
func NewReentryLocker(t testing.TB) *ReentryLocker {
	return &ReentryLocker{t: t}
}

// Hold takes the exclusive lock on behalf of the simulated caller.
func (l *ReentryLocker) Hold() {
	l.mu.Lock()
	l.held.Store(true)
}

// Drop releases the lock taken by Hold.
func (l *ReentryLocker) Drop() {
	l.held.Store(false)
	l.mu.Unlock()
}

// Acquisitions returns how many RLock/Lock calls the code under test made.
func (l *ReentryLocker) Acquisitions() int64 {
	return l.acquisitions.Load()
}

// RLock implements flowlock.RWLocker.
func (l *ReentryLocker) RLock() {
	l.acquisitions.Add(1)
	if l.held.Load() {
		l.t.Helper()
		l.t.Errorf("RLock on a flow lock already held by the caller: would deadlock")
		return
	}
	l.mu.RLock()
}

// RUnlock implements flowlock.RWLocker.
func (l *ReentryLocker) RUnlock() {
	if l.held.Load() {
		return
	}
	l.mu.RUnlock()
}

// Lock implements flowlock.RWLocker.
func (l *ReentryLocker) Lock() {
	l.acquisitions.Add(1)
	if l.held.Load() {
		l.t.Helper()
		l.t.Errorf("Lock on a flow lock already held by the caller: would deadlock")
		return
	}
	l.mu.Lock()
}

// Unlock implements flowlock.RWLocker.
func (l *ReentryLocker) Unlock() {
	if l.held.Load() {
		return
	}
	l.mu.Unlock()
}
