package flowlock

// Read runs fn under the shared lock unless the caller holds the lock.
// The lock is released before Read returns, including when fn panics.
func Read(l RWLocker, h Hint, fn func() error) error {
	if !h.Valid() {
		return ErrInvalidHint
	}
	if h == NotLockedByCaller {
		l.RLock()
		defer l.RUnlock()
	}
	return fn()
}

// Write runs fn under the exclusive lock unless the caller holds the lock.
// fn is a single critical section: a read-modify-write inside it cannot
// interleave with any other Read or Write on the same lock.
func Write(l RWLocker, h Hint, fn func() error) error {
	if !h.Valid() {
		return ErrInvalidHint
	}
	if h == NotLockedByCaller {
		l.Lock()
		defer l.Unlock()
	}
	return fn()
}

// Store runs the setter matching h: locking when the caller holds nothing,
// noLock when it already holds the exclusive lock.
func Store(h Hint, locking, noLock func()) error {
	switch {
	case !h.Valid():
		return ErrInvalidHint
	case h == LockedByCaller:
		noLock()
	default:
		locking()
	}
	return nil
}
