// Package flow owns flow-attached variable slots and flow lifetime.
//
// A Flow is the per-session state a detection script can see: a map from
// storage index to Slot, guarded by a reader/writer lock. Slot methods named
// NoLock, GetSlot and Release assume the caller holds the flow lock (shared
// for GetSlot, exclusive for the rest); SetStringSlot and SetIntSlot take the
// exclusive lock themselves.
//
// String slot bytes are charged against an optional Memcap shared by all
// flows of a Tracker. Buffers are reserved with AllocString before the lock
// is taken and returned to the memcap when the slot is overwritten or the
// flow is torn down.
//
// The Tracker creates flows on first sight of a token and tears them down,
// running a final callback with the exclusive lock held. Once torn down a
// flow drops all writes so a straggling worker cannot leak buffers into it.
package flow
