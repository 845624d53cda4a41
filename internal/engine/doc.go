// Package engine replays packet streams through the rule scripts.
//
// ARCHITECTURE:
//
// Dispatcher plus worker pool:
// The dispatcher walks the packet stream in order, stamps each packet with a
// seq from the Clock, and hands it to one worker queue. Workers run in an
// errgroup; each owns one Lua runtime per rule and a detection context, none
// of which are shared.
//
// Dispatch modes:
//   - flow-hash: every packet of a flow goes to the same worker, so a flow's
//     packets are evaluated in stream order
//   - round-robin: packets are spread regardless of flow, so several workers
//     touch the same flow at once and the flow lock does the ordering
//
// Packet evaluation:
//  1. Look up (or create) the packet's flow in the tracker
//  2. Publish the call context into each rule's runtime and call match(packet)
//  3. Reset the context; a true result is a match
//
// Packets flagged locked are evaluated with the flow's exclusive lock held
// across all rules (hint LockedByCaller). Teardown packets are evaluated
// inside Tracker.Teardown, also with the lock held, after which the flow's
// variables are released.
//
// ERROR HANDLING:
// A Lua error raised by a script is logged, counted and recorded in the run
// statistics; the worker carries on with the next rule. Only setup failures
// and context cancellation end a run early.
package engine
