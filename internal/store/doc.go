// Package store provides the SQLite-backed audit log of a packet replay.
//
// The log is append-only and holds two tables:
//   - calls: one row per flow variable binding call made by a script
//   - matches: one row per packet a rule matched
//
// # Ordering
//
// Rows carry the packet sequence number. Every query orders by
// seq ASC, id ASC: a packet is evaluated by a single worker, so the
// autoincrement id preserves call order within a packet and the result is
// identical across runs regardless of worker count.
//
// # Payloads
//
// Call arguments and results are stored as canonical JSON (ir.MarshalCanonical)
// so golden traces compare byte for byte.
//
// # Sink
//
// Workers log through a Sink, which queues records for a single writer
// goroutine. Close it after the run to flush the queue before reading.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
package store
