package store

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/roach88/flowlua/internal/detect"
)

// DefaultSinkBuffer is the number of records a Sink queues ahead of its
// writer.
const DefaultSinkBuffer = 1024

// Sink adapts a Store to detect.CallSink and detect.MatchSink.
//
// Records are queued on a buffered channel and written by a single writer
// goroutine, so a bound call never waits on the database, even when it runs
// under a flow's exclusive lock. A full buffer makes RecordCall wait for the
// writer to catch up. Write failures are logged and counted; they never
// reach the script.
//
// Close must be called once the engine has stopped; it flushes the queue.
//
// Thread-safety: safe for concurrent use by all workers.
type Sink struct {
	store *Store
	ctx   context.Context

	records chan record
	done    chan struct{}

	// mu orders sends against Close so nothing is sent on a closed channel.
	mu     sync.RWMutex
	closed bool

	failures atomic.Int64
}

// record is one queued row: exactly one of call or match is set.
type record struct {
	call  *detect.Call
	match *detect.Match
}

// SinkOption configures a Sink.
type SinkOption func(*Sink)

// WithBuffer sets the queue length. Values below 1 keep the default.
func WithBuffer(n int) SinkOption {
	return func(k *Sink) {
		if n > 0 {
			k.records = make(chan record, n)
		}
	}
}

// NewSink returns a sink writing to s with ctx and starts its writer.
func NewSink(ctx context.Context, s *Store, opts ...SinkOption) *Sink {
	k := &Sink{
		store:   s,
		ctx:     ctx,
		records: make(chan record, DefaultSinkBuffer),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(k)
	}
	go k.write()
	return k
}

// RecordCall implements detect.CallSink.
func (k *Sink) RecordCall(c detect.Call) {
	k.enqueue(record{call: &c})
}

// RecordMatch implements detect.MatchSink.
func (k *Sink) RecordMatch(m detect.Match) {
	k.enqueue(record{match: &m})
}

func (k *Sink) enqueue(r record) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if k.closed {
		k.failures.Add(1)
		slog.Warn("audit log record after close dropped")
		return
	}
	k.records <- r
}

// write drains the queue until Close.
func (k *Sink) write() {
	defer close(k.done)
	for r := range k.records {
		switch {
		case r.call != nil:
			if err := k.store.WriteCall(k.ctx, *r.call); err != nil {
				k.failures.Add(1)
				slog.Warn("audit log write failed", "binding", r.call.Binding, "seq", r.call.Seq, "error", err)
			}
		case r.match != nil:
			if err := k.store.WriteMatch(k.ctx, *r.match); err != nil {
				k.failures.Add(1)
				slog.Warn("audit log write failed", "rule", r.match.Rule, "seq", r.match.Seq, "error", err)
			}
		}
	}
}

// Close stops accepting records and waits until every queued record is
// written. It is safe to call more than once.
func (k *Sink) Close() error {
	k.mu.Lock()
	if !k.closed {
		k.closed = true
		close(k.records)
	}
	k.mu.Unlock()
	<-k.done
	return nil
}

// Failures returns how many records were not written. The count is final
// after Close.
func (k *Sink) Failures() int64 {
	return k.failures.Load()
}
