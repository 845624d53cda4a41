package engine

import (
	"sync"
)

// packetQueue is a thread-safe FIFO of packets feeding one worker.
//
// The queue is unbounded so the dispatcher never blocks on a slow worker;
// packets of one flow keep their stream order inside a queue.
//
// The queue uses a channel for signaling to enable context-aware waiting
// in the worker loop.
type packetQueue struct {
	mu      sync.Mutex
	packets []Packet
	closed  bool
	signal  chan struct{} // Signals packet availability (buffered, size 1)
}

func newPacketQueue() *packetQueue {
	return &packetQueue{
		packets: make([]Packet, 0, 64),
		signal:  make(chan struct{}, 1),
	}
}

// Enqueue adds a packet to the back of the queue.
// Returns false if the queue is closed.
func (q *packetQueue) Enqueue(p Packet) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.packets = append(q.packets, p)

	// Non-blocking: the buffer of 1 coalesces multiple signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue removes the front packet without blocking.
// Returns (Packet{}, false) if the queue is empty.
func (q *packetQueue) TryDequeue() (Packet, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.packets) == 0 {
		return Packet{}, false
	}

	p := q.packets[0]
	q.packets[0] = Packet{} // release the payload for GC

	if len(q.packets) == 1 {
		q.packets = q.packets[:0]
	} else {
		q.packets = q.packets[1:]
	}

	return p, true
}

// Wait returns a channel that signals when packets may be available.
// After Close the channel is closed and never blocks.
func (q *packetQueue) Wait() <-chan struct{} {
	return q.signal
}

// Drained reports whether the queue is closed and empty.
func (q *packetQueue) Drained() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed && len(q.packets) == 0
}

// Len returns the current queue length.
func (q *packetQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.packets)
}

// Close signals that no more packets will be enqueued and wakes the waiter.
func (q *packetQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	close(q.signal)
}
