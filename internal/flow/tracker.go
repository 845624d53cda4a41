package flow

import (
	"sort"
	"sync"

	"github.com/roach88/flowlua/internal/flowlock"
)

// Tracker owns the set of live flows.
//
// Thread-safety: all methods are safe for concurrent use. The tracker's own
// mutex guards only the token map; per-flow state is guarded by each flow's
// lock.
type Tracker struct {
	mu    sync.Mutex
	flows map[string]*Flow

	memcap    *Memcap
	gen       TokenGenerator
	newLocker func() flowlock.RWLocker
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithStringMemcap caps the bytes held by all string slots of all flows.
// limit <= 0 leaves the budget unlimited.
func WithStringMemcap(limit int64) TrackerOption {
	return func(t *Tracker) {
		t.memcap = NewMemcap(limit)
	}
}

// WithTokenGenerator names flows created without a token.
func WithTokenGenerator(gen TokenGenerator) TrackerOption {
	return func(t *Tracker) {
		t.gen = gen
	}
}

// WithLockerFactory supplies the lock of each new flow.
func WithLockerFactory(fn func() flowlock.RWLocker) TrackerOption {
	return func(t *Tracker) {
		t.newLocker = fn
	}
}

// NewTracker creates an empty tracker. Defaults: unlimited memcap, UUIDv7
// tokens, sync.RWMutex locks.
func NewTracker(opts ...TrackerOption) *Tracker {
	t := &Tracker{
		flows:  make(map[string]*Flow),
		memcap: NewMemcap(0),
		gen:    UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Lookup returns the flow for token, creating it on first sight.
// An empty token always creates a new flow with a generated token.
func (t *Tracker) Lookup(token string) *Flow {
	t.mu.Lock()
	defer t.mu.Unlock()

	if token == "" {
		token = t.gen.Generate()
	} else if f, ok := t.flows[token]; ok {
		return f
	}

	opts := []Option{UseMemcap(t.memcap)}
	if t.newLocker != nil {
		opts = append(opts, UseLocker(t.newLocker()))
	}
	f := New(token, opts...)
	t.flows[token] = f
	return f
}

// Get returns the live flow for token without creating it.
func (t *Tracker) Get(token string) (*Flow, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	f, ok := t.flows[token]
	return f, ok
}

// Teardown removes the flow and, holding its exclusive lock, calls fn (if
// non-nil) and then releases every slot. fn runs with the lock held, so
// anything it does to the flow must not lock it again.
// Returns false if no live flow has that token.
func (t *Tracker) Teardown(token string, fn func(*Flow)) bool {
	t.mu.Lock()
	f, ok := t.flows[token]
	if ok {
		delete(t.flows, token)
	}
	t.mu.Unlock()
	if !ok {
		return false
	}

	f.Lock()
	defer f.Unlock()
	if fn != nil {
		fn(f)
	}
	f.Release()
	return true
}

// Len returns the number of live flows.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.flows)
}

// Memcap returns the shared string budget.
func (t *Tracker) Memcap() *Memcap {
	return t.memcap
}

// Snapshots copies every live flow, ordered by token.
func (t *Tracker) Snapshots() []Snapshot {
	t.mu.Lock()
	flows := make([]*Flow, 0, len(t.flows))
	for _, f := range t.flows {
		flows = append(flows, f)
	}
	t.mu.Unlock()

	sort.Slice(flows, func(i, j int) bool { return flows[i].token < flows[j].token })
	out := make([]Snapshot, len(flows))
	for i, f := range flows {
		out[i] = f.Snapshot()
	}
	return out
}
