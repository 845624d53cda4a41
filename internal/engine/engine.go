package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/flowlua/internal/detect"
	"github.com/roach88/flowlua/internal/flow"
	"github.com/roach88/flowlua/internal/ir"
	"github.com/roach88/flowlua/internal/varid"
)

// Dispatch selects how packets are spread over workers.
type Dispatch string

const (
	// DispatchFlowHash pins every flow to one worker.
	DispatchFlowHash Dispatch = "flow-hash"

	// DispatchRoundRobin spreads packets over workers regardless of flow.
	DispatchRoundRobin Dispatch = "round-robin"
)

// ParseDispatch validates a dispatch mode name. Empty selects flow-hash.
func ParseDispatch(s string) (Dispatch, error) {
	switch Dispatch(s) {
	case "", DispatchFlowHash:
		return DispatchFlowHash, nil
	case DispatchRoundRobin:
		return DispatchRoundRobin, nil
	default:
		return "", &RuntimeError{
			Code:    ErrCodeInvalidDispatch,
			Message: fmt.Sprintf("unknown dispatch mode %q (want %s or %s)", s, DispatchFlowHash, DispatchRoundRobin),
		}
	}
}

// Engine replays packet streams through a fixed rule set.
//
// Thread-safety model:
//   - Run(): one call at a time
//   - Tracker(): the tracker itself is safe for concurrent use
//
// INVARIANTS:
//   - rules slice order NEVER changes after construction; every packet is
//     evaluated against the rules in declaration order
//   - Rule names are unique
type Engine struct {
	tracker  *flow.Tracker
	rules    []installedRule
	clock    *Clock
	workers  int
	dispatch Dispatch
	sink     detect.CallSink
	logger   *slog.Logger
}

// installedRule is a rule with its id table built.
type installedRule struct {
	name   string
	script string
	table  *varid.Table
}

// Option allows configuration of engine parameters.
type Option func(*Engine)

// WithWorkers sets the worker count. Values below 1 select 1.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		e.workers = n
	}
}

// WithDispatch sets the dispatch mode. Default: flow-hash.
func WithDispatch(d Dispatch) Option {
	return func(e *Engine) {
		e.dispatch = d
	}
}

// WithSink sends every binding call and rule match to sink.
// The sink is shared by all workers and must be safe for concurrent use.
func WithSink(sink detect.CallSink) Option {
	return func(e *Engine) {
		e.sink = sink
	}
}

// WithLogger sets the logger of the engine and its Lua runtimes.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithClock sets the clock packets are stamped from.
func WithClock(c *Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// New creates an Engine evaluating rules against flows of tracker.
//
// The rules slice is copied; evaluation follows its order.
func New(tracker *flow.Tracker, rules []ir.Rule, opts ...Option) (*Engine, error) {
	e := &Engine{
		tracker:  tracker,
		clock:    NewClock(),
		workers:  1,
		dispatch: DispatchFlowHash,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.workers < 1 {
		e.workers = 1
	}
	if _, err := ParseDispatch(string(e.dispatch)); err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(rules))
	e.rules = make([]installedRule, 0, len(rules))
	for _, r := range rules {
		if r.Name == "" {
			return nil, &RuntimeError{Code: ErrCodeInvalidRule, Message: "rule has no name"}
		}
		if seen[r.Name] {
			return nil, &RuntimeError{Code: ErrCodeInvalidRule, Message: "duplicate rule name", Rule: r.Name}
		}
		seen[r.Name] = true

		table, err := varid.NewTable(r.Flowvars, r.Flowints)
		if err != nil {
			return nil, &RuntimeError{Code: ErrCodeInvalidRule, Message: err.Error(), Rule: r.Name, Err: err}
		}
		e.rules = append(e.rules, installedRule{name: r.Name, script: r.Script, table: table})
	}

	return e, nil
}

// Tracker returns the flow tracker the engine evaluates against.
func (e *Engine) Tracker() *flow.Tracker { return e.tracker }

// Clock returns the engine's packet clock.
func (e *Engine) Clock() *Clock { return e.clock }

// Run evaluates packets and blocks until every packet is processed or ctx
// is cancelled. Script errors do not stop the run; they are reported in
// the returned Stats.
//
// Workers keep no state between runs: flows persist in the tracker, so a
// second Run continues the same flows.
func (e *Engine) Run(ctx context.Context, packets []Packet) (*Stats, error) {
	e.logger.Info("engine starting",
		"workers", e.workers,
		"dispatch", string(e.dispatch),
		"rules", len(e.rules),
		"packets", len(packets),
	)

	workers := make([]*worker, 0, e.workers)
	defer func() {
		for _, w := range workers {
			w.close()
		}
	}()
	for i := 0; i < e.workers; i++ {
		w, err := e.newWorker(i)
		if err != nil {
			return nil, err
		}
		workers = append(workers, w)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, w := range workers {
		g.Go(func() error {
			return w.run(gctx)
		})
	}
	g.Go(func() error {
		return e.dispatchAll(gctx, packets, workers)
	})
	err := g.Wait()

	stats := newStats(len(workers))
	for _, w := range workers {
		stats.merge(w.id, w.stats)
	}
	stats.LastSeq = e.clock.Current()
	stats.sortErrors()

	if err != nil {
		e.logger.Warn("engine stopped early", "error", err, "packets", stats.Packets)
		return stats, err
	}

	e.logger.Info("engine stopped",
		"packets", stats.Packets,
		"matches", stats.TotalMatches(),
		"script_errors", stats.ScriptErrors,
	)
	return stats, nil
}

// dispatchAll stamps packets in stream order and routes them to worker
// queues. All queues are closed on return so workers drain and exit.
func (e *Engine) dispatchAll(ctx context.Context, packets []Packet, workers []*worker) error {
	defer func() {
		for _, w := range workers {
			w.queue.Close()
		}
	}()

	for i, p := range packets {
		if err := ctx.Err(); err != nil {
			return err
		}
		p.Seq = e.clock.Next()
		w := workers[e.route(i, p, len(workers))]
		w.queue.Enqueue(p)
	}
	return nil
}

// route picks the worker of the i-th packet.
func (e *Engine) route(i int, p Packet, n int) int {
	if n == 1 {
		return 0
	}
	if e.dispatch == DispatchRoundRobin {
		return i % n
	}
	return int(xxhash.Sum64String(p.FlowToken) % uint64(n))
}
