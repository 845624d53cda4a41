package engine

import (
	"context"
	"errors"
	"fmt"

	lua "github.com/yuin/gopher-lua"

	"github.com/roach88/flowlua/internal/detect"
	"github.com/roach88/flowlua/internal/flow"
	"github.com/roach88/flowlua/internal/flowlock"
	"github.com/roach88/flowlua/internal/ir"
	"github.com/roach88/flowlua/internal/luaext"
	"github.com/roach88/flowlua/internal/metrics"
)

// worker owns one Lua runtime per rule and a detection context.
// Everything except the queue is touched only by the worker goroutine.
type worker struct {
	id       int
	engine   *Engine
	queue    *packetQueue
	det      *detect.ThreadCtx
	runtimes []*luaext.Runtime
	stats    *Stats
}

func (e *Engine) newWorker(id int) (*worker, error) {
	w := &worker{
		id:     id,
		engine: e,
		queue:  newPacketQueue(),
		det:    detect.NewThreadCtx(id, e.sink),
		stats:  newStats(0),
	}
	for _, r := range e.rules {
		rt := luaext.NewRuntime(luaext.WithLogger(e.logger))
		rt.RegisterBindings()
		w.runtimes = append(w.runtimes, rt)

		if err := rt.Load(r.script); err != nil {
			w.close()
			return nil, &RuntimeError{Code: ErrCodeScriptLoad, Message: err.Error(), Rule: r.name, Err: err}
		}
		if _, ok := rt.State().GetGlobal(ir.MatchFunction).(*lua.LFunction); !ok {
			w.close()
			return nil, &RuntimeError{
				Code:    ErrCodeScriptLoad,
				Message: fmt.Sprintf("script does not define %s(packet)", ir.MatchFunction),
				Rule:    r.name,
				Err:     luaext.ErrNotFunction,
			}
		}
	}
	return w, nil
}

func (w *worker) close() {
	for _, rt := range w.runtimes {
		rt.Close()
	}
	w.runtimes = nil
}

// run processes queued packets until the queue is drained or ctx is done.
func (w *worker) run(ctx context.Context) error {
	for {
		if p, ok := w.queue.TryDequeue(); ok {
			w.process(p)
			continue
		}
		if w.queue.Drained() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.queue.Wait():
		}
	}
}

func (w *worker) process(p Packet) {
	tracker := w.engine.tracker
	f := tracker.Lookup(p.FlowToken)
	w.stats.Packets++
	metrics.RecordPacket(w.id)

	switch {
	case p.Teardown:
		if tracker.Teardown(f.Token(), func(f *flow.Flow) {
			w.evaluate(p, f, flowlock.LockedByCaller)
		}) {
			w.stats.Teardowns++
			metrics.RecordTeardown()
		}
	case p.Locked:
		w.evaluateLocked(p, f)
	default:
		w.evaluate(p, f, flowlock.NotLockedByCaller)
	}
}

// evaluateLocked runs all rules as one critical section on f.
func (w *worker) evaluateLocked(p Packet, f *flow.Flow) {
	f.Lock()
	defer f.Unlock()
	w.evaluate(p, f, flowlock.LockedByCaller)
}

// evaluate calls every rule's match function for p, in rule order.
// hint must reflect whether this goroutine holds f's lock.
func (w *worker) evaluate(p Packet, f *flow.Flow, hint flowlock.Hint) {
	for i, r := range w.engine.rules {
		rt := w.runtimes[i]

		w.det.Begin(p.Seq, r.name)
		rt.PublishContext(r.table, w.det, f, hint)
		ret, err := rt.Call(ir.MatchFunction, packetTable(rt.State(), p, f.Token()))
		rt.ResetContext()

		if err != nil {
			w.scriptError(r.name, p, f.Token(), err)
			continue
		}
		if lua.LVAsBool(ret) {
			w.stats.addMatch(r.name)
			metrics.RecordMatch(r.name)
			w.det.RecordMatch(f.Token())
		}
	}
}

func (w *worker) scriptError(rule string, p Packet, token string, err error) {
	var apiErr *lua.ApiError
	if !errors.As(err, &apiErr) {
		err = fmt.Errorf("call %s: %w", ir.MatchFunction, err)
	}
	re := newScriptError(rule, p, token, err)
	w.stats.ScriptErrors++
	w.stats.Errors = append(w.stats.Errors, re)
	metrics.RecordScriptError(rule)
	w.engine.logger.Warn("rule script error",
		"rule", rule,
		"seq", p.Seq,
		"flow", token,
		"worker", w.id,
		"error", err,
	)
}

// packetTable builds the argument of match: {seq, flow, payload, locked}.
func packetTable(L *lua.LState, p Packet, token string) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("seq", lua.LNumber(p.Seq))
	t.RawSetString("flow", lua.LString(token))
	t.RawSetString("payload", lua.LString(p.Payload))
	t.RawSetString("locked", lua.LBool(p.Locked || p.Teardown))
	t.RawSetString("teardown", lua.LBool(p.Teardown))
	return t
}
