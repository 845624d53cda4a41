// Package detect holds the per-worker detection context threaded into every
// script call.
package detect

// Call describes one bound-function invocation for the audit log.
type Call struct {
	Seq       int64
	Worker    int
	FlowToken string
	Rule      string
	Binding   string
	Args      []any
	Result    any
	Err       string
}

// Match describes one rule match for the audit log.
type Match struct {
	Seq       int64
	Worker    int
	FlowToken string
	Rule      string
}

// MatchSink is implemented by sinks that also log rule matches.
type MatchSink interface {
	RecordMatch(m Match)
}

// CallSink receives a Call after every bound-function invocation.
// Implementations must not block for long: they run on the worker goroutine.
type CallSink interface {
	RecordCall(c Call)
}

// ThreadCtx is the detection context of one worker goroutine.
// It is owned by that worker and never shared.
type ThreadCtx struct {
	WorkerID  int
	PacketSeq int64
	Rule      string
	Sink      CallSink
}

// NewThreadCtx creates the context of worker id. sink may be nil.
func NewThreadCtx(id int, sink CallSink) *ThreadCtx {
	return &ThreadCtx{WorkerID: id, Sink: sink}
}

// Begin marks the start of rule evaluation for packet seq.
func (d *ThreadCtx) Begin(seq int64, rule string) {
	d.PacketSeq = seq
	d.Rule = rule
}

// Record stamps c with the current packet and rule and forwards it to the
// sink. A nil context or nil sink drops the call.
func (d *ThreadCtx) Record(c Call) {
	if d == nil || d.Sink == nil {
		return
	}
	c.Seq = d.PacketSeq
	c.Worker = d.WorkerID
	c.Rule = d.Rule
	d.Sink.RecordCall(c)
}

// RecordMatch forwards a match of the current rule on flow token to the
// sink, if the sink accepts matches.
func (d *ThreadCtx) RecordMatch(token string) {
	if d == nil || d.Sink == nil {
		return
	}
	ms, ok := d.Sink.(MatchSink)
	if !ok {
		return
	}
	ms.RecordMatch(Match{
		Seq:       d.PacketSeq,
		Worker:    d.WorkerID,
		FlowToken: token,
		Rule:      d.Rule,
	})
}
