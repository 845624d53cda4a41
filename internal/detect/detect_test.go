package detect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memSink struct {
	calls []Call
}

func (m *memSink) RecordCall(c Call) { m.calls = append(m.calls, c) }

type fullSink struct {
	memSink
	matches []Match
}

func (f *fullSink) RecordMatch(m Match) { f.matches = append(f.matches, m) }

func TestRecordStampsCall(t *testing.T) {
	sink := &memSink{}
	d := NewThreadCtx(3, sink)
	d.Begin(17, "http-count")

	d.Record(Call{FlowToken: "f", Binding: "ScFlowintIncr", Args: []any{0}, Result: uint32(1)})

	require.Len(t, sink.calls, 1)
	c := sink.calls[0]
	assert.Equal(t, int64(17), c.Seq)
	assert.Equal(t, 3, c.Worker)
	assert.Equal(t, "http-count", c.Rule)
	assert.Equal(t, "f", c.FlowToken)
}

func TestRecordNilSafe(t *testing.T) {
	var d *ThreadCtx
	d.Record(Call{})

	d = NewThreadCtx(0, nil)
	d.Record(Call{})
}

func TestRecordMatch(t *testing.T) {
	sink := &fullSink{}
	d := NewThreadCtx(1, sink)
	d.Begin(4, "login")

	d.RecordMatch("flow-1")

	require.Len(t, sink.matches, 1)
	assert.Equal(t, Match{Seq: 4, Worker: 1, FlowToken: "flow-1", Rule: "login"}, sink.matches[0])
}

func TestRecordMatchIgnoredByCallOnlySink(t *testing.T) {
	sink := &memSink{}
	d := NewThreadCtx(1, sink)

	assert.NotPanics(t, func() { d.RecordMatch("flow-1") })
	assert.Empty(t, sink.calls)
}
