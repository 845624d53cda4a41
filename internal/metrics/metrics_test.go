package metrics

import (
	"bytes"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordBindingCall(t *testing.T) {
	Register()

	before := testutil.ToFloat64(bindingCalls.WithLabelValues("ScFlowintIncr", ResultOK))
	RecordBindingCall("ScFlowintIncr", ResultOK)
	RecordBindingCall("ScFlowintIncr", ResultOK)
	RecordBindingCall("ScFlowintIncr", "range")

	assert.Equal(t, before+2, testutil.ToFloat64(bindingCalls.WithLabelValues("ScFlowintIncr", ResultOK)))
	assert.GreaterOrEqual(t, testutil.ToFloat64(bindingCalls.WithLabelValues("ScFlowintIncr", "range")), 1.0)
}

func TestRecordPipelineCounters(t *testing.T) {
	Register()

	RecordPacket(3)
	RecordMatch("metrics-test-rule")
	RecordScriptError("metrics-test-rule")
	RecordTeardown()

	assert.GreaterOrEqual(t, testutil.ToFloat64(packets.WithLabelValues("3")), 1.0)
	assert.Equal(t, 1.0, testutil.ToFloat64(ruleMatches.WithLabelValues("metrics-test-rule")))
	assert.Equal(t, 1.0, testutil.ToFloat64(scriptErrors.WithLabelValues("metrics-test-rule")))
	assert.GreaterOrEqual(t, testutil.ToFloat64(teardowns), 1.0)
}

func TestRegisterIsIdempotent(t *testing.T) {
	assert.NotPanics(t, func() {
		Register()
		Register()
	})
}

func TestWriteText(t *testing.T) {
	Register()
	RecordMatch("text-rule")

	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf))

	out := buf.String()
	assert.Contains(t, out, "# TYPE flowlua_rule_matches_total counter")
	assert.Contains(t, out, `flowlua_rule_matches_total{rule="text-rule"} 1`)
}
