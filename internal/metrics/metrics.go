// Package metrics holds the Prometheus counters of the packet pipeline.
//
// Counters live on the package Registry rather than the global default
// registerer so a process can embed several engines in tests without
// duplicate registration panics.
package metrics

import (
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

const subsystem = "flowlua"

// ResultOK labels a binding call that succeeded.
const ResultOK = "ok"

// Registry is the registry every counter of this package is registered on.
var Registry = prometheus.NewRegistry()

var (
	bindingCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Subsystem: subsystem,
			Name:      "binding_calls_total",
			Help:      "Count of flow variable binding calls made by scripts, by binding and result.",
		},
		[]string{"binding", "result"},
	)
	packets = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Subsystem: subsystem,
			Name:      "packets_total",
			Help:      "Count of packets evaluated, by worker.",
		},
		[]string{"worker"},
	)
	ruleMatches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Subsystem: subsystem,
			Name:      "rule_matches_total",
			Help:      "Count of packets a rule's match function returned true for.",
		},
		[]string{"rule"},
	)
	scriptErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Subsystem: subsystem,
			Name:      "script_errors_total",
			Help:      "Count of Lua runtime errors raised while evaluating a rule.",
		},
		[]string{"rule"},
	)
	teardowns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Subsystem: subsystem,
			Name:      "flow_teardowns_total",
			Help:      "Count of flows torn down by the tracker.",
		},
		[]string{},
	)
)

var registerMetrics sync.Once

// Register all metrics.
func Register() {
	registerMetrics.Do(func() {
		Registry.MustRegister(bindingCalls)
		Registry.MustRegister(packets)
		Registry.MustRegister(ruleMatches)
		Registry.MustRegister(scriptErrors)
		Registry.MustRegister(teardowns)
	})
}

// RecordBindingCall records one call of binding with the given result label.
func RecordBindingCall(binding, result string) {
	bindingCalls.WithLabelValues(binding, result).Inc()
}

// RecordPacket records one packet evaluated by worker.
func RecordPacket(worker int) {
	packets.WithLabelValues(strconv.Itoa(worker)).Inc()
}

// RecordMatch records a match of rule.
func RecordMatch(rule string) {
	ruleMatches.WithLabelValues(rule).Inc()
}

// RecordScriptError records a Lua error raised while evaluating rule.
func RecordScriptError(rule string) {
	scriptErrors.WithLabelValues(rule).Inc()
}

// RecordTeardown records one flow teardown.
func RecordTeardown() {
	teardowns.WithLabelValues().Inc()
}

// WriteText writes every registered metric family to w in the Prometheus
// text exposition format.
func WriteText(w io.Writer) error {
	mfs, err := Registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	return writeFamilies(w, mfs)
}

func writeFamilies(w io.Writer, mfs []*dto.MetricFamily) error {
	for _, mf := range mfs {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("write metric family %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
