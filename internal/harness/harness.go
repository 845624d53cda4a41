package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/flowlua/internal/compiler"
	"github.com/roach88/flowlua/internal/engine"
	"github.com/roach88/flowlua/internal/flow"
	"github.com/roach88/flowlua/internal/ir"
	"github.com/roach88/flowlua/internal/store"
)

// TokenPrefix names flows created for packets without a flow token.
const TokenPrefix = "gen"

// Run executes a test scenario and returns the result.
//
// Each scenario runs against a fresh tracker and in-memory audit log for
// isolation. extra rules are appended after the scenario's own rules.
//
// Execution flow:
// 1. Validate the rule set and install it in a new engine
// 2. Replay the packet stream
// 3. Read back the audit log and snapshot live flows
// 4. Evaluate assertions
//
// An error is returned only when the scenario could not run at all;
// failed assertions are reported in the result.
func Run(scenario *Scenario, extra ...ir.Rule) (*Result, error) {
	ctx := context.Background()

	rules := append(scenario.IRRules(), extra...)
	if verrs := compiler.ValidateRules(rules); len(verrs) > 0 {
		return nil, fmt.Errorf("invalid rule set: %w", verrs[0])
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	// Suppress logs in tests
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	dispatch := engine.DispatchFlowHash
	if scenario.Dispatch != "" {
		dispatch, err = engine.ParseDispatch(scenario.Dispatch)
		if err != nil {
			return nil, err
		}
	}

	tracker := flow.NewTracker(
		flow.WithStringMemcap(scenario.Memcap),
		flow.WithTokenGenerator(flow.NewSequenceGenerator(TokenPrefix)),
	)
	sink := store.NewSink(ctx, st)
	defer sink.Close()
	eng, err := engine.New(tracker, rules,
		engine.WithWorkers(scenario.Workers),
		engine.WithDispatch(dispatch),
		engine.WithSink(sink),
		engine.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	stats, err := eng.Run(ctx, scenario.Packets)
	if err != nil {
		return nil, fmt.Errorf("failed to run packets: %w", err)
	}
	if err := sink.Close(); err != nil {
		return nil, fmt.Errorf("failed to flush audit log: %w", err)
	}
	if n := sink.Failures(); n > 0 {
		return nil, fmt.Errorf("audit log dropped %d record(s)", n)
	}

	result := NewResult()
	result.Stats = stats
	for _, snap := range tracker.Snapshots() {
		result.Flows[snap.Token] = snap
	}
	if result.Calls, err = st.ReadCalls(ctx, store.CallFilter{}); err != nil {
		return nil, fmt.Errorf("failed to read calls: %w", err)
	}
	if result.Matches, err = st.ReadMatches(ctx, ""); err != nil {
		return nil, fmt.Errorf("failed to read matches: %w", err)
	}

	logger.Info("scenario executed",
		"scenario", scenario.Name,
		"packets", stats.Packets,
		"calls", len(result.Calls),
		"matches", len(result.Matches),
	)

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}

	return result, nil
}
