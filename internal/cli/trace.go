package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/flowlua/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database  string
	FlowToken string
	Binding   string
	Rule      string
	Failed    bool
	Summary   bool
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	FlowToken string              `json:"flow_token,omitempty"`
	Calls     []store.CallRecord  `json:"calls"`
	Matches   []store.MatchRecord `json:"matches"`
	Stats     TraceStats          `json:"stats"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	Calls    int `json:"calls"`
	Failures int `json:"failures"`
	Matches  int `json:"matches"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Query the audit log of a run",
		Long: `Query the audit log written by "flowlua run --db".

Shows every bound function call with its arguments and result or error
message, plus the rule matches, in packet order. Filters narrow the
calls; matches follow the --flow filter only.

Examples:
  flowlua trace --db ./audit.db
  flowlua trace --db ./audit.db --flow 0190a1b2-... --binding ScFlowvarSet
  flowlua trace --db ./audit.db --rule count --failed
  flowlua trace --db ./audit.db --summary --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite audit log (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.FlowToken, "flow", "", "only this flow")
	cmd.Flags().StringVar(&opts.Binding, "binding", "", "only calls of this bound function")
	cmd.Flags().StringVar(&opts.Rule, "rule", "", "only calls made by this rule")
	cmd.Flags().BoolVar(&opts.Failed, "failed", false, "only calls that returned an error")
	cmd.Flags().BoolVar(&opts.Summary, "summary", false, "per-flow counts instead of the call list")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := NewOutputFormatter(opts.RootOptions, cmd)

	if _, err := statFile(opts.Database); err != nil {
		return WrapExitError(ExitCommandError, "database not found", err)
	}
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	if opts.Summary {
		summaries, err := st.Summaries(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read summaries", err)
		}
		if formatter.IsJSON() {
			return formatter.Success(summaries)
		}
		return outputSummariesText(formatter.Writer, summaries)
	}

	calls, err := st.ReadCalls(ctx, store.CallFilter{
		FlowToken:  opts.FlowToken,
		Binding:    opts.Binding,
		Rule:       opts.Rule,
		FailedOnly: opts.Failed,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read calls", err)
	}
	matches, err := st.ReadMatches(ctx, opts.FlowToken)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read matches", err)
	}

	result := TraceResult{
		FlowToken: opts.FlowToken,
		Calls:     calls,
		Matches:   matches,
		Stats:     TraceStats{Calls: len(calls), Matches: len(matches)},
	}
	for _, c := range calls {
		if c.Err != "" {
			result.Stats.Failures++
		}
	}

	if formatter.IsJSON() {
		return formatter.Success(result)
	}
	return outputTraceText(formatter.Writer, result, opts.Verbose)
}

// outputTraceText outputs the trace result as text.
func outputTraceText(w io.Writer, result TraceResult, verbose bool) error {
	if result.FlowToken != "" {
		fmt.Fprintf(w, "Trace for Flow: %s\n\n", result.FlowToken)
	}

	fmt.Fprintln(w, "=== Calls ===")
	if len(result.Calls) == 0 {
		fmt.Fprintln(w, "  (no calls)")
	}
	for _, c := range result.Calls {
		outcome := "ok"
		switch {
		case c.Err != "":
			outcome = "error: " + c.Err
		case c.Result != "":
			outcome = "-> " + c.Result
		}
		fmt.Fprintf(w, "  [%d] %s %s%s %s\n", c.Seq, c.Rule, c.Binding, c.Args, outcome)
		if verbose {
			fmt.Fprintf(w, "       flow=%s worker=%d\n", c.FlowToken, c.Worker)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Matches ===")
	if len(result.Matches) == 0 {
		fmt.Fprintln(w, "  (no matches)")
	}
	for _, m := range result.Matches {
		fmt.Fprintf(w, "  [%d] %s flow=%s\n", m.Seq, m.Rule, m.FlowToken)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Calls:    %d\n", result.Stats.Calls)
	fmt.Fprintf(w, "  Failures: %d\n", result.Stats.Failures)
	fmt.Fprintf(w, "  Matches:  %d\n", result.Stats.Matches)

	return nil
}

// outputSummariesText prints one line per flow.
func outputSummariesText(w io.Writer, summaries []store.FlowSummary) error {
	if len(summaries) == 0 {
		fmt.Fprintln(w, "(empty audit log)")
		return nil
	}
	fmt.Fprintf(w, "%-40s %8s %8s %8s\n", "FLOW", "CALLS", "FAILED", "MATCHES")
	for _, s := range summaries {
		fmt.Fprintf(w, "%-40s %8d %8d %8d\n", s.FlowToken, s.Calls, s.Failures, s.Matches)
	}
	return nil
}
