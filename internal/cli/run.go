package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/flowlua/internal/engine"
	"github.com/roach88/flowlua/internal/flow"
	"github.com/roach88/flowlua/internal/metrics"
	"github.com/roach88/flowlua/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database   string
	Workers    int
	Dispatch   string
	Memcap     int64
	MetricsOut string

	// TokenGenerator allows overriding the flow token generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	TokenGenerator flow.TokenGenerator
}

// RunResult is the JSON payload of a finished run.
type RunResult struct {
	Stats *engine.Stats    `json:"stats"`
	Flows []map[string]any `json:"flows"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <rules-dir> <packets-file>",
		Short: "Replay a packet stream through the rules",
		Long: `Replay a YAML packet stream through compiled CUE rules.

Every packet is evaluated against every rule's match(packet) function.
With --db, each bound function call and each rule match is appended to a
SQLite audit log (created if it doesn't exist) for the trace command.

Example:
  flowlua run ./rules ./packets.yaml
  flowlua run --db ./audit.db --workers 4 --dispatch round-robin ./rules ./packets.yaml
  flowlua run --memcap 65536 --metrics-out ./metrics.txt ./rules ./packets.yaml`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEngine(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite audit log")
	cmd.Flags().IntVar(&opts.Workers, "workers", 1, "number of worker goroutines")
	cmd.Flags().StringVar(&opts.Dispatch, "dispatch", string(engine.DispatchFlowHash), "packet dispatch (flow-hash|round-robin)")
	cmd.Flags().Int64Var(&opts.Memcap, "memcap", 0, "byte budget for all flowvar strings (0 = unlimited)")
	cmd.Flags().StringVar(&opts.MetricsOut, "metrics-out", "", "write Prometheus metrics to this file after the run")

	return cmd
}

func runEngine(opts *RunOptions, rulesDir, packetsFile string, cmd *cobra.Command) error {
	formatter := NewOutputFormatter(opts.RootOptions, cmd)

	dispatch, err := engine.ParseDispatch(opts.Dispatch)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --dispatch", err)
	}
	if opts.Workers < 1 {
		return NewExitError(ExitCommandError, "--workers must be at least 1")
	}

	slog.Info("loading rules", "dir", rulesDir)
	rules, err := LoadRuleSet(rulesDir)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load rules", err)
	}
	slog.Info("rules loaded", "rules", len(rules))

	packets, err := engine.LoadPackets(packetsFile)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load packets", err)
	}

	metrics.Register()

	gen := opts.TokenGenerator
	if gen == nil {
		gen = flow.UUIDv7Generator{}
	}
	tracker := flow.NewTracker(
		flow.WithStringMemcap(opts.Memcap),
		flow.WithTokenGenerator(gen),
	)

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	engineOpts := []engine.Option{
		engine.WithWorkers(opts.Workers),
		engine.WithDispatch(dispatch),
		engine.WithLogger(slog.Default()),
	}

	var sink *store.Sink
	if opts.Database != "" {
		slog.Info("opening audit log", "path", opts.Database)
		st, err := store.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				slog.Error("error closing database", "error", closeErr)
			}
		}()

		// Continue the seq of an existing log so traces stay ordered.
		last, err := st.LastSeq(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read audit log", err)
		}
		// The sink outlives an interrupt so records already queued are
		// still written.
		sink = store.NewSink(context.WithoutCancel(ctx), st)
		defer sink.Close()
		engineOpts = append(engineOpts, engine.WithSink(sink), engine.WithClock(engine.NewClockAt(last)))
	}

	eng, err := engine.New(tracker, rules, engineOpts...)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create engine", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan) // Prevent signal handler leak

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	stats, err := eng.Run(ctx, packets)
	if err != nil {
		if engine.IsScriptLoadError(err) {
			return WrapExitError(ExitCommandError, "failed to load scripts", err)
		}
		if !errors.Is(err, context.Canceled) {
			return WrapExitError(ExitFailure, "engine error", err)
		}
		slog.Info("run interrupted", "packets", stats.Packets)
	}

	if sink != nil {
		_ = sink.Close()
	}
	if sink != nil && sink.Failures() > 0 {
		slog.Warn("audit log incomplete", "dropped", sink.Failures())
	}

	if opts.MetricsOut != "" {
		if err := writeMetricsFile(opts.MetricsOut); err != nil {
			return WrapExitError(ExitCommandError, "failed to write metrics", err)
		}
	}

	result := RunResult{Stats: stats, Flows: []map[string]any{}}
	for _, snap := range tracker.Snapshots() {
		result.Flows = append(result.Flows, snap.Canonical())
	}

	if err := outputRunResult(formatter, result); err != nil {
		return err
	}

	if stats.ScriptErrors > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d script error(s)", stats.ScriptErrors))
	}
	return nil
}

func writeMetricsFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := metrics.WriteText(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func outputRunResult(formatter *OutputFormatter, result RunResult) error {
	if formatter.IsJSON() {
		return formatter.Success(result)
	}

	w := formatter.Writer
	s := result.Stats
	fmt.Fprintf(w, "Packets:       %d\n", s.Packets)
	fmt.Fprintf(w, "Teardowns:     %d\n", s.Teardowns)
	fmt.Fprintf(w, "Matches:       %d\n", s.TotalMatches())
	fmt.Fprintf(w, "Script errors: %d\n", s.ScriptErrors)
	fmt.Fprintf(w, "Live flows:    %d\n", len(result.Flows))

	for _, e := range s.Errors {
		fmt.Fprintf(w, "  [%d] %s: %s\n", e.Seq, e.Rule, e.Message)
	}
	return nil
}
