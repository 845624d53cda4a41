package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/flowlua/internal/ir"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompilationResult holds the compiled rules.
type CompilationResult struct {
	Rules []ir.Rule `json:"rules"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <rules-dir>",
		Short: "Compile CUE rules to JSON",
		Long: `Compile CUE rule files to their JSON form.

Each rule's script is syntax checked and its flowvar/flowint id tables
are bound to storage indices. The rule set is validated as a whole:
a storage index may not be used as both a flowvar and a flowint.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, rulesDir string, cmd *cobra.Command) error {
	formatter := NewOutputFormatter(opts.RootOptions, cmd)

	loadResult, loadErrors := LoadRules(rulesDir, LoadModeCollectAll)
	if loadResult == nil {
		return outputCommandError(formatter, loadErrors[0])
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, rulesDir)
	for _, rule := range loadResult.Rules {
		formatter.VerboseLog("Compiled rule: %s", rule.Name)
	}

	if len(loadErrors) > 0 {
		return outputLoadErrors(formatter, "Compilation failed", loadErrors, ExitCommandError)
	}

	result := &CompilationResult{Rules: loadResult.Rules}

	if opts.Output != "" {
		if err := writeRulesToFile(result, opts.Output); err != nil {
			_ = formatter.Error(ErrCodeWriteFailed, err.Error(), nil)
			return WrapExitError(ExitCommandError, "writing output file", err)
		}
	}

	if formatter.IsJSON() {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ Compiled %d rule(s)\n\n", len(result.Rules))
	for _, rule := range result.Rules {
		fmt.Fprintf(formatter.Writer, "  %s: %d flowvar id(s), %d flowint id(s)\n",
			rule.Name, len(rule.Flowvars), len(rule.Flowints))
	}
	if opts.Output != "" {
		fmt.Fprintf(formatter.Writer, "\nWrote rules to %s\n", opts.Output)
	}
	return nil
}

// outputCommandError reports an error that prevented the command from
// doing any work (exit code 2).
func outputCommandError(formatter *OutputFormatter, err error) error {
	code, message := parseLoadError(err)
	_ = formatter.Error(code, message, nil)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputLoadErrors reports every rule error and returns an ExitError with
// exitCode.
func outputLoadErrors(formatter *OutputFormatter, title string, errs []error, exitCode int) error {
	summary := fmt.Sprintf("%s with %d error(s)", title, len(errs))

	if formatter.IsJSON() {
		cliErrors := make([]CLIError, len(errs))
		for i, err := range errs {
			code, message := parseLoadError(err)
			cliErrors[i] = CLIError{Code: code, Message: message}
		}
		if err := formatter.Respond(CLIResponse{
			Status: "error",
			Error:  &cliErrors[0],
			Data:   cliErrors, // Include all errors in data
		}); err != nil {
			return err
		}
		return NewExitError(exitCode, summary)
	}

	fmt.Fprintf(formatter.Writer, "✗ %s\n\n", title)
	for _, err := range errs {
		var loadErr *LoadError
		if errors.As(err, &loadErr) && loadErr.Pos.IsValid() {
			fmt.Fprintln(formatter.Writer, loadErr.Pos.Position().String())
		}
		code, message := parseLoadError(err)
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", code, message)
	}
	return NewExitError(exitCode, summary)
}

// parseLoadError extracts error code and message from an error.
func parseLoadError(err error) (string, string) {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		if loadErr.Rule != "" {
			return loadErr.Code, fmt.Sprintf("rule %s: %s", loadErr.Rule, loadErr.Message)
		}
		return loadErr.Code, loadErr.Message
	}
	return ErrCodeGeneric, err.Error()
}

// writeRulesToFile writes the compiled rules as indented JSON.
func writeRulesToFile(result *CompilationResult, filename string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling rules: %w", err)
	}

	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}

	return nil
}
