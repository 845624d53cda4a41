package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid bool     `json:"valid"`
	Rules []string `json:"rules"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <rules-dir>",
		Short: "Validate rules without writing output",
		Long: `Validate CUE rule files.

Checks every rule's script syntax and id tables, then the rule set as a
whole. All errors are reported, not just the first.

Exit codes:
  0 - All rules valid
  1 - One or more rules invalid
  2 - Command error (missing directory, no CUE files, CUE load failure)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, rulesDir string, cmd *cobra.Command) error {
	formatter := NewOutputFormatter(opts, cmd)

	loadResult, loadErrors := LoadRules(rulesDir, LoadModeCollectAll)
	if loadResult == nil {
		return outputCommandError(formatter, loadErrors[0])
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, rulesDir)

	if len(loadErrors) > 0 {
		// Invalid rules = exit code 1 (validation failure)
		return outputLoadErrors(formatter, "Validation failed", loadErrors, ExitFailure)
	}

	names := make([]string, len(loadResult.Rules))
	for i, r := range loadResult.Rules {
		names[i] = r.Name
		formatter.VerboseLog("Validated rule: %s", r.Name)
	}

	if formatter.IsJSON() {
		return formatter.Success(ValidationResult{Valid: true, Rules: names})
	}

	fmt.Fprintf(formatter.Writer, "✓ All %d rule(s) valid\n", len(names))
	return nil
}
