package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ballastdb/ballast/internal/config"
)

// ValidationResult holds config validation results.
type ValidationResult struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <config-file>",
		Short: "Validate a configuration file",
		Long: `Check a YAML configuration file against the ballast schema without
starting anything. Faster feedback than a failed run.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}

	_, err := config.Load(path)
	if err != nil {
		if opts.Format == "json" {
			if out := formatter.SuccessJSON(ValidationResult{Valid: false, Error: err.Error()}); out != nil {
				return out
			}
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "✗ Invalid: %v\n", err)
		}
		return WrapExitError(ExitFailure, "config validation failed", err)
	}

	if opts.Format == "json" {
		return formatter.SuccessJSON(ValidationResult{Valid: true})
	}
	fmt.Fprintln(cmd.OutOrStdout(), "✓ Config valid")
	return nil
}
