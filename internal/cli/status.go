package cli

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/ballastdb/ballast/internal/coordinator"
)

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Report replica watermarks, write rate and backup state",
		Long: `Open the configured databases and print a health snapshot:
replica count and watermarks, the current write rate against its cap, and
the backup inventory.

Example:
  ballast status --config ballast.yaml
  ballast status --config ballast.yaml --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(rootOpts, cmd)
		},
	}
	return cmd
}

func runStatus(opts *RootOptions, cmd *cobra.Command) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	coord, err := coordinator.Open(ctx, cfg)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open coordinator", err)
	}
	defer coord.Close()

	health, err := coord.HealthSnapshot(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to collect status", err)
	}

	if opts.Format == "json" {
		formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
		return formatter.SuccessJSON(health)
	}
	renderStatus(cmd.OutOrStdout(), cfg.Name, health)
	return nil
}

// renderStatus writes the text form of a health snapshot. Replicas print
// in ID order so the output is stable.
func renderStatus(w io.Writer, name string, h coordinator.Health) {
	fmt.Fprintf(w, "Database:   %s\n", name)
	fmt.Fprintf(w, "Replicas:   %d\n", h.ReplicaCount)

	ids := make([]string, 0, len(h.ReplicaWatermarks))
	for id := range h.ReplicaWatermarks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		fmt.Fprintf(w, "  %-12s watermark %d\n", id, h.ReplicaWatermarks[id])
	}

	fmt.Fprintf(w, "Write rate: %d/%d per second\n", h.CurrentWriteRate, h.MaxWriteRate)
	fmt.Fprintf(w, "Backups:    %d\n", h.BackupCount)
	if !h.LastBackupTime.IsZero() {
		fmt.Fprintf(w, "  last      %s\n", h.LastBackupTime.UTC().Format("2006-01-02 15:04:05"))
	}
}
