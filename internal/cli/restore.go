package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ballastdb/ballast/internal/backup"
)

// RestoreOptions holds flags for the restore command.
type RestoreOptions struct {
	*RootOptions
	Target string
}

// NewRestoreCommand creates the restore command.
func NewRestoreCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RestoreOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "restore <artifact>",
		Short: "Restore the primary from a backup artifact",
		Long: `Replace the primary database file with a backup artifact.

The artifact checksum is verified against its manifest before anything is
overwritten. The daemons must not be running; replicas re-sync from the
restored primary on the next cycle after restart.

Example:
  ballast restore ./backups/proposals_20260823_120000.db --config ballast.yaml
  ballast restore ./backups/proposals_20260823_120000.db --to /tmp/check.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRestore(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Target, "to", "", "restore target path (default: the configured primary)")
	return cmd
}

func runRestore(opts *RestoreOptions, artifactPath string, cmd *cobra.Command) error {
	target := opts.Target
	if target == "" {
		cfg, err := loadConfig(opts.RootOptions)
		if err != nil {
			return err
		}
		target = filepath.Join(cfg.DataDir, cfg.Name+".db")
	}

	if err := backup.Restore(artifactPath, target); err != nil {
		return WrapExitError(ExitFailure, "restore failed", err)
	}

	if opts.Format == "json" {
		formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
		return formatter.SuccessJSON(map[string]string{"artifact": artifactPath, "target": target})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Restored %s to %s\n", artifactPath, target)
	return nil
}
