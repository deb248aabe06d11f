package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ballastdb/ballast/internal/backup"
	"github.com/ballastdb/ballast/internal/store"
)

// BackupOptions holds flags for the backup command.
type BackupOptions struct {
	*RootOptions
	List bool
}

// NewBackupCommand creates the backup command.
func NewBackupCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BackupOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Create a backup now, or list existing backups",
		Long: `Snapshot the primary into a timestamped backup artifact and run
the retention sweep. With --list, print the existing artifacts instead.

Example:
  ballast backup --config ballast.yaml
  ballast backup --config ballast.yaml --list --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBackup(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.List, "list", false, "list backups instead of creating one")
	return cmd
}

func runBackup(opts *BackupOptions, cmd *cobra.Command) error {
	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}

	primary, err := store.OpenPrimary(filepath.Join(cfg.DataDir, cfg.Name+".db"))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open primary", err)
	}
	defer primary.Close()

	mgr := backup.NewManager(primary, cfg.Backup.Dir, cfg.Name, cfg.Retention())

	if opts.List {
		artifacts, err := mgr.List()
		if err != nil {
			return WrapExitError(ExitFailure, "failed to list backups", err)
		}
		if opts.Format == "json" {
			return formatter.SuccessJSON(artifacts)
		}
		if len(artifacts) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no backups")
			return nil
		}
		for _, art := range artifacts {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d bytes\t%s\n",
				art.Path, art.SizeBytes, art.CreatedAt.UTC().Format("2006-01-02 15:04:05"))
		}
		return nil
	}

	art, err := mgr.Create(cmd.Context())
	if err != nil {
		return WrapExitError(ExitFailure, "backup failed", err)
	}
	if err := mgr.Sweep(); err != nil {
		return WrapExitError(ExitFailure, "retention sweep failed", err)
	}

	if opts.Format == "json" {
		return formatter.SuccessJSON(art)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Backup created: %s (%d bytes)\n", art.Path, art.SizeBytes)
	return nil
}
