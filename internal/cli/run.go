package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ballastdb/ballast/internal/coordinator"
)

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the replication and backup daemons",
		Long: `Open the primary and replicas and start the daemons.

The replication daemon pushes primary changes to every replica on its
interval; the backup daemon snapshots the primary and applies the
retention policy. Runs until interrupted.

Example:
  ballast run --config ballast.yaml
  ballast run --config ballast.yaml --verbose`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemons(rootOpts, cmd)
		},
	}
	return cmd
}

func runDaemons(opts *RootOptions, cmd *cobra.Command) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	// Use the command's context if set (tests cancel through it).
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	coord, err := coordinator.Open(ctx, cfg)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open coordinator", err)
	}
	defer func() {
		if closeErr := coord.Close(); closeErr != nil {
			slog.Error("error closing coordinator", "error", closeErr)
		}
	}()

	coord.Start(ctx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		slog.Info("received signal, shutting down", "signal", sig)
	case <-ctx.Done():
	}
	return nil
}
