package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bookbridge/shelfsync/internal/config"
	"github.com/bookbridge/shelfsync/internal/ebay"
	"github.com/bookbridge/shelfsync/internal/store"
	"github.com/bookbridge/shelfsync/pkg/logging"
	"github.com/bookbridge/shelfsync/pkg/propagate"
)

// newPropagateCommand creates the propagate command.
func newPropagateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "propagate",
		Short: "Push a refresh run's audited changes to the marketplace",
		Long: `Propagate reads the audit rows of one refresh run and pushes each
change to the matching eBay listing, one at a time with a cool-down
between calls. Every attempt's outcome is recorded on the audit row, so
a rerun retries only the rows that have not succeeded yet.

A listing that cannot be found, a failed revision, or a transport error
marks that row failed and moves on. The process exits non-zero only when
the database connection or the pending-change query fails.`,
		Example: `  shelfsync propagate --run-id refresh_20260828_060000
  shelfsync propagate --run-id refresh_20260828_060000 --interval 2s`,
		// Bound at invocation, not init: the refresh command carries its
		// own run-id flag on the same run.id key.
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := viper.BindPFlag(config.KeyRunID, cmd.Flags().Lookup("run-id")); err != nil {
				return err
			}
			return viper.BindPFlag(config.KeyInterval, cmd.Flags().Lookup("interval"))
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return performPropagate(cmd.Context())
		},
	}

	cmd.Flags().String("run-id", "", "refresh run whose changes to push (required)")
	cmd.Flags().Duration("interval", propagate.DefaultInterval, "cool-down between marketplace calls")

	return cmd
}

// performPropagate pushes one refresh run's changes to the marketplace.
func performPropagate(ctx context.Context) error {
	cfg := config.Load()
	if err := cfg.ValidatePropagate(); err != nil {
		return err
	}
	log := logging.Default()

	db, err := store.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	client := ebay.New(cfg.EBay, ebay.WithEndpoint(cfg.EBayURL))
	worker := propagate.New(client, db,
		propagate.WithInterval(cfg.Interval),
		propagate.WithLogger(log),
	)

	started := time.Now()
	sum, err := worker.Run(ctx, cfg.RunID)
	if err != nil {
		return err
	}
	log.Info().
		Str("run_id", cfg.RunID).
		Int("attempted", sum.Attempted).
		Int("succeeded", sum.Succeeded).
		Int("failed", sum.Failed).
		Dur("elapsed", time.Since(started)).
		Msg("propagation command finished")
	return nil
}

func init() {
	rootCmd.AddCommand(newPropagateCommand())
}
