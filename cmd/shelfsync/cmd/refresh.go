package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bookbridge/shelfsync/internal/config"
	"github.com/bookbridge/shelfsync/internal/feeds"
	"github.com/bookbridge/shelfsync/internal/runner"
	"github.com/bookbridge/shelfsync/internal/store"
	"github.com/bookbridge/shelfsync/pkg/discovery"
	"github.com/bookbridge/shelfsync/pkg/logging"
)

// newRefreshCommand creates the refresh command.
func newRefreshCommand() *cobra.Command {
	var (
		dryRun     bool
		reportPath string
	)

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Reconcile the feed snapshot against the inventory database",
		Long: `Refresh performs one reconciliation run:

1. Load the inventory snapshot (isbn/stock/rrp) from the database
2. Download and parse every CSV feed from the FTP server
3. Diff normalized rows against the snapshot
4. Apply the changeset with an audit row per change
5. Record unknown ISBNs passing the stock threshold as candidates

Per-record problems are counted and logged, never fatal. The process
exits non-zero only when a required connection or the snapshot load
fails.`,
		Example: `  shelfsync refresh                       # full run
  shelfsync refresh --dry-run             # diff without writing
  shelfsync refresh --report run.yaml     # write a YAML run report
  shelfsync refresh --run-id backfill_7   # explicit audit run ID`,
		// Flags bind to Viper here rather than at init: both run entry
		// points carry a run-id flag, and only the invoked command's flag
		// may back the run.id key.
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := viper.BindPFlag(config.KeyRunID, cmd.Flags().Lookup("run-id")); err != nil {
				return err
			}
			return viper.BindPFlag(config.KeyMinStock, cmd.Flags().Lookup("min-stock"))
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return performRefresh(cmd.Context(), dryRun, reportPath)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "diff and report without writing")
	cmd.Flags().StringVar(&reportPath, "report", "", "write a YAML run report to this file")
	cmd.Flags().String("run-id", "", "audit run identifier (default derived from start time)")
	cmd.Flags().Int("min-stock", discovery.DefaultMinStock, "discovery admission threshold")

	return cmd
}

// performRefresh executes one reconciliation run end to end.
func performRefresh(ctx context.Context, dryRun bool, reportPath string) error {
	cfg := config.Load()
	if err := cfg.ValidateRefresh(); err != nil {
		return err
	}
	if cfg.RunID == "" {
		cfg.RunID = config.GenerateRunID(time.Now())
	}
	log := logging.Default()

	db, err := store.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()
	if !dryRun {
		if err := db.EnsureSchema(ctx); err != nil {
			return err
		}
	}

	src, err := feeds.DialFTP(ctx, cfg.FTP)
	if err != nil {
		return err
	}
	defer src.Close()

	r := runner.New(db, src, cfg.RunID,
		runner.WithDryRun(dryRun),
		runner.WithMinStock(cfg.MinStock),
		runner.WithLogger(log),
	)
	report, err := r.Refresh(ctx)
	if err != nil {
		return err
	}

	if reportPath != "" {
		if err := report.Write(reportPath); err != nil {
			log.Error().Err(err).Str("path", reportPath).Msg("writing run report failed")
		}
	}
	return nil
}

func init() {
	rootCmd.AddCommand(newRefreshCommand())
}
