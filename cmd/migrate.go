package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sells-group/catalog-migrate/internal/pipeline"
)

var (
	migrateLimit       int
	migrateDryRun      bool
	migrateConcurrency int
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Migrate source records into the CRM",
}

var migrateCustomersCmd = &cobra.Command{
	Use:   "customers",
	Short: "Upsert every WooCommerce customer into the configured target",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx, envOptions{Store: true, Target: !migrateDryRun})
		if err != nil {
			return err
		}
		defer env.Close()

		_, err = env.Pipeline.MigrateCustomers(ctx, engineOptions(migrateLimit, migrateDryRun, migrateConcurrency))
		return err
	},
}

func init() {
	f := migrateCustomersCmd.Flags()
	f.IntVar(&migrateLimit, "limit", 0, "max number of customers to migrate (0 = all)")
	f.BoolVar(&migrateDryRun, "dry-run", false, "transform and record intent without calling the target")
	f.IntVar(&migrateConcurrency, "concurrency", 0, "concurrent upserts (0 = migrate.concurrency)")
	migrateCmd.AddCommand(migrateCustomersCmd)
	rootCmd.AddCommand(migrateCmd)
}

// engineOptions fills the concurrency from config when the flag is unset.
func engineOptions(limit int, dryRun bool, concurrency int) pipeline.EngineOptions {
	if concurrency <= 0 {
		concurrency = cfg.Migrate.Concurrency
	}
	return pipeline.EngineOptions{Limit: limit, DryRun: dryRun, Concurrency: concurrency}
}
