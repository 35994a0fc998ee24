package main

import (
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sells-group/catalog-migrate/internal/model"
	"github.com/sells-group/catalog-migrate/internal/pipeline"
)

var (
	reconcileSources     []string
	reconcileRefresh     bool
	reconcileReportDir   string
	reconcileMigrate     bool
	reconcileDryRun      bool
	reconcileLimit       int
	reconcileConcurrency int
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Resolve identities against reference sources",
}

var reconcileAuthorsCmd = &cobra.Command{
	Use:   "authors",
	Short: "Match product authors to WordPress users and client lists",
	Long: "Extracts every author credited on a product, resolves each name against the reference sources in priority order " +
		"and writes an orphan report. With --migrate, authors found only in a secondary source are upserted into the target.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		sources := parseOrigins(reconcileSources, cfg.Reconcile.Sources)
		if reconcileReportDir != "" {
			cfg.Report.Dir = reconcileReportDir
		}

		env, err := initPipeline(ctx, envOptions{
			Store:   true,
			Target:  reconcileMigrate && !reconcileDryRun,
			Sources: sources,
		})
		if err != nil {
			return err
		}
		defer env.Close()

		_, err = env.Pipeline.ReconcileAuthors(ctx, pipeline.ReconcileOptions{
			Sources:       sources,
			Refresh:       reconcileRefresh,
			Migrate:       reconcileMigrate,
			EngineOptions: engineOptions(reconcileLimit, reconcileDryRun, reconcileConcurrency),
		})
		return err
	},
}

func init() {
	f := reconcileAuthorsCmd.Flags()
	f.StringSliceVar(&reconcileSources, "sources", nil, "reference sources in priority order (default reconcile.sources)")
	f.BoolVar(&reconcileRefresh, "refresh", false, "ignore cached snapshots and refetch every source")
	f.StringVar(&reconcileReportDir, "report-dir", "", "directory for the orphan report (default report.dir)")
	f.BoolVar(&reconcileMigrate, "migrate", false, "upsert authors matched only in a secondary source")
	f.BoolVar(&reconcileDryRun, "dry-run", false, "with --migrate, record intent without calling the target")
	f.IntVar(&reconcileLimit, "limit", 0, "max number of authors to migrate (0 = all)")
	f.IntVar(&reconcileConcurrency, "concurrency", 0, "concurrent upserts (0 = migrate.concurrency)")
	reconcileCmd.AddCommand(reconcileAuthorsCmd)
	rootCmd.AddCommand(reconcileCmd)
}

// parseOrigins returns flag values, or the configured ones when the flag is
// empty. Entries are trimmed and lowercased.
func parseOrigins(flagVals, configured []string) []model.Origin {
	vals := flagVals
	if len(vals) == 0 {
		vals = configured
	}
	var out []model.Origin
	for _, v := range vals {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			out = append(out, model.Origin(v))
		}
	}
	return out
}
