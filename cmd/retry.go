package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	retryLedger      string
	retryDryRun      bool
	retryConcurrency int
)

var retryCmd = &cobra.Command{
	Use:   "retry",
	Short: "Replay the failed records of a previous run ledger",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx, envOptions{Target: !retryDryRun})
		if err != nil {
			return err
		}
		defer env.Close()

		_, err = env.Pipeline.Retry(ctx, retryLedger, engineOptions(0, retryDryRun, retryConcurrency))
		return err
	},
}

func init() {
	retryCmd.Flags().StringVar(&retryLedger, "ledger", "", "path to a ledger file written by a previous run")
	retryCmd.Flags().BoolVar(&retryDryRun, "dry-run", false, "record intent without calling the target")
	retryCmd.Flags().IntVar(&retryConcurrency, "concurrency", 0, "concurrent upserts (0 = migrate.concurrency)")
	_ = retryCmd.MarkFlagRequired("ledger")
	rootCmd.AddCommand(retryCmd)
}
