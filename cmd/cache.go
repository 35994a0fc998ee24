package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/catalog-migrate/internal/model"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the reference snapshot cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear [origin]",
	Short: "Drop cached snapshots for one origin, or all of them",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cache, closeCache, err := initCache(ctx)
		if err != nil {
			return err
		}
		if closeCache != nil {
			defer closeCache() //nolint:errcheck
		}

		if len(args) == 1 {
			origin := model.Origin(args[0])
			if err := cache.Invalidate(ctx, origin); err != nil {
				return err
			}
			zap.L().Info("snapshot cleared", zap.String("origin", string(origin)))
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %s\n", origin) //nolint:errcheck
			return nil
		}

		if err := cache.Clear(ctx); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Cleared all snapshots") //nolint:errcheck
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}
