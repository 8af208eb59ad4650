package main

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"screener/internal/app"
)

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Maintain the screening result cache",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "flush",
		Short: "Delete every cached screening result",
		Long: `Delete every key under the screening prefix. Other keys in the same
Redis database are left alone.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log := loadConfig(cmd)
			if !cfg.Redis.Enabled() {
				return fmt.Errorf("redis is not configured; set REDIS_URL or REDIS_HOST")
			}

			ctx := cmd.Context()
			a, err := app.New(ctx, cfg, log, prometheus.NewRegistry())
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			if err := a.Service.FlushCache(ctx); err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "Cache cleared successfully")
			return err
		},
	})
	return cmd
}
