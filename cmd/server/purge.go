package main

import (
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"Tsuki/internal/db/clock"
	"Tsuki/internal/db/postgres"
)

func newPurgeIdempotencyCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "purge-idempotency",
		Short: "Delete expired idempotency records",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(v)
			if err != nil {
				return err
			}

			db, err := openSQL(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			removed, err := postgres.NewIdempotencyRepository(db, clock.New(nil)).Cleanup(cmd.Context())
			if err != nil {
				return err
			}
			logger.Info("purged expired idempotency records", slog.Int64("removed", removed))
			return nil
		},
	}
}
