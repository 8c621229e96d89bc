package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"Tsuki/internal/db/postgres"
)

func newMigrateCmd(v *viper.Viper) *cobra.Command {
	var status bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
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

			if status {
				return postgres.MigrationStatus(db, cfg.DatabaseDriver)
			}
			if err := postgres.Migrate(db, cfg.DatabaseDriver); err != nil {
				return err
			}
			logger.Info("migrations completed successfully")
			return nil
		},
	}

	cmd.Flags().BoolVar(&status, "status", false, "print migration status instead of applying")
	return cmd
}
