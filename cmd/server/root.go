package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"Tsuki/internal/config"
)

// newRootCmd wires every subcommand to one viper instance so flags override
// TSUKI_* environment variables, which override .env.
func newRootCmd() *cobra.Command {
	v := config.New()

	root := &cobra.Command{
		Use:          "tsuki",
		Short:        "Threaded comment API for posts and moments",
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.String("database-driver", "", "database driver: postgres, sqlite3 or memory")
	flags.String("database-url", "", "database connection string")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	bindFlags(v, flags, map[string]string{
		"database-driver": config.KeyDatabaseDriver,
		"database-url":    config.KeyDatabaseURL,
		"log-level":       config.KeyLogLevel,
	})

	root.AddCommand(newServeCmd(v), newMigrateCmd(v), newPurgeIdempotencyCmd(v))
	return root
}

// bindFlags binds each flag to its config key; unset flags fall through to env and defaults
func bindFlags(v *viper.Viper, flags *pflag.FlagSet, keys map[string]string) {
	for flag, key := range keys {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			panic("failed to bind flag " + flag + ": " + err.Error())
		}
	}
}

// loadConfig builds the config and installs the JSON logger as the default
func loadConfig(v *viper.Viper) (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(v)
	if err != nil {
		return config.Config{}, nil, err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)
	return cfg, logger, nil
}
