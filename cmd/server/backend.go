package main

import (
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"Tsuki/internal/config"
	"Tsuki/internal/core/comments"
	"Tsuki/internal/core/idempotency"
	"Tsuki/internal/core/users"
	"Tsuki/internal/db/clock"
	"Tsuki/internal/db/memory"
	"Tsuki/internal/db/postgres"
)

// backend groups the repositories for the configured driver
type backend struct {
	db          *sql.DB
	comments    comments.Repository
	users       users.Repository
	idempotency idempotency.Repository
}

// openBackend connects the configured store. SQL stores are migrated when migrate is set.
func openBackend(cfg config.Config, migrate bool, logger *slog.Logger) (*backend, error) {
	clk := clock.New(nil)

	if cfg.DatabaseDriver == config.DriverMemory {
		logger.Warn("using in-memory store; data is lost on restart")
		userRepo := memory.NewUserRepository(clk)
		idemRepo, err := memory.NewIdempotencyRepository(memory.DefaultIdempotencyCapacity, nil)
		if err != nil {
			return nil, err
		}
		return &backend{
			comments:    memory.NewCommentRepository(userRepo, clk),
			users:       userRepo,
			idempotency: idemRepo,
		}, nil
	}

	db, err := postgres.Open(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	logger.Info("connected to database", slog.String("driver", cfg.DatabaseDriver))

	if migrate {
		if err := postgres.Migrate(db, cfg.DatabaseDriver); err != nil {
			_ = db.Close()
			return nil, err
		}
		logger.Info("migrations completed successfully")
	}

	return &backend{
		db:          db,
		comments:    postgres.NewCommentRepository(db, clk),
		users:       postgres.NewUserRepository(db, clk),
		idempotency: postgres.NewIdempotencyRepository(db, clk),
	}, nil
}

// openSQL connects without building repositories, for the maintenance commands
func openSQL(cfg config.Config) (*sql.DB, error) {
	if cfg.DatabaseDriver == config.DriverMemory {
		return nil, fmt.Errorf("driver %s has no persistent schema", config.DriverMemory)
	}
	return postgres.Open(cfg.DatabaseDriver, cfg.DatabaseURL)
}

func (b *backend) Close() error {
	if b.db == nil {
		return nil
	}
	return b.db.Close()
}
