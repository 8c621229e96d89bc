package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"Tsuki/internal/api/middleware"
	"Tsuki/internal/api/routes"
	"Tsuki/internal/config"
	"Tsuki/internal/core/comments"
	"Tsuki/internal/core/fingerprint"
	"Tsuki/internal/core/idempotency"
	"Tsuki/internal/core/users"
)

func newServeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run migrations and start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), v)
		},
	}

	cmd.Flags().StringP("port", "p", "", "port to listen on")
	cmd.Flags().Bool("dev-auth", false, "enable the development login endpoint")
	bindFlags(v, cmd.Flags(), map[string]string{
		"port":     config.KeyPort,
		"dev-auth": config.KeyDevAuth,
	})
	return cmd
}

func runServe(ctx context.Context, v *viper.Viper) error {
	cfg, logger, err := loadConfig(v)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openBackend(cfg, true, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			logger.Warn("failed to close database", slog.String("error", closeErr.Error()))
		}
	}()

	userService := users.NewUserService(store.users, users.NewAdminAllowList(cfg.AdminIDs, cfg.AdminLogins))
	commentService := comments.NewCommentService(store.comments, store.users, comments.Options{
		Hasher: fingerprint.NewHasher(cfg.HashSalt),
		Logger: logger,
	})
	sessions := middleware.NewSessionManager([]byte(cfg.SessionSecret), cfg.CookieSecure, userService, logger)

	deps := routes.Dependencies{
		Comments:        commentService,
		Users:           userService,
		Sessions:        sessions,
		Idempotency:     store.idempotency,
		Logger:          logger,
		TrustedIPHeader: cfg.TrustedIPHeader,
		AllowedOrigins:  cfg.PublicOrigins,
		DevAuth:         cfg.DevAuth,
	}
	if store.db != nil {
		deps.Health = store.db
	}
	if cfg.ThrottleEnabled() {
		throttle := middleware.NewRateLimiter(cfg.ThrottleRPS, cfg.ThrottleBurst)
		defer throttle.Close()
		deps.Throttle = throttle
	}
	if cfg.DevAuth {
		logger.Warn("development login is enabled")
	}

	go runIdempotencyCleanup(ctx, store.idempotency, cfg.IdempotencyCleanupInterval, logger)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           routes.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Tsuki API starting", slog.String("port", cfg.Port), slog.String("driver", cfg.DatabaseDriver))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// runIdempotencyCleanup purges expired cached responses until ctx is done
func runIdempotencyCleanup(ctx context.Context, repo idempotency.Repository, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := repo.Cleanup(ctx)
			if err != nil {
				logger.Warn("idempotency cleanup failed", slog.String("error", err.Error()))
				continue
			}
			if removed > 0 {
				logger.Info("idempotency cleanup", slog.Int64("removed", removed))
			}
		}
	}
}
