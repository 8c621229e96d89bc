// Package routes wires handlers and middleware into the HTTP router.
package routes

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"Tsuki/internal/api/handlers"
	"Tsuki/internal/api/middleware"
	commentsCore "Tsuki/internal/core/comments"
	"Tsuki/internal/core/idempotency"
	"Tsuki/internal/core/users"
)

// Pinger reports backend health; *sql.DB satisfies it
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Dependencies are the collaborators the router mounts.
// Throttle and Health are optional. TrustedIPHeader names the proxy header
// allowed to set the client address; empty means the socket peer.
type Dependencies struct {
	Comments        commentsCore.Service
	Users           users.Service
	Sessions        *middleware.SessionManager
	Idempotency     idempotency.Repository
	Throttle        *middleware.RateLimiter
	Health          Pinger
	Logger          *slog.Logger
	TrustedIPHeader string
	AllowedOrigins  []string
	DevAuth         bool
}

// NewRouter builds the full HTTP handler
func NewRouter(deps Dependencies) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(middleware.ClientAddress(deps.TrustedIPHeader))
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", middleware.CSRFHeader, idempotency.HeaderKey},
		ExposedHeaders:   []string{"ETag", idempotency.HeaderReplayed},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", healthHandler(deps.Health))

	r.Route("/v1", func(r chi.Router) {
		if deps.Throttle != nil {
			r.Use(deps.Throttle.Middleware)
		}
		r.Use(deps.Sessions.Session)

		RegisterSessionRoutes(r, deps.Users, deps.Sessions, deps.DevAuth, logger)
		RegisterCommentRoutes(r, deps.Comments, deps.Idempotency)
		RegisterAdminRoutes(r, deps.Comments, logger)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		handlers.WriteError(w, r, commentsCore.NewError(commentsCore.CodeNotFound, "route not found", nil))
	})

	return r
}

func healthHandler(pinger Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if pinger != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := pinger.PingContext(ctx); err != nil {
				handlers.WriteError(w, r, err)
				return
			}
		}
		handlers.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
