package routes

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	"Tsuki/internal/api/handlers/session"
	"Tsuki/internal/api/middleware"
	"Tsuki/internal/core/users"
)

// RegisterSessionRoutes registers the identity endpoints.
// The login endpoint exists only when devAuth is set; production identities
// come from the OAuth front end sharing the session cookie.
func RegisterSessionRoutes(r chi.Router, userService users.Service, sessions *middleware.SessionManager, devAuth bool, logger *slog.Logger) {
	r.Route("/auth", func(r chi.Router) {
		r.Get("/me", session.HandleMe)
		r.With(middleware.CSRF).Post("/logout", session.NewLogoutHandler(sessions).HandleLogout)

		if devAuth {
			r.Post("/dev/login", session.NewLoginHandler(userService, sessions, logger).HandleLogin)
		}
	})
}
