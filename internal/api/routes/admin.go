package routes

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	"Tsuki/internal/api/handlers/admin"
	"Tsuki/internal/api/middleware"
	commentsCore "Tsuki/internal/core/comments"
)

// RegisterAdminRoutes registers the moderation endpoints, all admin-only
func RegisterAdminRoutes(r chi.Router, service commentsCore.Service, logger *slog.Logger) {
	listHandler := admin.NewListCommentsHandler(service)
	moderationHandler := admin.NewModerationHandler(service, logger)

	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.RequireAdmin)

		r.Get("/comments", listHandler.HandleList)
		r.With(middleware.CSRF).Post("/comments/{id}/hide", moderationHandler.HandleHide)
		r.With(middleware.CSRF).Post("/comments/{id}/unhide", moderationHandler.HandleUnhide)
	})
}
