package routes

import (
	"github.com/go-chi/chi/v5"

	"Tsuki/internal/api/handlers/comments"
	"Tsuki/internal/api/middleware"
	commentsCore "Tsuki/internal/core/comments"
	"Tsuki/internal/core/idempotency"
)

// RegisterCommentRoutes registers the public comment endpoints.
// Writes require a session and a CSRF token; creates honor Idempotency-Key.
func RegisterCommentRoutes(r chi.Router, service commentsCore.Service, idempotencyRepo idempotency.Repository) {
	listHandler := comments.NewListCommentsHandler(service)
	createHandler := comments.NewCreateCommentHandler(service)
	updateHandler := comments.NewUpdateCommentHandler(service)
	deleteHandler := comments.NewDeleteCommentHandler(service)

	r.With(middleware.ETag).Get("/comments", listHandler.HandleList)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Use(middleware.CSRF)

		r.With(middleware.Idempotency(idempotencyRepo, nil)).Post("/comments", createHandler.HandleCreate)
		r.Patch("/comments/{id}", updateHandler.HandleUpdate)
		r.Delete("/comments/{id}", deleteHandler.HandleDelete)
	})
}
