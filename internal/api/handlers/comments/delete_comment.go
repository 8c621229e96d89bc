package comments

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"Tsuki/internal/api/handlers"
	"Tsuki/internal/api/middleware"
	"Tsuki/internal/core/comments"
)

// DeleteCommentHandler handles comment deletion requests
type DeleteCommentHandler struct {
	service comments.Service
}

// NewDeleteCommentHandler creates a new handler for deleting comments
func NewDeleteCommentHandler(service comments.Service) *DeleteCommentHandler {
	return &DeleteCommentHandler{
		service: service,
	}
}

// HandleDelete soft-deletes a comment
// DELETE /v1/comments/{id}
//
// Response: { "ok": true, "data": null }
func (h *DeleteCommentHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteComment(r.Context(), middleware.GetUser(r), chi.URLParam(r, "id")); err != nil {
		handlers.WriteError(w, r, err)
		return
	}

	handlers.WriteJSON(w, http.StatusOK, nil)
}
