package comments

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"Tsuki/internal/api/handlers"
	"Tsuki/internal/api/middleware"
	"Tsuki/internal/core/comments"
)

// UpdateCommentHandler handles comment edit requests
type UpdateCommentHandler struct {
	service comments.Service
}

// NewUpdateCommentHandler creates a new handler for editing comments
func NewUpdateCommentHandler(service comments.Service) *UpdateCommentHandler {
	return &UpdateCommentHandler{
		service: service,
	}
}

// UpdateCommentInput is the request body for PATCH /v1/comments/{id}
type UpdateCommentInput struct {
	BodyMarkdown string `json:"body_markdown"`
}

// HandleUpdate handles comment edit requests
// PATCH /v1/comments/{id}
//
// Request body: { "body_markdown": "..." }
// Response: { "ok": true, "data": CommentView }
func (h *UpdateCommentHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var input UpdateCommentInput
	if err := handlers.DecodeJSON(w, r, &input); err != nil {
		handlers.WriteError(w, r, err)
		return
	}

	req := comments.EditCommentRequest{
		ID:           chi.URLParam(r, "id"),
		BodyMarkdown: input.BodyMarkdown,
	}

	view, err := h.service.EditComment(r.Context(), middleware.GetUser(r), req)
	if err != nil {
		handlers.WriteError(w, r, err)
		return
	}

	handlers.WriteJSON(w, http.StatusOK, view)
}
