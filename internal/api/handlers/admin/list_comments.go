// Package admin serves the moderation endpoints. Routes mount it behind RequireAdmin.
package admin

import (
	"net/http"

	"Tsuki/internal/api/handlers"
	"Tsuki/internal/core/comments"
)

// ListCommentsHandler serves the moderation listing
type ListCommentsHandler struct {
	service comments.Service
}

// NewListCommentsHandler creates a new moderation listing handler
func NewListCommentsHandler(service comments.Service) *ListCommentsHandler {
	return &ListCommentsHandler{service: service}
}

// HandleList returns comments newest first, hidden and deleted included
// GET /v1/admin/comments?target_type=&target_id=&status=&limit=&cursor=
func (h *ListCommentsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit, err := handlers.ParseLimit(r)
	if err != nil {
		handlers.WriteError(w, r, err)
		return
	}

	query := r.URL.Query()
	req := comments.ListAdminRequest{
		Limit:  limit,
		Cursor: handlers.OptionalQuery(r, "cursor"),
		Filter: comments.AdminFilter{
			TargetType: comments.TargetType(query.Get("target_type")),
			TargetID:   query.Get("target_id"),
			Status:     comments.Status(query.Get("status")),
		},
	}

	page, err := h.service.ListAdminComments(r.Context(), req)
	if err != nil {
		handlers.WriteError(w, r, err)
		return
	}

	handlers.WriteJSON(w, http.StatusOK, page)
}
