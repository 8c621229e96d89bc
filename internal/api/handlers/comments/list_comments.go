package comments

import (
	"net/http"

	"Tsuki/internal/api/handlers"
	"Tsuki/internal/core/comments"
)

// ListCommentsHandler serves the public thread listing
type ListCommentsHandler struct {
	service comments.Service
}

// NewListCommentsHandler creates a new handler for reading threads
func NewListCommentsHandler(service comments.Service) *ListCommentsHandler {
	return &ListCommentsHandler{
		service: service,
	}
}

// HandleList returns one page of a thread, oldest first
// GET /v1/comments?target_type=post&target_id=...&limit=20&cursor=...
//
// Response: { "ok": true, "data": { "items": [...], "next_cursor": "..." | null } }
func (h *ListCommentsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit, err := handlers.ParseLimit(r)
	if err != nil {
		handlers.WriteError(w, r, err)
		return
	}

	query := r.URL.Query()
	req := comments.ListPublicRequest{
		TargetType: comments.TargetType(query.Get("target_type")),
		TargetID:   query.Get("target_id"),
		Limit:      limit,
		Cursor:     handlers.OptionalQuery(r, "cursor"),
	}

	page, err := h.service.ListPublicComments(r.Context(), req)
	if err != nil {
		handlers.WriteError(w, r, err)
		return
	}

	handlers.WriteJSON(w, http.StatusOK, page)
}
