package comments

import (
	"net/http"

	"Tsuki/internal/api/handlers"
	"Tsuki/internal/api/middleware"
	"Tsuki/internal/core/comments"
)

// CreateCommentHandler handles comment creation requests
type CreateCommentHandler struct {
	service comments.Service
}

// NewCreateCommentHandler creates a new handler for creating comments
func NewCreateCommentHandler(service comments.Service) *CreateCommentHandler {
	return &CreateCommentHandler{
		service: service,
	}
}

// CreateCommentInput is the request body for POST /v1/comments
type CreateCommentInput struct {
	ParentID     *string `json:"parent_id"`
	TargetType   string  `json:"target_type"`
	TargetID     string  `json:"target_id"`
	BodyMarkdown string  `json:"body_markdown"`
}

// HandleCreate handles comment creation requests
// POST /v1/comments
//
// Request body: { "target_type": "post", "target_id": "...", "parent_id": null, "body_markdown": "..." }
// Response: 201 { "ok": true, "data": CommentView }
func (h *CreateCommentHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	// 1. Parse the size-capped JSON body
	var input CreateCommentInput
	if err := handlers.DecodeJSON(w, r, &input); err != nil {
		handlers.WriteError(w, r, err)
		return
	}

	// 2. Hand the raw client fingerprint to the service, which only persists digests
	req := comments.CreateCommentRequest{
		ParentID:     input.ParentID,
		TargetType:   comments.TargetType(input.TargetType),
		TargetID:     input.TargetID,
		BodyMarkdown: input.BodyMarkdown,
		IP:           middleware.ClientIP(r),
		UserAgent:    r.UserAgent(),
	}

	// 3. Create
	view, err := h.service.CreateComment(r.Context(), middleware.GetUser(r), req)
	if err != nil {
		handlers.WriteError(w, r, err)
		return
	}

	handlers.WriteJSON(w, http.StatusCreated, view)
}
