package admin

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"Tsuki/internal/api/handlers"
	"Tsuki/internal/api/middleware"
	"Tsuki/internal/core/comments"
)

// ModerationHandler toggles comment visibility
type ModerationHandler struct {
	service comments.Service
	logger  *slog.Logger
}

// NewModerationHandler creates a new moderation handler
func NewModerationHandler(service comments.Service, logger *slog.Logger) *ModerationHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ModerationHandler{service: service, logger: logger}
}

// HandleHide hides a visible comment from public listings
// POST /v1/admin/comments/{id}/hide
func (h *ModerationHandler) HandleHide(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, "hide", h.service.HideComment)
}

// HandleUnhide restores a hidden comment. Other states are left untouched.
// POST /v1/admin/comments/{id}/unhide
func (h *ModerationHandler) HandleUnhide(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, "unhide", h.service.UnhideComment)
}

func (h *ModerationHandler) apply(
	w http.ResponseWriter,
	r *http.Request,
	action string,
	op func(ctx context.Context, id string) error,
) {
	id := chi.URLParam(r, "id")
	if err := op(r.Context(), id); err != nil {
		handlers.WriteError(w, r, err)
		return
	}

	var actor string
	if user := middleware.GetUser(r); user != nil {
		actor = user.ID
	}
	h.logger.Info("comment moderated",
		slog.String("action", action),
		slog.String("comment_id", id),
		slog.String("admin_id", actor),
	)

	handlers.WriteJSON(w, http.StatusOK, nil)
}
