package session

import (
	"net/http"

	"Tsuki/internal/api/handlers"
	"Tsuki/internal/api/middleware"
)

// LogoutHandler ends the current session
type LogoutHandler struct {
	sessions *middleware.SessionManager
}

// NewLogoutHandler creates a logout handler
func NewLogoutHandler(sessions *middleware.SessionManager) *LogoutHandler {
	return &LogoutHandler{sessions: sessions}
}

// HandleLogout expires the session and CSRF cookies
// POST /v1/auth/logout
func (h *LogoutHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Logout(w, r); err != nil {
		handlers.WriteError(w, r, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, nil)
}
