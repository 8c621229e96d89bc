// Package session serves the identity endpoints: the development login,
// logout and the current-user probe.
package session

import (
	"log/slog"
	"net/http"

	"Tsuki/internal/api/handlers"
	"Tsuki/internal/api/middleware"
	"Tsuki/internal/core/users"
)

// LoginHandler signs a user in by login name without an OAuth exchange.
// Routes only mount it when development auth is enabled.
type LoginHandler struct {
	users    users.Service
	sessions *middleware.SessionManager
	logger   *slog.Logger
}

// NewLoginHandler creates a development login handler
func NewLoginHandler(userService users.Service, sessions *middleware.SessionManager, logger *slog.Logger) *LoginHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoginHandler{users: userService, sessions: sessions, logger: logger}
}

// LoginInput is the request body for the development login
type LoginInput struct {
	Login     string `json:"login"`
	AvatarURL string `json:"avatar_url"`
	GitHubID  int64  `json:"github_id"`
}

// LoginOutput returns the identity and the CSRF token to echo on writes
type LoginOutput struct {
	User      users.View `json:"user"`
	CSRFToken string     `json:"csrf_token"`
}

// HandleLogin upserts the user and starts a session
// POST /v1/auth/dev/login
func (h *LoginHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var input LoginInput
	if err := handlers.DecodeJSON(w, r, &input); err != nil {
		handlers.WriteError(w, r, err)
		return
	}

	user, err := h.users.IndexUser(r.Context(), users.CreateUserRequest{
		Login:     input.Login,
		AvatarURL: input.AvatarURL,
		GitHubID:  input.GitHubID,
	})
	if err != nil {
		handlers.WriteError(w, r, err)
		return
	}

	token, err := h.sessions.Login(w, r, user)
	if err != nil {
		handlers.WriteError(w, r, err)
		return
	}

	h.logger.Warn("development login used", slog.String("user_id", user.ID))
	handlers.WriteJSON(w, http.StatusOK, LoginOutput{User: users.ToView(user), CSRFToken: token})
}
