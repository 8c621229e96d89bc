package session

import (
	"net/http"

	"Tsuki/internal/api/handlers"
	"Tsuki/internal/api/middleware"
	"Tsuki/internal/core/users"
)

// HandleMe reports the resolved identity, or null for anonymous callers
// GET /v1/auth/me
func HandleMe(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)
	if user == nil {
		handlers.WriteJSON(w, http.StatusOK, nil)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, users.ToView(user))
}
