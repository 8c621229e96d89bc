package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"

	"Tsuki/internal/api/handlers"
	"Tsuki/internal/core/comments"
	"Tsuki/internal/core/users"
)

const (
	// SessionCookieName is the signed cookie carrying the session
	SessionCookieName = "tsuki_session"

	// sessionMaxAge is how long a login lasts
	sessionMaxAge = 30 * 24 * time.Hour

	sessionUserIDKey = "user_id"
)

// Context keys for storing request identity
type contextKey string

const userContextKey contextKey = "user"

// SessionManager resolves the session cookie to a user and issues or clears it.
// Identity resolution applies the admin allow-list through the user service.
type SessionManager struct {
	store  *sessions.CookieStore
	users  users.Service
	logger *slog.Logger
	secure bool
}

// NewSessionManager creates a session manager signing cookies with secret
func NewSessionManager(secret []byte, secure bool, userService users.Service, logger *slog.Logger) *SessionManager {
	if logger == nil {
		logger = slog.Default()
	}

	store := sessions.NewCookieStore(secret)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(sessionMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}

	return &SessionManager{
		store:  store,
		users:  userService,
		logger: logger,
		secure: secure,
	}
}

// Session loads the caller's identity into the request context.
// A missing, tampered or stale cookie leaves the request anonymous.
func (m *SessionManager) Session(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, err := m.store.Get(r, SessionCookieName)
		if err != nil {
			// Signature mismatch after a secret rotation, etc.
			next.ServeHTTP(w, r)
			return
		}

		userID, _ := session.Values[sessionUserIDKey].(string)
		if userID == "" {
			next.ServeHTTP(w, r)
			return
		}

		user, err := m.users.GetUserByID(r.Context(), userID)
		if err != nil {
			if errors.Is(err, users.ErrUserNotFound) {
				next.ServeHTTP(w, r)
				return
			}
			handlers.WriteError(w, r, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

// Login binds the session to user and issues a fresh CSRF token cookie.
// The token is returned so the caller can hand it to the client.
func (m *SessionManager) Login(w http.ResponseWriter, r *http.Request, user *users.User) (string, error) {
	// Get never fails hard; a bad cookie yields a fresh session
	session, _ := m.store.Get(r, SessionCookieName)
	session.Values[sessionUserIDKey] = user.ID
	if err := session.Save(r, w); err != nil {
		return "", err
	}

	token := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     CSRFCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(sessionMaxAge.Seconds()),
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})

	m.logger.Info("session started", slog.String("user_id", user.ID))
	return token, nil
}

// Logout expires both the session and CSRF cookies
func (m *SessionManager) Logout(w http.ResponseWriter, r *http.Request) error {
	session, _ := m.store.Get(r, SessionCookieName)
	delete(session.Values, sessionUserIDKey)
	session.Options.MaxAge = -1
	if err := session.Save(r, w); err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CSRFCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// RequireAuth rejects anonymous requests with AUTH_REQUIRED
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetUser(r) == nil {
			handlers.WriteError(w, r, comments.ErrAuthRequired)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects anonymous requests with AUTH_REQUIRED and non-admins with FORBIDDEN
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := GetUser(r)
		if user == nil {
			handlers.WriteError(w, r, comments.ErrAuthRequired)
			return
		}
		if !user.IsAdmin() {
			handlers.WriteError(w, r, comments.NewError(comments.CodeForbidden, "admin role required", nil))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetUser returns the resolved caller, or nil when anonymous
func GetUser(r *http.Request) *users.User {
	return UserFromContext(r.Context())
}

// UserFromContext returns the user stored by Session
func UserFromContext(ctx context.Context) *users.User {
	user, _ := ctx.Value(userContextKey).(*users.User)
	return user
}

// WithUser stores user in ctx. Tests use it to simulate a resolved session.
func WithUser(ctx context.Context, user *users.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}
