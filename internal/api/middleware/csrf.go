package middleware

import (
	"crypto/subtle"
	"net/http"

	"Tsuki/internal/api/handlers"
	"Tsuki/internal/core/comments"
)

const (
	// CSRFCookieName is readable by scripts so the client can echo it back
	CSRFCookieName = "tsuki_csrf"

	// CSRFHeader must repeat the cookie value on unsafe requests
	CSRFHeader = "X-CSRF-Token"
)

// CSRF enforces the double-submit check on POST, PATCH, PUT and DELETE.
// Failures are FORBIDDEN and happen before any handler runs.
func CSRF(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}

		header := r.Header.Get(CSRFHeader)
		cookie, err := r.Cookie(CSRFCookieName)
		if err != nil || cookie.Value == "" || header == "" ||
			subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(header)) != 1 {
			handlers.WriteError(w, r, comments.NewError(comments.CodeForbidden, "invalid CSRF token", nil))
			return
		}

		next.ServeHTTP(w, r)
	})
}
