package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// Trusted client-IP sources. Anything a proxy did not set is client-controlled,
// so headers are only read when the deployment says a proxy rewrites them.
const (
	TrustNone       = "none"
	TrustCloudflare = "cf"
	TrustForwarded  = "xff"
)

const clientIPContextKey contextKey = "client_ip"

// ClientAddress resolves the caller's address once per request according to trust.
// TrustNone (and any unknown value) uses the socket peer. TrustCloudflare reads
// CF-Connecting-IP. TrustForwarded delegates to chi's RealIP, which rewrites RemoteAddr
// from True-Client-IP, X-Real-IP or X-Forwarded-For.
func ClientAddress(trust string) func(http.Handler) http.Handler {
	switch trust {
	case TrustForwarded:
		return chiMiddleware.RealIP
	case TrustCloudflare:
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("CF-Connecting-IP"))); ip != nil {
					r = r.WithContext(context.WithValue(r.Context(), clientIPContextKey, ip.String()))
				}
				next.ServeHTTP(w, r)
			})
		}
	default:
		return func(next http.Handler) http.Handler { return next }
	}
}

// ClientIP returns the address chosen by ClientAddress, or the RemoteAddr host
func ClientIP(r *http.Request) string {
	if ip, ok := r.Context().Value(clientIPContextKey).(string); ok && ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
