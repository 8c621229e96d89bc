package middleware

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"sync"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"Tsuki/internal/api/handlers"
	"Tsuki/internal/core/comments"
	"Tsuki/internal/core/idempotency"
)

// Idempotency replays the first successful response for a repeated Idempotency-Key.
// Records are scoped by route and caller; only 2xx responses are stored.
// Requests without a well-formed key run normally. Requests sharing a scope are
// serialized within the process, so a retry sent mid-flight replays the first result.
func Idempotency(repo idempotency.Repository, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	locks := &scopeLocks{held: make(map[string]*scopeLock)}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(idempotency.HeaderKey)
			if !idempotency.ValidKey(key) {
				next.ServeHTTP(w, r)
				return
			}

			body, err := io.ReadAll(io.LimitReader(r.Body, handlers.MaxBodyBytes+1))
			if err != nil {
				handlers.WriteError(w, r, comments.NewValidationError("body", "INVALID", "failed to read request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			route := r.Method + " " + r.URL.Path
			var userID string
			if user := GetUser(r); user != nil {
				userID = user.ID
			}
			requestHash := idempotency.RequestHash(body)

			unlock := locks.lock(route + "\x00" + userID + "\x00" + key)
			defer unlock()

			cached, err := repo.Find(r.Context(), route, userID, key)
			if err != nil {
				handlers.WriteError(w, r, err)
				return
			}
			if cached != nil {
				if cached.RequestHash != requestHash {
					handlers.WriteError(w, r, comments.NewValidationError(idempotency.HeaderKey, "KEY_REUSED",
						"Idempotency-Key was already used with a different request body"))
					return
				}
				logger.Debug("replaying idempotent response",
					slog.String("route", route),
					slog.String("request_id", chiMiddleware.GetReqID(r.Context())),
				)
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set(idempotency.HeaderReplayed, "true")
				w.WriteHeader(cached.Status)
				if _, err := w.Write(cached.Body); err != nil {
					logger.Warn("failed to write replayed response", slog.String("error", err.Error()))
				}
				return
			}

			var captured bytes.Buffer
			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			ww.Tee(&captured)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status < 200 || status >= 300 {
				return
			}

			record := &idempotency.Record{
				Route:       route,
				UserID:      userID,
				Key:         key,
				RequestHash: requestHash,
				Status:      status,
				Body:        captured.Bytes(),
			}
			// The response is already sent; a failed store only loses replay
			if err := repo.Store(r.Context(), record); err != nil {
				logger.Error("failed to store idempotent response",
					slog.String("route", route),
					slog.String("error", err.Error()),
				)
			}
		})
	}
}

// scopeLocks hands out one mutex per idempotency scope and drops it when unused
type scopeLocks struct {
	held map[string]*scopeLock
	mu   sync.Mutex
}

type scopeLock struct {
	mu   sync.Mutex
	refs int
}

func (l *scopeLocks) lock(scope string) func() {
	l.mu.Lock()
	entry, ok := l.held[scope]
	if !ok {
		entry = &scopeLock{}
		l.held[scope] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.held, scope)
		}
		l.mu.Unlock()
	}
}
