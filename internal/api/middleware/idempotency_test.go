package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Tsuki/internal/core/idempotency"
	"Tsuki/internal/core/users"
	"Tsuki/internal/db/memory"
)

// countingHandler answers 201 with a body that changes on every execution
func countingHandler(calls *int32, status int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(calls, 1)
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"n":` + string(rune('0'+n)) + `,"echo":` + string(body) + `}`))
	})
}

func newIdempotencyRepo(t *testing.T) idempotency.Repository {
	t.Helper()
	repo, err := memory.NewIdempotencyRepository(16, nil)
	require.NoError(t, err)
	return repo
}

func postWithKey(user *users.User, key, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/v1/comments", strings.NewReader(body))
	if key != "" {
		req.Header.Set(idempotency.HeaderKey, key)
	}
	if user != nil {
		req = req.WithContext(WithUser(req.Context(), user))
	}
	return req
}

func TestIdempotency_ReplaysFirstResponse(t *testing.T) {
	var calls int32
	handler := Idempotency(newIdempotencyRepo(t), nil)(countingHandler(&calls, http.StatusCreated))
	user := &users.User{ID: "u1"}

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, postWithKey(user, "key-1", `{"a":1}`))
	second := httptest.NewRecorder()
	handler.ServeHTTP(second, postWithKey(user, "key-1", `{"a":1}`))

	assert.Equal(t, int32(1), calls)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Empty(t, first.Header().Get(idempotency.HeaderReplayed))
	assert.Equal(t, "true", second.Header().Get(idempotency.HeaderReplayed))
}

func TestIdempotency_ScopedByCaller(t *testing.T) {
	var calls int32
	handler := Idempotency(newIdempotencyRepo(t), nil)(countingHandler(&calls, http.StatusCreated))

	handler.ServeHTTP(httptest.NewRecorder(), postWithKey(&users.User{ID: "u1"}, "k", `{}`))
	handler.ServeHTTP(httptest.NewRecorder(), postWithKey(&users.User{ID: "u2"}, "k", `{}`))
	handler.ServeHTTP(httptest.NewRecorder(), postWithKey(nil, "k", `{}`))

	assert.Equal(t, int32(3), calls)
}

func TestIdempotency_KeyReusedWithDifferentBody(t *testing.T) {
	var calls int32
	handler := Idempotency(newIdempotencyRepo(t), nil)(countingHandler(&calls, http.StatusCreated))
	user := &users.User{ID: "u1"}

	handler.ServeHTTP(httptest.NewRecorder(), postWithKey(user, "k", `{"a":1}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, postWithKey(user, "k", `{"a":2}`))

	assert.Equal(t, int32(1), calls)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_FAILED", decodeErrorCode(t, rec))
	assert.Contains(t, rec.Body.String(), "KEY_REUSED")
}

func TestIdempotency_BypassAndFailures(t *testing.T) {
	tests := []struct {
		name   string
		key    string
		status int
	}{
		{name: "no key", key: "", status: http.StatusCreated},
		{name: "malformed key", key: "not a key!", status: http.StatusCreated},
		{name: "key too long", key: strings.Repeat("a", 65), status: http.StatusCreated},
		{name: "error responses are not cached", key: "k", status: http.StatusTooManyRequests},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			handler := Idempotency(newIdempotencyRepo(t), nil)(countingHandler(&calls, tt.status))
			user := &users.User{ID: "u1"}

			for i := 0; i < 2; i++ {
				rec := httptest.NewRecorder()
				handler.ServeHTTP(rec, postWithKey(user, tt.key, `{}`))
				assert.Equal(t, tt.status, rec.Code)
				assert.Empty(t, rec.Header().Get(idempotency.HeaderReplayed))
			}
			assert.Equal(t, int32(2), calls)
		})
	}
}

func TestIdempotency_ConcurrentRetryWaitsForFirst(t *testing.T) {
	var calls int32
	entered := make(chan struct{})
	release := make(chan struct{})
	slow := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			close(entered)
			<-release
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"c1"}`))
	})
	handler := Idempotency(newIdempotencyRepo(t), nil)(slow)
	user := &users.User{ID: "u1"}

	first := httptest.NewRecorder()
	retry := httptest.NewRecorder()
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		handler.ServeHTTP(first, postWithKey(user, "key-1", `{"a":1}`))
	}()
	<-entered
	go func() {
		defer wg.Done()
		handler.ServeHTTP(retry, postWithKey(user, "key-1", `{"a":1}`))
	}()
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls)
	assert.Equal(t, first.Body.String(), retry.Body.String())
	assert.Equal(t, "true", retry.Header().Get(idempotency.HeaderReplayed))
}

func TestIdempotency_ScopeLocksReleased(t *testing.T) {
	locks := &scopeLocks{held: make(map[string]*scopeLock)}
	unlockA := locks.lock("a")
	unlockB := locks.lock("b")
	assert.Len(t, locks.held, 2)

	unlockA()
	unlockB()
	assert.Empty(t, locks.held)
}
