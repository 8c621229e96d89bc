package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestETag(t *testing.T) {
	body := `{"ok":true,"data":{"items":[]}}`
	handler := ETag(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(body))
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/v1/comments", nil))
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, body, first.Body.String())
	tag := first.Header().Get("ETag")
	assert.Regexp(t, `^"[0-9a-f]{32}"$`, tag)

	req := httptest.NewRequest(http.MethodGet, "/v1/comments", nil)
	req.Header.Set("If-None-Match", tag)
	second := httptest.NewRecorder()
	handler.ServeHTTP(second, req)
	assert.Equal(t, http.StatusNotModified, second.Code)
	assert.Empty(t, second.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/v1/comments", nil)
	req.Header.Set("If-None-Match", `"stale", W/`+tag)
	third := httptest.NewRecorder()
	handler.ServeHTTP(third, req)
	assert.Equal(t, http.StatusNotModified, third.Code)

	req = httptest.NewRequest(http.MethodGet, "/v1/comments", nil)
	req.Header.Set("If-None-Match", `"stale"`)
	fourth := httptest.NewRecorder()
	handler.ServeHTTP(fourth, req)
	assert.Equal(t, http.StatusOK, fourth.Code)
	assert.Equal(t, body, fourth.Body.String())
}

func TestETag_SkipsErrors(t *testing.T) {
	handler := ETag(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false}`))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/comments", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, rec.Header().Get("ETag"))
	assert.Equal(t, `{"ok":false}`, rec.Body.String())
}
