package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, h *Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	h.Register(r)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestReadiness(t *testing.T) {
	t.Run("all checks up", func(t *testing.T) {
		h := New("test")
		h.RegisterCheck("postgres", func(context.Context) error { return nil })

		w := serve(t, h, "/health/ready")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("failing check returns 503", func(t *testing.T) {
		h := New("test")
		h.RegisterCheck("postgres", func(context.Context) error { return nil })
		h.RegisterCheck("redis", func(context.Context) error { return errors.New("connection refused") })

		w := serve(t, h, "/health/ready")
		require.Equal(t, http.StatusServiceUnavailable, w.Code)

		var body ReadinessResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Equal(t, "not_ready", body.Status)
		assert.Equal(t, "up", body.Checks["postgres"])
		assert.Contains(t, body.Checks["redis"], "connection refused")
	})
}

func TestLivenessAndStatus(t *testing.T) {
	h := New("dev")
	h.SetBackend("sequence", "redis")
	assert.Equal(t, http.StatusOK, serve(t, h, "/health/live").Code)

	w := serve(t, h, "/health")
	var body StatusResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "dev", body.Environment)
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, map[string]string{"sequence": "redis"}, body.Backends)
}
