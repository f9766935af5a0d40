package handlers_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/receipt-reconciler/internal/api/dto"
	"github.com/eshaffer321/receipt-reconciler/internal/api/handlers"
)

func checkHealth(t *testing.T, handler *handlers.HealthHandler) (int, dto.HealthResponse) {
	t.Helper()
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var response dto.HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
	return rec.Code, response
}

func TestHealthHandler_ServeHTTP(t *testing.T) {
	t.Run("database reachable", func(t *testing.T) {
		svc, _ := newSessionService(t)

		code, response := checkHealth(t, handlers.NewHealthHandler(svc))

		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "ok", response.Status)
		assert.Equal(t, dto.DatabaseOK, response.Database)
		assert.NotEmpty(t, response.Timestamp)
	})

	t.Run("database unavailable", func(t *testing.T) {
		svc, repo := newSessionService(t)
		repo.PingErr = errors.New("disk I/O error")

		code, response := checkHealth(t, handlers.NewHealthHandler(svc))

		assert.Equal(t, http.StatusServiceUnavailable, code)
		assert.Equal(t, "degraded", response.Status)
		assert.Equal(t, dto.DatabaseUnavailable, response.Database)
	})

	t.Run("liveness only without a service", func(t *testing.T) {
		code, response := checkHealth(t, handlers.NewHealthHandler(nil))

		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "ok", response.Status)
		assert.Empty(t, response.Database)
	})
}
