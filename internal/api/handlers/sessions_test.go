package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/receipt-reconciler/internal/api/dto"
	"github.com/eshaffer321/receipt-reconciler/internal/api/handlers"
	"github.com/eshaffer321/receipt-reconciler/internal/application/service"
	"github.com/eshaffer321/receipt-reconciler/internal/domain/advisor"
	"github.com/eshaffer321/receipt-reconciler/internal/infrastructure/logging"
	"github.com/eshaffer321/receipt-reconciler/internal/infrastructure/storage"
)

const validateBody = `{
  "transactions": [
    {"business_name": "Chipotle", "total": "15.00", "date": "2023-01-02"},
    {"business_name": "Starbucks", "total": 4.50, "date": "2023-01-03"}
  ],
  "proofs": [
    {"business_name": "Chipotle", "total": "14.50", "date": "2023-01-02"},
    {"business_name": "Starbucks", "total": "4.50", "date": "2023-01-03"}
  ]
}`

func newSessionService(t *testing.T) (*service.SessionService, *storage.MockRepository) {
	t.Helper()
	repo := storage.NewMockRepository()
	return service.NewSessionService(repo, nil, nil, logging.Discard()), repo
}

func createSession(t *testing.T, svc *service.SessionService) string {
	t.Helper()
	session, err := svc.CreateSession(context.Background(), "test")
	require.NoError(t, err)
	return session.ID
}

// setChiURLParam adds a chi URL parameter to the request context
func setChiURLParam(ctx context.Context, key, value string) context.Context {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return context.WithValue(ctx, chi.RouteCtxKey, rctx)
}

func TestSessionsHandler_Create(t *testing.T) {
	t.Run("creates session with name", func(t *testing.T) {
		svc, _ := newSessionService(t)
		handler := handlers.NewSessionsHandler(svc)

		req := httptest.NewRequest(http.MethodPost, "/api/sessions", strings.NewReader(`{"name":"March"}`))
		rec := httptest.NewRecorder()

		handler.Create(rec, req)

		assert.Equal(t, http.StatusCreated, rec.Code)

		var response dto.SessionResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
		assert.NotEmpty(t, response.ID)
		assert.Equal(t, "March", response.Name)
		assert.True(t, response.Summary.Reconciled)
	})

	t.Run("accepts empty body", func(t *testing.T) {
		svc, _ := newSessionService(t)
		handler := handlers.NewSessionsHandler(svc)

		req := httptest.NewRequest(http.MethodPost, "/api/sessions", nil)
		rec := httptest.NewRecorder()

		handler.Create(rec, req)

		assert.Equal(t, http.StatusCreated, rec.Code)
	})

	t.Run("rejects malformed body", func(t *testing.T) {
		svc, _ := newSessionService(t)
		handler := handlers.NewSessionsHandler(svc)

		req := httptest.NewRequest(http.MethodPost, "/api/sessions", strings.NewReader(`{`))
		rec := httptest.NewRecorder()

		handler.Create(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestSessionsHandler_List(t *testing.T) {
	svc, _ := newSessionService(t)
	for i := 0; i < 3; i++ {
		createSession(t, svc)
	}
	handler := handlers.NewSessionsHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/sessions?limit=2", nil)
	rec := httptest.NewRecorder()

	handler.List(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var response dto.SessionListResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
	assert.Equal(t, 3, response.TotalCount)
	assert.Len(t, response.Sessions, 2)
	assert.Equal(t, 2, response.Limit)
}

func TestSessionsHandler_Get(t *testing.T) {
	t.Run("returns session state", func(t *testing.T) {
		svc, _ := newSessionService(t)
		id := createSession(t, svc)
		handler := handlers.NewSessionsHandler(svc)

		req := httptest.NewRequest(http.MethodGet, "/api/sessions/"+id, nil)
		req = req.WithContext(setChiURLParam(req.Context(), "id", id))
		rec := httptest.NewRecorder()

		handler.Get(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var response dto.SessionDetailResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
		assert.Equal(t, id, response.ID)
		assert.NotNil(t, response.State.Discrepancies)
	})

	t.Run("returns 404 for unknown session", func(t *testing.T) {
		svc, _ := newSessionService(t)
		handler := handlers.NewSessionsHandler(svc)

		req := httptest.NewRequest(http.MethodGet, "/api/sessions/missing", nil)
		req = req.WithContext(setChiURLParam(req.Context(), "id", "missing"))
		rec := httptest.NewRecorder()

		handler.Get(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)

		var apiErr dto.APIError
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&apiErr))
		assert.Equal(t, dto.ErrCodeNotFound, apiErr.Code)
	})
}

func TestSessionsHandler_Validate(t *testing.T) {
	t.Run("reconciles tables", func(t *testing.T) {
		svc, _ := newSessionService(t)
		id := createSession(t, svc)
		handler := handlers.NewSessionsHandler(svc)

		req := httptest.NewRequest(http.MethodPost, "/api/sessions/"+id+"/validate", strings.NewReader(validateBody))
		req = req.WithContext(setChiURLParam(req.Context(), "id", id))
		rec := httptest.NewRecorder()

		handler.Validate(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var response dto.OutcomeResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
		assert.Equal(t, id, response.SessionID)
		assert.False(t, response.Failed)
		assert.Equal(t, advisor.AllClearMessage, response.Status)
		assert.Equal(t, 1, response.Summary.Validated)
		assert.Equal(t, 1, response.Summary.Discrepancies)
		require.Len(t, response.State.Discrepancies, 1)
		assert.Equal(t, "0.5", response.State.Discrepancies[0].Delta.String())
	})

	t.Run("rejects rows without a business name", func(t *testing.T) {
		svc, repo := newSessionService(t)
		id := createSession(t, svc)
		handler := handlers.NewSessionsHandler(svc)

		body := `{"transactions":[{"total":"1.00","date":"2023-01-01"}]}`
		req := httptest.NewRequest(http.MethodPost, "/api/sessions/"+id+"/validate", strings.NewReader(body))
		req = req.WithContext(setChiURLParam(req.Context(), "id", id))
		rec := httptest.NewRecorder()

		handler.Validate(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)

		var apiErr dto.APIError
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&apiErr))
		assert.Equal(t, dto.ErrCodeValidation, apiErr.Code)
		assert.Contains(t, apiErr.Message, "business_name")
		assert.Equal(t, 0, repo.SaveSnapshotCalls)
	})

	t.Run("rejects rows without a total", func(t *testing.T) {
		svc, repo := newSessionService(t)
		id := createSession(t, svc)
		handler := handlers.NewSessionsHandler(svc)

		body := `{
		  "transactions": [{"business_name": "Chipotle", "date": "2023-01-02"}],
		  "proofs": [{"business_name": "Chipotle", "total": "14.50", "date": "2023-01-02"}]
		}`
		req := httptest.NewRequest(http.MethodPost, "/api/sessions/"+id+"/validate", strings.NewReader(body))
		req = req.WithContext(setChiURLParam(req.Context(), "id", id))
		rec := httptest.NewRecorder()

		handler.Validate(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)

		var apiErr dto.APIError
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&apiErr))
		assert.Equal(t, dto.ErrCodeValidation, apiErr.Code)
		assert.Contains(t, apiErr.Message, "total")
		assert.Equal(t, 0, repo.SaveSnapshotCalls)

		session, err := svc.GetSession(id)
		require.NoError(t, err)
		assert.Empty(t, session.State.Discrepancies)
		assert.Empty(t, session.State.Transactions)
	})

	t.Run("rejects a null total", func(t *testing.T) {
		svc, _ := newSessionService(t)
		id := createSession(t, svc)
		handler := handlers.NewSessionsHandler(svc)

		body := `{"proofs": [{"business_name": "Chipotle", "total": null, "date": "2023-01-02"}]}`
		req := httptest.NewRequest(http.MethodPost, "/api/sessions/"+id+"/validate", strings.NewReader(body))
		req = req.WithContext(setChiURLParam(req.Context(), "id", id))
		rec := httptest.NewRecorder()

		handler.Validate(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("currency conversion without converter is a bad request", func(t *testing.T) {
		svc, _ := newSessionService(t)
		id := createSession(t, svc)
		handler := handlers.NewSessionsHandler(svc)

		req := httptest.NewRequest(http.MethodPost, "/api/sessions/"+id+"/validate",
			strings.NewReader(`{"convert_currency":true,"proofs":[{"business_name":"a","total":1,"date":"2023-01-01","currency":"EUR"}]}`))
		req = req.WithContext(setChiURLParam(req.Context(), "id", id))
		rec := httptest.NewRecorder()

		handler.Validate(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown session", func(t *testing.T) {
		svc, _ := newSessionService(t)
		handler := handlers.NewSessionsHandler(svc)

		req := httptest.NewRequest(http.MethodPost, "/api/sessions/nope/validate", strings.NewReader(validateBody))
		req = req.WithContext(setChiURLParam(req.Context(), "id", "nope"))
		rec := httptest.NewRecorder()

		handler.Validate(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestSessionsHandler_Accept(t *testing.T) {
	t.Run("invalid index", func(t *testing.T) {
		svc, _ := newSessionService(t)
		id := createSession(t, svc)
		handler := handlers.NewSessionsHandler(svc)

		req := httptest.NewRequest(http.MethodPost, "/api/sessions/"+id+"/accept", strings.NewReader(`{"indices":[0]}`))
		req = req.WithContext(setChiURLParam(req.Context(), "id", id))
		rec := httptest.NewRecorder()

		handler.Accept(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)

		var apiErr dto.APIError
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&apiErr))
		assert.Equal(t, dto.ErrCodeInvalidIndex, apiErr.Code)
	})

	t.Run("requires indices", func(t *testing.T) {
		svc, _ := newSessionService(t)
		id := createSession(t, svc)
		handler := handlers.NewSessionsHandler(svc)

		req := httptest.NewRequest(http.MethodPost, "/api/sessions/"+id+"/accept", strings.NewReader(`{}`))
		req = req.WithContext(setChiURLParam(req.Context(), "id", id))
		rec := httptest.NewRecorder()

		handler.Accept(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestRunsHandler_List(t *testing.T) {
	t.Run("returns runs newest first", func(t *testing.T) {
		svc, _ := newSessionService(t)
		id := createSession(t, svc)

		sessions := handlers.NewSessionsHandler(svc)
		for i := 0; i < 2; i++ {
			req := httptest.NewRequest(http.MethodPost, "/validate", strings.NewReader(validateBody))
			req = req.WithContext(setChiURLParam(req.Context(), "id", id))
			sessions.Validate(httptest.NewRecorder(), req)
		}

		handler := handlers.NewRunsHandler(svc)
		req := httptest.NewRequest(http.MethodGet, "/api/sessions/"+id+"/runs?limit=1", nil)
		req = req.WithContext(setChiURLParam(req.Context(), "id", id))
		rec := httptest.NewRecorder()

		handler.List(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var response dto.RunListResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
		require.Equal(t, 1, response.Count)
		assert.Equal(t, int64(2), response.Runs[0].ID)
		assert.Equal(t, storage.RunKindValidate, response.Runs[0].Kind)
		assert.Equal(t, storage.RunStatusCompleted, response.Runs[0].Status)
		assert.NotEmpty(t, response.Runs[0].CompletedAt)
	})

	t.Run("returns 404 for unknown session", func(t *testing.T) {
		svc, _ := newSessionService(t)
		handler := handlers.NewRunsHandler(svc)

		req := httptest.NewRequest(http.MethodGet, "/api/sessions/x/runs", nil)
		req = req.WithContext(setChiURLParam(req.Context(), "id", "x"))
		rec := httptest.NewRecorder()

		handler.List(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
