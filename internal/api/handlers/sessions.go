package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/eshaffer321/receipt-reconciler/internal/api/dto"
	"github.com/eshaffer321/receipt-reconciler/internal/application/service"
	"github.com/eshaffer321/receipt-reconciler/internal/infrastructure/storage"
)

// SessionsHandler handles session-related HTTP requests.
type SessionsHandler struct {
	*Base
}

// NewSessionsHandler creates a new sessions handler.
func NewSessionsHandler(sessions *service.SessionService) *SessionsHandler {
	return &SessionsHandler{
		Base: NewBase(sessions),
	}
}

// Create handles POST /api/sessions - creates an empty session.
// The body is optional.
func (h *SessionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("invalid request body"))
		return
	}

	session, err := h.sessions.CreateSession(r.Context(), req.Name)
	if err != nil {
		h.WriteServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, toSessionResponse(*session))
}

// List handles GET /api/sessions - returns sessions, most recently updated first.
func (h *SessionsHandler) List(w http.ResponseWriter, r *http.Request) {
	params := dto.DefaultSessionListParams()
	params.Limit = ParseIntParam(r, "limit", params.Limit)
	params.Offset = ParseIntParam(r, "offset", params.Offset)

	result, err := h.sessions.ListSessions(params.Limit, params.Offset)
	if err != nil {
		h.WriteServiceError(w, err)
		return
	}

	response := dto.SessionListResponse{
		Sessions:   make([]dto.SessionResponse, 0, len(result.Sessions)),
		TotalCount: result.TotalCount,
		Limit:      result.Limit,
		Offset:     result.Offset,
	}
	for _, s := range result.Sessions {
		response.Sessions = append(response.Sessions, toSessionResponse(s))
	}

	h.WriteJSON(w, http.StatusOK, response)
}

// Get handles GET /api/sessions/{id} - returns the session and its state.
func (h *SessionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("session ID is required"))
		return
	}

	session, err := h.sessions.GetSession(id)
	if err != nil {
		h.WriteServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, dto.SessionDetailResponse{
		SessionResponse: toSessionResponse(*session),
		State:           dto.NewStateResponse(session.State),
	})
}

// Validate handles POST /api/sessions/{id}/validate - runs a validation.
func (h *SessionsHandler) Validate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("session ID is required"))
		return
	}

	var req dto.ValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("invalid request body"))
		return
	}

	txns, err := dto.ToRecords("transactions", req.Transactions)
	if err != nil {
		h.WriteServiceError(w, err)
		return
	}
	proofs, err := dto.ToRecords("proofs", req.Proofs)
	if err != nil {
		h.WriteServiceError(w, err)
		return
	}

	outcome, err := h.sessions.Validate(r.Context(), id, txns, proofs, service.ValidateOptions{
		ConvertCurrency: req.ConvertCurrency,
	})
	if err != nil {
		h.WriteServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, toOutcomeResponse(outcome))
}

// Accept handles POST /api/sessions/{id}/accept - accepts recommendations by index.
func (h *SessionsHandler) Accept(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("session ID is required"))
		return
	}

	var req dto.AcceptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("invalid request body"))
		return
	}
	if len(req.Indices) == 0 {
		h.WriteError(w, http.StatusBadRequest, dto.ValidationError("indices is required"))
		return
	}

	outcome, err := h.sessions.Accept(r.Context(), id, req.Indices)
	if err != nil {
		h.WriteServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, toOutcomeResponse(outcome))
}

func toSessionResponse(s storage.Session) dto.SessionResponse {
	return dto.SessionResponse{
		ID:        s.ID,
		Name:      s.Name,
		CreatedAt: s.CreatedAt.Format(time.RFC3339),
		UpdatedAt: s.UpdatedAt.Format(time.RFC3339),
		Summary:   dto.NewSummaryResponse(s.Summary),
	}
}

func toOutcomeResponse(o *service.Outcome) dto.OutcomeResponse {
	response := dto.OutcomeResponse{
		SessionID: o.SessionID,
		RunID:     o.RunID,
		Status:    o.Status,
		Failed:    o.Failed(),
		Summary:   dto.NewSummaryResponse(o.State.Summary()),
		State:     dto.NewStateResponse(o.State),
	}
	if o.AdvisorErr != nil {
		response.Error = o.AdvisorErr.Error()
	}
	return response
}
