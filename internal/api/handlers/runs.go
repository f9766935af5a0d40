package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/eshaffer321/receipt-reconciler/internal/api/dto"
	"github.com/eshaffer321/receipt-reconciler/internal/application/service"
	"github.com/eshaffer321/receipt-reconciler/internal/infrastructure/storage"
)

// RunsHandler handles run history requests.
type RunsHandler struct {
	*Base
}

// NewRunsHandler creates a new runs handler.
func NewRunsHandler(sessions *service.SessionService) *RunsHandler {
	return &RunsHandler{
		Base: NewBase(sessions),
	}
}

// List handles GET /api/sessions/{id}/runs - returns the session's runs, newest first.
func (h *RunsHandler) List(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("session ID is required"))
		return
	}

	params := dto.DefaultRunListParams()
	params.Limit = ParseIntParam(r, "limit", params.Limit)

	runs, err := h.sessions.ListRuns(id, params.Limit)
	if err != nil {
		h.WriteServiceError(w, err)
		return
	}

	response := dto.RunListResponse{
		Runs:  make([]dto.RunResponse, 0, len(runs)),
		Count: len(runs),
	}
	for _, run := range runs {
		response.Runs = append(response.Runs, toRunResponse(run))
	}

	h.WriteJSON(w, http.StatusOK, response)
}

// toRunResponse converts a storage Run to an API response.
func toRunResponse(run storage.Run) dto.RunResponse {
	response := dto.RunResponse{
		ID:             run.ID,
		Kind:           run.Kind,
		Status:         run.Status,
		StartedAt:      run.StartedAt.Format(time.RFC3339),
		DurationMs:     run.Duration().Milliseconds(),
		TransactionsIn: run.TransactionsIn,
		ProofsIn:       run.ProofsIn,
		Summary:        dto.NewSummaryResponse(run.Summary),
		Message:        run.Message,
		ErrorMessage:   run.ErrorMessage,
	}
	if run.CompletedAt != nil {
		response.CompletedAt = run.CompletedAt.Format(time.RFC3339)
	}
	return response
}
