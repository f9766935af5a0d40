package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/eshaffer321/receipt-reconciler/internal/api/dto"
	"github.com/eshaffer321/receipt-reconciler/internal/application/service"
)

// HealthHandler handles health check requests.
type HealthHandler struct {
	*Base
}

// NewHealthHandler creates a health handler. With a nil service only
// liveness is reported.
func NewHealthHandler(sessions *service.SessionService) *HealthHandler {
	return &HealthHandler{Base: NewBase(sessions)}
}

// ServeHTTP reports 503 when the database cannot be reached.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.sessions == nil {
		h.WriteJSON(w, http.StatusOK, dto.NewHealthResponse(""))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.sessions.Ping(ctx); err != nil {
		h.WriteJSON(w, http.StatusServiceUnavailable, dto.NewHealthResponse(dto.DatabaseUnavailable))
		return
	}
	h.WriteJSON(w, http.StatusOK, dto.NewHealthResponse(dto.DatabaseOK))
}
