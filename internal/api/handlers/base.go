package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/eshaffer321/receipt-reconciler/internal/adapters/currency"
	"github.com/eshaffer321/receipt-reconciler/internal/api/dto"
	"github.com/eshaffer321/receipt-reconciler/internal/application/service"
	"github.com/eshaffer321/receipt-reconciler/internal/domain/record"
	"github.com/eshaffer321/receipt-reconciler/internal/domain/state"
)

// Base provides shared functionality for all handlers.
type Base struct {
	sessions *service.SessionService
}

// NewBase creates a new base handler with the given session service.
func NewBase(sessions *service.SessionService) *Base {
	return &Base{sessions: sessions}
}

// WriteJSON writes a JSON response with the given status code.
func (b *Base) WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteError writes an error response with the given status code.
func (b *Base) WriteError(w http.ResponseWriter, status int, err dto.APIError) {
	b.WriteJSON(w, status, err)
}

// WriteServiceError maps a session service error to a response.
func (b *Base) WriteServiceError(w http.ResponseWriter, err error) {
	var schemaErr *record.SchemaMismatchError
	switch {
	case errors.As(err, &schemaErr):
		b.WriteError(w, http.StatusBadRequest, dto.ValidationError(err.Error()))
	case errors.Is(err, service.ErrSessionNotFound):
		b.WriteError(w, http.StatusNotFound, dto.NotFoundError("session"))
	case errors.Is(err, state.ErrInvalidRecommendationIndex):
		b.WriteError(w, http.StatusBadRequest, dto.InvalidIndexError(err.Error()))
	case errors.Is(err, service.ErrNoConverter):
		b.WriteError(w, http.StatusBadRequest, dto.BadRequestError(err.Error()))
	case errors.Is(err, currency.ErrConversionFailed):
		b.WriteError(w, http.StatusBadGateway, dto.UpstreamError(err.Error()))
	default:
		b.WriteError(w, http.StatusInternalServerError, dto.InternalError())
	}
}

// ParseIntParam parses an integer query parameter with a default value.
func ParseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return parsed
}
