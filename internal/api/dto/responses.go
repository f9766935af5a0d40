package dto

import (
	"time"

	"github.com/eshaffer321/receipt-reconciler/internal/domain/advisor"
	"github.com/eshaffer321/receipt-reconciler/internal/domain/reconciler"
	"github.com/eshaffer321/receipt-reconciler/internal/domain/record"
	"github.com/eshaffer321/receipt-reconciler/internal/domain/state"
)

// HealthResponse is returned by the health check endpoint.
type HealthResponse struct {
	Status    string `json:"status"`
	Database  string `json:"database,omitempty"`
	Timestamp string `json:"timestamp"`
}

// Database states reported by the health check
const (
	DatabaseOK          = "ok"
	DatabaseUnavailable = "unavailable"
)

// SummaryResponse holds per-category counts.
type SummaryResponse struct {
	Transactions          int  `json:"transactions"`
	Proofs                int  `json:"proofs"`
	Validated             int  `json:"validated"`
	Recommended           int  `json:"recommended"`
	Discrepancies         int  `json:"discrepancies"`
	UnmatchedTransactions int  `json:"unmatched_transactions"`
	UnmatchedProofs       int  `json:"unmatched_proofs"`
	Recommendations       int  `json:"recommendations"`
	Reconciled            bool `json:"reconciled"`
}

// SessionResponse represents a session in API responses.
type SessionResponse struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	CreatedAt string          `json:"created_at"`
	UpdatedAt string          `json:"updated_at"`
	Summary   SummaryResponse `json:"summary"`
}

// SessionListResponse is returned when listing sessions.
type SessionListResponse struct {
	Sessions   []SessionResponse `json:"sessions"`
	TotalCount int               `json:"total_count"`
	Limit      int               `json:"limit"`
	Offset     int               `json:"offset"`
}

// StateResponse is a session's full state.
type StateResponse struct {
	Validated             []reconciler.MatchedPair `json:"validated_transactions"`
	Discrepancies         []reconciler.MatchedPair `json:"discrepancies"`
	UnmatchedTransactions []record.Record          `json:"unmatched_transactions"`
	UnmatchedProofs       []record.Record          `json:"unmatched_proofs"`
	Recommendations       []advisor.Recommendation `json:"recommendations"`
	Message               string                   `json:"message,omitempty"`
}

// SessionDetailResponse is returned for a single session.
type SessionDetailResponse struct {
	SessionResponse
	State StateResponse `json:"state"`
}

// OutcomeResponse is returned by validate and accept.
type OutcomeResponse struct {
	SessionID string          `json:"session_id"`
	RunID     int64           `json:"run_id"`
	Status    string          `json:"status"`
	Failed    bool            `json:"failed"`
	Error     string          `json:"error,omitempty"`
	Summary   SummaryResponse `json:"summary"`
	State     StateResponse   `json:"state"`
}

// RunResponse represents a run in API responses.
type RunResponse struct {
	ID             int64           `json:"id"`
	Kind           string          `json:"kind"`
	Status         string          `json:"status"`
	StartedAt      string          `json:"started_at"`
	CompletedAt    string          `json:"completed_at,omitempty"`
	DurationMs     int64           `json:"duration_ms"`
	TransactionsIn int             `json:"transactions_in"`
	ProofsIn       int             `json:"proofs_in"`
	Summary        SummaryResponse `json:"summary"`
	Message        string          `json:"message,omitempty"`
	ErrorMessage   string          `json:"error_message,omitempty"`
}

// RunListResponse is returned when listing runs.
type RunListResponse struct {
	Runs  []RunResponse `json:"runs"`
	Count int           `json:"count"`
}

// NewHealthResponse creates a health response with current timestamp.
// Status is "degraded" when the database is unavailable.
func NewHealthResponse(database string) HealthResponse {
	status := "ok"
	if database == DatabaseUnavailable {
		status = "degraded"
	}
	return HealthResponse{
		Status:    status,
		Database:  database,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// NewSummaryResponse converts state counts.
func NewSummaryResponse(sum state.Summary) SummaryResponse {
	return SummaryResponse{
		Transactions:          sum.Transactions,
		Proofs:                sum.Proofs,
		Validated:             sum.Validated,
		Recommended:           sum.Recommended,
		Discrepancies:         sum.Discrepancies,
		UnmatchedTransactions: sum.UnmatchedTransactions,
		UnmatchedProofs:       sum.UnmatchedProofs,
		Recommendations:       sum.Recommendations,
		Reconciled:            sum.Discrepancies == 0 && sum.UnmatchedTransactions == 0 && sum.UnmatchedProofs == 0,
	}
}

// NewStateResponse converts a state. Nil tables become empty arrays.
func NewStateResponse(st state.State) StateResponse {
	st = st.Clone()
	return StateResponse{
		Validated:             st.Validated,
		Discrepancies:         st.Discrepancies,
		UnmatchedTransactions: st.UnmatchedTransactions,
		UnmatchedProofs:       st.UnmatchedProofs,
		Recommendations:       st.Recommendations,
		Message:               st.Message,
	}
}
