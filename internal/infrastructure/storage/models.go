package storage

import (
	"time"

	"github.com/eshaffer321/receipt-reconciler/internal/domain/state"
)

// Run kinds
const (
	RunKindValidate = "validate"
	RunKindAccept   = "accept"
)

// Run statuses
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// Session is a reconciliation session and its accumulated state
type Session struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
	Summary   state.Summary `json:"summary"`

	// Loaded by GetSession only
	State state.State `json:"state"`
}

// Run represents one validate or accept invocation
type Run struct {
	ID             int64         `json:"id"`
	SessionID      string        `json:"session_id"`
	Kind           string        `json:"kind"`
	Status         string        `json:"status"`
	StartedAt      time.Time     `json:"started_at"`
	CompletedAt    *time.Time    `json:"completed_at,omitempty"`
	TransactionsIn int           `json:"transactions_in"`
	ProofsIn       int           `json:"proofs_in"`
	Summary        state.Summary `json:"summary"`
	Message        string        `json:"message,omitempty"`
	ErrorMessage   string        `json:"error_message,omitempty"`
}

// Duration returns how long the run took, zero while running
func (r *Run) Duration() time.Duration {
	if r.CompletedAt == nil {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}

// LLMCall is a logged advisor request
type LLMCall struct {
	ID               int64     `json:"id"`
	RunID            int64     `json:"run_id"`
	SessionID        string    `json:"session_id"`
	Provider         string    `json:"provider"`
	Model            string    `json:"model"`
	Prompt           string    `json:"prompt"`
	Response         string    `json:"response"`
	Error            string    `json:"error,omitempty"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	DurationMs       int64     `json:"duration_ms"`
	CreatedAt        time.Time `json:"created_at"`
}

// Fixed-width so stored timestamps sort lexically
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
