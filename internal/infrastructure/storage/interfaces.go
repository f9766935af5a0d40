package storage

import (
	"context"
	"errors"

	"github.com/eshaffer321/receipt-reconciler/internal/domain/state"
)

// ErrNotFound is returned when a session or run does not exist.
var ErrNotFound = errors.New("not found")

// Repository defines the complete storage interface.
// This interface allows swapping implementations (SQLite, in-memory mock)
// and makes testing with mocks straightforward.
type Repository interface {
	SessionRepository
	RunRepository
	LLMCallRepository

	// Ping checks that the database is reachable
	Ping(ctx context.Context) error
	Close() error
}

// SessionRepository handles reconciliation session snapshots
type SessionRepository interface {
	// CreateSession inserts a new session with an empty state
	CreateSession(session *Session) error

	// GetSession retrieves a session and its latest state snapshot
	GetSession(id string) (*Session, error)

	// SaveSnapshot replaces the stored state of a session
	SaveSnapshot(id string, st state.State) error

	// ListSessions returns sessions, most recently updated first
	ListSessions(limit, offset int) (*SessionListResult, error)
}

// SessionListResult contains paginated session results
type SessionListResult struct {
	Sessions   []Session `json:"sessions"`
	TotalCount int       `json:"total_count"`
	Limit      int       `json:"limit"`
	Offset     int       `json:"offset"`
}

// RunRepository handles validate/accept run tracking
type RunRepository interface {
	// StartRun records the start of a run and returns the run ID
	StartRun(sessionID, kind string, transactionsIn, proofsIn int) (int64, error)

	// CompleteRun records a successful run with the resulting counts
	CompleteRun(runID int64, summary state.Summary, message string) error

	// FailRun records a failed run; summary holds whatever did compute
	FailRun(runID int64, summary state.Summary, errMsg string) error

	// ListRuns returns the most recent runs of a session
	ListRuns(sessionID string, limit int) ([]Run, error)

	// GetRun retrieves a run by ID
	GetRun(runID int64) (*Run, error)
}

// LLMCallRepository handles text-generation call logging
type LLMCallRepository interface {
	// LogLLMCall stores one advisor request/response
	LogLLMCall(call *LLMCall) error

	// GetLLMCallsByRunID retrieves all calls made during a run
	GetLLMCallsByRunID(runID int64) ([]LLMCall, error)
}
