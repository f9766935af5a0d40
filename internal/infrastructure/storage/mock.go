package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/eshaffer321/receipt-reconciler/internal/domain/state"
)

// MockRepository is an in-memory implementation of Repository for testing.
// It stores all data in maps and slices, making tests fast and isolated.
type MockRepository struct {
	mu        sync.Mutex
	sessions  map[string]*Session
	snapshots map[string][]byte
	runs      map[int64]*Run
	llmCalls  []LLMCall
	nextRunID int64
	nextCall  int64

	// Hooks for test assertions
	SaveSnapshotCalls int
	LogLLMCallCalled  bool

	// Error injection for testing error paths
	CreateSessionErr error
	GetSessionErr    error
	SaveSnapshotErr  error
	StartRunErr      error
	LogLLMCallErr    error
	PingErr          error
}

// Compile-time check that MockRepository implements Repository
var _ Repository = (*MockRepository)(nil)

// NewMockRepository creates a new mock repository for testing
func NewMockRepository() *MockRepository {
	return &MockRepository{
		sessions:  make(map[string]*Session),
		snapshots: make(map[string][]byte),
		runs:      make(map[int64]*Run),
		llmCalls:  make([]LLMCall, 0),
		nextRunID: 1,
		nextCall:  1,
	}
}

// Ping returns PingErr
func (m *MockRepository) Ping(_ context.Context) error {
	return m.PingErr
}

// Close is a no-op
func (m *MockRepository) Close() error {
	return nil
}

// CreateSession stores a session
func (m *MockRepository) CreateSession(session *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.CreateSessionErr != nil {
		return m.CreateSessionErr
	}
	if _, exists := m.sessions[session.ID]; exists {
		return fmt.Errorf("session %s already exists", session.ID)
	}

	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}
	session.UpdatedAt = session.CreatedAt
	if session.State.Validated == nil {
		session.State = state.New()
	}
	session.Summary = session.State.Summary()

	cp := *session
	m.sessions[session.ID] = &cp
	return m.storeSnapshot(session.ID, session.State)
}

// GetSession returns a copy of the stored session
func (m *MockRepository) GetSession(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.GetSessionErr != nil {
		return nil, m.GetSessionErr
	}
	session, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}

	// Round-trip through JSON like the SQLite store does
	st := state.New()
	if err := json.Unmarshal(m.snapshots[id], &st); err != nil {
		return nil, err
	}

	cp := *session
	cp.State = st
	cp.Summary = st.Summary()
	return &cp, nil
}

// SaveSnapshot replaces the stored state
func (m *MockRepository) SaveSnapshot(id string, st state.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SaveSnapshotCalls++
	if m.SaveSnapshotErr != nil {
		return m.SaveSnapshotErr
	}
	session, ok := m.sessions[id]
	if !ok {
		return fmt.Errorf("session %s: %w", id, ErrNotFound)
	}

	session.UpdatedAt = time.Now().UTC()
	session.Summary = st.Summary()
	return m.storeSnapshot(id, st)
}

func (m *MockRepository) storeSnapshot(id string, st state.State) error {
	data, err := json.Marshal(st)
	if err != nil {
		return err
	}
	m.snapshots[id] = data
	return nil
}

// ListSessions returns sessions, most recently updated first
func (m *MockRepository) ListSessions(limit, offset int) (*SessionListResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	all := make([]Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		cp := *s
		cp.State = state.State{}
		all = append(all, cp)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].UpdatedAt.Equal(all[j].UpdatedAt) {
			return all[i].ID < all[j].ID
		}
		return all[i].UpdatedAt.After(all[j].UpdatedAt)
	})

	result := &SessionListResult{Sessions: []Session{}, TotalCount: len(all), Limit: limit, Offset: offset}
	if offset >= len(all) {
		return result, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	result.Sessions = all[offset:end]
	return result, nil
}

// StartRun records a running run
func (m *MockRepository) StartRun(sessionID, kind string, transactionsIn, proofsIn int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.StartRunErr != nil {
		return 0, m.StartRunErr
	}

	id := m.nextRunID
	m.nextRunID++
	m.runs[id] = &Run{
		ID:             id,
		SessionID:      sessionID,
		Kind:           kind,
		Status:         RunStatusRunning,
		StartedAt:      time.Now().UTC(),
		TransactionsIn: transactionsIn,
		ProofsIn:       proofsIn,
	}
	return id, nil
}

// CompleteRun marks a run completed
func (m *MockRepository) CompleteRun(runID int64, summary state.Summary, message string) error {
	return m.finishRun(runID, RunStatusCompleted, summary, message, "")
}

// FailRun marks a run failed
func (m *MockRepository) FailRun(runID int64, summary state.Summary, errMsg string) error {
	return m.finishRun(runID, RunStatusFailed, summary, "", errMsg)
}

func (m *MockRepository) finishRun(runID int64, status string, summary state.Summary, message, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	run, ok := m.runs[runID]
	if !ok {
		return fmt.Errorf("run %d: %w", runID, ErrNotFound)
	}
	now := time.Now().UTC()
	run.Status = status
	run.CompletedAt = &now
	run.Summary = summary
	run.Message = message
	run.ErrorMessage = errMsg
	return nil
}

// ListRuns returns a session's runs, newest first
func (m *MockRepository) ListRuns(sessionID string, limit int) ([]Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if limit <= 0 {
		limit = 20
	}

	runs := []Run{}
	for _, r := range m.runs {
		if r.SessionID == sessionID {
			runs = append(runs, *r)
		}
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].ID > runs[j].ID })
	if len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// GetRun returns a copy of a run
func (m *MockRepository) GetRun(runID int64) (*Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	run, ok := m.runs[runID]
	if !ok {
		return nil, fmt.Errorf("run %d: %w", runID, ErrNotFound)
	}
	cp := *run
	return &cp, nil
}

// LogLLMCall appends a call
func (m *MockRepository) LogLLMCall(call *LLMCall) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LogLLMCallCalled = true
	if m.LogLLMCallErr != nil {
		return m.LogLLMCallErr
	}
	call.ID = m.nextCall
	m.nextCall++
	if call.CreatedAt.IsZero() {
		call.CreatedAt = time.Now().UTC()
	}
	m.llmCalls = append(m.llmCalls, *call)
	return nil
}

// GetLLMCallsByRunID returns calls of a run in insertion order
func (m *MockRepository) GetLLMCallsByRunID(runID int64) ([]LLMCall, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	calls := []LLMCall{}
	for _, c := range m.llmCalls {
		if c.RunID == runID {
			calls = append(calls, c)
		}
	}
	return calls, nil
}

// AllLLMCalls returns every logged call
func (m *MockRepository) AllLLMCalls() []LLMCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]LLMCall{}, m.llmCalls...)
}
