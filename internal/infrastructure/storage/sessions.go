package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/eshaffer321/receipt-reconciler/internal/domain/state"
)

// CreateSession inserts a new session with an empty state
func (s *Storage) CreateSession(session *Session) error {
	now := time.Now().UTC()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = session.CreatedAt
	if session.State.Validated == nil {
		session.State = state.New()
	}

	stateJSON, err := json.Marshal(session.State)
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}
	session.Summary = session.State.Summary()

	_, err = s.db.Exec(`
		INSERT INTO sessions
		(id, name, created_at, updated_at, state_json,
		 validated, discrepancies, unmatched_transactions, unmatched_proofs, recommendations)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		session.ID, session.Name, formatTime(session.CreatedAt), formatTime(session.UpdatedAt), string(stateJSON),
		session.Summary.Validated, session.Summary.Discrepancies,
		session.Summary.UnmatchedTransactions, session.Summary.UnmatchedProofs, session.Summary.Recommendations,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// GetSession retrieves a session and its latest state snapshot
func (s *Storage) GetSession(id string) (*Session, error) {
	var (
		session          Session
		created, updated string
		stateJSON        string
	)

	err := s.db.QueryRow(`
		SELECT id, name, created_at, updated_at, state_json
		FROM sessions WHERE id = ?`, id,
	).Scan(&session.ID, &session.Name, &created, &updated, &stateJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	session.CreatedAt = parseTime(created)
	session.UpdatedAt = parseTime(updated)

	st := state.New()
	if err := json.Unmarshal([]byte(stateJSON), &st); err != nil {
		return nil, fmt.Errorf("failed to decode state of session %s: %w", id, err)
	}
	session.State = st
	session.Summary = st.Summary()

	return &session, nil
}

// SaveSnapshot replaces the stored state of a session
func (s *Storage) SaveSnapshot(id string, st state.State) error {
	stateJSON, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}
	sum := st.Summary()

	res, err := s.db.Exec(`
		UPDATE sessions SET
			state_json = ?, updated_at = ?,
			validated = ?, discrepancies = ?, unmatched_transactions = ?,
			unmatched_proofs = ?, recommendations = ?
		WHERE id = ?`,
		string(stateJSON), formatTime(time.Now()),
		sum.Validated, sum.Discrepancies, sum.UnmatchedTransactions,
		sum.UnmatchedProofs, sum.Recommendations,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	return nil
}

// ListSessions returns sessions, most recently updated first. State is not loaded.
func (s *Storage) ListSessions(limit, offset int) (*SessionListResult, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var total int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM sessions`).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count sessions: %w", err)
	}

	rows, err := s.db.Query(`
		SELECT id, name, created_at, updated_at,
		       validated, discrepancies, unmatched_transactions, unmatched_proofs, recommendations
		FROM sessions
		ORDER BY updated_at DESC, id
		LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	result := &SessionListResult{Sessions: []Session{}, TotalCount: total, Limit: limit, Offset: offset}
	for rows.Next() {
		var (
			session          Session
			created, updated string
		)
		if err := rows.Scan(&session.ID, &session.Name, &created, &updated,
			&session.Summary.Validated, &session.Summary.Discrepancies,
			&session.Summary.UnmatchedTransactions, &session.Summary.UnmatchedProofs,
			&session.Summary.Recommendations); err != nil {
			return nil, err
		}
		session.CreatedAt = parseTime(created)
		session.UpdatedAt = parseTime(updated)
		result.Sessions = append(result.Sessions, session)
	}

	return result, rows.Err()
}
