package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/eshaffer321/receipt-reconciler/internal/domain/state"
)

// StartRun records the start of a run and returns the run ID
func (s *Storage) StartRun(sessionID, kind string, transactionsIn, proofsIn int) (int64, error) {
	result, err := s.db.Exec(`
		INSERT INTO runs (session_id, kind, status, started_at, transactions_in, proofs_in)
		VALUES (?, ?, ?, ?, ?, ?)`,
		sessionID, kind, RunStatusRunning, formatTime(time.Now()), transactionsIn, proofsIn,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to start run: %w", err)
	}
	return result.LastInsertId()
}

// CompleteRun records a successful run with the resulting counts
func (s *Storage) CompleteRun(runID int64, summary state.Summary, message string) error {
	return s.finishRun(runID, RunStatusCompleted, summary, message, "")
}

// FailRun records a failed run
func (s *Storage) FailRun(runID int64, summary state.Summary, errMsg string) error {
	return s.finishRun(runID, RunStatusFailed, summary, "", errMsg)
}

func (s *Storage) finishRun(runID int64, status string, summary state.Summary, message, errMsg string) error {
	res, err := s.db.Exec(`
		UPDATE runs SET
			status = ?, completed_at = ?,
			validated = ?, discrepancies = ?, unmatched_transactions = ?,
			unmatched_proofs = ?, recommendations = ?,
			message = ?, error_message = ?
		WHERE id = ?`,
		status, formatTime(time.Now()),
		summary.Validated, summary.Discrepancies, summary.UnmatchedTransactions,
		summary.UnmatchedProofs, summary.Recommendations,
		message, errMsg, runID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run %d: %w", runID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run %d: %w", runID, ErrNotFound)
	}
	return nil
}

const runColumns = `id, session_id, kind, status, started_at, completed_at,
	transactions_in, proofs_in, validated, discrepancies,
	unmatched_transactions, unmatched_proofs, recommendations,
	message, error_message`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*Run, error) {
	var (
		run       Run
		started   string
		completed sql.NullString
	)
	err := row.Scan(&run.ID, &run.SessionID, &run.Kind, &run.Status, &started, &completed,
		&run.TransactionsIn, &run.ProofsIn, &run.Summary.Validated, &run.Summary.Discrepancies,
		&run.Summary.UnmatchedTransactions, &run.Summary.UnmatchedProofs, &run.Summary.Recommendations,
		&run.Message, &run.ErrorMessage)
	if err != nil {
		return nil, err
	}

	run.StartedAt = parseTime(started)
	if completed.Valid {
		t := parseTime(completed.String)
		run.CompletedAt = &t
	}
	return &run, nil
}

// ListRuns returns the most recent runs of a session, newest first
func (s *Storage) ListRuns(sessionID string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(`SELECT `+runColumns+`
		FROM runs WHERE session_id = ?
		ORDER BY id DESC LIMIT ?`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// GetRun retrieves a run by ID
func (s *Storage) GetRun(runID int64) (*Run, error) {
	run, err := scanRun(s.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, runID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %d: %w", runID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}
