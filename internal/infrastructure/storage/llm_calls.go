package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// LogLLMCall stores one advisor request/response
func (s *Storage) LogLLMCall(call *LLMCall) error {
	if call.CreatedAt.IsZero() {
		call.CreatedAt = time.Now()
	}

	var runID sql.NullInt64
	if call.RunID > 0 {
		runID = sql.NullInt64{Int64: call.RunID, Valid: true}
	}

	result, err := s.db.Exec(`
		INSERT INTO llm_calls
		(run_id, session_id, provider, model, prompt, response, error,
		 prompt_tokens, completion_tokens, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, call.SessionID, call.Provider, call.Model, call.Prompt, call.Response, call.Error,
		call.PromptTokens, call.CompletionTokens, call.DurationMs, formatTime(call.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to log llm call: %w", err)
	}

	call.ID, _ = result.LastInsertId()
	return nil
}

// GetLLMCallsByRunID retrieves all calls made during a run
func (s *Storage) GetLLMCallsByRunID(runID int64) ([]LLMCall, error) {
	rows, err := s.db.Query(`
		SELECT id, run_id, session_id, provider, model, prompt, response, error,
		       prompt_tokens, completion_tokens, duration_ms, created_at
		FROM llm_calls WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query llm calls: %w", err)
	}
	defer func() { _ = rows.Close() }()

	calls := []LLMCall{}
	for rows.Next() {
		var (
			call    LLMCall
			run     sql.NullInt64
			created string
		)
		if err := rows.Scan(&call.ID, &run, &call.SessionID, &call.Provider, &call.Model,
			&call.Prompt, &call.Response, &call.Error,
			&call.PromptTokens, &call.CompletionTokens, &call.DurationMs, &created); err != nil {
			return nil, err
		}
		call.RunID = run.Int64
		call.CreatedAt = parseTime(created)
		calls = append(calls, call)
	}
	return calls, rows.Err()
}
