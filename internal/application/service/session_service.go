package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/eshaffer321/receipt-reconciler/internal/adapters/currency"
	"github.com/eshaffer321/receipt-reconciler/internal/domain/advisor"
	"github.com/eshaffer321/receipt-reconciler/internal/domain/reconciler"
	"github.com/eshaffer321/receipt-reconciler/internal/domain/record"
	"github.com/eshaffer321/receipt-reconciler/internal/domain/state"
	"github.com/eshaffer321/receipt-reconciler/internal/infrastructure/storage"
)

// ErrSessionNotFound is returned for an unknown session ID.
var ErrSessionNotFound = errors.New("session not found")

// ErrNoConverter is returned when currency conversion is requested but no
// converter is configured.
var ErrNoConverter = errors.New("currency conversion requested but no converter configured")

// ValidateOptions holds per-run switches.
type ValidateOptions struct {
	// ConvertCurrency converts non-USD rows of the new input to USD before matching.
	ConvertCurrency bool
}

// Outcome is what a validate or accept run hands back to the caller.
type Outcome struct {
	SessionID string
	RunID     int64
	State     state.State
	Result    *reconciler.Result
	Advice    *advisor.Advice

	// Status is a one-line description of the run for display
	Status string

	// AdvisorErr is set when the core tables were merged but the advisor failed
	AdvisorErr error
}

// Failed reports whether the run was recorded as failed.
func (o *Outcome) Failed() bool {
	return o.AdvisorErr != nil
}

// SessionService runs validations and acceptances against stored sessions.
type SessionService struct {
	engine    *reconciler.Engine
	advisor   *advisor.Advisor
	converter currency.Converter
	storage   storage.Repository
	logger    *slog.Logger
	provider  string

	// Single writer per session
	sessionLocks map[string]*sync.Mutex
	locksMutex   sync.Mutex
}

// NewSessionService creates a new session service. A nil advisor behaves as
// one without a text-generation client.
func NewSessionService(
	store storage.Repository,
	engine *reconciler.Engine,
	adv *advisor.Advisor,
	logger *slog.Logger,
) *SessionService {
	if logger == nil {
		logger = slog.Default()
	}
	if engine == nil {
		engine = reconciler.NewEngine(reconciler.DefaultConfig(), logger)
	}
	if adv == nil {
		adv = advisor.New(nil, advisor.DefaultConfig(), logger)
	}
	return &SessionService{
		engine:       engine,
		advisor:      adv,
		storage:      store,
		logger:       logger,
		sessionLocks: make(map[string]*sync.Mutex),
	}
}

// WithConverter sets the currency converter used when ConvertCurrency is requested.
func (s *SessionService) WithConverter(conv currency.Converter) *SessionService {
	s.converter = conv
	return s
}

// WithProvider sets the provider name recorded with logged advisor calls.
func (s *SessionService) WithProvider(provider string) *SessionService {
	s.provider = provider
	return s
}

// CreateSession starts a new session with an empty state.
func (s *SessionService) CreateSession(_ context.Context, name string) (*storage.Session, error) {
	session := &storage.Session{
		ID:    uuid.NewString(),
		Name:  name,
		State: state.New(),
	}
	if err := s.storage.CreateSession(session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.logger.Info("session created", "session_id", session.ID, "name", name)
	return session, nil
}

// GetSession returns a session with its current state.
func (s *SessionService) GetSession(id string) (*storage.Session, error) {
	session, err := s.storage.GetSession(id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return session, nil
}

// Ping checks that the session store is reachable.
func (s *SessionService) Ping(ctx context.Context) error {
	return s.storage.Ping(ctx)
}

// ListSessions returns a page of sessions without their state.
func (s *SessionService) ListSessions(limit, offset int) (*storage.SessionListResult, error) {
	return s.storage.ListSessions(limit, offset)
}

// ListRuns returns the run history of a session, newest first.
func (s *SessionService) ListRuns(id string, limit int) ([]storage.Run, error) {
	if _, err := s.GetSession(id); err != nil {
		return nil, err
	}
	return s.storage.ListRuns(id, limit)
}

// Validate reconciles txns against proofs within a session and merges the
// result into its state. An empty input table is replaced by the session's
// accumulated table of that kind.
//
// If the advisor fails, the core tables are still merged and saved, the run
// is recorded as failed and the error is reported on the Outcome. Errors that
// happen before reconciliation leave the session unchanged.
func (s *SessionService) Validate(ctx context.Context, id string, txns, proofs []record.Record, opts ValidateOptions) (*Outcome, error) {
	unlock := s.lockSession(id)
	defer unlock()

	session, err := s.GetSession(id)
	if err != nil {
		return nil, err
	}

	if opts.ConvertCurrency {
		if txns, proofs, err = s.convert(ctx, txns, proofs); err != nil {
			return nil, err
		}
	}

	if len(txns) == 0 {
		txns = session.State.Transactions
	}
	if len(proofs) == 0 {
		proofs = session.State.Proofs
	}

	runID, err := s.storage.StartRun(id, storage.RunKindValidate, len(txns), len(proofs))
	if err != nil {
		return nil, fmt.Errorf("failed to record run: %w", err)
	}

	result := s.engine.Reconcile(txns, proofs)

	started := time.Now()
	advice, advErr := s.advisor.Recommend(ctx, result.UnmatchedTransactions, result.UnmatchedProofs)
	s.logAdvisorCall(runID, id, result, advice, advErr, time.Since(started))

	outcome := &Outcome{SessionID: id, RunID: runID, Result: result}

	switch {
	case advErr == nil:
		outcome.Advice = advice
		outcome.Status = advice.Message
	case errors.Is(advErr, advisor.ErrNoClient):
		outcome.Status = fmt.Sprintf("Validation finished with %d unmatched transactions and %d unmatched proofs; no recommendation advisor is configured.",
			len(result.UnmatchedTransactions), len(result.UnmatchedProofs))
	default:
		outcome.AdvisorErr = advErr
		outcome.Status = fmt.Sprintf("Validation finished, but recommendations could not be produced: %v", advErr)
	}

	next := state.Merge(session.State, result, outcome.Advice)
	if outcome.Advice == nil {
		next.Message = outcome.Status
	}
	summary := next.Summary()

	if err := s.storage.SaveSnapshot(id, next); err != nil {
		s.failRun(runID, summary, err)
		return nil, fmt.Errorf("failed to save session state: %w", err)
	}
	outcome.State = next

	if outcome.AdvisorErr != nil {
		s.failRun(runID, summary, outcome.AdvisorErr)
	} else if err := s.storage.CompleteRun(runID, summary, outcome.Status); err != nil {
		s.logger.Warn("failed to complete run", "run_id", runID, "error", err)
	}

	s.logger.Info("validation finished",
		"session_id", id,
		"run_id", runID,
		"validated", summary.Validated,
		"discrepancies", summary.Discrepancies,
		"unmatched_transactions", summary.UnmatchedTransactions,
		"unmatched_proofs", summary.UnmatchedProofs,
		"recommendations", summary.Recommendations,
		"advisor_failed", outcome.AdvisorErr != nil,
	)

	return outcome, nil
}

// Accept applies the recommendations at indices to the session state.
func (s *SessionService) Accept(ctx context.Context, id string, indices []int) (*Outcome, error) {
	unlock := s.lockSession(id)
	defer unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	session, err := s.GetSession(id)
	if err != nil {
		return nil, err
	}

	next, err := session.State.Accept(indices)
	if err != nil {
		return nil, err
	}

	runID, err := s.storage.StartRun(id, storage.RunKindAccept, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to record run: %w", err)
	}

	summary := next.Summary()
	if err := s.storage.SaveSnapshot(id, next); err != nil {
		s.failRun(runID, summary, err)
		return nil, fmt.Errorf("failed to save session state: %w", err)
	}

	status := fmt.Sprintf("Accepted %d recommendations; %d remain.", len(indices), len(next.Recommendations))
	if err := s.storage.CompleteRun(runID, summary, status); err != nil {
		s.logger.Warn("failed to complete run", "run_id", runID, "error", err)
	}

	s.logger.Info("recommendations accepted",
		"session_id", id,
		"run_id", runID,
		"accepted", len(indices),
		"remaining", len(next.Recommendations),
	)

	return &Outcome{SessionID: id, RunID: runID, State: next, Status: status}, nil
}

func (s *SessionService) convert(ctx context.Context, txns, proofs []record.Record) ([]record.Record, []record.Record, error) {
	if s.converter == nil {
		return nil, nil, ErrNoConverter
	}

	convTxns, err := currency.ConvertAll(ctx, s.converter, txns)
	if err != nil {
		return nil, nil, fmt.Errorf("transactions: %w", err)
	}
	convProofs, err := currency.ConvertAll(ctx, s.converter, proofs)
	if err != nil {
		return nil, nil, fmt.Errorf("proofs: %w", err)
	}
	return convTxns, convProofs, nil
}

// logAdvisorCall stores the request and reply of an advisor call. Calls the
// advisor answered without the model are not logged.
func (s *SessionService) logAdvisorCall(runID int64, sessionID string, result *reconciler.Result, advice *advisor.Advice, advErr error, elapsed time.Duration) {
	if advErr == nil && !advice.Called() {
		return
	}
	if errors.Is(advErr, advisor.ErrNoClient) {
		return
	}

	call := &storage.LLMCall{
		RunID:      runID,
		SessionID:  sessionID,
		Provider:   s.provider,
		Model:      s.advisor.Model(),
		DurationMs: elapsed.Milliseconds(),
	}
	if advErr != nil {
		call.Prompt = advisor.BuildPrompt(result.UnmatchedTransactions, result.UnmatchedProofs)
		call.Error = advErr.Error()
		var malformed *advisor.MalformedRecommendationError
		if errors.As(advErr, &malformed) {
			call.Response = malformed.Raw
		}
	} else {
		call.Prompt = advice.Prompt
		call.Response = advice.Raw
		if advice.Usage != nil {
			call.PromptTokens = advice.Usage.PromptTokens
			call.CompletionTokens = advice.Usage.CompletionTokens
		}
	}

	if err := s.storage.LogLLMCall(call); err != nil {
		s.logger.Warn("failed to log advisor call", "run_id", runID, "error", err)
	}
}

func (s *SessionService) failRun(runID int64, summary state.Summary, cause error) {
	if err := s.storage.FailRun(runID, summary, cause.Error()); err != nil {
		s.logger.Warn("failed to record run failure", "run_id", runID, "error", err)
	}
	s.logger.Error("run failed", "run_id", runID, "error", cause)
}

// lockSession acquires the lock for a session and returns its release func.
func (s *SessionService) lockSession(id string) func() {
	s.locksMutex.Lock()
	lock, exists := s.sessionLocks[id]
	if !exists {
		lock = &sync.Mutex{}
		s.sessionLocks[id] = lock
	}
	s.locksMutex.Unlock()

	lock.Lock()
	return lock.Unlock
}
