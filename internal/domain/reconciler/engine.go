// Package reconciler matches transactions to proofs, flags amount
// discrepancies and extracts the rows left unmatched.
//
// A run is deterministic and does no I/O:
//
//	engine := reconciler.NewEngine(reconciler.DefaultConfig(), logger)
//	result := engine.Reconcile(transactions, proofs)
//	for _, d := range result.Discrepancies {
//		// d.Delta > 0: transaction exceeds proof
//	}
package reconciler

import (
	"log/slog"
	"time"

	"github.com/eshaffer321/receipt-reconciler/internal/domain/fuzzy"
	"github.com/eshaffer321/receipt-reconciler/internal/domain/record"
)

// Engine runs reconciliations
type Engine struct {
	config Config
	names  *fuzzy.Matcher
	dates  *fuzzy.Matcher
	logger *slog.Logger
}

// NewEngine creates a new engine with the given config. Zero thresholds get
// fuzzy.DefaultThreshold. An unknown mode is logged and runs greedy; callers
// taking the mode from user input should check it with ParseMatchMode first.
func NewEngine(config Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if config.NameThreshold == 0 {
		config.NameThreshold = fuzzy.DefaultThreshold
	}
	if config.DateThreshold == 0 {
		config.DateThreshold = fuzzy.DefaultThreshold
	}
	mode, err := ParseMatchMode(string(config.Mode))
	if err != nil {
		logger.Warn("falling back to greedy matching", "error", err)
		mode = MatchModeGreedy
	}
	config.Mode = mode

	return &Engine{
		config: config,
		names:  fuzzy.NewMatcher(fuzzy.DefaultConfig(), fuzzy.WithThreshold(config.NameThreshold)),
		dates:  fuzzy.NewMatcher(fuzzy.DateConfig(), fuzzy.WithThreshold(config.DateThreshold)),
		logger: logger,
	}
}

// WithNameMatcher replaces the business-name matcher.
func (e *Engine) WithNameMatcher(m *fuzzy.Matcher) *Engine {
	e.names = m
	return e
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.config
}

// Reconcile runs join, classification and unmatched extraction over copies
// of the normalized inputs.
func (e *Engine) Reconcile(transactions, proofs []record.Record) *Result {
	start := time.Now()

	txns := record.NormalizeAll(transactions)
	prfs := record.NormalizeAll(proofs)

	pairs := e.Join(txns, prfs)
	validated, discrepant := Classify(pairs)

	result := &Result{
		Transactions:  txns,
		Proofs:        prfs,
		Validated:     validated,
		Discrepancies: discrepant,
	}

	if e.config.Mode == MatchModeExclusive {
		result.UnmatchedTransactions = unmatchedByRow(txns, pairs, SideTransaction)
		result.UnmatchedProofs = unmatchedByRow(prfs, pairs, SideProof)
	} else {
		result.UnmatchedTransactions = Unmatched(txns, pairs, SideTransaction)
		result.UnmatchedProofs = Unmatched(prfs, pairs, SideProof)
	}

	e.logger.Debug("reconciliation complete",
		"mode", e.config.Mode,
		"transactions", len(txns),
		"proofs", len(prfs),
		"validated", len(result.Validated),
		"discrepancies", len(result.Discrepancies),
		"unmatched_transactions", len(result.UnmatchedTransactions),
		"unmatched_proofs", len(result.UnmatchedProofs),
		"duration", time.Since(start))

	return result
}
