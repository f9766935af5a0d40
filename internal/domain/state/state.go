// Package state holds the accumulated reconciliation results of a session.
//
// State is a plain value. Merge and Accept return a new State and never
// modify their input, so callers own serialization of updates:
//
//	s := state.New()
//	s = state.Merge(s, result, advice)
//	s, err := s.Accept([]int{0})
package state

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/eshaffer321/receipt-reconciler/internal/domain/advisor"
	"github.com/eshaffer321/receipt-reconciler/internal/domain/reconciler"
	"github.com/eshaffer321/receipt-reconciler/internal/domain/record"
)

// ErrInvalidRecommendationIndex is returned by Accept for an out-of-range or
// repeated index.
var ErrInvalidRecommendationIndex = errors.New("invalid recommendation index")

// State is the deduplicated union of every result merged so far.
type State struct {
	Transactions          []record.Record          `json:"transactions"`
	Proofs                []record.Record          `json:"proofs"`
	Validated             []reconciler.MatchedPair `json:"validated_transactions"`
	Discrepancies         []reconciler.MatchedPair `json:"discrepancies"`
	UnmatchedTransactions []record.Record          `json:"unmatched_transactions"`
	UnmatchedProofs       []record.Record          `json:"unmatched_proofs"`
	Recommendations       []advisor.Recommendation `json:"recommendations"`
	Message               string                   `json:"message,omitempty"`
}

// New returns an empty state.
func New() State {
	return State{
		Transactions:          []record.Record{},
		Proofs:                []record.Record{},
		Validated:             []reconciler.MatchedPair{},
		Discrepancies:         []reconciler.MatchedPair{},
		UnmatchedTransactions: []record.Record{},
		UnmatchedProofs:       []record.Record{},
		Recommendations:       []advisor.Recommendation{},
	}
}

// Merge appends res and advice to prev and drops exact duplicates, keeping
// the first occurrence. Either res or advice may be nil. Merging the same
// result twice leaves every category unchanged.
func Merge(prev State, res *reconciler.Result, advice *advisor.Advice) State {
	next := prev.Clone()

	if res != nil {
		next.Transactions = record.Dedupe(append(next.Transactions, res.Transactions...))
		next.Proofs = record.Dedupe(append(next.Proofs, res.Proofs...))
		next.Validated = reconciler.DedupePairs(append(next.Validated, res.Validated...))
		next.Discrepancies = reconciler.DedupePairs(append(next.Discrepancies, res.Discrepancies...))
		next.UnmatchedTransactions = record.Dedupe(append(next.UnmatchedTransactions, res.UnmatchedTransactions...))
		next.UnmatchedProofs = record.Dedupe(append(next.UnmatchedProofs, res.UnmatchedProofs...))
	}

	if advice != nil {
		next.Recommendations = dedupeRecommendations(append(next.Recommendations, advice.Recommendations...))
		if advice.Message != "" {
			next.Message = advice.Message
		}
	}

	return next
}

// Accept promotes the recommendations at indices to Recommended pairs,
// removes their rows from the unmatched tables by exact value and drops them
// from the outstanding list. The receiver is left unchanged; on error the
// returned state is the zero value.
func (s State) Accept(indices []int) (State, error) {
	selected := make(map[int]bool, len(indices))
	for _, i := range indices {
		if i < 0 || i >= len(s.Recommendations) {
			return State{}, fmt.Errorf("%w: %d (have %d)", ErrInvalidRecommendationIndex, i, len(s.Recommendations))
		}
		if selected[i] {
			return State{}, fmt.Errorf("%w: %d listed twice", ErrInvalidRecommendationIndex, i)
		}
		selected[i] = true
	}

	next := s.Clone()
	if len(selected) == 0 {
		return next, nil
	}

	remaining := make([]advisor.Recommendation, 0, len(s.Recommendations)-len(selected))
	for i, rec := range s.Recommendations {
		if !selected[i] {
			remaining = append(remaining, rec)
			continue
		}

		next.Validated = reconciler.DedupePairs(append(next.Validated, rec.Pair()))
		next.UnmatchedTransactions = removeRows(next.UnmatchedTransactions, rec.TransactionBusinessName, rec.TransactionTotal, rec.TransactionDate)
		next.UnmatchedProofs = removeRows(next.UnmatchedProofs, rec.ProofBusinessName, rec.ProofTotal, rec.ProofDate)
	}
	next.Recommendations = remaining

	return next, nil
}

// removeRows drops every row whose name, total and date equal the given
// values after trimming. Names are compared in normalized form and totals
// numerically.
func removeRows(rows []record.Record, name string, total decimal.Decimal, date string) []record.Record {
	name = record.NormalizeName(name)
	date = strings.TrimSpace(date)

	out := make([]record.Record, 0, len(rows))
	for _, r := range rows {
		if record.NormalizeName(r.BusinessName) == name &&
			r.Total.Equal(total) &&
			strings.TrimSpace(r.Date) == date {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Clone returns a deep copy of the slices.
func (s State) Clone() State {
	return State{
		Transactions:          append([]record.Record{}, s.Transactions...),
		Proofs:                append([]record.Record{}, s.Proofs...),
		Validated:             append([]reconciler.MatchedPair{}, s.Validated...),
		Discrepancies:         append([]reconciler.MatchedPair{}, s.Discrepancies...),
		UnmatchedTransactions: append([]record.Record{}, s.UnmatchedTransactions...),
		UnmatchedProofs:       append([]record.Record{}, s.UnmatchedProofs...),
		Recommendations:       append([]advisor.Recommendation{}, s.Recommendations...),
		Message:               s.Message,
	}
}

// Summary holds per-category counts.
type Summary struct {
	Transactions          int `json:"transactions"`
	Proofs                int `json:"proofs"`
	Validated             int `json:"validated"`
	Recommended           int `json:"recommended"`
	Discrepancies         int `json:"discrepancies"`
	UnmatchedTransactions int `json:"unmatched_transactions"`
	UnmatchedProofs       int `json:"unmatched_proofs"`
	Recommendations       int `json:"recommendations"`
}

// Summary counts every category.
func (s State) Summary() Summary {
	sum := Summary{
		Transactions:          len(s.Transactions),
		Proofs:                len(s.Proofs),
		Validated:             len(s.Validated),
		Discrepancies:         len(s.Discrepancies),
		UnmatchedTransactions: len(s.UnmatchedTransactions),
		UnmatchedProofs:       len(s.UnmatchedProofs),
		Recommendations:       len(s.Recommendations),
	}
	for _, p := range s.Validated {
		if p.Result == reconciler.ResultRecommended {
			sum.Recommended++
		}
	}
	return sum
}

// IsReconciled reports whether nothing is left unmatched or discrepant.
func (s State) IsReconciled() bool {
	return len(s.Discrepancies) == 0 && len(s.UnmatchedTransactions) == 0 && len(s.UnmatchedProofs) == 0
}

func dedupeRecommendations(recs []advisor.Recommendation) []advisor.Recommendation {
	seen := make(map[string]bool, len(recs))
	out := make([]advisor.Recommendation, 0, len(recs))
	for _, r := range recs {
		k := r.Key()
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, r)
	}
	return out
}
