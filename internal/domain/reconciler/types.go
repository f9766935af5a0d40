package reconciler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/eshaffer321/receipt-reconciler/internal/domain/fuzzy"
	"github.com/eshaffer321/receipt-reconciler/internal/domain/record"
)

// Result tags carried by matched pairs
const (
	ResultValidated   = "Validated"
	ResultDiscrepancy = "Discrepancy"
	ResultRecommended = "Recommended"
)

// MatchMode selects how transactions claim proofs.
type MatchMode string

const (
	// MatchModeGreedy matches every transaction independently; several
	// transactions may join the same proof.
	MatchModeGreedy MatchMode = "greedy"

	// MatchModeExclusive assigns edges by descending score and consumes each
	// transaction and proof at most once.
	MatchModeExclusive MatchMode = "exclusive"
)

// ErrUnknownMatchMode is returned by ParseMatchMode for names other than
// greedy and exclusive.
var ErrUnknownMatchMode = errors.New("unknown match mode")

// ParseMatchMode reads a mode name case-insensitively. An empty name is greedy.
func ParseMatchMode(s string) (MatchMode, error) {
	switch MatchMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", MatchModeGreedy:
		return MatchModeGreedy, nil
	case MatchModeExclusive:
		return MatchModeExclusive, nil
	default:
		return "", fmt.Errorf("%w %q (want %s or %s)", ErrUnknownMatchMode, s, MatchModeGreedy, MatchModeExclusive)
	}
}

// Side identifies which table a row came from.
type Side int

const (
	SideTransaction Side = iota
	SideProof
)

func (s Side) String() string {
	if s == SideProof {
		return "proof"
	}
	return "transaction"
}

// Config holds engine configuration
type Config struct {
	NameThreshold int       // Default: 80
	DateThreshold int       // Default: 80
	Mode          MatchMode // Default: greedy
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		NameThreshold: fuzzy.DefaultThreshold,
		DateThreshold: fuzzy.DefaultThreshold,
		Mode:          MatchModeGreedy,
	}
}

// MatchedPair links a transaction to the proof that substantiates it.
type MatchedPair struct {
	Transaction record.Record   `json:"transaction"`
	Proof       record.Record   `json:"proof"`
	Delta       decimal.Decimal `json:"delta"`
	Result      string          `json:"result"`

	// Row positions in the inputs, -1 when the pair did not come from a join
	txIndex    int
	proofIndex int
}

// NewPair builds a pair and computes its rounded delta.
func NewPair(tx, proof record.Record, result string) MatchedPair {
	return MatchedPair{
		Transaction: tx,
		Proof:       proof,
		Delta:       Delta(tx.Total, proof.Total),
		Result:      result,
		txIndex:     -1,
		proofIndex:  -1,
	}
}

// Key identifies a pair by its full row value.
func (p MatchedPair) Key() string {
	return p.Transaction.Key() + "\x1e" + p.Proof.Key() + "\x1e" + p.Delta.String() + "\x1e" + p.Result
}

// IsOvercharge reports a transaction that exceeds its proof.
func (p MatchedPair) IsOvercharge() bool {
	return p.Delta.IsPositive()
}

// IsUndercharge reports a transaction below its proof.
func (p MatchedPair) IsUndercharge() bool {
	return p.Delta.IsNegative()
}

// Result is the outcome of one reconciliation run. It is not mutated after
// Reconcile returns it.
type Result struct {
	Transactions          []record.Record `json:"transactions"`
	Proofs                []record.Record `json:"proofs"`
	Validated             []MatchedPair   `json:"validated_transactions"`
	Discrepancies         []MatchedPair   `json:"discrepancies"`
	UnmatchedTransactions []record.Record `json:"unmatched_transactions"`
	UnmatchedProofs       []record.Record `json:"unmatched_proofs"`
}

// HasUnmatched reports whether either side has leftovers.
func (r *Result) HasUnmatched() bool {
	return len(r.UnmatchedTransactions) > 0 || len(r.UnmatchedProofs) > 0
}

// DedupePairs drops pairs whose full value was already seen, keeping the first.
func DedupePairs(pairs []MatchedPair) []MatchedPair {
	seen := make(map[string]bool, len(pairs))
	out := make([]MatchedPair, 0, len(pairs))
	for _, p := range pairs {
		k := p.Key()
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, p)
	}
	return out
}
