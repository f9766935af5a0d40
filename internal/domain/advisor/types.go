package advisor

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/eshaffer321/receipt-reconciler/internal/adapters/llm"
	"github.com/eshaffer321/receipt-reconciler/internal/domain/reconciler"
	"github.com/eshaffer321/receipt-reconciler/internal/domain/record"
)

// AllClearMessage is returned without calling the model when nothing is left unmatched.
const AllClearMessage = "I have finished validating the given transactions and proofs. Everything was validated, great job!"

// Recommendation column names as they appear in the model's output
const (
	ColTransactionBusinessName = "Transaction Business Name"
	ColTransactionTotal        = "Transaction Total"
	ColTransactionDate         = "Transaction Date"
	ColProofBusinessName       = "Proof Business Name"
	ColProofTotal              = "Proof Total"
	ColProofDate               = "Proof Date"
	ColReason                  = "Reason"
)

// Columns lists every recommendation column in display order.
var Columns = []string{
	ColTransactionBusinessName,
	ColTransactionTotal,
	ColTransactionDate,
	ColProofBusinessName,
	ColProofTotal,
	ColProofDate,
	ColReason,
}

// Recommendation is a suggested pairing between an unmatched transaction and
// an unmatched proof. It is advisory until accepted.
type Recommendation struct {
	TransactionBusinessName string          `json:"Transaction Business Name"`
	TransactionTotal        decimal.Decimal `json:"Transaction Total"`
	TransactionDate         string          `json:"Transaction Date"`
	ProofBusinessName       string          `json:"Proof Business Name"`
	ProofTotal              decimal.Decimal `json:"Proof Total"`
	ProofDate               string          `json:"Proof Date"`
	Reason                  string          `json:"Reason"`
}

// TransactionRecord returns the transaction side as a normalized record.
func (r Recommendation) TransactionRecord() record.Record {
	return record.New(r.TransactionBusinessName, r.TransactionTotal, r.TransactionDate)
}

// ProofRecord returns the proof side as a normalized record.
func (r Recommendation) ProofRecord() record.Record {
	return record.New(r.ProofBusinessName, r.ProofTotal, r.ProofDate)
}

// Pair promotes the recommendation to a matched pair tagged Recommended.
func (r Recommendation) Pair() reconciler.MatchedPair {
	return reconciler.NewPair(r.TransactionRecord(), r.ProofRecord(), reconciler.ResultRecommended)
}

// Key identifies a recommendation by its full value.
func (r Recommendation) Key() string {
	return r.TransactionRecord().Key() + "\x1e" + r.ProofRecord().Key() + "\x1e" + strings.TrimSpace(r.Reason)
}

// Advice is the advisor's answer for one run.
type Advice struct {
	Message         string           `json:"message"`
	Recommendations []Recommendation `json:"recommendations"`

	// Set only when the model was called
	Prompt string     `json:"-"`
	Raw    string     `json:"-"`
	Usage  *llm.Usage `json:"-"`

	// Cached is set when the reply was served from the cache
	Cached bool `json:"-"`
}

// Called reports whether the advice came from the model.
func (a *Advice) Called() bool {
	return a != nil && a.Prompt != ""
}

// MalformedRecommendationError is returned when the model's output cannot be
// read as the expected recommendation table.
type MalformedRecommendationError struct {
	Reason string
	Raw    string
	Err    error
}

func (e *MalformedRecommendationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed recommendation output: %s: %v", e.Reason, e.Err)
	}
	return "malformed recommendation output: " + e.Reason
}

func (e *MalformedRecommendationError) Unwrap() error {
	return e.Err
}
