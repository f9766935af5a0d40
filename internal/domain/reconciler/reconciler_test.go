package reconciler

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/receipt-reconciler/internal/domain/fuzzy"
	"github.com/eshaffer321/receipt-reconciler/internal/domain/record"
)

func rec(name, total, date string) record.Record {
	return record.New(name, decimal.RequireFromString(total), date)
}

func newTestEngine(mode MatchMode) *Engine {
	cfg := DefaultConfig()
	cfg.Mode = mode
	return NewEngine(cfg, nil)
}

func TestReconcile_IdenticalInputsAllValidated(t *testing.T) {
	txns := []record.Record{
		rec("Starbucks", "5.75", "2023-01-01"),
		rec("Walmart Supercenter", "84.12", "2023-01-03"),
		rec("Shell Oil", "40.00", "2023-01-05"),
	}
	proofs := []record.Record{
		rec("Starbucks", "5.75", "2023-01-01"),
		rec("Walmart Supercenter", "84.12", "2023-01-03"),
		rec("Shell Oil", "40.00", "2023-01-05"),
	}

	result := newTestEngine(MatchModeGreedy).Reconcile(txns, proofs)

	require.Len(t, result.Validated, 3)
	assert.Empty(t, result.Discrepancies)
	assert.Empty(t, result.UnmatchedTransactions)
	assert.Empty(t, result.UnmatchedProofs)
	for _, p := range result.Validated {
		assert.Equal(t, ResultValidated, p.Result)
		assert.True(t, p.Delta.IsZero())
	}
}

func TestReconcile_DiscrepancySign(t *testing.T) {
	txns := []record.Record{rec("Chipotle", "15.00", "2023-02-10")}
	proofs := []record.Record{rec("Chipotle", "14.50", "2023-02-10")}

	result := newTestEngine(MatchModeGreedy).Reconcile(txns, proofs)

	require.Len(t, result.Discrepancies, 1)
	assert.Empty(t, result.Validated)

	d := result.Discrepancies[0]
	assert.Equal(t, ResultDiscrepancy, d.Result)
	assert.True(t, d.Delta.Equal(decimal.RequireFromString("0.50")), "delta = %s", d.Delta)
	assert.True(t, d.IsOvercharge())
	assert.False(t, d.IsUndercharge())
}

func TestReconcile_Undercharge(t *testing.T) {
	txns := []record.Record{rec("Chipotle", "14.50", "2023-02-10")}
	proofs := []record.Record{rec("Chipotle", "15.00", "2023-02-10")}

	result := newTestEngine(MatchModeGreedy).Reconcile(txns, proofs)

	require.Len(t, result.Discrepancies, 1)
	assert.True(t, result.Discrepancies[0].Delta.Equal(decimal.RequireFromString("-0.50")))
	assert.True(t, result.Discrepancies[0].IsUndercharge())
}

func TestReconcile_UnmatchedDetection(t *testing.T) {
	txns := []record.Record{
		rec("Starbucks", "12.30", "2023-01-01"),
		rec("Walmart", "5.00", "2023-01-01"),
	}
	proofs := []record.Record{rec("Starbucks", "12.30", "2023-01-01")}

	result := newTestEngine(MatchModeGreedy).Reconcile(txns, proofs)

	require.Len(t, result.Validated, 1)
	require.Len(t, result.UnmatchedTransactions, 1)
	assert.Equal(t, "walmart", result.UnmatchedTransactions[0].BusinessName)
	assert.Empty(t, result.UnmatchedProofs)
	assert.True(t, result.HasUnmatched())
}

func TestReconcile_EmptyInputs(t *testing.T) {
	result := newTestEngine(MatchModeGreedy).Reconcile(nil, nil)

	assert.Empty(t, result.Validated)
	assert.Empty(t, result.Discrepancies)
	assert.Empty(t, result.UnmatchedTransactions)
	assert.Empty(t, result.UnmatchedProofs)
	assert.False(t, result.HasUnmatched())
}

func TestReconcile_NoProofsLeavesAllTransactionsUnmatched(t *testing.T) {
	txns := []record.Record{rec("Starbucks", "12.30", "2023-01-01")}

	result := newTestEngine(MatchModeGreedy).Reconcile(txns, nil)

	assert.Empty(t, result.Validated)
	assert.Len(t, result.UnmatchedTransactions, 1)
}

func TestReconcile_NormalizesNamesBeforeMatching(t *testing.T) {
	txns := []record.Record{{BusinessName: "  STARBUCKS ", Total: decimal.RequireFromString("5.75"), Date: "2023-01-01"}}
	proofs := []record.Record{{BusinessName: "starbucks", Total: decimal.RequireFromString("5.75"), Date: " 2023-01-01"}}

	result := newTestEngine(MatchModeGreedy).Reconcile(txns, proofs)

	require.Len(t, result.Validated, 1)
	assert.Equal(t, "starbucks", result.Validated[0].Transaction.BusinessName)
}

func TestReconcile_DoesNotMutateInputs(t *testing.T) {
	txns := []record.Record{{BusinessName: "STARBUCKS", Total: decimal.RequireFromString("5.75"), Date: "2023-01-01"}}

	newTestEngine(MatchModeGreedy).Reconcile(txns, nil)

	assert.Equal(t, "STARBUCKS", txns[0].BusinessName)
}

func TestReconcile_FuzzyNameMatch(t *testing.T) {
	txns := []record.Record{rec("SQ *Blue Bottle", "6.50", "2023-03-02")}
	proofs := []record.Record{rec("Blue Bottle", "6.50", "2023-03-02")}

	result := newTestEngine(MatchModeGreedy).Reconcile(txns, proofs)

	require.Len(t, result.Validated, 1)
	assert.Equal(t, "blue bottle", result.Validated[0].Proof.BusinessName)
}

func TestClassify_RoundsToCents(t *testing.T) {
	pairs := []MatchedPair{
		NewPair(rec("a", "10.004", "2023-01-01"), rec("a", "10.00", "2023-01-01"), ""),
		NewPair(rec("b", "10.01", "2023-01-01"), rec("b", "10.00", "2023-01-01"), ""),
	}

	validated, discrepant := Classify(pairs)

	require.Len(t, validated, 1)
	require.Len(t, discrepant, 1)
	assert.Equal(t, "a", validated[0].Transaction.BusinessName)
	assert.True(t, discrepant[0].Delta.Equal(decimal.RequireFromString("0.01")), "one cent is a discrepancy")
}

func TestDelta_BankersRounding(t *testing.T) {
	tests := []struct {
		tx, proof, want string
	}{
		{"1.005", "0", "1"},
		{"1.015", "0", "1.02"},
		{"15.00", "14.50", "0.5"},
		{"14.50", "15.00", "-0.5"},
	}

	for _, tt := range tests {
		got := Delta(decimal.RequireFromString(tt.tx), decimal.RequireFromString(tt.proof))
		assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "%s - %s = %s, want %s", tt.tx, tt.proof, got, tt.want)
	}
}

func TestJoin_GreedyFanOut(t *testing.T) {
	txns := []record.Record{
		rec("starbucks", "5.00", "2023-01-01"),
		rec("starbucks", "5.00", "2023-01-01"),
	}
	proofs := []record.Record{rec("starbucks", "5.00", "2023-01-01")}

	pairs := newTestEngine(MatchModeGreedy).Join(txns, proofs)

	assert.Len(t, pairs, 2, "both transactions claim the single proof")
}

func TestJoin_OrderFollowsTransactions(t *testing.T) {
	txns := []record.Record{
		rec("target", "20.00", "2023-01-02"),
		rec("costco", "100.00", "2023-01-01"),
	}
	proofs := []record.Record{
		rec("costco", "100.00", "2023-01-01"),
		rec("target", "20.00", "2023-01-02"),
	}

	pairs := newTestEngine(MatchModeGreedy).Join(txns, proofs)

	require.Len(t, pairs, 2)
	assert.Equal(t, "target", pairs[0].Transaction.BusinessName)
	assert.Equal(t, "costco", pairs[1].Transaction.BusinessName)
}

func TestJoin_NameBelowThresholdExcluded(t *testing.T) {
	scores := map[string]int{"proof": 79}
	engine := newTestEngine(MatchModeGreedy).WithNameMatcher(
		fuzzy.NewMatcher(fuzzy.DefaultConfig(), fuzzy.WithScorer(func(_, c string) int { return scores[c] })),
	)

	txns := []record.Record{rec("txn", "1.00", "2023-01-01")}
	proofs := []record.Record{rec("proof", "1.00", "2023-01-01")}

	assert.Empty(t, engine.Join(txns, proofs))

	scores["proof"] = 80
	assert.Len(t, engine.Join(txns, proofs), 1)
}

func TestJoin_ExclusiveConsumesOnce(t *testing.T) {
	txns := []record.Record{
		rec("starbucks", "5.00", "2023-01-01"),
		rec("starbucks", "5.00", "2023-01-01"),
	}
	proofs := []record.Record{rec("starbucks", "5.00", "2023-01-01")}

	result := newTestEngine(MatchModeExclusive).Reconcile(txns, proofs)

	assert.Len(t, result.Validated, 1)
	assert.Len(t, result.UnmatchedTransactions, 1, "second transaction is left over")
	assert.Empty(t, result.UnmatchedProofs)
}

func TestJoin_ExclusivePrefersBestScore(t *testing.T) {
	txns := []record.Record{rec("blue bottle coffee", "6.50", "2023-03-02")}
	proofs := []record.Record{
		rec("blue bottle", "6.50", "2023-03-01"),
		rec("blue bottle coffee", "6.50", "2023-03-02"),
	}

	pairs := newTestEngine(MatchModeExclusive).Join(txns, proofs)

	require.Len(t, pairs, 1)
	assert.Equal(t, "2023-03-02", pairs[0].Proof.Date)
}

func TestUnmatched_NameMembership(t *testing.T) {
	txns := []record.Record{
		rec("starbucks", "5.00", "2023-01-01"),
		rec("starbucks", "7.00", "2023-01-09"),
	}
	pairs := []MatchedPair{NewPair(txns[0], rec("starbucks", "5.00", "2023-01-01"), ResultValidated)}

	assert.Empty(t, Unmatched(txns, pairs, SideTransaction), "same-named row counts as matched")
}

func TestDedupePairs(t *testing.T) {
	p := NewPair(rec("a", "1.00", "2023-01-01"), rec("a", "1.00", "2023-01-01"), ResultValidated)

	assert.Len(t, DedupePairs([]MatchedPair{p, p}), 1)
}

func TestNewEngine_DefaultsMode(t *testing.T) {
	e := NewEngine(Config{NameThreshold: 80, DateThreshold: 80}, nil)

	assert.Equal(t, MatchModeGreedy, e.Config().Mode)
}

func TestNewEngine_DefaultsZeroThresholds(t *testing.T) {
	e := NewEngine(Config{}, nil)

	assert.Equal(t, fuzzy.DefaultThreshold, e.Config().NameThreshold)
	assert.Equal(t, fuzzy.DefaultThreshold, e.Config().DateThreshold)

	result := e.Reconcile(
		[]record.Record{rec("starbucks", "5.00", "2023-01-01")},
		[]record.Record{rec("walmart", "5.00", "2023-01-01")},
	)
	assert.Empty(t, result.Validated, "unrelated names must not match")
	assert.Len(t, result.UnmatchedTransactions, 1)
	assert.Len(t, result.UnmatchedProofs, 1)
}

func TestNewEngine_ModeIsCaseInsensitive(t *testing.T) {
	e := NewEngine(Config{Mode: "Exclusive"}, nil)

	assert.Equal(t, MatchModeExclusive, e.Config().Mode)
}

func TestParseMatchMode(t *testing.T) {
	tests := []struct {
		in      string
		want    MatchMode
		wantErr bool
	}{
		{in: "", want: MatchModeGreedy},
		{in: "greedy", want: MatchModeGreedy},
		{in: " Exclusive ", want: MatchModeExclusive},
		{in: "EXCLUSIVE", want: MatchModeExclusive},
		{in: "exlusive", wantErr: true},
		{in: "optimal", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMatchMode(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnknownMatchMode)
				assert.Contains(t, err.Error(), tt.in)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
