package reconciler

import "github.com/shopspring/decimal"

// Delta is transaction total minus proof total, rounded half-to-even to cents.
func Delta(transactionTotal, proofTotal decimal.Decimal) decimal.Decimal {
	return transactionTotal.Sub(proofTotal).RoundBank(2)
}

// Classify splits joined pairs into validated (zero delta) and discrepant
// pairs. A one-cent difference is a discrepancy; there is no tolerance band.
func Classify(pairs []MatchedPair) (validated, discrepant []MatchedPair) {
	validated = make([]MatchedPair, 0, len(pairs))
	discrepant = make([]MatchedPair, 0)

	for _, p := range pairs {
		p.Delta = Delta(p.Transaction.Total, p.Proof.Total)
		if p.Delta.IsZero() {
			p.Result = ResultValidated
			validated = append(validated, p)
		} else {
			p.Result = ResultDiscrepancy
			discrepant = append(discrepant, p)
		}
	}

	return validated, discrepant
}
