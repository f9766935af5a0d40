package reconciler

import "github.com/eshaffer321/receipt-reconciler/internal/domain/record"

// Unmatched returns the source rows whose business name was not consumed by
// any pair on the given side.
//
// Membership is by business name only: two rows sharing a matched name are
// both treated as matched even if only one was paired.
func Unmatched(source []record.Record, pairs []MatchedPair, side Side) []record.Record {
	consumed := make(map[string]bool, len(pairs))
	for _, p := range pairs {
		if side == SideProof {
			consumed[p.Proof.BusinessName] = true
		} else {
			consumed[p.Transaction.BusinessName] = true
		}
	}

	out := make([]record.Record, 0)
	for _, r := range source {
		if !consumed[r.BusinessName] {
			out = append(out, r)
		}
	}
	return out
}

// unmatchedByRow returns rows whose position was not consumed. Used by the
// exclusive mode where each row is paired at most once.
func unmatchedByRow(source []record.Record, pairs []MatchedPair, side Side) []record.Record {
	consumed := make(map[int]bool, len(pairs))
	for _, p := range pairs {
		if side == SideProof {
			consumed[p.proofIndex] = true
		} else {
			consumed[p.txIndex] = true
		}
	}

	out := make([]record.Record, 0)
	for i, r := range source {
		if !consumed[i] {
			out = append(out, r)
		}
	}
	return out
}
