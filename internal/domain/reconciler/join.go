package reconciler

import (
	"errors"
	"sort"

	"github.com/eshaffer321/receipt-reconciler/internal/domain/fuzzy"
	"github.com/eshaffer321/receipt-reconciler/internal/domain/record"
)

// joinKey is the (matched name, matched date) key a transaction resolves to.
type joinKey struct {
	name string
	date string
}

// resolveKey finds the transaction's best proof name and best proof date.
// Each match is computed independently over the whole proof pool.
func (e *Engine) resolveKey(tx record.Record, proofNames, proofDates []string) (joinKey, bool) {
	name, ok, err := e.names.Match(tx.BusinessName, proofNames)
	if err != nil {
		if !errors.Is(err, fuzzy.ErrEmptyCandidateSet) {
			e.logger.Warn("name match failed", "business_name", tx.BusinessName, "error", err)
		}
		return joinKey{}, false
	}
	if !ok {
		return joinKey{}, false
	}

	date, ok, err := e.dates.Match(tx.Date, proofDates)
	if err != nil || !ok {
		return joinKey{}, false
	}

	return joinKey{name: name, date: date}, true
}

// Join pairs transactions with proofs using the configured mode.
func (e *Engine) Join(transactions, proofs []record.Record) []MatchedPair {
	if e.config.Mode == MatchModeExclusive {
		return e.joinExclusive(transactions, proofs)
	}
	return e.joinGreedy(transactions, proofs)
}

// joinGreedy is an inner equi-join of each transaction's resolved key against
// proofs.(business_name, date). Fan-out is kept: every proof with the key
// joins, and several transactions may join the same proof.
func (e *Engine) joinGreedy(transactions, proofs []record.Record) []MatchedPair {
	proofNames := record.Names(proofs)
	proofDates := record.Dates(proofs)

	byKey := make(map[joinKey][]int, len(proofs))
	for i, p := range proofs {
		k := joinKey{name: p.BusinessName, date: p.Date}
		byKey[k] = append(byKey[k], i)
	}

	var pairs []MatchedPair
	for ti, tx := range transactions {
		key, ok := e.resolveKey(tx, proofNames, proofDates)
		if !ok {
			continue
		}
		for _, pi := range byKey[key] {
			pair := NewPair(tx, proofs[pi], "")
			pair.txIndex = ti
			pair.proofIndex = pi
			pairs = append(pairs, pair)
		}
	}
	return pairs
}

type edge struct {
	tx, proof int
	score     int
}

// joinExclusive scores every transaction/proof edge whose name and date both
// clear their thresholds, then assigns edges best-first so that each row is
// used at most once. Output is ordered by transaction position.
func (e *Engine) joinExclusive(transactions, proofs []record.Record) []MatchedPair {
	var edges []edge
	for ti, tx := range transactions {
		for pi, p := range proofs {
			nameScore, ok := e.names.Accepts(tx.BusinessName, p.BusinessName)
			if !ok {
				continue
			}
			dateScore, ok := e.dates.Accepts(tx.Date, p.Date)
			if !ok {
				continue
			}
			edges = append(edges, edge{tx: ti, proof: pi, score: nameScore + dateScore})
		}
	}

	sort.SliceStable(edges, func(i, j int) bool {
		return edges[i].score > edges[j].score
	})

	usedTx := make(map[int]bool)
	usedProof := make(map[int]bool)
	assigned := make(map[int]int)
	for _, ed := range edges {
		if usedTx[ed.tx] || usedProof[ed.proof] {
			continue
		}
		usedTx[ed.tx] = true
		usedProof[ed.proof] = true
		assigned[ed.tx] = ed.proof
	}

	var pairs []MatchedPair
	for ti, tx := range transactions {
		pi, ok := assigned[ti]
		if !ok {
			continue
		}
		pair := NewPair(tx, proofs[pi], "")
		pair.txIndex = ti
		pair.proofIndex = pi
		pairs = append(pairs, pair)
	}
	return pairs
}
