// Package fuzzy provides approximate string matching for business names and
// dates.
//
// The matcher picks the candidate with the highest similarity score and
// accepts it only when the score reaches the configured threshold:
//   - Score is 0-100 (PartialRatio by default)
//   - Ties keep the earliest candidate
//   - An empty candidate slice is ErrEmptyCandidateSet
//
// Example usage:
//
//	m := fuzzy.NewMatcher(fuzzy.DefaultConfig())
//	name, ok, err := m.Match("taco bell #123", proofNames)
//	if errors.Is(err, fuzzy.ErrEmptyCandidateSet) || !ok {
//		// no match
//	}
package fuzzy

import (
	"math"

	"github.com/agnivade/levenshtein"
)

// Matcher matches a target string against candidate pools
type Matcher struct {
	config Config
}

// NewMatcher creates a new matcher with the given config
func NewMatcher(config Config, opts ...Option) *Matcher {
	for _, opt := range opts {
		opt(&config)
	}
	if config.Scorer == nil {
		config.Scorer = PartialRatio
	}
	return &Matcher{config: config}
}

// Threshold returns the acceptance threshold.
func (m *Matcher) Threshold() int {
	return m.config.Threshold
}

// Best returns the highest-scoring candidate regardless of threshold.
func (m *Matcher) Best(target string, candidates []string) (*MatchResult, error) {
	if len(candidates) == 0 {
		return nil, ErrEmptyCandidateSet
	}

	best := &MatchResult{Index: -1, Score: -1}
	for i, c := range candidates {
		score := m.config.Scorer(target, c)
		// Strictly greater keeps the first candidate on ties
		if score > best.Score {
			best.Candidate = c
			best.Index = i
			best.Score = score
		}
	}
	return best, nil
}

// Find returns the best candidate if it clears the threshold, nil otherwise.
func (m *Matcher) Find(target string, candidates []string) (*MatchResult, error) {
	best, err := m.Best(target, candidates)
	if err != nil {
		return nil, err
	}
	if best.Score < m.config.Threshold {
		return nil, nil
	}
	return best, nil
}

// Match returns the matched candidate and whether one cleared the threshold.
func (m *Matcher) Match(target string, candidates []string) (string, bool, error) {
	res, err := m.Find(target, candidates)
	if err != nil || res == nil {
		return "", false, err
	}
	return res.Candidate, true, nil
}

// Accepts reports whether a pairwise score clears the threshold.
func (m *Matcher) Accepts(a, b string) (int, bool) {
	score := m.config.Scorer(a, b)
	return score, score >= m.config.Threshold
}

// Ratio is the Levenshtein similarity of two strings scaled to 0-100.
func Ratio(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	longest := len(ra)
	if len(rb) > longest {
		longest = len(rb)
	}
	if longest == 0 {
		return 100
	}
	dist := levenshtein.ComputeDistance(a, b)
	return int(math.Round(100 * (1 - float64(dist)/float64(longest))))
}

// PartialRatio slides the shorter string over the longer one and returns the
// best Ratio among equal-length windows. Empty input scores 0.
func PartialRatio(a, b string) int {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 100
	}

	short, long := []rune(a), []rune(b)
	if len(short) > len(long) {
		short, long = long, short
	}

	s := string(short)
	best := 0
	for i := 0; i+len(short) <= len(long); i++ {
		score := Ratio(s, string(long[i:i+len(short)]))
		if score > best {
			best = score
			if best == 100 {
				break
			}
		}
	}
	return best
}

// DateRatio scores exact date strings 100 and falls back to PartialRatio.
func DateRatio(a, b string) int {
	if a != "" && a == b {
		return 100
	}
	return PartialRatio(a, b)
}
