package fuzzy

import "errors"

// DefaultThreshold is the minimum similarity (0-100) for a business-name match.
const DefaultThreshold = 80

// ErrEmptyCandidateSet is returned when there is nothing to match against.
// Callers treat it as "no match".
var ErrEmptyCandidateSet = errors.New("fuzzy: empty candidate set")

// Scorer returns a similarity score between 0 and 100.
type Scorer func(a, b string) int

// Config holds matcher configuration
type Config struct {
	Threshold int    // Default: 80
	Scorer    Scorer // Default: PartialRatio
}

// DefaultConfig returns the business-name matching defaults
func DefaultConfig() Config {
	return Config{
		Threshold: DefaultThreshold,
		Scorer:    PartialRatio,
	}
}

// DateConfig returns the defaults used for date matching
func DateConfig() Config {
	return Config{
		Threshold: DefaultThreshold,
		Scorer:    DateRatio,
	}
}

// Option customizes a Matcher.
type Option func(*Config)

// WithThreshold overrides the acceptance threshold.
func WithThreshold(threshold int) Option {
	return func(c *Config) { c.Threshold = threshold }
}

// WithScorer overrides the similarity function.
func WithScorer(s Scorer) Option {
	return func(c *Config) { c.Scorer = s }
}

// MatchResult contains match information
type MatchResult struct {
	Candidate string
	Index     int // Position in the candidate slice
	Score     int
}
