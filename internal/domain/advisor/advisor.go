// Package advisor proposes near-miss pairings between leftover unmatched
// transactions and proofs. The reasoning is delegated to a text-generation
// model; its reply is treated as untrusted data and validated strictly.
//
// Basic usage:
//
//	a := advisor.New(client, advisor.DefaultConfig(), logger)
//	advice, err := a.Recommend(ctx, result.UnmatchedTransactions, result.UnmatchedProofs)
//	var malformed *advisor.MalformedRecommendationError
//	if errors.As(err, &malformed) {
//		// the model replied with something other than the expected table
//	}
package advisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"text/tabwriter"

	"github.com/eshaffer321/receipt-reconciler/internal/adapters/llm"
	"github.com/eshaffer321/receipt-reconciler/internal/domain/record"
)

// ErrNoClient is returned by Recommend when there is something to review but
// no text-generation client was configured.
var ErrNoClient = errors.New("recommendation advisor has no text-generation client")

// Config holds advisor configuration
type Config struct {
	Model       string
	Temperature float64
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		Model:       "gpt-4o",
		Temperature: 0.1,
	}
}

// Advisor produces recommendations for unmatched rows
type Advisor struct {
	client llm.Client
	config Config
	cache  Cache
	logger *slog.Logger
}

// WithCache reuses replies for identical requests. Only replies that parse
// are cached.
func (a *Advisor) WithCache(c Cache) *Advisor {
	a.cache = c
	return a
}

// Model returns the configured model name
func (a *Advisor) Model() string {
	return a.config.Model
}

// New creates a new advisor
func New(client llm.Client, config Config, logger *slog.Logger) *Advisor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Advisor{
		client: client,
		config: config,
		logger: logger,
	}
}

const systemInstruction = `You review the output of a financial reconciliation tool. You receive two tables: transactions (bank statement lines) and proofs (receipts) that the tool could not match.

Identify likely pairs between them where either:
(a) the business names are textually similar but were not similar enough for the automatic matcher, or
(b) the totals and dates match exactly even though the business names differ.

Only pair rows that appear in the tables, and copy their values exactly.

Respond with a JSON object of this shape:
{
  "message": "<one or two sentences summarizing what you found>",
  "recommendations": [
    {
      "Transaction Business Name": "...",
      "Transaction Total": 0.00,
      "Transaction Date": "...",
      "Proof Business Name": "...",
      "Proof Total": 0.00,
      "Proof Date": "...",
      "Reason": "..."
    }
  ]
}

Use exactly these keys. If there are no plausible pairs, return an empty "recommendations" array.`

// Recommend asks the model for near-miss pairs. When both tables are empty
// it returns AllClearMessage without calling the model. Errors from the
// client are returned wrapped and are not retried.
func (a *Advisor) Recommend(ctx context.Context, transactions, proofs []record.Record) (*Advice, error) {
	if len(transactions) == 0 && len(proofs) == 0 {
		return &Advice{Message: AllClearMessage, Recommendations: []Recommendation{}}, nil
	}

	if a.client == nil {
		return nil, ErrNoClient
	}

	prompt := BuildPrompt(transactions, proofs)

	key := cacheKey(a.config, prompt)
	if a.cache != nil {
		if raw, ok := a.cache.Get(key); ok {
			if advice, err := Parse(raw); err == nil {
				a.logger.Debug("using cached recommendations", "count", len(advice.Recommendations))
				advice.Raw = raw
				advice.Cached = true
				return advice, nil
			}
		}
	}

	request := llm.ChatCompletionRequest{
		Model:       a.config.Model,
		Temperature: a.config.Temperature,
		ResponseFormat: &llm.ResponseFormat{
			Type: llm.ResponseFormatJSON,
		},
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: systemInstruction},
			{Role: llm.RoleUser, Content: prompt},
		},
	}

	a.logger.Debug("requesting recommendations",
		"unmatched_transactions", len(transactions),
		"unmatched_proofs", len(proofs),
		"model", a.config.Model)

	response, err := a.client.CreateChatCompletion(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("recommendation request failed: %w", err)
	}

	raw := response.Content()
	advice, err := Parse(raw)
	if err != nil {
		a.logger.Warn("model returned malformed recommendations", "error", err)
		return nil, err
	}

	advice.Prompt = prompt
	advice.Raw = raw
	advice.Usage = response.Usage

	if a.cache != nil {
		a.cache.Set(key, raw)
	}

	a.logger.Info("recommendations received", "count", len(advice.Recommendations))
	return advice, nil
}

// BuildPrompt renders both unmatched tables as aligned plain text.
func BuildPrompt(transactions, proofs []record.Record) string {
	var b strings.Builder
	b.WriteString("Unmatched transactions:\n")
	writeTable(&b, transactions)
	b.WriteString("\nUnmatched proofs:\n")
	writeTable(&b, proofs)
	return b.String()
}

func writeTable(b *strings.Builder, rows []record.Record) {
	if len(rows) == 0 {
		b.WriteString("(none)\n")
		return
	}

	w := tabwriter.NewWriter(b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "Business Name\tTotal\tDate\tCurrency")
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.BusinessName, r.Total.StringFixed(2), r.Date, r.Currency)
	}
	w.Flush()
}
