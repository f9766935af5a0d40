package advisor

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Parse reads the model's JSON reply. The reply must be an object with an
// optional "message" and a "recommendations" array whose rows carry exactly
// the recommendation columns. An all-clear reply may omit the array. Anything
// after the object other than whitespace is rejected; the only leniency is a
// surrounding Markdown code fence.
func Parse(raw string) (*Advice, error) {
	body := strings.TrimSpace(stripCodeFence(raw))
	if body == "" {
		return nil, &MalformedRecommendationError{Reason: "empty response", Raw: raw}
	}

	var envelope struct {
		Message         *string           `json:"message"`
		Recommendations []json.RawMessage `json:"recommendations"`
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(body)))
	if err := dec.Decode(&envelope); err != nil {
		return nil, &MalformedRecommendationError{Reason: "response is not a JSON object", Raw: raw, Err: err}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, &MalformedRecommendationError{Reason: "trailing data after the JSON object", Raw: raw, Err: err}
	}

	advice := &Advice{Recommendations: make([]Recommendation, 0, len(envelope.Recommendations))}
	if envelope.Message != nil {
		advice.Message = strings.TrimSpace(*envelope.Message)
	}

	if envelope.Recommendations == nil && advice.Message == "" {
		return nil, &MalformedRecommendationError{Reason: "response has neither message nor recommendations", Raw: raw}
	}

	for i, row := range envelope.Recommendations {
		rec, err := parseRow(row)
		if err != nil {
			return nil, &MalformedRecommendationError{Reason: fmt.Sprintf("row %d", i), Raw: raw, Err: err}
		}
		advice.Recommendations = append(advice.Recommendations, rec)
	}

	return advice, nil
}

func parseRow(row json.RawMessage) (Recommendation, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(row, &fields); err != nil {
		return Recommendation{}, fmt.Errorf("row is not an object: %w", err)
	}

	var missing, unexpected []string
	for _, col := range Columns {
		if _, ok := fields[col]; !ok {
			missing = append(missing, col)
		}
	}
	for key := range fields {
		if !isColumn(key) {
			unexpected = append(unexpected, key)
		}
	}
	if len(missing) > 0 || len(unexpected) > 0 {
		sort.Strings(unexpected)
		return Recommendation{}, fmt.Errorf("column mismatch (missing %v, unexpected %v)", missing, unexpected)
	}

	var rec Recommendation
	var err error
	if rec.TransactionBusinessName, err = stringField(fields, ColTransactionBusinessName); err != nil {
		return rec, err
	}
	if rec.TransactionTotal, err = decimalField(fields, ColTransactionTotal); err != nil {
		return rec, err
	}
	if rec.TransactionDate, err = stringField(fields, ColTransactionDate); err != nil {
		return rec, err
	}
	if rec.ProofBusinessName, err = stringField(fields, ColProofBusinessName); err != nil {
		return rec, err
	}
	if rec.ProofTotal, err = decimalField(fields, ColProofTotal); err != nil {
		return rec, err
	}
	if rec.ProofDate, err = stringField(fields, ColProofDate); err != nil {
		return rec, err
	}
	if rec.Reason, err = stringField(fields, ColReason); err != nil {
		return rec, err
	}
	return rec, nil
}

func isColumn(key string) bool {
	for _, col := range Columns {
		if key == col {
			return true
		}
	}
	return false
}

func stringField(fields map[string]json.RawMessage, col string) (string, error) {
	var s string
	if err := json.Unmarshal(fields[col], &s); err != nil {
		return "", fmt.Errorf("%s: expected string: %w", col, err)
	}
	return strings.TrimSpace(s), nil
}

// decimalField accepts a JSON number or a numeric string, with an optional
// leading dollar sign.
func decimalField(fields map[string]json.RawMessage, col string) (decimal.Decimal, error) {
	raw := strings.TrimSpace(string(fields[col]))
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(fields[col], &s); err != nil {
			return decimal.Zero, fmt.Errorf("%s: %w", col, err)
		}
		raw = strings.TrimPrefix(strings.TrimSpace(s), "$")
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: not a number: %w", col, err)
	}
	return d, nil
}

// stripCodeFence removes a surrounding ``` fence if the model added one.
func stripCodeFence(s string) string {
	t := strings.TrimSpace(s)
	if !strings.HasPrefix(t, "```") {
		return s
	}
	t = strings.TrimPrefix(t, "```")
	if nl := strings.IndexByte(t, '\n'); nl >= 0 {
		t = t[nl+1:]
	}
	return strings.TrimSuffix(strings.TrimSpace(t), "```")
}
