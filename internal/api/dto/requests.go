package dto

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/eshaffer321/receipt-reconciler/internal/domain/record"
)

// CreateSessionRequest is the request body for creating a session.
type CreateSessionRequest struct {
	Name string `json:"name"`
}

// RecordRequest is one transaction or proof row. Total accepts a JSON
// number or a numeric string; a missing or null total is invalid.
type RecordRequest struct {
	BusinessName string              `json:"business_name"`
	Total        decimal.NullDecimal `json:"total"`
	Date         string              `json:"date"`
	Currency     string              `json:"currency,omitempty"`
}

// ValidateRequest is the request body for a validation run.
// Either table may be omitted to reuse the session's accumulated rows.
type ValidateRequest struct {
	Transactions    []RecordRequest `json:"transactions"`
	Proofs          []RecordRequest `json:"proofs"`
	ConvertCurrency bool            `json:"convert_currency"`
}

// AcceptRequest is the request body for accepting recommendations.
type AcceptRequest struct {
	Indices []int `json:"indices"`
}

// SessionListParams represents query parameters for listing sessions.
type SessionListParams struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// RunListParams represents query parameters for listing runs.
type RunListParams struct {
	Limit int `json:"limit"`
}

// DefaultSessionListParams returns default values for session list params.
func DefaultSessionListParams() SessionListParams {
	return SessionListParams{
		Limit:  50,
		Offset: 0,
	}
}

// DefaultRunListParams returns default values for run list params.
func DefaultRunListParams() RunListParams {
	return RunListParams{
		Limit: 20,
	}
}

// ToRecords converts request rows to records. Every row needs a business
// name, a total and a date; a row missing any of them fails the whole table
// with a *record.SchemaMismatchError.
func ToRecords(table string, rows []RecordRequest) ([]record.Record, error) {
	out := make([]record.Record, 0, len(rows))
	for i, r := range rows {
		var missing []string
		if strings.TrimSpace(r.BusinessName) == "" {
			missing = append(missing, record.ColumnBusinessName)
		}
		if !r.Total.Valid {
			missing = append(missing, record.ColumnTotal)
		}
		if strings.TrimSpace(r.Date) == "" {
			missing = append(missing, record.ColumnDate)
		}
		if len(missing) > 0 {
			return nil, fmt.Errorf("row %d: %w", i, &record.SchemaMismatchError{Table: table, Missing: missing})
		}

		out = append(out, record.Normalize(record.Record{
			BusinessName: r.BusinessName,
			Total:        r.Total.Decimal,
			Date:         r.Date,
			Currency:     r.Currency,
		}))
	}
	return out, nil
}
