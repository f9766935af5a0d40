// Package record defines the rows reconciled by the engine: transactions
// (bank statement lines) and proofs (receipts) share the same shape.
//
// Records must be normalized before matching:
//
//	txns := record.NormalizeAll(rawTxns)
//	proofs := record.NormalizeAll(rawProofs)
package record

import (
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultCurrency is assumed when a row carries no currency code.
const DefaultCurrency = "USD"

// Record is a single transaction or proof row.
type Record struct {
	BusinessName string          `json:"business_name"`
	Total        decimal.Decimal `json:"total"`
	Date         string          `json:"date"`
	Currency     string          `json:"currency,omitempty"`
}

// New builds a normalized record.
func New(businessName string, total decimal.Decimal, date string) Record {
	return Normalize(Record{BusinessName: businessName, Total: total, Date: date})
}

// Normalize lower-cases and trims the business name, trims the date and
// upper-cases the currency (USD when empty). Normalize(Normalize(r)) == Normalize(r).
func Normalize(r Record) Record {
	r.BusinessName = NormalizeName(r.BusinessName)
	r.Date = strings.TrimSpace(r.Date)
	r.Currency = strings.ToUpper(strings.TrimSpace(r.Currency))
	if r.Currency == "" {
		r.Currency = DefaultCurrency
	}
	return r
}

// NormalizeAll returns normalized copies of rows.
func NormalizeAll(rows []Record) []Record {
	out := make([]Record, 0, len(rows))
	for _, r := range rows {
		out = append(out, Normalize(r))
	}
	return out
}

// NormalizeName is the business-name normalization applied on ingestion.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Key identifies a row by its full value. Totals are compared numerically,
// so 12.3 and 12.30 produce the same key.
func (r Record) Key() string {
	return r.BusinessName + "\x1f" + r.Total.String() + "\x1f" + r.Date + "\x1f" + r.Currency
}

// Equal reports full-row equality.
func (r Record) Equal(other Record) bool {
	return r.Key() == other.Key()
}

// IsUSD reports whether the total is already in the reconciliation currency.
func (r Record) IsUSD() bool {
	return r.Currency == "" || strings.EqualFold(r.Currency, DefaultCurrency)
}

// Names returns the business names of rows in order.
func Names(rows []Record) []string {
	names := make([]string, len(rows))
	for i, r := range rows {
		names[i] = r.BusinessName
	}
	return names
}

// Dates returns the dates of rows in order.
func Dates(rows []Record) []string {
	dates := make([]string, len(rows))
	for i, r := range rows {
		dates[i] = r.Date
	}
	return dates
}

// Dedupe drops rows whose full value was already seen, keeping the first.
func Dedupe(rows []Record) []Record {
	seen := make(map[string]bool, len(rows))
	out := make([]Record, 0, len(rows))
	for _, r := range rows {
		k := r.Key()
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, r)
	}
	return out
}
