// Package tables loads transaction and proof tables that ingestion has
// already extracted, from CSV or XLSX files.
//
// Every table needs the columns business_name, total and date; currency is
// optional. A missing column fails the whole table with
// *record.SchemaMismatchError and no rows are returned.
package tables

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/eshaffer321/receipt-reconciler/internal/domain/record"
)

// Table names used in errors
const (
	TableTransactions = "transactions"
	TableProofs       = "proofs"
)

// ErrUnsupportedFormat is returned for file extensions other than csv/xlsx.
var ErrUnsupportedFormat = errors.New("unsupported table format")

// Load reads a table from path, choosing the reader by extension.
func Load(path, table string) ([]record.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s table: %w", table, err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return ReadCSV(f, table)
	case ".xlsx", ".xlsm":
		return ReadXLSX(f, table)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// ReadCSV reads a comma-separated table with a header row.
func ReadCSV(r io.Reader, table string) ([]record.Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s csv: %w", table, err)
	}
	return FromRows(table, rows)
}

// ReadXLSX reads the first sheet of a workbook.
func ReadXLSX(r io.Reader, table string) ([]record.Record, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s workbook: %w", table, err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	return FromRows(table, rows)
}

// FromRows converts a header row plus data rows into records. Blank rows are
// skipped; a row whose total is not numeric fails the table.
func FromRows(table string, rows [][]string) ([]record.Record, error) {
	if len(rows) == 0 {
		return nil, &record.SchemaMismatchError{Table: table, Missing: record.RequiredColumns}
	}

	index, err := record.CheckColumns(table, rows[0])
	if err != nil {
		return nil, err
	}
	currencyCol, hasCurrency := index[record.ColumnCurrency]

	out := make([]record.Record, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if blank(row) {
			continue
		}

		total, err := ParseAmount(cell(row, index[record.ColumnTotal]))
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", table, i+2, err)
		}

		r := record.Record{
			BusinessName: cell(row, index[record.ColumnBusinessName]),
			Total:        total,
			Date:         cell(row, index[record.ColumnDate]),
		}
		if hasCurrency {
			r.Currency = cell(row, currencyCol)
		}
		out = append(out, record.Normalize(r))
	}

	return out, nil
}

// ParseAmount parses a money cell, tolerating a currency symbol and
// thousands separators.
func ParseAmount(s string) (decimal.Decimal, error) {
	clean := strings.TrimSpace(s)
	clean = strings.TrimLeft(clean, "$€£")
	clean = strings.ReplaceAll(clean, ",", "")
	if clean == "" {
		return decimal.Zero, fmt.Errorf("empty total")
	}
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid total %q: %w", s, err)
	}
	return d, nil
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
