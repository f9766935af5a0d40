package tables

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/eshaffer321/receipt-reconciler/internal/domain/advisor"
	"github.com/eshaffer321/receipt-reconciler/internal/domain/reconciler"
	"github.com/eshaffer321/receipt-reconciler/internal/domain/record"
	"github.com/eshaffer321/receipt-reconciler/internal/domain/state"
)

// Sheet names of an exported report
const (
	SheetValidated             = "Validated"
	SheetDiscrepancies         = "Discrepancies"
	SheetUnmatchedTransactions = "Unmatched Transactions"
	SheetUnmatchedProofs       = "Unmatched Proofs"
	SheetRecommendations       = "Recommendations"
)

var (
	recordHeader = []string{record.ColumnBusinessName, record.ColumnTotal, record.ColumnDate, record.ColumnCurrency}
	pairHeader   = []string{
		"transaction_business_name", "transaction_total", "transaction_date",
		"proof_business_name", "proof_total", "proof_date",
		"delta", "result",
	}
)

// WriteCSV writes records with the loader's column names. Totals keep their
// full precision so a reloaded row has the same key.
func WriteCSV(w io.Writer, rows []record.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(recordHeader); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write([]string{r.BusinessName, r.Total.String(), r.Date, r.Currency}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteReport writes every category of s to a workbook, one sheet each.
func WriteReport(w io.Writer, s state.State) error {
	f := excelize.NewFile()
	defer f.Close()

	sheets := []struct {
		name   string
		header []string
		rows   [][]string
	}{
		{SheetValidated, pairHeader, pairRows(s.Validated)},
		{SheetDiscrepancies, pairHeader, pairRows(s.Discrepancies)},
		{SheetUnmatchedTransactions, recordHeader, recordRows(s.UnmatchedTransactions)},
		{SheetUnmatchedProofs, recordHeader, recordRows(s.UnmatchedProofs)},
		{SheetRecommendations, advisor.Columns, recommendationRows(s.Recommendations)},
	}

	for i, sh := range sheets {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), sh.name); err != nil {
				return fmt.Errorf("failed to name sheet: %w", err)
			}
		} else if _, err := f.NewSheet(sh.name); err != nil {
			return fmt.Errorf("failed to add sheet %q: %w", sh.name, err)
		}

		if err := writeSheet(f, sh.name, sh.header, sh.rows); err != nil {
			return err
		}
	}

	f.SetActiveSheet(0)
	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, header []string, rows [][]string) error {
	all := append([][]string{header}, rows...)
	for i, row := range all {
		cellName, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		values := make([]interface{}, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := f.SetSheetRow(sheet, cellName, &values); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

// recordRow formats a record for the report, totals to the cent
func recordRow(r record.Record) []string {
	return []string{r.BusinessName, r.Total.StringFixed(2), r.Date, r.Currency}
}

func recordRows(rows []record.Record) [][]string {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, recordRow(r))
	}
	return out
}

func pairRows(pairs []reconciler.MatchedPair) [][]string {
	out := make([][]string, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, []string{
			p.Transaction.BusinessName, p.Transaction.Total.StringFixed(2), p.Transaction.Date,
			p.Proof.BusinessName, p.Proof.Total.StringFixed(2), p.Proof.Date,
			p.Delta.StringFixed(2), p.Result,
		})
	}
	return out
}

func recommendationRows(recs []advisor.Recommendation) [][]string {
	out := make([][]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, []string{
			r.TransactionBusinessName, r.TransactionTotal.StringFixed(2), r.TransactionDate,
			r.ProofBusinessName, r.ProofTotal.StringFixed(2), r.ProofDate,
			r.Reason,
		})
	}
	return out
}
