package tables

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/eshaffer321/receipt-reconciler/internal/domain/advisor"
	"github.com/eshaffer321/receipt-reconciler/internal/domain/reconciler"
	"github.com/eshaffer321/receipt-reconciler/internal/domain/record"
	"github.com/eshaffer321/receipt-reconciler/internal/domain/state"
)

func TestReadCSV(t *testing.T) {
	input := "Business_Name,Total,Date,Currency\n" +
		"Starbucks,$5.75,2023-01-01,\n" +
		"\"Walmart, Inc\",\"1,204.10\",01-03-2023,usd\n" +
		",,,\n"

	rows, err := ReadCSV(strings.NewReader(input), TableTransactions)

	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "starbucks", rows[0].BusinessName)
	assert.True(t, rows[0].Total.Equal(decimal.RequireFromString("5.75")))
	assert.Equal(t, "USD", rows[0].Currency)
	assert.Equal(t, "walmart, inc", rows[1].BusinessName)
	assert.True(t, rows[1].Total.Equal(decimal.RequireFromString("1204.10")))
	assert.Equal(t, "01-03-2023", rows[1].Date)
}

func TestReadCSV_MissingColumns(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("business_name,amount\nStarbucks,5.75\n"), TableProofs)

	var schemaErr *record.SchemaMismatchError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, TableProofs, schemaErr.Table)
	assert.Equal(t, []string{"total", "date"}, schemaErr.Missing)
}

func TestReadCSV_Empty(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""), TableProofs)

	var schemaErr *record.SchemaMismatchError
	assert.ErrorAs(t, err, &schemaErr)
}

func TestReadCSV_BadTotalFailsTable(t *testing.T) {
	input := "business_name,total,date\nStarbucks,5.75,2023-01-01\nTarget,abc,2023-01-02\n"

	rows, err := ReadCSV(strings.NewReader(input), TableTransactions)

	require.Error(t, err)
	assert.Nil(t, rows)
	assert.Contains(t, err.Error(), "row 3")
}

func TestReadXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"date", "business_name", "total"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{"2023-01-01", "Costco", "104.99"}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	require.NoError(t, f.Close())

	rows, err := ReadXLSX(buf, TableProofs)

	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "costco", rows[0].BusinessName)
	assert.Equal(t, "2023-01-01", rows[0].Date)
	assert.True(t, rows[0].Total.Equal(decimal.RequireFromString("104.99")))
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	csvPath := filepath.Join(dir, "txns.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("business_name,total,date\nStarbucks,5.75,2023-01-01\n"), 0o644))

	rows, err := Load(csvPath, TableTransactions)
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	_, err = Load(filepath.Join(dir, "txns.json"), TableTransactions)
	assert.Error(t, err)

	jsonPath := filepath.Join(dir, "proofs.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte("[]"), 0o644))
	_, err = Load(jsonPath, TableProofs)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestParseAmount(t *testing.T) {
	tests := map[string]string{
		"12.30":    "12.3",
		" $1,000 ": "1000",
		"-4.50":    "-4.5",
		"7":        "7",
	}
	for in, want := range tests {
		got, err := ParseAmount(in)
		require.NoError(t, err, in)
		assert.True(t, got.Equal(decimal.RequireFromString(want)), "%q -> %s", in, got)
	}

	_, err := ParseAmount("")
	assert.Error(t, err)
}

func TestWriteCSV_ReadBack(t *testing.T) {
	in := []record.Record{record.New("Starbucks", decimal.RequireFromString("5.75"), "2023-01-01")}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, in))

	out, err := ReadCSV(&buf, TableTransactions)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.True(t, in[0].Equal(out[0]))
}

func TestWriteCSV_KeepsSubCentTotals(t *testing.T) {
	in := []record.Record{
		record.New("Fuel Stop", decimal.RequireFromString("12.345"), "2023-01-04"),
		record.New("Starbucks", decimal.RequireFromString("5.70"), "2023-01-01"),
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, in))
	assert.Contains(t, buf.String(), "12.345")

	out, err := ReadCSV(&buf, TableTransactions)
	require.NoError(t, err)
	require.Len(t, out, 2)
	for i := range in {
		assert.Equal(t, in[i].Key(), out[i].Key())
	}
	assert.Len(t, record.Dedupe(append(in, out...)), 2, "reloaded rows are duplicates of the originals")
}

func TestWriteReport_RecordTotalsToTheCent(t *testing.T) {
	s := state.New()
	s.UnmatchedTransactions = []record.Record{record.New("Fuel Stop", decimal.RequireFromString("12.3"), "2023-01-04")}

	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, s))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetUnmatchedTransactions)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "12.30", rows[1][1])
}

func TestWriteReport(t *testing.T) {
	tx := record.New("Chipotle", decimal.RequireFromString("15.00"), "2023-01-02")
	proof := record.New("Chipotle", decimal.RequireFromString("14.50"), "2023-01-02")
	s := state.New()
	s.Discrepancies = []reconciler.MatchedPair{reconciler.NewPair(tx, proof, reconciler.ResultDiscrepancy)}
	s.Recommendations = []advisor.Recommendation{{TransactionBusinessName: "a", ProofBusinessName: "b", Reason: "similar"}}

	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, s))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{
		SheetValidated, SheetDiscrepancies, SheetUnmatchedTransactions, SheetUnmatchedProofs, SheetRecommendations,
	}, f.GetSheetList())

	rows, err := f.GetRows(SheetDiscrepancies)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "0.50", rows[1][6])
	assert.Equal(t, reconciler.ResultDiscrepancy, rows[1][7])

	recs, err := f.GetRows(SheetRecommendations)
	require.NoError(t, err)
	assert.Equal(t, advisor.Columns, recs[0])
}
