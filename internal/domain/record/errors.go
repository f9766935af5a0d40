package record

import (
	"fmt"
	"strings"
)

// Input table columns
const (
	ColumnBusinessName = "business_name"
	ColumnTotal        = "total"
	ColumnDate         = "date"
	ColumnCurrency     = "currency"
)

// Required columns of an input table. Currency is optional.
var RequiredColumns = []string{ColumnBusinessName, ColumnTotal, ColumnDate}

// SchemaMismatchError reports an input table missing required columns.
// It is fatal: no rows of the table are processed.
type SchemaMismatchError struct {
	Table   string
	Missing []string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("schema mismatch in %s table: missing column(s) %s",
		e.Table, strings.Join(e.Missing, ", "))
}

// CheckColumns validates a header row against RequiredColumns. Header cells
// are compared case-insensitively after trimming.
func CheckColumns(table string, header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		if _, dup := index[key]; !dup {
			index[key] = i
		}
	}

	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &SchemaMismatchError{Table: table, Missing: missing}
	}
	return index, nil
}
