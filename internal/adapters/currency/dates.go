package currency

import (
	"fmt"
	"strings"
	"time"
)

// dateLayouts are tried in order; month-first wins for ambiguous dates.
var dateLayouts = []string{
	"2006-01-02",
	"01-02-2006",
	"02-01-2006",
	"01/02/2006",
	"02/01/2006",
}

// NormalizeDate parses s with the supported layouts and returns it as
// YYYY-MM-DD.
func NormalizeDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02"), nil
		}
	}
	return "", fmt.Errorf("unrecognized date format: %q", s)
}
