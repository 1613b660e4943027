package patterns

import (
	"strconv"
	"strings"
	"time"
)

// Derivation computes a field from other extracted fields when no matcher
// found it directly. Evidence for a derived value points at the page of the
// first input.
type Derivation struct {
	Field      string
	Inputs     []string
	Confidence float64
	Apply      func(inputs []any) (any, bool)
}

var terminationFromTerm = Derivation{
	Field:      "termination_date",
	Inputs:     []string{"effective_date", "contract_term"},
	Confidence: 0.75,
	Apply: func(in []any) (any, bool) {
		start, ok1 := in[0].(string)
		term, ok2 := in[1].(string)
		if !ok1 || !ok2 {
			return nil, false
		}
		t, err := time.Parse(time.DateOnly, start)
		if err != nil {
			return nil, false
		}
		end, ok := AddDuration(t, term)
		if !ok {
			return nil, false
		}
		return end.Format(time.DateOnly), true
	},
}

var totalFromLineItems = Derivation{
	Field:      "total_amount",
	Inputs:     []string{"line_items"},
	Confidence: 0.8,
	Apply: func(in []any) (any, bool) {
		items, ok := in[0].(LineItems)
		if !ok || len(items) == 0 {
			return nil, false
		}
		t := items.Total()
		if t < minTotal || t > maxTotal {
			return nil, false
		}
		return t, true
	},
}

var currencyFromLineItems = Derivation{
	Field:      "currency",
	Inputs:     []string{"line_items"},
	Confidence: 0.8,
	Apply: func(in []any) (any, bool) {
		items, ok := in[0].(LineItems)
		if !ok {
			return nil, false
		}
		return items.Currency()
	},
}

// AddDuration adds a normalized duration ("24 months", "1 year") to t.
// Month arithmetic clamps to the last day of the target month.
func AddDuration(t time.Time, d string) (time.Time, bool) {
	parts := strings.Fields(d)
	if len(parts) != 2 {
		return time.Time{}, false
	}
	n, err := strconv.Atoi(parts[0])
	if err != nil || n <= 0 {
		return time.Time{}, false
	}
	switch strings.TrimSuffix(parts[1], "s") {
	case "day":
		return t.AddDate(0, 0, n), true
	case "week":
		return t.AddDate(0, 0, 7*n), true
	case "month":
		return addMonths(t, n), true
	case "year":
		return addMonths(t, 12*n), true
	}
	return time.Time{}, false
}

func addMonths(t time.Time, n int) time.Time {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location()).AddDate(0, n, 0)
	last := first.AddDate(0, 1, -1).Day()
	day := t.Day()
	if day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, t.Location())
}
