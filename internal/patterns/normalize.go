package patterns

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joseph-ayodele/contracts-extractor/constants"
	"github.com/joseph-ayodele/contracts-extractor/internal/common"
)

var (
	reOrdinal    = regexp.MustCompile(`(?i)\b(\d{1,2})(?:st|nd|rd|th)\b`)
	reSpaces     = regexp.MustCompile(`\s+`)
	reMoneyStrip = regexp.MustCompile(`[,$£€₹¥\s\x{00a0}]`)
	reDuration   = regexp.MustCompile(`(?i)^(\d+)[-\s]*(day|week|month|year)s?$`)
)

var dateLayouts = []string{
	"2006-01-02",
	"January 2 2006",
	"Jan 2 2006",
	"2 January 2006",
	"2 Jan 2006",
	"1/2/2006",
	"1-2-2006",
	"1/2/06",
	"1-2-06",
	"January 2006",
	"Jan 2006",
}

// ParseDate normalizes a date capture to YYYY-MM-DD. Unparseable captures are rejected.
func ParseDate(raw string) (any, bool) {
	t, ok := parseTime(raw)
	if !ok {
		return nil, false
	}
	return t.Format(time.DateOnly), true
}

func parseTime(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	s = reOrdinal.ReplaceAllString(s, "$1")
	s = strings.NewReplacer(",", " ", ".", " ").Replace(s)
	s = reSpaces.ReplaceAllString(strings.TrimSpace(s), " ")
	if s == "" {
		return time.Time{}, false
	}
	// time.Parse is case-sensitive on month names.
	s = titleMonth(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			if t.Year() < 1900 || t.Year() > 2200 {
				return time.Time{}, false
			}
			return t, true
		}
	}
	return time.Time{}, false
}

func titleMonth(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		if w[0] >= 'a' && w[0] <= 'z' || w[0] >= 'A' && w[0] <= 'Z' {
			words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
		}
	}
	return strings.Join(words, " ")
}

// ParseMoney strips symbols and thousands separators.
func ParseMoney(raw string) (any, bool) {
	s := reMoneyStrip.ReplaceAllString(raw, "")
	if s == "" {
		return nil, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 {
		return nil, false
	}
	return f, true
}

// Plausible bounds for a contract or invoice total.
const (
	minTotal = 1
	maxTotal = 1e8
)

// ParseTotal is ParseMoney restricted to [minTotal, maxTotal].
func ParseTotal(raw string) (any, bool) {
	v, ok := ParseMoney(raw)
	if !ok {
		return nil, false
	}
	if f := v.(float64); f < minTotal || f > maxTotal {
		return nil, false
	}
	return v, true
}

// AnnualizeMonthly parses a monthly amount and reports it per year.
func AnnualizeMonthly(raw string) (any, bool) {
	v, ok := ParseMoney(raw)
	if !ok {
		return nil, false
	}
	return v.(float64) * 12, true
}

// ParseNumber parses a plain integer or decimal ("30", "99.9").
func ParseNumber(raw string) (any, bool) {
	f, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(raw), "%"), 64)
	if err != nil {
		return nil, false
	}
	return f, true
}

// ParsePercent parses a percentage in (0, 100].
func ParsePercent(raw string) (any, bool) {
	v, ok := ParseNumber(raw)
	if !ok {
		return nil, false
	}
	if f := v.(float64); f <= 0 || f > 100 {
		return nil, false
	}
	return v, true
}

var currencyWords = map[string]string{
	"$":       "USD",
	"€":       "EUR",
	"£":       "GBP",
	"₹":       "INR",
	"¥":       "JPY",
	"dollars": "USD",
	"dollar":  "USD",
	"euros":   "EUR",
	"euro":    "EUR",
	"pounds":  "GBP",
	"rupees":  "INR",
}

// NormalizeCurrency maps symbols and words onto ISO 4217 codes.
func NormalizeCurrency(raw string) (any, bool) {
	s := strings.TrimSpace(raw)
	if code, ok := currencyWords[strings.ToLower(s)]; ok {
		return code, true
	}
	s = strings.ToUpper(s)
	if len(s) != 3 {
		return nil, false
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return nil, false
		}
	}
	return s, true
}

// NormalizeDuration canonicalizes "24 months", "1-year" and the like to "<n> <unit>s".
func NormalizeDuration(raw string) (any, bool) {
	m := reDuration.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return nil, false
	}
	n, _ := strconv.Atoi(m[1])
	unit := strings.ToLower(m[2])
	if n != 1 {
		unit += "s"
	}
	return strconv.Itoa(n) + " " + unit, true
}

// CleanName trims a party or person name capture.
func CleanName(raw string) (any, bool) {
	s := reSpaces.ReplaceAllString(strings.TrimSpace(raw), " ")
	s = strings.Trim(s, " ,;:-")
	s = strings.TrimSuffix(s, " and")
	if len(s) < 2 || len(s) > 120 {
		return nil, false
	}
	return s, true
}

// CleanText collapses whitespace and caps a free-text capture.
func CleanText(raw string) (any, bool) {
	s := reSpaces.ReplaceAllString(strings.TrimSpace(raw), " ")
	s = strings.TrimRight(s, " .;,")
	if s == "" {
		return nil, false
	}
	return common.TruncateRunes(s, constants.SnippetMaxLen), true
}

// Lower is CleanText lowercased.
func Lower(raw string) (any, bool) {
	v, ok := CleanText(raw)
	if !ok {
		return nil, false
	}
	return strings.ToLower(v.(string)), true
}

var paymentMethods = []struct{ key, label string }{
	{"wire transfer", "Wire Transfer"},
	{"bank transfer", "Bank Transfer"},
	{"ach", "ACH"},
	{"credit card", "Credit Card"},
	{"check", "Check"},
	{"cheque", "Check"},
	{"paypal", "PayPal"},
	{"wire", "Wire Transfer"},
}

// PaymentMethods maps a free-text method list onto canonical labels, e.g. "ACH, Wire Transfer".
func PaymentMethods(raw string) (any, bool) {
	s := " " + strings.ToLower(raw) + " "
	seen := map[string]bool{}
	var out []string
	for _, pm := range paymentMethods {
		if seen[pm.label] {
			continue
		}
		if strings.Contains(s, " "+pm.key+" ") || strings.Contains(s, " "+pm.key+",") || strings.Contains(s, " "+pm.key+".") {
			seen[pm.label] = true
			out = append(out, pm.label)
		}
	}
	if len(out) == 0 {
		return nil, false
	}
	return strings.Join(out, ", "), true
}

// ParseBool reads yes/no style answers from form fields.
func ParseBool(raw string) (any, bool) {
	switch strings.ToLower(strings.TrimRight(strings.TrimSpace(raw), ".")) {
	case "yes", "y", "true", "included", "applies", "automatic":
		return true, true
	case "no", "n", "false", "none", "not applicable", "n/a":
		return false, true
	}
	return nil, false
}
