package patterns

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// LineItem is one row of an itemised price table.
type LineItem struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	Unit        string  `json:"unit,omitempty"`
	UnitPrice   float64 `json:"unit_price"`
	Currency    string  `json:"currency,omitempty"`
	LineTotal   float64 `json:"line_total"`
}

// LineItems is the value of a TypeList field.
type LineItems []LineItem

func (li LineItems) String() string {
	if len(li) == 1 {
		return "1 line item"
	}
	return fmt.Sprintf("%d line items", len(li))
}

// Total sums the line totals, rounded to cents.
func (li LineItems) Total() float64 {
	var t float64
	for _, it := range li {
		t += it.LineTotal
	}
	return math.Round(t*100) / 100
}

// Currency returns the code every row that names one agrees on.
func (li LineItems) Currency() (string, bool) {
	var code string
	for _, it := range li {
		switch {
		case it.Currency == "":
		case code == "":
			code = it.Currency
		case it.Currency != code:
			return "", false
		}
	}
	return code, code != ""
}

const (
	maxTableRows      = 20
	headerlessPenalty = 0.1
	rowTolerance      = 0.05 // |qty*price - total| relative to the larger
	maxQuantity       = 10_000
	maxUnitPrice      = 1e6
	maxLineTotal      = 1e7
)

const rowAmount = `[$€£₹]?(\d[\d,]*(?:\.\d{1,2})?)`

var (
	reTableHeader = regexp.MustCompile(`(?im)^[ \t]*(?:description|item)[ \t]+(?:qty|quantity)[ \t]+(?:unit[ \t]+)?price(?:[ \t]+currency)?[ \t]+(?:total|amount)[ \t]*$`)
	// description, quantity, unit, unit price, currency, line total
	reItemRow   = regexp.MustCompile(`^([A-Za-z][\w &(),./\-]{2,60}?)[ \t]+(\d+(?:\.\d+)?)(?:[ \t]+([A-Za-z]{1,12}))?[ \t]*[×@]?[ \t]*` + rowAmount + `(?:[ \t]+([A-Z]{3}))?[ \t]+` + rowAmount + `$`)
	reDescLine  = regexp.MustCompile(`^[A-Za-z][\w &(),./\-]{2,60}$`)
	reQtyLine   = regexp.MustCompile(`^(\d+(?:\.\d+)?)(?:[ \t]+([A-Za-z]{1,12}))?$`)
	reAmtLine   = regexp.MustCompile(`^` + rowAmount + `$`)
	reCodeLine  = regexp.MustCompile(`^[A-Z]{3}$`)
	reTotalLine = regexp.MustCompile(`(?i)^(?:sub[ \t\-]?total|grand[ \t]+total|total|tax|vat|gst|amount[ \t]+due|balance)\b`)
)

var headerWords = map[string]bool{
	"description": true,
	"qty":         true,
	"quantity":    true,
	"price":       true,
	"currency":    true,
	"total":       true,
	"subtotal":    true,
}

// LineItemsMatcher reads an itemised price table. Rows under a recognised
// header score base. Without a header only rows naming a currency code are
// taken, at base minus headerlessPenalty.
type LineItemsMatcher struct {
	base float64
}

func LineItemTable(base float64) *LineItemsMatcher { return &LineItemsMatcher{base: base} }

func (m *LineItemsMatcher) Base() float64  { return m.base }
func (m *LineItemsMatcher) String() string { return "line item table" }

func (m *LineItemsMatcher) Match(text string) (Capture, bool) {
	if loc := reTableHeader.FindStringIndex(text); loc != nil {
		if items, end := tableRows(text, loc[1]); len(items) > 0 {
			return Capture{Value: items, Raw: text[loc[0]:end], Start: loc[0], End: end, Confidence: m.base}, true
		}
	}
	items, start, end := looseRows(text)
	if len(items) == 0 {
		return Capture{}, false
	}
	return Capture{
		Value:      items,
		Raw:        text[start:end],
		Start:      start,
		End:        end,
		Confidence: math.Max(0, m.base-headerlessPenalty),
	}, true
}

type textLine struct {
	text       string // trimmed
	start, end int
}

// splitLines returns the non-blank lines of text from offset on.
func splitLines(text string, from int) []textLine {
	var out []textLine
	for pos := from; pos < len(text); {
		end := len(text)
		if nl := strings.IndexByte(text[pos:], '\n'); nl >= 0 {
			end = pos + nl
		}
		if s := strings.TrimSpace(text[pos:end]); s != "" {
			out = append(out, textLine{text: s, start: pos, end: end})
		}
		pos = end + 1
	}
	return out
}

// tableRows reads rows below a header until a totals line or the row limit.
// Rows may sit on one line or be stacked one value per line.
func tableRows(text string, from int) (LineItems, int) {
	lines := splitLines(text, from)
	var items LineItems
	end := from
	for i, seen := 0, 0; i < len(lines) && seen < maxTableRows; seen++ {
		l := lines[i]
		if reTotalLine.MatchString(l.text) {
			break
		}
		if it, ok := parseRow(l.text); ok {
			items = append(items, it)
			end = l.end
			i++
			continue
		}
		if it, n, ok := stackedRow(lines[i:]); ok {
			items = append(items, it)
			end = lines[i+n-1].end
			i += n
			continue
		}
		i++
	}
	return items, end
}

func looseRows(text string) (LineItems, int, int) {
	var items LineItems
	start, end := -1, 0
	for _, l := range splitLines(text, 0) {
		if len(l.text) < 10 {
			continue
		}
		m := reItemRow.FindStringSubmatch(l.text)
		if m == nil || m[5] == "" {
			continue
		}
		it, ok := newLineItem(m[1], m[2], m[3], m[4], m[5], m[6])
		if !ok {
			continue
		}
		if start < 0 {
			start = l.start
		}
		items = append(items, it)
		end = l.end
		if len(items) == maxTableRows {
			break
		}
	}
	return items, start, end
}

func parseRow(s string) (LineItem, bool) {
	m := reItemRow.FindStringSubmatch(s)
	if m == nil {
		return LineItem{}, false
	}
	return newLineItem(m[1], m[2], m[3], m[4], m[5], m[6])
}

// stackedRow reads description, quantity, unit price, optional currency and
// line total from consecutive lines. n is the number of lines consumed.
func stackedRow(ls []textLine) (it LineItem, n int, ok bool) {
	if len(ls) < 4 || !reDescLine.MatchString(ls[0].text) {
		return LineItem{}, 0, false
	}
	q := reQtyLine.FindStringSubmatch(ls[1].text)
	p := reAmtLine.FindStringSubmatch(ls[2].text)
	if q == nil || p == nil {
		return LineItem{}, 0, false
	}
	n, code := 3, ""
	if reCodeLine.MatchString(ls[3].text) {
		code, n = ls[3].text, 4
	}
	if len(ls) <= n {
		return LineItem{}, 0, false
	}
	t := reAmtLine.FindStringSubmatch(ls[n].text)
	if t == nil {
		return LineItem{}, 0, false
	}
	it, ok = newLineItem(ls[0].text, q[1], q[2], p[1], code, t[1])
	return it, n + 1, ok
}

func newLineItem(desc, qty, unit, price, code, total string) (LineItem, bool) {
	q, err := strconv.ParseFloat(qty, 64)
	if err != nil {
		return LineItem{}, false
	}
	p, ok := ParseMoney(price)
	if !ok {
		return LineItem{}, false
	}
	t, ok := ParseMoney(total)
	if !ok {
		return LineItem{}, false
	}
	it := LineItem{
		Description: reSpaces.ReplaceAllString(strings.TrimSpace(desc), " "),
		Quantity:    q,
		Unit:        strings.ToLower(unit),
		UnitPrice:   p.(float64),
		Currency:    code,
		LineTotal:   t.(float64),
	}
	if it.Unit == "x" {
		it.Unit = ""
	}
	return it, it.valid()
}

func (it LineItem) valid() bool {
	if len(it.Description) < 3 {
		return false
	}
	for _, w := range strings.Fields(strings.ToLower(it.Description)) {
		if headerWords[w] {
			return false
		}
	}
	switch {
	case it.Quantity <= 0 || it.Quantity > maxQuantity:
		return false
	case it.UnitPrice < 0 || it.UnitPrice > maxUnitPrice:
		return false
	case it.LineTotal < 0 || it.LineTotal > maxLineTotal:
		return false
	}
	want := it.Quantity * it.UnitPrice
	scale := math.Max(want, it.LineTotal)
	return scale == 0 || math.Abs(want-it.LineTotal)/scale <= rowTolerance
}
