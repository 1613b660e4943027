package constants

import (
	"strings"
)

// Category groups fields in the pattern library.
type Category string

const (
	CategoryParties   Category = "parties"
	CategoryFinancial Category = "financial"
	CategoryDates     Category = "dates"
	CategoryLegal     Category = "legal"
	CategorySLA       Category = "sla"
)

// allCategories is also the declaration order used to sort gaps.
var allCategories = []Category{
	CategoryParties,
	CategoryFinancial,
	CategoryDates,
	CategoryLegal,
	CategorySLA,
}

// Categories returns the categories in declaration order.
func Categories() []Category {
	out := make([]Category, len(allCategories))
	copy(out, allCategories)
	return out
}

// CategoryOrder is the position of c in declaration order, or len(categories) when unknown.
func CategoryOrder(c Category) int {
	for i, cat := range allCategories {
		if cat == c {
			return i
		}
	}
	return len(allCategories)
}

// CategoryNames returns the category strings in declaration order.
func CategoryNames() []string {
	out := make([]string, len(allCategories))
	for i, cat := range allCategories {
		out[i] = string(cat)
	}
	return out
}

var categoryAliases = map[string]Category{
	"party":    CategoryParties,
	"finance":  CategoryFinancial,
	"payment":  CategoryFinancial,
	"payments": CategoryFinancial,
	"date":     CategoryDates,
	"term":     CategoryDates,
	"clause":   CategoryLegal,
	"clauses":  CategoryLegal,
	"slas":     CategorySLA,
	"service":  CategorySLA,
}

// ParseCategory maps a filter value ("SLAs", "Finance", "dates") onto a Category.
func ParseCategory(s string) (Category, bool) {
	key := strings.ToLower(strings.TrimSpace(s))
	if cat, ok := categoryAliases[key]; ok {
		return cat, true
	}
	if CategoryOrder(Category(key)) < len(allCategories) {
		return Category(key), true
	}
	return "", false
}

// WeightGroup is the scoring bucket a field contributes to.
type WeightGroup string

const (
	GroupNone         WeightGroup = ""
	GroupFinancial    WeightGroup = "financial"
	GroupParties      WeightGroup = "parties"
	GroupPaymentTerms WeightGroup = "payment_terms"
	GroupSLA          WeightGroup = "sla"
	GroupContacts     WeightGroup = "contacts"
)

// WeightGroups lists the scored groups in report order.
var WeightGroups = []WeightGroup{GroupFinancial, GroupParties, GroupPaymentTerms, GroupSLA, GroupContacts}

// DefaultWeights is the fixed category weight table; it sums to 1.
func DefaultWeights() map[WeightGroup]float64 {
	return map[WeightGroup]float64{
		GroupFinancial:    0.30,
		GroupParties:      0.25,
		GroupPaymentTerms: 0.20,
		GroupSLA:          0.15,
		GroupContacts:     0.10,
	}
}

// Severity of a gap.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

func (s Severity) rank() int {
	switch s {
	case SeverityHigh:
		return 2
	case SeverityMedium:
		return 1
	default:
		return 0
	}
}

// Rank orders severities, higher is more severe.
func (s Severity) Rank() int { return s.rank() }

// Escalate moves one tier up, capped at high.
func (s Severity) Escalate() Severity {
	switch s {
	case SeverityLow:
		return SeverityMedium
	default:
		return SeverityHigh
	}
}

// Deescalate moves one tier down, floored at low.
func (s Severity) Deescalate() Severity {
	switch s {
	case SeverityHigh:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// GapReason says why a field is a gap.
type GapReason string

const (
	GapMissing       GapReason = "missing"
	GapLowConfidence GapReason = "low_confidence"
)

// Source is the strategy that produced a field value.
type Source string

const (
	SourceRule    Source = "rule"
	SourceModel   Source = "model"
	SourceDerived Source = "derived"
)
