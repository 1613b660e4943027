// Package patterns holds the versioned, read-only catalog of contract field
// definitions and the matchers used to extract them.
package patterns

import (
	"fmt"
	"slices"
	"sync"

	"github.com/joseph-ayodele/contracts-extractor/constants"
)

// ValueType is the type of an extracted value.
type ValueType string

const (
	TypeString ValueType = "string"
	TypeNumber ValueType = "number"
	TypeBool   ValueType = "boolean"
	TypeDate   ValueType = "date" // YYYY-MM-DD string
	TypeList   ValueType = "list" // LineItems; never asked of the model
)

// FieldDefinition describes one extractable field.
type FieldDefinition struct {
	Name        string
	Category    constants.Category
	Group       constants.WeightGroup
	Type        ValueType
	Required    bool
	Severity    constants.Severity
	Description string
	// Competitors are fields whose matchers capturing the same value on the
	// same page make a match ambiguous.
	Competitors []string
	Matchers    []Matcher
}

// Library is an immutable catalog. Share it freely between goroutines.
type Library struct {
	version     string
	defs        []FieldDefinition
	index       map[string]int
	requiredCat map[constants.Category]bool
	derivations []Derivation
}

// New validates defs and builds a library.
func New(version string, defs []FieldDefinition, requiredCategories []constants.Category, derivations []Derivation) (*Library, error) {
	l := &Library{
		version:     version,
		defs:        slices.Clone(defs),
		index:       make(map[string]int, len(defs)),
		requiredCat: map[constants.Category]bool{},
		derivations: slices.Clone(derivations),
	}
	for i, d := range l.defs {
		if d.Name == "" {
			return nil, fmt.Errorf("definition %d has no name", i)
		}
		if _, dup := l.index[d.Name]; dup {
			return nil, fmt.Errorf("duplicate field %q", d.Name)
		}
		if constants.CategoryOrder(d.Category) == len(constants.Categories()) {
			return nil, fmt.Errorf("field %q: unknown category %q", d.Name, d.Category)
		}
		if len(d.Matchers) == 0 {
			return nil, fmt.Errorf("field %q has no matchers", d.Name)
		}
		l.defs[i].Matchers = slices.Clone(d.Matchers)
		l.defs[i].Competitors = slices.Clone(d.Competitors)
		l.index[d.Name] = i
	}
	for _, d := range l.defs {
		for _, c := range d.Competitors {
			if _, ok := l.index[c]; !ok || c == d.Name {
				return nil, fmt.Errorf("field %q: bad competitor %q", d.Name, c)
			}
		}
	}
	for _, dv := range l.derivations {
		if _, ok := l.index[dv.Field]; !ok {
			return nil, fmt.Errorf("derivation for unknown field %q", dv.Field)
		}
	}
	for _, c := range requiredCategories {
		l.requiredCat[c] = true
	}
	return l, nil
}

var defaultLibrary = sync.OnceValue(func() *Library {
	l, err := New(Version, catalog(), []constants.Category{
		constants.CategoryParties,
		constants.CategoryFinancial,
		constants.CategoryDates,
	}, []Derivation{terminationFromTerm, totalFromLineItems, currencyFromLineItems})
	if err != nil {
		panic("patterns: invalid built-in catalog: " + err.Error())
	}
	return l
})

// Default returns the built-in catalog.
func Default() *Library { return defaultLibrary() }

func (l *Library) Version() string { return l.version }

// Definitions returns the fields in declaration order.
func (l *Library) Definitions() []FieldDefinition { return slices.Clone(l.defs) }

func (l *Library) Lookup(name string) (FieldDefinition, bool) {
	i, ok := l.index[name]
	if !ok {
		return FieldDefinition{}, false
	}
	return l.defs[i], true
}

// Order is the declaration index of name, or -1.
func (l *Library) Order(name string) int {
	if i, ok := l.index[name]; ok {
		return i
	}
	return -1
}

func (l *Library) ByCategory(c constants.Category) []FieldDefinition {
	var out []FieldDefinition
	for _, d := range l.defs {
		if d.Category == c {
			out = append(out, d)
		}
	}
	return out
}

// IsRequiredCategory reports whether a missing required field in c escalates in severity.
func (l *Library) IsRequiredCategory(c constants.Category) bool { return l.requiredCat[c] }

func (l *Library) Derivations() []Derivation { return slices.Clone(l.derivations) }
