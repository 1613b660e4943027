package extract

// MatchKind tags the variant of a Match.
type MatchKind int

const (
	KindNoMatch MatchKind = iota
	KindRule
	KindModel
	KindDerived
)

func (k MatchKind) String() string {
	switch k {
	case KindRule:
		return "rule"
	case KindModel:
		return "model"
	case KindDerived:
		return "derived"
	default:
		return "none"
	}
}

// Match is the outcome for one field. It is one of RuleMatch, ModelMatch,
// DerivedMatch or NoMatch; switch on Kind.
type Match interface {
	Field() string
	Kind() MatchKind
	match()
}

// RuleMatch is a deterministic pattern hit.
type RuleMatch struct {
	Name       string
	Value      any
	Raw        string
	Confidence float64
	Page       int
	Snippet    string
	Matcher    string
	Ambiguous  bool // a competing field captured the same value on the page
}

// ModelMatch is an answer accepted from the probabilistic fallback. Page is 0
// when the answer could not be located in the text.
type ModelMatch struct {
	Name             string
	Value            any
	Confidence       float64
	Page             int
	Snippet          string
	NoEvidenceReason string
	Replaced         *RuleMatch // low-confidence rule hit this answer superseded
}

// DerivedMatch is computed from other fields.
type DerivedMatch struct {
	Name       string
	Value      any
	Confidence float64
	Page       int
	Snippet    string
	Inputs     []string
}

// NoMatch means neither strategy produced a value.
type NoMatch struct {
	Name string
}

func (m RuleMatch) Field() string    { return m.Name }
func (m ModelMatch) Field() string   { return m.Name }
func (m DerivedMatch) Field() string { return m.Name }
func (m NoMatch) Field() string      { return m.Name }

func (RuleMatch) Kind() MatchKind    { return KindRule }
func (ModelMatch) Kind() MatchKind   { return KindModel }
func (DerivedMatch) Kind() MatchKind { return KindDerived }
func (NoMatch) Kind() MatchKind      { return KindNoMatch }

func (RuleMatch) match()    {}
func (ModelMatch) match()   {}
func (DerivedMatch) match() {}
func (NoMatch) match()      {}
