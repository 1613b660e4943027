package scoring_test

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/joseph-ayodele/contracts-extractor/constants"
	"github.com/joseph-ayodele/contracts-extractor/internal/entity"
	"github.com/joseph-ayodele/contracts-extractor/internal/patterns"
	"github.com/joseph-ayodele/contracts-extractor/internal/scoring"
)

func testLibrary(t *testing.T) *patterns.Library {
	t.Helper()
	m := []patterns.Matcher{patterns.Keyword(0.5, `never-matches-anything`)}
	defs := []patterns.FieldDefinition{
		{Name: "party_a", Category: constants.CategoryParties, Group: constants.GroupParties, Required: true, Severity: constants.SeverityHigh, Matchers: m},
		{Name: "party_b", Category: constants.CategoryParties, Group: constants.GroupParties, Required: true, Severity: constants.SeverityMedium, Matchers: m},
		{Name: "fee", Category: constants.CategoryFinancial, Group: constants.GroupFinancial, Required: true, Severity: constants.SeverityMedium, Matchers: m},
		{Name: "currency", Category: constants.CategoryFinancial, Group: constants.GroupFinancial, Severity: constants.SeverityLow, Matchers: m},
		{Name: "notes", Category: constants.CategoryLegal, Required: true, Severity: constants.SeverityLow, Matchers: m},
		{Name: "uptime", Category: constants.CategorySLA, Group: constants.GroupSLA, Severity: constants.SeverityLow, Matchers: m},
		{Name: "support", Category: constants.CategorySLA, Group: constants.GroupSLA, Severity: constants.SeverityLow, Matchers: m},
	}
	lib, err := patterns.New("test", defs, []constants.Category{constants.CategoryParties, constants.CategoryFinancial}, nil)
	if err != nil {
		t.Fatal(err)
	}
	return lib
}

func field(conf float64) entity.ExtractedField {
	return entity.ExtractedField{
		Value:      "x",
		Confidence: conf,
		Source:     constants.SourceRule,
		Evidence:   &entity.Evidence{Page: 1, Snippet: "x", Source: constants.SourceRule},
	}
}

func newScorer(t *testing.T, lib *patterns.Library) *scoring.Scorer {
	t.Helper()
	s, err := scoring.New(lib, scoring.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestScore_WeightedGroups(t *testing.T) {
	s := newScorer(t, testLibrary(t))
	fields := entity.FieldSet{
		"party_a":  field(0.9),
		"fee":      field(0.5),
		"currency": field(0.7),
		"uptime":   field(0.8),
	}
	r := s.Score(fields)

	if r.OverallScore != 35.25 {
		t.Errorf("OverallScore = %v, want 35.25", r.OverallScore)
	}
	wantGroups := map[constants.WeightGroup]float64{
		constants.GroupParties:      0.45,
		constants.GroupFinancial:    0.6,
		constants.GroupPaymentTerms: 0,
		constants.GroupSLA:          0.4,
		constants.GroupContacts:     0,
	}
	approx := cmp.Comparer(func(a, b float64) bool { return math.Abs(a-b) < 1e-9 })
	if diff := cmp.Diff(wantGroups, r.GroupScores, approx); diff != "" {
		t.Errorf("GroupScores mismatch (-want +got):\n%s", diff)
	}

	wantSummary := entity.ConfidenceSummary{Average: 0.725, LowCount: 1, HighCount: 2, TotalFields: 4}
	if diff := cmp.Diff(wantSummary, r.Summary); diff != "" {
		t.Errorf("Summary mismatch (-want +got):\n%s", diff)
	}

	wantGaps := []entity.ContractGap{
		{Field: "party_b", Category: constants.CategoryParties, Reason: constants.GapMissing, Severity: constants.SeverityHigh},
		{Field: "fee", Category: constants.CategoryFinancial, Reason: constants.GapLowConfidence, Severity: constants.SeverityLow},
		{Field: "notes", Category: constants.CategoryLegal, Reason: constants.GapMissing, Severity: constants.SeverityLow},
	}
	if diff := cmp.Diff(wantGaps, r.Gaps); diff != "" {
		t.Errorf("Gaps mismatch (-want +got):\n%s", diff)
	}
}

func TestScore_Bounds(t *testing.T) {
	lib := patterns.Default()
	s := newScorer(t, lib)

	if got := s.Score(entity.FieldSet{}).OverallScore; got != 0 {
		t.Errorf("empty score = %v, want 0", got)
	}

	all := entity.FieldSet{}
	for _, d := range lib.Definitions() {
		all[d.Name] = field(1)
	}
	r := s.Score(all)
	if r.OverallScore != 100 {
		t.Errorf("perfect score = %v, want 100", r.OverallScore)
	}
	if len(r.Gaps) != 0 {
		t.Errorf("perfect extraction has gaps: %v", r.Gaps)
	}
}

func TestScore_GapCompleteness(t *testing.T) {
	lib := patterns.Default()
	s := newScorer(t, lib)
	fields := entity.FieldSet{
		"effective_date": field(0.7),
		"payment_terms":  field(0.4),
	}
	r := s.Score(fields)

	got := map[string]constants.GapReason{}
	for _, g := range r.Gaps {
		if _, dup := got[g.Field]; dup {
			t.Errorf("duplicate gap for %s", g.Field)
		}
		got[g.Field] = g.Reason
	}
	for _, d := range lib.Definitions() {
		reason, flagged := got[d.Name]
		f, present := fields[d.Name]
		switch {
		case !d.Required:
			if flagged {
				t.Errorf("optional field %s flagged", d.Name)
			}
		case !present:
			if reason != constants.GapMissing {
				t.Errorf("%s: reason %q, want missing", d.Name, reason)
			}
		case f.Confidence < 0.6:
			if reason != constants.GapLowConfidence {
				t.Errorf("%s: reason %q, want low_confidence", d.Name, reason)
			}
		default:
			if flagged {
				t.Errorf("%s flagged although confident", d.Name)
			}
		}
	}

	for i := 1; i < len(r.Gaps); i++ {
		a, b := r.Gaps[i-1], r.Gaps[i]
		if a.Severity.Rank() < b.Severity.Rank() {
			t.Fatalf("gaps not sorted by severity at %d: %v then %v", i, a, b)
		}
		if a.Severity == b.Severity && constants.CategoryOrder(a.Category) > constants.CategoryOrder(b.Category) {
			t.Fatalf("gaps not sorted by category at %d: %v then %v", i, a, b)
		}
	}
	if g := r.Gaps[0]; g.Field != "party_1_name" || g.Severity != constants.SeverityHigh {
		t.Errorf("first gap = %+v, want party_1_name high", g)
	}
}

func TestScore_DerivedFieldsUseStricterThreshold(t *testing.T) {
	s := newScorer(t, testLibrary(t))
	derived := field(0.65)
	derived.Source = constants.SourceDerived
	derived.Evidence.Source = constants.SourceDerived
	fields := entity.FieldSet{
		"party_a": field(0.65),
		"party_b": derived,
		"fee":     field(0.9),
		"notes":   field(0.9),
	}

	want := []entity.ContractGap{
		{Field: "party_b", Category: constants.CategoryParties, Reason: constants.GapLowConfidence, Severity: constants.SeverityLow},
	}
	if diff := cmp.Diff(want, s.Score(fields).Gaps); diff != "" {
		t.Errorf("Gaps mismatch (-want +got):\n%s", diff)
	}

	fallback, err := scoring.New(testLibrary(t), scoring.Config{LowConfidence: 0.6, HighConfidence: 0.8, Weights: constants.DefaultWeights()})
	if err != nil {
		t.Fatal(err)
	}
	if gaps := fallback.Score(fields).Gaps; len(gaps) != 0 {
		t.Errorf("zero derived threshold should fall back to low_confidence, got gaps %v", gaps)
	}
}

func TestRecompute_MatchesScore(t *testing.T) {
	s := newScorer(t, patterns.Default())
	fields := entity.FieldSet{
		"party_1_name":          field(0.85),
		"party_2_name":          field(0.55),
		"contract_value":        field(0.9),
		"currency":              field(0.9),
		"payment_terms":         field(0.85),
		"sla_uptime":            field(0.85),
		"primary_contact_email": field(0.8),
	}
	r := s.Score(fields)
	if got := s.Recompute(fields); got != r.OverallScore {
		t.Errorf("Recompute = %v, Score = %v", got, r.OverallScore)
	}
	if r.OverallScore <= 0 || r.OverallScore >= 100 {
		t.Errorf("OverallScore = %v out of (0,100)", r.OverallScore)
	}
}

func TestNew_RejectsBadConfig(t *testing.T) {
	cases := map[string]scoring.Config{
		"weights sum": {LowConfidence: 0.6, HighConfidence: 0.8, Weights: map[constants.WeightGroup]float64{
			constants.GroupFinancial: 0.5, constants.GroupParties: 0.4,
		}},
		"threshold order": {LowConfidence: 0.9, HighConfidence: 0.8, Weights: constants.DefaultWeights()},
		"unknown group": {LowConfidence: 0.6, HighConfidence: 0.8, Weights: map[constants.WeightGroup]float64{
			"legal": 1,
		}},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := scoring.New(nil, cfg); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestNew_CopiesWeights(t *testing.T) {
	cfg := scoring.DefaultConfig()
	s, err := scoring.New(patterns.Default(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	fields := entity.FieldSet{"contract_value": field(1), "currency": field(1), "total_amount": field(1)}
	before := s.Recompute(fields)
	cfg.Weights[constants.GroupFinancial] = 0.9
	if after := s.Recompute(fields); after != before {
		t.Errorf("score changed after caller mutated weights: %v -> %v", before, after)
	}
}
