// Package scoring turns an extracted field set into a confidence summary,
// an ordered gap list and a weighted 0-100 score.
package scoring

import (
	"math"
	"sort"

	"github.com/joseph-ayodele/contracts-extractor/constants"
	"github.com/joseph-ayodele/contracts-extractor/internal/common"
	"github.com/joseph-ayodele/contracts-extractor/internal/entity"
	"github.com/joseph-ayodele/contracts-extractor/internal/patterns"
)

// Config holds the thresholds and weight table.
type Config struct {
	LowConfidence float64
	// DerivedLowConfidence is the gap threshold for derived fields. Zero
	// falls back to LowConfidence.
	DerivedLowConfidence float64
	HighConfidence       float64
	Weights              map[constants.WeightGroup]float64
}

// DefaultConfig returns the stock thresholds and weights.
func DefaultConfig() Config {
	return Config{LowConfidence: 0.6, DerivedLowConfidence: 0.7, HighConfidence: 0.8, Weights: constants.DefaultWeights()}
}

// FromAppConfig maps the scoring section.
func FromAppConfig(c common.ScoringConfig) Config {
	return Config{
		LowConfidence:        c.LowConfidence,
		DerivedLowConfidence: c.DerivedLowConfidence,
		HighConfidence:       c.HighConfidence,
		Weights:              c.Weights,
	}
}

// Validate checks thresholds and that the weights sum to 1.
func (c Config) Validate() error {
	return common.ScoringConfig{
		LowConfidence:        c.LowConfidence,
		DerivedLowConfidence: c.DerivedLowConfidence,
		HighConfidence:       c.HighConfidence,
		Weights:              c.Weights,
	}.Validate()
}

func (c Config) gapThreshold(src constants.Source) float64 {
	if src == constants.SourceDerived && c.DerivedLowConfidence > 0 {
		return c.DerivedLowConfidence
	}
	return c.LowConfidence
}

// Report is the output of one scoring pass.
type Report struct {
	OverallScore float64
	Summary      entity.ConfidenceSummary
	Gaps         []entity.ContractGap
	GroupScores  map[constants.WeightGroup]float64 // each in [0,1]
}

// Scorer is stateless apart from its configuration.
type Scorer struct {
	lib *patterns.Library
	cfg Config
}

// New validates cfg and returns a scorer over lib.
func New(lib *patterns.Library, cfg Config) (*Scorer, error) {
	if lib == nil {
		lib = patterns.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	weights := make(map[constants.WeightGroup]float64, len(cfg.Weights))
	for g, w := range cfg.Weights {
		weights[g] = w
	}
	cfg.Weights = weights
	return &Scorer{lib: lib, cfg: cfg}, nil
}

// Score computes the full report for fields.
func (s *Scorer) Score(fields entity.FieldSet) Report {
	groups := s.groupScores(fields)
	var total float64
	for _, g := range constants.WeightGroups {
		total += s.cfg.Weights[g] * groups[g]
	}
	return Report{
		OverallScore: round(100*total, 2),
		Summary:      s.summary(fields),
		Gaps:         s.gaps(fields),
		GroupScores:  groups,
	}
}

// Recompute returns the overall score for fields. It is what Score reports,
// so a stored score can always be checked against the stored fields.
func (s *Scorer) Recompute(fields entity.FieldSet) float64 {
	return s.Score(fields).OverallScore
}

func (s *Scorer) groupScores(fields entity.FieldSet) map[constants.WeightGroup]float64 {
	type acc struct {
		total, present       int
		required, presentReq int
		confSum              float64
	}
	accs := map[constants.WeightGroup]*acc{}
	for _, g := range constants.WeightGroups {
		accs[g] = &acc{}
	}
	for _, def := range s.lib.Definitions() {
		a, ok := accs[def.Group]
		if !ok {
			continue
		}
		a.total++
		if def.Required {
			a.required++
		}
		f, ok := fields[def.Name]
		if !ok {
			continue
		}
		a.present++
		a.confSum += f.Confidence
		if def.Required {
			a.presentReq++
		}
	}

	out := make(map[constants.WeightGroup]float64, len(accs))
	for g, a := range accs {
		if a.present == 0 {
			out[g] = 0
			continue
		}
		mean := a.confSum / float64(a.present)
		var coverage float64
		if a.required > 0 {
			coverage = float64(a.presentReq) / float64(a.required)
		} else {
			coverage = float64(a.present) / float64(a.total)
		}
		out[g] = math.Min(1, mean*math.Min(1, coverage))
	}
	return out
}

func (s *Scorer) summary(fields entity.FieldSet) entity.ConfidenceSummary {
	sum := entity.ConfidenceSummary{TotalFields: len(fields)}
	if len(fields) == 0 {
		return sum
	}
	var total float64
	for _, f := range fields {
		total += f.Confidence
		if f.Confidence < s.cfg.LowConfidence {
			sum.LowCount++
		}
		if f.Confidence >= s.cfg.HighConfidence {
			sum.HighCount++
		}
	}
	sum.Average = round(total/float64(len(fields)), 4)
	return sum
}

func (s *Scorer) gaps(fields entity.FieldSet) []entity.ContractGap {
	type ranked struct {
		gap   entity.ContractGap
		order int
	}
	var rs []ranked
	for i, def := range s.lib.Definitions() {
		if !def.Required {
			continue
		}
		f, ok := fields[def.Name]
		switch {
		case !ok:
			sev := def.Severity
			if s.lib.IsRequiredCategory(def.Category) {
				sev = sev.Escalate()
			}
			rs = append(rs, ranked{entity.ContractGap{Field: def.Name, Category: def.Category, Reason: constants.GapMissing, Severity: sev}, i})
		case f.Confidence < s.cfg.gapThreshold(f.Source):
			rs = append(rs, ranked{entity.ContractGap{Field: def.Name, Category: def.Category, Reason: constants.GapLowConfidence, Severity: def.Severity.Deescalate()}, i})
		}
	}
	sort.SliceStable(rs, func(i, j int) bool {
		a, b := rs[i], rs[j]
		if ra, rb := a.gap.Severity.Rank(), b.gap.Severity.Rank(); ra != rb {
			return ra > rb
		}
		if ca, cb := constants.CategoryOrder(a.gap.Category), constants.CategoryOrder(b.gap.Category); ca != cb {
			return ca < cb
		}
		return a.order < b.order
	})
	out := make([]entity.ContractGap, len(rs))
	for i, r := range rs {
		out[i] = r.gap
	}
	return out
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
