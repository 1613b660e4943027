package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/joseph-ayodele/contracts-extractor/constants"
	"github.com/joseph-ayodele/contracts-extractor/internal/common"
	"github.com/joseph-ayodele/contracts-extractor/internal/entity"
	"github.com/joseph-ayodele/contracts-extractor/internal/llm"
	"github.com/joseph-ayodele/contracts-extractor/internal/ocr"
	"github.com/joseph-ayodele/contracts-extractor/internal/patterns"
)

const (
	snippetContext = 50

	reasonNoSnippet   = "model answer did not quote the document"
	reasonNotLocated  = "quoted text was not found in the document"
	reasonNoInputPage = "inputs carry no page evidence"
)

// Config holds the engine thresholds.
type Config struct {
	// NeedsConfirmation is the rule confidence below which the model is asked too.
	NeedsConfirmation float64
	// AmbiguityPenalty is subtracted when a competing field captures the same value.
	AmbiguityPenalty float64
}

// FromAppConfig maps the scoring section.
func FromAppConfig(c common.ScoringConfig) Config {
	return Config{NeedsConfirmation: c.NeedsConfirmation, AmbiguityPenalty: c.AmbiguityPenalty}
}

// DefaultConfig returns the stock thresholds.
func DefaultConfig() Config {
	return Config{NeedsConfirmation: 0.6, AmbiguityPenalty: 0.15}
}

// Options are per-run switches.
type Options struct {
	UseModel bool
	Filename string // passed to the model as context
}

// Result of one extraction pass.
type Result struct {
	Fields    entity.FieldSet
	Matches   []Match // one per definition, declaration order
	ModelUsed bool    // at least one model answer was accepted
}

// Engine applies a pattern library to page text, optionally backed by a model.
type Engine struct {
	lib    *patterns.Library
	model  llm.FieldExtractor
	cfg    Config
	logger *slog.Logger
}

// NewEngine builds an engine. model may be nil, which disables the fallback.
func NewEngine(lib *patterns.Library, model llm.FieldExtractor, cfg Config, logger *slog.Logger) *Engine {
	if lib == nil {
		lib = patterns.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{lib: lib, model: model, cfg: cfg, logger: logger}
}

// Library returns the catalog the engine runs.
func (e *Engine) Library() *patterns.Library { return e.lib }

// Extract runs the rule pass, the model fallback and derivations over pages.
// It fails only when the model call times out twice or ctx is done.
func (e *Engine) Extract(ctx context.Context, pages []ocr.Page, opts Options) (Result, error) {
	log := common.LoggerFrom(ctx, e.logger)
	start := time.Now()

	matches := e.RulePass(pages)
	log.Info("extract.rule_pass.done",
		"fields", len(matches),
		"matched", countKind(matches, KindRule),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	var modelUsed bool
	if opts.UseModel && e.model != nil {
		var err error
		matches, modelUsed, err = e.fallback(ctx, log, pages, matches, opts.Filename)
		if err != nil {
			return Result{}, err
		}
	}

	matches = e.derive(matches)

	fields := make(entity.FieldSet, len(matches))
	for _, m := range matches {
		if f, ok := toField(m); ok {
			fields[m.Field()] = f
		}
	}
	log.Info("extract.done",
		"extracted", len(fields),
		"model_used", modelUsed,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return Result{Fields: fields, Matches: matches, ModelUsed: modelUsed}, nil
}

// RulePass is the deterministic part of Extract. For every definition it
// takes the first matcher hit on the lowest-numbered page.
func (e *Engine) RulePass(pages []ocr.Page) []Match {
	defs := e.lib.Definitions()
	out := make([]Match, 0, len(defs))
	for _, def := range defs {
		out = append(out, e.matchField(def, pages))
	}
	return out
}

func (e *Engine) matchField(def patterns.FieldDefinition, pages []ocr.Page) Match {
	for _, p := range pages {
		for _, m := range def.Matchers {
			c, ok := m.Match(p.Text)
			if !ok {
				continue
			}
			ambiguous := e.contested(def, p.Text, c.Value)
			conf := c.Confidence
			if ambiguous {
				conf -= e.cfg.AmbiguityPenalty
			}
			return RuleMatch{
				Name:       def.Name,
				Value:      c.Value,
				Raw:        c.Raw,
				Confidence: clamp(conf),
				Page:       p.Number,
				Snippet:    Snippet(p.Text, c.Start, c.End),
				Matcher:    m.String(),
				Ambiguous:  ambiguous,
			}
		}
	}
	return NoMatch{Name: def.Name}
}

// contested reports whether any competitor of def captures v on the same page.
func (e *Engine) contested(def patterns.FieldDefinition, text string, v any) bool {
	for _, name := range def.Competitors {
		comp, ok := e.lib.Lookup(name)
		if !ok {
			continue
		}
		for _, m := range comp.Matchers {
			if c, ok := m.Match(text); ok && c.Value == v {
				return true
			}
		}
	}
	return false
}

func (e *Engine) fallback(ctx context.Context, log *slog.Logger, pages []ocr.Page, matches []Match, filename string) ([]Match, bool, error) {
	want := map[string]int{}
	req := llm.ExtractRequest{Filename: filename}
	for i, m := range matches {
		switch m := m.(type) {
		case RuleMatch:
			if m.Confidence >= e.cfg.NeedsConfirmation {
				continue
			}
		case NoMatch:
		default:
			continue
		}
		def, _ := e.lib.Lookup(m.Field())
		if def.Type == patterns.TypeList {
			continue
		}
		want[def.Name] = i
		req.Fields = append(req.Fields, llm.FieldSpec{
			Name:        def.Name,
			Category:    string(def.Category),
			Type:        string(def.Type),
			Description: def.Description,
		})
	}
	if len(req.Fields) == 0 {
		return matches, false, nil
	}
	for _, p := range pages {
		req.Pages = append(req.Pages, llm.PageText{Number: p.Number, Text: p.Text})
	}

	log.Info("extract.model.start", "fields", len(req.Fields))
	answers, err := common.RetryOnTimeout(ctx, func(ctx context.Context) ([]llm.FieldAnswer, error) {
		return e.model.ExtractFields(ctx, req)
	})
	if err != nil {
		if errors.Is(err, common.ErrExtractionTimeout) {
			return nil, false, err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, false, ctxErr
		}
		log.Warn("extract.model.degraded", "error", err)
		return matches, false, nil
	}

	out := append([]Match(nil), matches...)
	accepted := 0
	seen := map[string]bool{}
	for _, a := range answers {
		i, ok := want[a.Field]
		if !ok || seen[a.Field] {
			continue
		}
		def, _ := e.lib.Lookup(a.Field)
		mm, ok := e.accept(def, a, pages)
		if !ok {
			log.Debug("extract.model.rejected", "field", a.Field, "confidence", a.Confidence)
			continue
		}
		if rm, isRule := out[i].(RuleMatch); isRule {
			if mm.Confidence <= rm.Confidence {
				continue
			}
			mm.Replaced = &rm
		}
		seen[a.Field] = true
		out[i] = mm
		accepted++
	}
	log.Info("extract.model.done", "answers", len(answers), "accepted", accepted)
	return out, accepted > 0, nil
}

// accept validates a model answer and pins its evidence to the page text.
func (e *Engine) accept(def patterns.FieldDefinition, a llm.FieldAnswer, pages []ocr.Page) (ModelMatch, bool) {
	if a.Confidence <= 0 || a.Confidence > 1 || math.IsNaN(a.Confidence) {
		return ModelMatch{}, false
	}
	v, ok := coerce(def.Type, a.Value)
	if !ok {
		return ModelMatch{}, false
	}
	mm := ModelMatch{Name: def.Name, Value: v, Confidence: a.Confidence}
	quote := collapse(a.Snippet)
	if quote == "" {
		mm.NoEvidenceReason = reasonNoSnippet
		return mm, true
	}
	page := locate(pages, a.Page, quote)
	if page == 0 {
		mm.NoEvidenceReason = reasonNotLocated
		return mm, true
	}
	mm.Page = page
	mm.Snippet = common.TruncateRunes(quote, constants.SnippetMaxLen)
	return mm, true
}

// locate returns the page containing quote, preferring the claimed page.
func locate(pages []ocr.Page, claimed int, quote string) int {
	needle := strings.ToLower(quote)
	for _, p := range pages {
		if p.Number == claimed && strings.Contains(strings.ToLower(collapse(p.Text)), needle) {
			return p.Number
		}
	}
	for _, p := range pages {
		if strings.Contains(strings.ToLower(collapse(p.Text)), needle) {
			return p.Number
		}
	}
	return 0
}

// coerce converts a JSON answer into the definition's value type.
func coerce(t patterns.ValueType, v any) (any, bool) {
	switch t {
	case patterns.TypeNumber:
		switch x := v.(type) {
		case float64:
			return x, !math.IsNaN(x) && !math.IsInf(x, 0)
		case string:
			if v, ok := patterns.ParseNumber(x); ok {
				return v, true
			}
			return patterns.ParseMoney(x)
		}
	case patterns.TypeBool:
		switch x := v.(type) {
		case bool:
			return x, true
		case string:
			return patterns.ParseBool(x)
		}
	case patterns.TypeDate:
		if s, ok := v.(string); ok {
			return patterns.ParseDate(s)
		}
	default:
		switch x := v.(type) {
		case string:
			if s := strings.TrimSpace(x); s != "" {
				return s, true
			}
		case float64:
			return fmt.Sprintf("%g", x), true
		}
	}
	return nil, false
}

func (e *Engine) derive(matches []Match) []Match {
	derivs := e.lib.Derivations()
	if len(derivs) == 0 {
		return matches
	}
	pos := make(map[string]int, len(matches))
	for i, m := range matches {
		pos[m.Field()] = i
	}
	out := append([]Match(nil), matches...)
	for _, d := range derivs {
		i, ok := pos[d.Field]
		if !ok || out[i].Kind() != KindNoMatch {
			continue
		}
		inputs := make([]any, 0, len(d.Inputs))
		var page int
		var parts []string
		for _, name := range d.Inputs {
			j, ok := pos[name]
			if !ok {
				break
			}
			f, ok := toField(out[j])
			if !ok {
				break
			}
			inputs = append(inputs, f.Value)
			parts = append(parts, fmt.Sprintf("%s=%v", name, f.Value))
			if page == 0 && f.Evidence != nil {
				page = f.Evidence.Page
			}
		}
		if len(inputs) != len(d.Inputs) {
			continue
		}
		v, ok := d.Apply(inputs)
		if !ok {
			continue
		}
		out[i] = DerivedMatch{
			Name:       d.Field,
			Value:      v,
			Confidence: d.Confidence,
			Page:       page,
			Snippet:    common.TruncateRunes("derived from "+strings.Join(parts, ", "), constants.SnippetMaxLen),
			Inputs:     d.Inputs,
		}
	}
	return out
}

// toField projects a match onto the stored field shape.
func toField(m Match) (entity.ExtractedField, bool) {
	switch m := m.(type) {
	case RuleMatch:
		return entity.ExtractedField{
			Value:      m.Value,
			Confidence: m.Confidence,
			Source:     constants.SourceRule,
			Evidence:   &entity.Evidence{Page: m.Page, Snippet: m.Snippet, Source: constants.SourceRule},
		}, true
	case ModelMatch:
		f := entity.ExtractedField{Value: m.Value, Confidence: m.Confidence, Source: constants.SourceModel}
		if m.Page > 0 {
			f.Evidence = &entity.Evidence{Page: m.Page, Snippet: m.Snippet, Source: constants.SourceModel}
		} else {
			f.NoEvidenceReason = m.NoEvidenceReason
		}
		return f, true
	case DerivedMatch:
		f := entity.ExtractedField{Value: m.Value, Confidence: m.Confidence, Source: constants.SourceDerived}
		if m.Page > 0 {
			f.Evidence = &entity.Evidence{Page: m.Page, Snippet: m.Snippet, Source: constants.SourceDerived}
		} else {
			f.NoEvidenceReason = reasonNoInputPage
		}
		return f, true
	case NoMatch:
		return entity.ExtractedField{}, false
	}
	return entity.ExtractedField{}, false
}

func countKind(ms []Match, k MatchKind) int {
	n := 0
	for _, m := range ms {
		if m.Kind() == k {
			n++
		}
	}
	return n
}

func clamp(c float64) float64 {
	if c > 1 {
		return 1
	}
	if c < 0.01 {
		return 0.01
	}
	return math.Round(c*1e6) / 1e6
}
