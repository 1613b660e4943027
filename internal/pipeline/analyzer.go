// Package pipeline runs one document through text extraction, field
// extraction and scoring.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/joseph-ayodele/contracts-extractor/internal/common"
	"github.com/joseph-ayodele/contracts-extractor/internal/entity"
	"github.com/joseph-ayodele/contracts-extractor/internal/extract"
	"github.com/joseph-ayodele/contracts-extractor/internal/observability"
	"github.com/joseph-ayodele/contracts-extractor/internal/ocr"
	"github.com/joseph-ayodele/contracts-extractor/internal/patterns"
	"github.com/joseph-ayodele/contracts-extractor/internal/scoring"
)

// Stage boundaries reported through Progress.
const (
	ProgressStarted   = 0
	ProgressText      = 25
	ProgressFields    = 70
	ProgressCompleted = 100
)

// Progress receives stage checkpoints. An error aborts the run.
type Progress func(ctx context.Context, pct int) error

// Input describes one document to analyze.
type Input struct {
	Filename string
	Options  entity.RunOptions
}

// Analyzer is the storage-free core: PDF bytes in, scored result out.
type Analyzer struct {
	text   *ocr.Extractor
	engine *extract.Engine
	scorer *scoring.Scorer
	logger *slog.Logger
}

func NewAnalyzer(text *ocr.Extractor, engine *extract.Engine, scorer *scoring.Scorer, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{text: text, engine: engine, scorer: scorer, logger: logger}
}

// Library is the pattern library the engine applies.
func (a *Analyzer) Library() *patterns.Library { return a.engine.Library() }

// Analyze runs every stage. The returned metadata is filled as far as the run
// got, also on failure; the result is nil on failure.
func (a *Analyzer) Analyze(ctx context.Context, data []byte, in Input, progress Progress) (*entity.ContractResult, entity.ProcessingMetadata, error) {
	start := time.Now()
	log := common.LoggerFrom(ctx, a.logger)
	meta := entity.ProcessingMetadata{LibraryVersion: a.Library().Version()}
	done := func() { meta.DurationMS = time.Since(start).Milliseconds() }
	if progress == nil {
		progress = func(context.Context, int) error { return nil }
	}

	if err := progress(ctx, ProgressStarted); err != nil {
		done()
		return nil, meta, err
	}

	pages, err := a.extractText(ctx, data, in.Options)
	if err != nil {
		done()
		log.Warn("pipeline.text.failed", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, meta, err
	}
	meta.PageCount = len(pages)
	meta.OCRUsed = ocr.OCRUsed(pages)
	meta.ScannedPages = ocr.ScannedPages(pages)
	if err := progress(ctx, ProgressText); err != nil {
		done()
		return nil, meta, err
	}

	ext, err := a.extractFields(ctx, pages, in)
	if err != nil {
		done()
		log.Warn("pipeline.fields.failed", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, meta, err
	}
	meta.ModelUsed = ext.ModelUsed
	if err := progress(ctx, ProgressFields); err != nil {
		done()
		return nil, meta, err
	}

	_, span := observability.StartSpan(ctx, "pipeline.score")
	report := a.scorer.Score(ext.Fields)
	span.SetAttributes(attribute.Float64("overall_score", report.OverallScore), attribute.Int("gaps", len(report.Gaps)))
	observability.EndSpan(span, nil)

	done()
	res := &entity.ContractResult{
		Fields:            ext.Fields,
		ConfidenceSummary: report.Summary,
		Gaps:              report.Gaps,
		OverallScore:      report.OverallScore,
		Processing:        meta,
		Pages:             pageTexts(pages),
	}
	log.Info("pipeline.analyze.done",
		"pages", meta.PageCount,
		"ocr_used", meta.OCRUsed,
		"model_used", meta.ModelUsed,
		"fields", len(ext.Fields),
		"overall_score", report.OverallScore,
		"elapsed_ms", meta.DurationMS,
	)
	return res, meta, nil
}

func (a *Analyzer) extractText(ctx context.Context, data []byte, opts entity.RunOptions) (pages []ocr.Page, err error) {
	ctx, span := observability.StartSpan(ctx, "pipeline.text", attribute.Bool("force_ocr", opts.ForceOCR))
	defer func() { observability.EndSpan(span, err) }()

	src, err := a.text.Open(ctx, data, ocr.Options{ForceOCR: opts.ForceOCR})
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := src.Close(); cerr != nil {
			a.logger.Warn("failed to release pdf source", "error", cerr)
		}
	}()
	pages, err = src.Collect(ctx)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("pages", len(pages)))
	return pages, nil
}

func (a *Analyzer) extractFields(ctx context.Context, pages []ocr.Page, in Input) (res extract.Result, err error) {
	ctx, span := observability.StartSpan(ctx, "pipeline.fields", attribute.Bool("use_model", in.Options.UseModel))
	defer func() { observability.EndSpan(span, err) }()

	res, err = a.engine.Extract(ctx, pages, extract.Options{UseModel: in.Options.UseModel, Filename: in.Filename})
	if err != nil {
		return res, err
	}
	span.SetAttributes(attribute.Int("fields", len(res.Fields)), attribute.Bool("model_used", res.ModelUsed))
	return res, nil
}

func pageTexts(pages []ocr.Page) []entity.PageText {
	out := make([]entity.PageText, len(pages))
	for i, p := range pages {
		out[i] = entity.PageText{Page: p.Number, Kind: string(p.Kind), Content: p.Text}
	}
	return out
}
