package main

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/contracts-extractor/internal/async"
	"github.com/joseph-ayodele/contracts-extractor/internal/blob"
	"github.com/joseph-ayodele/contracts-extractor/internal/common"
	"github.com/joseph-ayodele/contracts-extractor/internal/export"
	"github.com/joseph-ayodele/contracts-extractor/internal/extract"
	"github.com/joseph-ayodele/contracts-extractor/internal/ingest"
	"github.com/joseph-ayodele/contracts-extractor/internal/llm"
	"github.com/joseph-ayodele/contracts-extractor/internal/llm/openai"
	"github.com/joseph-ayodele/contracts-extractor/internal/notify"
	"github.com/joseph-ayodele/contracts-extractor/internal/observability"
	"github.com/joseph-ayodele/contracts-extractor/internal/ocr"
	"github.com/joseph-ayodele/contracts-extractor/internal/patterns"
	"github.com/joseph-ayodele/contracts-extractor/internal/pipeline"
	"github.com/joseph-ayodele/contracts-extractor/internal/repository"
	"github.com/joseph-ayodele/contracts-extractor/internal/scoring"
	"github.com/joseph-ayodele/contracts-extractor/internal/services/contracts"
)

// newAnalyzer wires text extraction, the field engine and the scorer. It
// needs neither the store nor the queue.
func newAnalyzer(cfg *common.Config, useModel bool, logger *slog.Logger) (*pipeline.Analyzer, error) {
	lib := patterns.Default()

	var model llm.FieldExtractor
	if cfg.LLM.Enabled || useModel {
		if cfg.LLM.APIKey == "" {
			logger.Warn("OPENAI_API_KEY not set, model fallback disabled")
		} else {
			model = openai.NewClient(openai.FromAppConfig(cfg.LLM), logger)
			logger.Info("model fallback enabled", "model", cfg.LLM.Model)
		}
	}

	ocrCfg := ocr.FromAppConfig(cfg.OCR)
	text := ocr.NewExtractor(ocrCfg, logger)
	engine := extract.NewEngine(lib, model, extract.FromAppConfig(cfg.Scoring), logger)
	scorer, err := scoring.New(lib, scoring.FromAppConfig(cfg.Scoring))
	if err != nil {
		return nil, err
	}
	return pipeline.NewAnalyzer(text, engine, scorer, logger), nil
}

// app is everything the store-backed commands share.
type app struct {
	cfg      *common.Config
	logger   *slog.Logger
	db       *repository.DB
	docs     repository.DocumentRepository
	blobs    blob.Store
	notifier notify.Notifier
	queue    *async.ProcessorQueue
	intake   *ingest.Usecase
	exporter *export.Service
	svc      *contracts.Service

	closers []func()
}

// openApp opens the store and, when withQueue is set, the processing side
// as well: notifier, analyzer, processor and worker pool.
func openApp(ctx context.Context, cfg *common.Config, logger *slog.Logger, withQueue bool) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	db, err := repository.Open(ctx, repository.FromAppConfig(cfg.Database), logger)
	if err != nil {
		return nil, err
	}
	a.db = db
	a.closers = append(a.closers, func() { db.Close(logger) })
	if err := db.Migrate(ctx, logger); err != nil {
		a.close()
		return nil, err
	}
	a.docs = repository.NewDocumentRepository(db, logger)

	blobs, err := blob.New(ctx, cfg.Storage, logger)
	if err != nil {
		a.close()
		return nil, err
	}
	a.blobs = blobs
	if c, ok := blobs.(io.Closer); ok {
		a.closers = append(a.closers, func() {
			if err := c.Close(); err != nil {
				logger.Warn("failed to close blob store", "error", err)
			}
		})
	}

	lib := patterns.Default()
	a.exporter = export.NewService(a.docs, lib, logger)

	var submitter contracts.Queue = noQueue{}
	if withQueue {
		a.notifier = a.openNotifier(ctx)
		analyzer, err := newAnalyzer(cfg, false, logger)
		if err != nil {
			a.close()
			return nil, err
		}
		proc := pipeline.NewProcessor(analyzer, a.docs, a.blobs, a.notifier, cfg.Processing.RunLease, logger)
		a.queue = async.NewProcessorQueue(proc, logger,
			async.WithWorkers(cfg.Processing.Workers),
			async.WithQueueSize(cfg.Processing.QueueSize),
			async.WithProcessTimeout(cfg.Processing.JobTimeout),
		)
		submitter = a.queue
	}

	a.intake = ingest.NewUsecase(a.docs, a.blobs, submitter, ingest.FromAppConfig(cfg.Processing), logger)
	a.svc = contracts.NewService(contracts.Deps{
		Docs:     a.docs,
		Blobs:    a.blobs,
		Queue:    submitter,
		Intake:   a.intake,
		Exporter: a.exporter,
		Library:  lib,
		RunLease: cfg.Processing.RunLease,
	}, logger)
	return a, nil
}

// openNotifier always logs status changes and also publishes to Redis when configured.
func (a *app) openNotifier(ctx context.Context) notify.Notifier {
	multi := notify.Multi{notify.NewLogNotifier(a.logger)}
	if a.cfg.Notify.RedisURL == "" {
		return multi
	}
	rn, err := notify.NewRedisNotifier(ctx, a.cfg.Notify.RedisURL, a.cfg.Notify.Channel, a.logger)
	if err != nil {
		a.logger.Warn("redis notifier unavailable, status events are logged only", "error", err)
		return multi
	}
	a.closers = append(a.closers, func() { _ = rn.Close() })
	a.logger.Info("publishing status events to redis", "channel", a.cfg.Notify.Channel)
	return append(multi, rn)
}

// shutdownQueue drains in-flight jobs, giving up after timeout.
func (a *app) shutdownQueue(timeout time.Duration) {
	if a.queue == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	a.queue.Shutdown(ctx)
}

// close releases resources in reverse order of acquisition.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// noQueue backs commands that never process documents; uploads stay pending.
type noQueue struct{}

func (noQueue) Submit(context.Context, pipeline.Job) (*async.Handle, error) {
	return nil, async.ErrClosed
}

func (noQueue) Cancel(uuid.UUID) (*async.Handle, bool) { return nil, false }

func (noQueue) InFlight(uuid.UUID) bool { return false }

// initTracing installs the tracer provider and returns its flush.
func initTracing(ctx context.Context, cfg *common.Config, logger *slog.Logger) func() {
	shutdown, err := observability.Init(ctx, cfg.Telemetry, logger)
	if err != nil {
		logger.Warn("tracing disabled", "error", err)
		return func() {}
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(ctx); err != nil {
			logger.Warn("failed to flush traces", "error", err)
		}
	}
}
