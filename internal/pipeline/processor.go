package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/joseph-ayodele/contracts-extractor/constants"
	"github.com/joseph-ayodele/contracts-extractor/internal/blob"
	"github.com/joseph-ayodele/contracts-extractor/internal/common"
	"github.com/joseph-ayodele/contracts-extractor/internal/entity"
	"github.com/joseph-ayodele/contracts-extractor/internal/notify"
	"github.com/joseph-ayodele/contracts-extractor/internal/observability"
	"github.com/joseph-ayodele/contracts-extractor/internal/repository"
)

// finalizeTimeout bounds the terminal store write, which runs even when the
// job context is already done.
const finalizeTimeout = 10 * time.Second

// Job identifies one run. A zero RunID makes the processor reserve the
// document from pending itself.
type Job struct {
	DocumentID uuid.UUID
	RunID      uuid.UUID
}

// Processor drives a reserved document through the Analyzer and records the outcome.
type Processor struct {
	analyzer *Analyzer
	docs     repository.DocumentRepository
	blobs    blob.Store
	notifier notify.Notifier
	lease    time.Duration
	logger   *slog.Logger
}

func NewProcessor(
	analyzer *Analyzer,
	docs repository.DocumentRepository,
	blobs blob.Store,
	notifier notify.Notifier,
	lease time.Duration,
	logger *slog.Logger,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if notifier == nil {
		notifier = notify.NewLogNotifier(logger)
	}
	return &Processor{
		analyzer: analyzer,
		docs:     docs,
		blobs:    blobs,
		notifier: notifier,
		lease:    lease,
		logger:   logger,
	}
}

// Run executes the full pipeline for job. On failure the document is marked
// failed with a user-safe message and its progress stays where it was.
func (p *Processor) Run(ctx context.Context, job Job) (res *entity.ContractResult, err error) {
	if job.RunID == uuid.Nil {
		runID, err := p.docs.Reserve(ctx, job.DocumentID, repository.ReserveRequest{
			From:  []constants.ProcessingStatus{constants.StatusPending},
			Lease: p.lease,
		})
		if err != nil {
			p.logger.Warn("processor.reserve.failed", "doc_id", job.DocumentID, "error", err)
			return nil, err
		}
		job.RunID = runID
	}
	ctx = common.WithRun(ctx, job.DocumentID.String(), job.RunID.String())
	log := common.LoggerFrom(ctx, p.logger)

	ctx, span := observability.StartSpan(ctx, "pipeline.run",
		attribute.String("doc_id", job.DocumentID.String()),
		attribute.String("run_id", job.RunID.String()),
	)
	defer func() { observability.EndSpan(span, err) }()

	p.publish(ctx, job.DocumentID, constants.StatusProcessing, ProgressStarted, "")
	log.Info("processor.run.start")

	doc, data, err := p.load(ctx, job.DocumentID)
	if err != nil {
		p.fail(ctx, job, entity.ProcessingMetadata{LibraryVersion: p.analyzer.Library().Version()}, ProgressStarted, err)
		return nil, err
	}

	last := ProgressStarted
	progress := func(ctx context.Context, pct int) error {
		if err := p.docs.UpdateProgress(ctx, job.DocumentID, job.RunID, pct); err != nil {
			return err
		}
		last = pct
		p.publish(ctx, job.DocumentID, constants.StatusProcessing, pct, "")
		return nil
	}
	res, meta, err := p.analyzer.Analyze(ctx, data, Input{Filename: doc.Filename, Options: doc.Options}, progress)
	if err != nil {
		p.fail(ctx, job, meta, last, err)
		return nil, err
	}

	fctx, cancel := finalizeContext(ctx)
	defer cancel()
	if err := p.docs.Complete(fctx, job.DocumentID, job.RunID, res); err != nil {
		p.fail(ctx, job, meta, last, err)
		return nil, err
	}
	p.publish(fctx, job.DocumentID, constants.StatusCompleted, ProgressCompleted, "")
	log.Info("processor.run.done", "overall_score", res.OverallScore, "elapsed_ms", meta.DurationMS)
	return res, nil
}

func (p *Processor) load(ctx context.Context, id uuid.UUID) (*entity.Document, []byte, error) {
	doc, err := p.docs.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	rc, err := p.blobs.Open(ctx, doc.StorageKey)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, nil, common.InternalFault("stored document bytes are missing", err)
		}
		return nil, nil, err
	}
	defer func() { _ = rc.Close() }()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, nil, common.InternalFault("read stored document", err)
	}
	return doc, data, nil
}

// fail records the terminal failure. progress is the last value written, which
// the store leaves untouched.
func (p *Processor) fail(ctx context.Context, job Job, meta entity.ProcessingMetadata, progress int, cause error) {
	log := common.LoggerFrom(ctx, p.logger)
	msg := common.UserMessage(cause)
	log.Error("processor.run.failed", "error", cause, "user_message", msg)

	fctx, cancel := finalizeContext(ctx)
	defer cancel()
	if err := p.docs.Fail(fctx, job.DocumentID, job.RunID, msg, meta); err != nil {
		if errors.Is(err, common.ErrConflict) || errors.Is(err, common.ErrNotFound) {
			log.Info("processor.run.superseded", "error", err)
			return
		}
		log.Error("processor.fail.write_failed", "error", err)
		return
	}
	p.publish(fctx, job.DocumentID, constants.StatusFailed, progress, msg)
}

// publish is best effort.
func (p *Processor) publish(ctx context.Context, id uuid.UUID, status constants.ProcessingStatus, progress int, msg string) {
	ev := notify.Event{DocumentID: id, Status: status, Progress: progress, ErrorMessage: msg, At: time.Now().UTC()}
	if err := p.notifier.Publish(ctx, ev); err != nil {
		p.logger.Warn("processor.notify.failed", "doc_id", id, "status", status, "error", err)
	}
}

func finalizeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
}
