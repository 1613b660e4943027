// Package contracts is the application service behind both transports.
package contracts

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/contracts-extractor/constants"
	"github.com/joseph-ayodele/contracts-extractor/internal/async"
	"github.com/joseph-ayodele/contracts-extractor/internal/blob"
	"github.com/joseph-ayodele/contracts-extractor/internal/common"
	"github.com/joseph-ayodele/contracts-extractor/internal/entity"
	"github.com/joseph-ayodele/contracts-extractor/internal/export"
	"github.com/joseph-ayodele/contracts-extractor/internal/ingest"
	"github.com/joseph-ayodele/contracts-extractor/internal/patterns"
	"github.com/joseph-ayodele/contracts-extractor/internal/pipeline"
	"github.com/joseph-ayodele/contracts-extractor/internal/repository"
)

// Queue is the slice of the worker pool the service needs.
type Queue interface {
	ingest.Submitter
	Cancel(id uuid.UUID) (*async.Handle, bool)
	InFlight(id uuid.UUID) bool
}

// Service handles contract business logic.
type Service struct {
	docs     repository.DocumentRepository
	blobs    blob.Store
	queue    Queue
	intake   *ingest.Usecase
	exporter *export.Service
	lib      *patterns.Library
	lease    time.Duration
	logger   *slog.Logger
}

// Deps groups the collaborators of a Service.
type Deps struct {
	Docs     repository.DocumentRepository
	Blobs    blob.Store
	Queue    Queue
	Intake   *ingest.Usecase
	Exporter *export.Service
	Library  *patterns.Library
	RunLease time.Duration
}

func NewService(d Deps, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if d.Library == nil {
		d.Library = patterns.Default()
	}
	return &Service{
		docs:     d.Docs,
		blobs:    d.Blobs,
		queue:    d.Queue,
		intake:   d.Intake,
		exporter: d.Exporter,
		lib:      d.Library,
		lease:    d.RunLease,
		logger:   logger,
	}
}

// UploadRequest represents upload parameters.
type UploadRequest struct {
	Filename string
	MIMEType string
	Data     []byte
	UseOCR   bool
	UseModel bool
}

// UploadResult is the accepted document and whether it was already known.
type UploadResult struct {
	Document  *entity.Document
	Duplicate bool
}

// Upload validates and stores a PDF, then queues it for processing.
func (s *Service) Upload(ctx context.Context, req UploadRequest) (*UploadResult, error) {
	res, err := s.intake.Ingest(ctx, ingest.Upload{
		Filename: req.Filename,
		MIMEType: req.MIMEType,
		Data:     req.Data,
		Options:  entity.RunOptions{ForceOCR: req.UseOCR, UseModel: req.UseModel},
	})
	if err != nil {
		return nil, err
	}
	return &UploadResult{Document: res.Document, Duplicate: res.Duplicate}, nil
}

// Status is the cheap poll; it never waits on a run.
func (s *Service) Status(ctx context.Context, id uuid.UUID) (*entity.StatusView, error) {
	return s.docs.Status(ctx, id)
}

// Get returns the document record without its result.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*entity.Document, error) {
	doc, err := s.docs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	doc.Result = nil
	return doc, nil
}

// Result returns the full contract of a completed document.
func (s *Service) Result(ctx context.Context, id uuid.UUID) (*entity.Contract, error) {
	doc, err := s.docs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.Status != constants.StatusCompleted || doc.Result == nil {
		return nil, common.NotReady("document is " + string(doc.Status))
	}
	return pipeline.Contract(s.lib, doc, doc.Result), nil
}

// ReprocessRequest carries option overrides; nil keeps the stored value.
type ReprocessRequest struct {
	UseOCR   *bool
	UseModel *bool
}

// Reprocess reserves a new run right away so a competing request gets
// Conflict, then queues it. The prior result is cleared. A document whose
// worker has not yet returned is rejected before anything is written.
func (s *Service) Reprocess(ctx context.Context, id uuid.UUID, req ReprocessRequest) (*entity.StatusView, error) {
	doc, err := s.docs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !doc.Status.IsTerminal() || s.queue.InFlight(id) {
		return nil, common.Conflict("document is already being processed")
	}
	opts := doc.Options
	if req.UseOCR != nil {
		opts.ForceOCR = *req.UseOCR
	}
	if req.UseModel != nil {
		opts.UseModel = *req.UseModel
	}

	runID, err := s.docs.Reserve(ctx, id, repository.ReserveRequest{
		From:    []constants.ProcessingStatus{constants.StatusCompleted, constants.StatusFailed},
		Options: &opts,
		Lease:   s.lease,
	})
	if err != nil {
		return nil, err
	}
	if _, err := s.queue.Submit(ctx, pipeline.Job{DocumentID: id, RunID: runID}); err != nil {
		s.logger.Error("reprocess reserved but not queued", "doc_id", id, "run_id", runID, "error", err)
		msg := "processing could not be scheduled"
		if ferr := s.docs.Fail(context.WithoutCancel(ctx), id, runID, msg, entity.ProcessingMetadata{}); ferr != nil {
			s.logger.Warn("failed to release reserved run", "doc_id", id, "error", ferr)
		}
		return nil, common.InternalFault(msg, err)
	}
	s.logger.Info("reprocess accepted", "doc_id", id, "run_id", runID, "use_ocr", opts.ForceOCR, "use_model", opts.UseModel)
	return &entity.StatusView{ID: id, Status: constants.StatusProcessing, Progress: 0}, nil
}

// Download is the original upload.
type Download struct {
	Filename string
	MIMEType string
	Size     int64
	Body     io.ReadCloser
}

// Download opens the stored bytes. The caller closes Body.
func (s *Service) Download(ctx context.Context, id uuid.UUID) (*Download, error) {
	doc, err := s.docs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	rc, err := s.blobs.Open(ctx, doc.StorageKey)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.NotFound("stored file not found")
		}
		return nil, common.InternalFault("open stored file", err)
	}
	return &Download{Filename: doc.Filename, MIMEType: doc.MIMEType, Size: doc.SizeBytes, Body: rc}, nil
}

// List pages through documents.
func (s *Service) List(ctx context.Context, q entity.ListQuery) (*entity.ListPage, error) {
	return s.docs.List(ctx, q)
}

// Delete removes the record and its stored bytes. Without force a document
// with a run in flight is left alone and Conflict returned; with force the run
// is cancelled first.
func (s *Service) Delete(ctx context.Context, id uuid.UUID, force bool) error {
	if force {
		if h, ok := s.queue.Cancel(id); ok {
			wctx, cancel := context.WithTimeout(ctx, 30*time.Second)
			_, werr := h.Wait(wctx)
			cancel()
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Info("cancelled in-flight run before delete", "doc_id", id, "run_error", werr)
		}
	}
	doc, err := s.docs.Delete(ctx, id, force)
	if err != nil {
		return err
	}
	if err := s.blobs.Delete(ctx, doc.StorageKey); err != nil {
		s.logger.Error("document deleted but stored file remains", "doc_id", id, "key", doc.StorageKey, "error", err)
	}
	s.logger.Info("document deleted", "doc_id", id, "force", force)
	return nil
}

// Export renders stored documents as an XLSX workbook.
func (s *Service) Export(ctx context.Context, q export.Query) ([]byte, error) {
	return s.exporter.ExportXLSX(ctx, q)
}
