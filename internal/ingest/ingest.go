// Package ingest validates uploads, stores their bytes and queues them.
package ingest

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/contracts-extractor/constants"
	"github.com/joseph-ayodele/contracts-extractor/internal/async"
	"github.com/joseph-ayodele/contracts-extractor/internal/blob"
	"github.com/joseph-ayodele/contracts-extractor/internal/common"
	"github.com/joseph-ayodele/contracts-extractor/internal/entity"
	"github.com/joseph-ayodele/contracts-extractor/internal/pipeline"
	"github.com/joseph-ayodele/contracts-extractor/internal/repository"
)

const maxFilenameLen = 255

// Submitter queues pipeline jobs. *async.ProcessorQueue satisfies it.
type Submitter interface {
	Submit(ctx context.Context, job pipeline.Job) (*async.Handle, error)
}

// Upload is one file offered for intake.
type Upload struct {
	Filename string
	MIMEType string
	Data     []byte
	Options  entity.RunOptions
}

// Result is the intake outcome. Handle is nil for duplicates.
type Result struct {
	Document  *entity.Document
	Duplicate bool
	Handle    *async.Handle
}

type Config struct {
	MaxUploadSize   int64
	AllowDuplicates bool
}

// FromAppConfig maps the processing section.
func FromAppConfig(c common.ProcessingConfig) Config {
	return Config{MaxUploadSize: c.MaxUploadSize, AllowDuplicates: c.AllowDuplicates}
}

type Usecase struct {
	docs   repository.DocumentRepository
	blobs  blob.Store
	queue  Submitter
	cfg    Config
	logger *slog.Logger
}

func NewUsecase(docs repository.DocumentRepository, blobs blob.Store, queue Submitter, cfg Config, logger *slog.Logger) *Usecase {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxUploadSize <= 0 {
		cfg.MaxUploadSize = constants.MaxUploadSizeDefault
	}
	return &Usecase{docs: docs, blobs: blobs, queue: queue, cfg: cfg, logger: logger}
}

// Validate checks an upload before anything is stored.
func Validate(u Upload, maxSize int64) error {
	if constants.NormalizeMIME(u.MIMEType) != constants.MIMETypePDF {
		return common.InvalidInputf("only %s uploads are accepted, got %q", constants.MIMETypePDF, u.MIMEType)
	}
	size := int64(len(u.Data))
	if size == 0 {
		return common.InvalidInput("file is empty")
	}
	if size > maxSize {
		return common.InvalidInputf("file is %d bytes, the limit is %d", size, maxSize)
	}
	if !bytes.HasPrefix(u.Data, []byte(constants.PDFMagic)) {
		return common.InvalidInput("file is not a PDF")
	}
	return nil
}

// Ingest validates, deduplicates, stores and queues one upload.
func (uc *Usecase) Ingest(ctx context.Context, u Upload) (*Result, error) {
	log := common.LoggerFrom(ctx, uc.logger)
	if err := Validate(u, uc.cfg.MaxUploadSize); err != nil {
		log.Warn("upload rejected", "filename", u.Filename, "size_bytes", len(u.Data), "error", err)
		return nil, err
	}

	sum := sha256.Sum256(u.Data)
	hash := hex.EncodeToString(sum[:])
	if !uc.cfg.AllowDuplicates {
		existing, err := uc.docs.FindByHash(ctx, hash)
		switch {
		case err == nil:
			log.Info("duplicate upload, returning existing document", "doc_id", existing.ID, "hash", hash)
			return &Result{Document: existing, Duplicate: true}, nil
		case !errors.Is(err, common.ErrNotFound):
			return nil, err
		}
	}

	id := uuid.New()
	key := blob.Key(id)
	if err := uc.blobs.Put(ctx, key, bytes.NewReader(u.Data), constants.MIMETypePDF); err != nil {
		log.Error("failed to store upload", "doc_id", id, "error", err)
		return nil, common.InternalFault("store upload", err)
	}
	doc := &entity.Document{
		ID:          id,
		Filename:    cleanFilename(u.Filename),
		ContentHash: hash,
		SizeBytes:   int64(len(u.Data)),
		MIMEType:    constants.MIMETypePDF,
		StorageKey:  key,
		Status:      constants.StatusPending,
		Options:     u.Options,
	}
	if err := uc.docs.Create(ctx, doc); err != nil {
		if derr := uc.blobs.Delete(context.WithoutCancel(ctx), key); derr != nil {
			log.Warn("failed to remove orphaned upload", "doc_id", id, "error", derr)
		}
		return nil, err
	}

	h, err := uc.queue.Submit(ctx, pipeline.Job{DocumentID: id})
	if err != nil {
		// The record stays pending and is picked up by ResubmitPending.
		log.Warn("upload stored but not queued", "doc_id", id, "error", err)
	}
	log.Info("upload accepted", "doc_id", id, "filename", doc.Filename, "size_bytes", doc.SizeBytes)
	return &Result{Document: doc, Handle: h}, nil
}

// ResubmitPending queues every pending document, e.g. after a restart.
func (uc *Usecase) ResubmitPending(ctx context.Context) (int, error) {
	pending := constants.StatusPending
	var ids []uuid.UUID
	for page := 1; ; page++ {
		res, err := uc.docs.List(ctx, entity.ListQuery{Page: page, Limit: 100, Status: &pending, SortBy: "uploaded_at", SortOrder: "asc"})
		if err != nil {
			return 0, err
		}
		for _, d := range res.Items {
			ids = append(ids, d.ID)
		}
		if len(res.Items) < res.Limit || page*res.Limit >= res.Total {
			break
		}
	}
	n := 0
	for _, id := range ids {
		if _, err := uc.queue.Submit(ctx, pipeline.Job{DocumentID: id}); err != nil {
			if errors.Is(err, common.ErrConflict) {
				continue
			}
			return n, err
		}
		n++
	}
	if n > 0 {
		uc.logger.Info("resubmitted pending documents", "count", n)
	}
	return n, nil
}

func cleanFilename(name string) string {
	name = strings.TrimSpace(filepath.Base(strings.ReplaceAll(name, "\\", "/")))
	if name == "" || name == "." || name == "/" {
		return "document.pdf"
	}
	if r := []rune(name); len(r) > maxFilenameLen {
		name = string(r[:maxFilenameLen])
	}
	return name
}
