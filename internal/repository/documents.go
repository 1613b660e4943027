package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/contracts-extractor/constants"
	"github.com/joseph-ayodele/contracts-extractor/internal/common"
	"github.com/joseph-ayodele/contracts-extractor/internal/entity"
)

// ReserveRequest describes which states a run may be reserved from.
type ReserveRequest struct {
	From    []constants.ProcessingStatus
	Options *entity.RunOptions // replaces the stored options when set
	// Lease lets a processing document whose run started longer ago than
	// this be taken over. Zero disables takeover.
	Lease time.Duration
}

type DocumentRepository interface {
	Create(ctx context.Context, doc *entity.Document) error
	Get(ctx context.Context, id uuid.UUID) (*entity.Document, error)
	FindByHash(ctx context.Context, hash string) (*entity.Document, error)
	Status(ctx context.Context, id uuid.UUID) (*entity.StatusView, error)
	List(ctx context.Context, q entity.ListQuery) (*entity.ListPage, error)

	// Reserve moves a document to processing under a fresh run token.
	Reserve(ctx context.Context, id uuid.UUID, req ReserveRequest) (uuid.UUID, error)
	// UpdateProgress writes progress only for the owning run and never backwards.
	UpdateProgress(ctx context.Context, id, runID uuid.UUID, progress int) error
	Complete(ctx context.Context, id, runID uuid.UUID, result *entity.ContractResult) error
	Fail(ctx context.Context, id, runID uuid.UUID, message string, meta entity.ProcessingMetadata) error

	// Delete removes the record. Without force it refuses while a run holds it.
	Delete(ctx context.Context, id uuid.UUID, force bool) (*entity.Document, error)
}

type documentRepo struct {
	db     *DB
	logger *slog.Logger
	now    func() time.Time
}

func NewDocumentRepository(db *DB, logger *slog.Logger) DocumentRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &documentRepo{
		db:     db,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

var selectColumns = []string{
	"id", "filename", "content_hash", "size_bytes", "mime_type", "storage_key",
	"uploaded_at", "updated_at", "status", "progress", "run_id", "run_started_at",
	"error_message", "overall_score", "options", "result", "processing",
}

func (r *documentRepo) Create(ctx context.Context, doc *entity.Document) error {
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	now := r.now()
	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = now
	}
	doc.UploadedAt = doc.UploadedAt.UTC()
	doc.UpdatedAt = now
	if doc.Status == "" {
		doc.Status = constants.StatusPending
	}
	opts, err := json.Marshal(doc.Options)
	if err != nil {
		return err
	}

	q, args := r.db.builder().Insert(documentsTable).
		Columns("id", "filename", "content_hash", "size_bytes", "mime_type", "storage_key",
			"uploaded_at", "updated_at", "status", "progress", "options").
		Values(doc.ID, doc.Filename, doc.ContentHash, doc.SizeBytes, doc.MIMEType, doc.StorageKey,
			doc.UploadedAt, doc.UpdatedAt, string(doc.Status), doc.Progress, opts).
		Query()
	if _, err := r.db.SQL().ExecContext(ctx, q, args...); err != nil {
		r.logger.Error("failed to create document", "doc_id", doc.ID, "filename", doc.Filename, "error", err)
		return common.InternalFault("create document", err)
	}
	r.logger.Info("document created", "doc_id", doc.ID, "filename", doc.Filename, "size_bytes", doc.SizeBytes)
	return nil
}

func (r *documentRepo) Get(ctx context.Context, id uuid.UUID) (*entity.Document, error) {
	return r.one(ctx, entsql.EQ("id", id))
}

func (r *documentRepo) FindByHash(ctx context.Context, hash string) (*entity.Document, error) {
	return r.one(ctx, entsql.EQ("content_hash", hash))
}

func (r *documentRepo) one(ctx context.Context, p *entsql.Predicate) (*entity.Document, error) {
	b := r.db.builder()
	q, args := b.Select(selectColumns...).
		From(b.Table(documentsTable)).
		Where(p).
		OrderBy(entsql.Asc("uploaded_at")).
		Limit(1).
		Query()
	row := r.db.SQL().QueryRowContext(ctx, q, args...)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NotFound("document not found")
	}
	if err != nil {
		r.logger.Error("failed to load document", "error", err)
		return nil, common.InternalFault("load document", err)
	}
	return doc, nil
}

func (r *documentRepo) Status(ctx context.Context, id uuid.UUID) (*entity.StatusView, error) {
	doc, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &entity.StatusView{
		ID:           doc.ID,
		Status:       doc.Status,
		Progress:     doc.Progress,
		ErrorMessage: doc.ErrorMessage,
	}, nil
}

var sortColumns = map[string]string{
	"":              "uploaded_at",
	"uploaded_at":   "uploaded_at",
	"overall_score": "overall_score",
	"filename":      "filename",
}

func (r *documentRepo) List(ctx context.Context, lq entity.ListQuery) (*entity.ListPage, error) {
	col, ok := sortColumns[lq.SortBy]
	if !ok {
		return nil, common.InvalidInputf("unsupported sort_by %q", lq.SortBy)
	}
	if lq.Page < 1 {
		return nil, common.InvalidInput("page must be >= 1")
	}
	if lq.Limit < 1 || lq.Limit > 100 {
		return nil, common.InvalidInput("limit must be within 1..100")
	}
	order := entsql.Desc(col)
	switch lq.SortOrder {
	case "", "desc":
	case "asc":
		order = entsql.Asc(col)
	default:
		return nil, common.InvalidInputf("unsupported sort_order %q", lq.SortOrder)
	}

	b := r.db.builder()
	var where *entsql.Predicate
	if lq.Status != nil {
		where = entsql.EQ("status", string(*lq.Status))
	}

	count := b.Select(entsql.Count("*")).From(b.Table(documentsTable))
	if where != nil {
		count.Where(where)
	}
	cq, cargs := count.Query()
	var total int
	if err := r.db.SQL().QueryRowContext(ctx, cq, cargs...).Scan(&total); err != nil {
		r.logger.Error("failed to count documents", "error", err)
		return nil, common.InternalFault("count documents", err)
	}

	sel := b.Select(selectColumns...).From(b.Table(documentsTable))
	if where != nil {
		sel.Where(entsql.EQ("status", string(*lq.Status)))
	}
	q, args := sel.OrderBy(order, entsql.Asc("id")).
		Limit(lq.Limit).
		Offset((lq.Page - 1) * lq.Limit).
		Query()
	rows, err := r.db.SQL().QueryContext(ctx, q, args...)
	if err != nil {
		r.logger.Error("failed to list documents", "error", err)
		return nil, common.InternalFault("list documents", err)
	}
	defer func() { _ = rows.Close() }()

	page := &entity.ListPage{Items: []entity.Document{}, Total: total, Page: lq.Page, Limit: lq.Limit}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, common.InternalFault("scan document", err)
		}
		page.Items = append(page.Items, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, common.InternalFault("list documents", err)
	}
	return page, nil
}

func (r *documentRepo) Reserve(ctx context.Context, id uuid.UUID, req ReserveRequest) (uuid.UUID, error) {
	doc, err := r.Get(ctx, id)
	if err != nil {
		return uuid.Nil, err
	}
	now := r.now()

	guard := entsql.EQ("id", id)
	switch {
	case doc.RunID == nil:
		if !slices.Contains(req.From, doc.Status) || !constants.CanTransition(doc.Status, constants.StatusProcessing) {
			return uuid.Nil, common.Conflict(fmt.Sprintf("document is %s", doc.Status))
		}
		guard = entsql.And(guard, entsql.EQ("status", string(doc.Status)), entsql.IsNull("run_id"))
	case req.Lease > 0 && doc.RunStartedAt != nil && now.Sub(*doc.RunStartedAt) > req.Lease:
		r.logger.Warn("taking over expired run", "doc_id", id, "stale_run_id", *doc.RunID, "started_at", *doc.RunStartedAt)
		guard = entsql.And(guard, entsql.EQ("run_id", *doc.RunID))
	default:
		return uuid.Nil, common.Conflict("document is already being processed")
	}

	runID := uuid.New()
	upd := r.db.builder().Update(documentsTable).
		Set("status", string(constants.StatusProcessing)).
		Set("progress", 0).
		Set("run_id", runID).
		Set("run_started_at", now).
		Set("updated_at", now).
		SetNull("error_message").
		SetNull("overall_score").
		SetNull("result").
		SetNull("processing")
	if req.Options != nil {
		opts, err := json.Marshal(req.Options)
		if err != nil {
			return uuid.Nil, err
		}
		upd.Set("options", opts)
	}
	n, err := r.exec(ctx, upd.Where(guard))
	if err != nil {
		r.logger.Error("failed to reserve document", "doc_id", id, "error", err)
		return uuid.Nil, common.InternalFault("reserve document", err)
	}
	if n == 0 {
		return uuid.Nil, common.Conflict("document is already being processed")
	}
	r.logger.Info("document reserved", "doc_id", id, "run_id", runID, "from", doc.Status)
	return runID, nil
}

func (r *documentRepo) UpdateProgress(ctx context.Context, id, runID uuid.UUID, progress int) error {
	if progress < 0 || progress > 100 {
		return common.InvalidInputf("progress %d out of range", progress)
	}
	upd := r.db.builder().Update(documentsTable).
		Set("progress", progress).
		Set("updated_at", r.now()).
		Where(entsql.And(
			entsql.EQ("id", id),
			entsql.EQ("run_id", runID),
			entsql.EQ("status", string(constants.StatusProcessing)),
			entsql.LTE("progress", progress),
		))
	n, err := r.exec(ctx, upd)
	if err != nil {
		r.logger.Error("failed to update progress", "doc_id", id, "run_id", runID, "error", err)
		return common.InternalFault("update progress", err)
	}
	if n == 0 {
		return common.Conflict("run no longer owns the document")
	}
	return nil
}

func (r *documentRepo) Complete(ctx context.Context, id, runID uuid.UUID, result *entity.ContractResult) error {
	if result == nil {
		return common.InvalidInput("result is required")
	}
	res, err := json.Marshal(result)
	if err != nil {
		return common.InternalFault("encode result", err)
	}
	meta, err := json.Marshal(result.Processing)
	if err != nil {
		return common.InternalFault("encode metadata", err)
	}
	upd := r.db.builder().Update(documentsTable).
		Set("status", string(constants.StatusCompleted)).
		Set("progress", 100).
		Set("overall_score", result.OverallScore).
		Set("result", res).
		Set("processing", meta).
		Set("updated_at", r.now()).
		SetNull("error_message").
		SetNull("run_id").
		SetNull("run_started_at").
		Where(r.ownedBy(id, runID))
	n, err := r.exec(ctx, upd)
	if err != nil {
		r.logger.Error("failed to complete document", "doc_id", id, "run_id", runID, "error", err)
		return common.InternalFault("complete document", err)
	}
	if n == 0 {
		return common.Conflict("run no longer owns the document")
	}
	r.logger.Info("document completed", "doc_id", id, "run_id", runID, "overall_score", result.OverallScore)
	return nil
}

func (r *documentRepo) Fail(ctx context.Context, id, runID uuid.UUID, message string, meta entity.ProcessingMetadata) error {
	meta.ErrorMessage = &message
	raw, err := json.Marshal(meta)
	if err != nil {
		return common.InternalFault("encode metadata", err)
	}
	upd := r.db.builder().Update(documentsTable).
		Set("status", string(constants.StatusFailed)).
		Set("error_message", message).
		Set("processing", raw).
		Set("updated_at", r.now()).
		SetNull("result").
		SetNull("overall_score").
		SetNull("run_id").
		SetNull("run_started_at").
		Where(r.ownedBy(id, runID))
	n, err := r.exec(ctx, upd)
	if err != nil {
		r.logger.Error("failed to mark document failed", "doc_id", id, "run_id", runID, "error", err)
		return common.InternalFault("fail document", err)
	}
	if n == 0 {
		return common.Conflict("run no longer owns the document")
	}
	r.logger.Warn("document failed", "doc_id", id, "run_id", runID, "error", message)
	return nil
}

func (r *documentRepo) ownedBy(id, runID uuid.UUID) *entsql.Predicate {
	return entsql.And(
		entsql.EQ("id", id),
		entsql.EQ("run_id", runID),
		entsql.EQ("status", string(constants.StatusProcessing)),
	)
}

func (r *documentRepo) Delete(ctx context.Context, id uuid.UUID, force bool) (*entity.Document, error) {
	doc, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	p := entsql.EQ("id", id)
	if !force {
		p = entsql.And(p, entsql.IsNull("run_id"))
	}
	n, err := r.exec(ctx, r.db.builder().Delete(documentsTable).Where(p))
	if err != nil {
		r.logger.Error("failed to delete document", "doc_id", id, "error", err)
		return nil, common.InternalFault("delete document", err)
	}
	if n == 0 {
		if !force {
			return nil, common.Conflict("document is being processed")
		}
		return nil, common.NotFound("document not found")
	}
	r.logger.Info("document deleted", "doc_id", id, "force", force)
	return doc, nil
}

func (r *documentRepo) exec(ctx context.Context, q entsql.Querier) (int64, error) {
	query, args := q.Query()
	res, err := r.db.SQL().ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(s scanner) (*entity.Document, error) {
	var (
		d          entity.Document
		status     string
		runID      uuid.NullUUID
		runStarted sql.NullTime
		errMsg     sql.NullString
		score      sql.NullFloat64
		options    []byte
		result     []byte
		processing []byte
	)
	err := s.Scan(
		&d.ID, &d.Filename, &d.ContentHash, &d.SizeBytes, &d.MIMEType, &d.StorageKey,
		&d.UploadedAt, &d.UpdatedAt, &status, &d.Progress, &runID, &runStarted,
		&errMsg, &score, &options, &result, &processing,
	)
	if err != nil {
		return nil, err
	}
	st, ok := constants.ParseStatus(status)
	if !ok {
		return nil, fmt.Errorf("unknown status %q", status)
	}
	d.Status = st
	if runID.Valid {
		d.RunID = &runID.UUID
	}
	if runStarted.Valid {
		t := runStarted.Time
		d.RunStartedAt = &t
	}
	if errMsg.Valid {
		d.ErrorMessage = &errMsg.String
	}
	if score.Valid {
		d.OverallScore = &score.Float64
	}
	if len(options) > 0 {
		if err := json.Unmarshal(options, &d.Options); err != nil {
			return nil, fmt.Errorf("decode options: %w", err)
		}
	}
	if len(result) > 0 {
		var res entity.ContractResult
		if err := json.Unmarshal(result, &res); err != nil {
			return nil, fmt.Errorf("decode result: %w", err)
		}
		d.Result = &res
	}
	if len(processing) > 0 {
		var meta entity.ProcessingMetadata
		if err := json.Unmarshal(processing, &meta); err != nil {
			return nil, fmt.Errorf("decode metadata: %w", err)
		}
		d.Processing = &meta
	}
	return &d, nil
}
