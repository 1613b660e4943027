package server_test

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/contracts-extractor/internal/async"
	"github.com/joseph-ayodele/contracts-extractor/internal/blob"
	"github.com/joseph-ayodele/contracts-extractor/internal/export"
	"github.com/joseph-ayodele/contracts-extractor/internal/ingest"
	"github.com/joseph-ayodele/contracts-extractor/internal/patterns"
	"github.com/joseph-ayodele/contracts-extractor/internal/pipeline"
	"github.com/joseph-ayodele/contracts-extractor/internal/repository"
	"github.com/joseph-ayodele/contracts-extractor/internal/services/contracts"
	"github.com/joseph-ayodele/contracts-extractor/internal/testutil"
)

func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

var samplePDF = testutil.BuildPDF(testutil.TextPage(
	"MASTER SERVICES AGREEMENT between the parties named in the order form below.",
	"Effective Date: 2024-01-15",
))

// parkedQueue accepts jobs and never runs them, so documents stay pending.
type parkedQueue struct {
	mu   sync.Mutex
	jobs []pipeline.Job
}

func (q *parkedQueue) Submit(_ context.Context, job pipeline.Job) (*async.Handle, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, job)
	return nil, nil
}

func (q *parkedQueue) Cancel(uuid.UUID) (*async.Handle, bool) { return nil, false }

func (q *parkedQueue) InFlight(uuid.UUID) bool { return false }

// maxUpload is the limit both the handler and intake are built with.
const maxUpload = 1 << 20

func newService(t *testing.T) *contracts.Service {
	t.Helper()
	ctx := context.Background()
	log := discardLogger()
	dsn := "file:" + filepath.Join(t.TempDir(), "contracts.db") + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := repository.Open(ctx, repository.Config{Driver: "sqlite", DSN: dsn}, log)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close(log) })
	if err := db.Migrate(ctx, log); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	blobs, err := blob.NewFSStore(t.TempDir(), log)
	if err != nil {
		t.Fatalf("NewFSStore: %v", err)
	}
	docs := repository.NewDocumentRepository(db, log)
	lib := patterns.Default()
	q := &parkedQueue{}
	return contracts.NewService(contracts.Deps{
		Docs:     docs,
		Blobs:    blobs,
		Queue:    q,
		Intake:   ingest.NewUsecase(docs, blobs, q, ingest.Config{MaxUploadSize: maxUpload}, log),
		Exporter: export.NewService(docs, lib, log),
		Library:  lib,
	}, log)
}
