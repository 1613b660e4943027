package ingest_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/contracts-extractor/constants"
	"github.com/joseph-ayodele/contracts-extractor/internal/async"
	"github.com/joseph-ayodele/contracts-extractor/internal/blob"
	"github.com/joseph-ayodele/contracts-extractor/internal/common"
	"github.com/joseph-ayodele/contracts-extractor/internal/entity"
	"github.com/joseph-ayodele/contracts-extractor/internal/ingest"
	"github.com/joseph-ayodele/contracts-extractor/internal/pipeline"
	"github.com/joseph-ayodele/contracts-extractor/internal/repository"
	"github.com/joseph-ayodele/contracts-extractor/internal/testutil"
)

func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

type submitter struct {
	mu   sync.Mutex
	jobs []pipeline.Job
	err  error
}

func (s *submitter) Submit(_ context.Context, job pipeline.Job) (*async.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	s.jobs = append(s.jobs, job)
	return nil, nil
}

func (s *submitter) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

type fixture struct {
	uc      *ingest.Usecase
	docs    repository.DocumentRepository
	blobs   blob.Store
	blobDir string
	queue   *submitter
}

func newFixture(t *testing.T, cfg ingest.Config) *fixture {
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
	dir := t.TempDir()
	blobs, err := blob.NewFSStore(dir, log)
	if err != nil {
		t.Fatalf("NewFSStore: %v", err)
	}
	f := &fixture{docs: repository.NewDocumentRepository(db, log), blobs: blobs, blobDir: dir, queue: &submitter{}}
	f.uc = ingest.NewUsecase(f.docs, blobs, f.queue, cfg, log)
	return f
}

func (f *fixture) total(t *testing.T) int {
	t.Helper()
	page, err := f.docs.List(context.Background(), entity.ListQuery{Page: 1, Limit: 100})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	return page.Total
}

var samplePDF = testutil.BuildPDF(testutil.TextPage("Effective Date: 2024-01-15"))

func TestValidate(t *testing.T) {
	limit := int64(len(samplePDF))
	cases := []struct {
		name    string
		upload  ingest.Upload
		max     int64
		wantErr bool
	}{
		{"ok", ingest.Upload{MIMEType: "application/pdf", Data: samplePDF}, limit, false},
		{"mime parameters", ingest.Upload{MIMEType: "Application/PDF; charset=binary", Data: samplePDF}, limit, false},
		{"wrong mime", ingest.Upload{MIMEType: "image/png", Data: samplePDF}, limit, true},
		{"missing mime", ingest.Upload{Data: samplePDF}, limit, true},
		{"empty", ingest.Upload{MIMEType: "application/pdf"}, limit, true},
		{"too large", ingest.Upload{MIMEType: "application/pdf", Data: samplePDF}, limit - 1, true},
		{"no magic", ingest.Upload{MIMEType: "application/pdf", Data: []byte("hello")}, limit, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ingest.Validate(tc.upload, tc.max)
			if (err != nil) != tc.wantErr {
				t.Fatalf("Validate err = %v, wantErr %v", err, tc.wantErr)
			}
			if err != nil && !errors.Is(err, common.ErrInvalidInput) {
				t.Errorf("err kind = %v, want InvalidInput", common.Kind(err))
			}
		})
	}
}

func TestIngest_ZeroByteUploadCreatesNothing(t *testing.T) {
	f := newFixture(t, ingest.Config{})
	_, err := f.uc.Ingest(context.Background(), ingest.Upload{Filename: "empty.pdf", MIMEType: "application/pdf"})
	if !errors.Is(err, common.ErrInvalidInput) {
		t.Fatalf("err = %v, want InvalidInput", err)
	}
	if n := f.total(t); n != 0 {
		t.Errorf("records = %d, want 0", n)
	}
	if f.queue.count() != 0 {
		t.Error("empty upload was queued")
	}
	entries, _ := os.ReadDir(f.blobDir)
	if len(entries) != 0 {
		t.Errorf("blob dir has %d entries, want 0", len(entries))
	}
}

func TestIngest_StoresAndQueues(t *testing.T) {
	f := newFixture(t, ingest.Config{})
	ctx := context.Background()
	res, err := f.uc.Ingest(ctx, ingest.Upload{
		Filename: "../../etc/msa.pdf",
		MIMEType: "application/pdf",
		Data:     samplePDF,
		Options:  entity.RunOptions{UseModel: true},
	})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if res.Duplicate {
		t.Error("first upload flagged duplicate")
	}
	doc := res.Document
	if doc.Filename != "msa.pdf" || doc.Status != constants.StatusPending || doc.SizeBytes != int64(len(samplePDF)) {
		t.Errorf("document = %+v", doc)
	}
	if len(doc.ContentHash) != 64 {
		t.Errorf("hash = %q", doc.ContentHash)
	}

	stored, err := f.docs.Get(ctx, doc.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !stored.Options.UseModel {
		t.Error("run options not stored")
	}
	rc, err := f.blobs.Open(ctx, stored.StorageKey)
	if err != nil {
		t.Fatalf("Open blob: %v", err)
	}
	b, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(b) != string(samplePDF) {
		t.Error("stored bytes differ from upload")
	}
	if f.queue.count() != 1 || f.queue.jobs[0].DocumentID != doc.ID || f.queue.jobs[0].RunID != uuid.Nil {
		t.Errorf("queued jobs = %+v", f.queue.jobs)
	}
}

func TestIngest_Dedup(t *testing.T) {
	f := newFixture(t, ingest.Config{})
	ctx := context.Background()
	up := ingest.Upload{Filename: "a.pdf", MIMEType: "application/pdf", Data: samplePDF}
	first, err := f.uc.Ingest(ctx, up)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	up.Filename = "b.pdf"
	second, err := f.uc.Ingest(ctx, up)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if !second.Duplicate || second.Document.ID != first.Document.ID {
		t.Errorf("second = %+v, want duplicate of %s", second, first.Document.ID)
	}
	if f.queue.count() != 1 {
		t.Errorf("queued %d jobs, want 1", f.queue.count())
	}

	allow := newFixture(t, ingest.Config{AllowDuplicates: true})
	a, _ := allow.uc.Ingest(ctx, up)
	b, err := allow.uc.Ingest(ctx, up)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if b.Duplicate || a.Document.ID == b.Document.ID {
		t.Error("AllowDuplicates should create a second record")
	}
}

func TestResubmitPending(t *testing.T) {
	f := newFixture(t, ingest.Config{})
	ctx := context.Background()
	f.queue.err = async.ErrClosed
	for _, name := range []string{"a", "b", "c"} {
		data := testutil.BuildPDF(testutil.TextPage("contract " + name))
		if _, err := f.uc.Ingest(ctx, ingest.Upload{Filename: name + ".pdf", MIMEType: "application/pdf", Data: data}); err != nil {
			t.Fatalf("Ingest: %v", err)
		}
	}
	if f.total(t) != 3 {
		t.Fatalf("records = %d, want 3", f.total(t))
	}

	f.queue.err = nil
	n, err := f.uc.ResubmitPending(ctx)
	if err != nil {
		t.Fatalf("ResubmitPending: %v", err)
	}
	if n != 3 || f.queue.count() != 3 {
		t.Errorf("resubmitted %d (queued %d), want 3", n, f.queue.count())
	}
}

func TestIngestDirectory(t *testing.T) {
	f := newFixture(t, ingest.Config{})
	root := t.TempDir()
	write := func(rel string, data []byte) {
		p := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, data, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("a.pdf", testutil.BuildPDF(testutil.TextPage("first")))
	write("nested/b.PDF", testutil.BuildPDF(testutil.TextPage("second")))
	write("nested/copy.pdf", testutil.BuildPDF(testutil.TextPage("first")))
	write("notes.txt", []byte("not a contract"))
	write(".hidden/c.pdf", testutil.BuildPDF(testutil.TextPage("hidden")))
	write("broken.pdf", []byte("not a pdf"))

	results, stats, err := f.uc.IngestDirectory(context.Background(), root, true, entity.RunOptions{})
	if err != nil {
		t.Fatalf("IngestDirectory: %v", err)
	}
	if stats.Matched != 4 || stats.Succeeded != 3 || stats.Deduplicated != 1 || stats.Failed != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if len(results) != 4 {
		t.Errorf("results = %d, want 4", len(results))
	}
	if f.total(t) != 2 {
		t.Errorf("records = %d, want 2", f.total(t))
	}
}

func TestStartWatcher_EmitsNewPDFs(t *testing.T) {
	root := t.TempDir()
	existing := filepath.Join(root, "existing.pdf")
	if err := os.WriteFile(existing, samplePDF, 0o644); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	events, _, err := ingest.StartWatcher(ctx, ingest.WatchConfig{Roots: []string{root}, InitialScan: true, Debounce: 20 * time.Millisecond}, discardLogger())
	if err != nil {
		t.Fatalf("StartWatcher: %v", err)
	}
	if got := <-events; got != existing {
		t.Fatalf("initial event = %q, want %q", got, existing)
	}

	fresh := filepath.Join(root, "fresh.pdf")
	if err := os.WriteFile(filepath.Join(root, "ignored.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(fresh, samplePDF, 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case got := <-events:
		if got != fresh {
			t.Errorf("event = %q, want %q", got, fresh)
		}
	case <-ctx.Done():
		t.Fatal("no event for new PDF")
	}
}
