package contracts_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
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
	"github.com/joseph-ayodele/contracts-extractor/internal/export"
	"github.com/joseph-ayodele/contracts-extractor/internal/extract"
	"github.com/joseph-ayodele/contracts-extractor/internal/ingest"
	"github.com/joseph-ayodele/contracts-extractor/internal/ocr"
	"github.com/joseph-ayodele/contracts-extractor/internal/pipeline"
	"github.com/joseph-ayodele/contracts-extractor/internal/repository"
	"github.com/joseph-ayodele/contracts-extractor/internal/scoring"
	"github.com/joseph-ayodele/contracts-extractor/internal/services/contracts"
	"github.com/joseph-ayodele/contracts-extractor/internal/testutil"
)

func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

// parkedQueue accepts jobs without running them.
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

type stack struct {
	svc   *contracts.Service
	docs  repository.DocumentRepository
	blobs blob.Store
	proc  *pipeline.Processor
}

func newStack(t *testing.T, queue func(*pipeline.Processor) contracts.Queue) *stack {
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

	engine := extract.NewEngine(nil, nil, extract.DefaultConfig(), log)
	scorer, err := scoring.New(engine.Library(), scoring.DefaultConfig())
	if err != nil {
		t.Fatalf("scoring.New: %v", err)
	}
	analyzer := pipeline.NewAnalyzer(ocr.NewExtractor(ocr.Config{Disabled: true}, log), engine, scorer, log)
	proc := pipeline.NewProcessor(analyzer, docs, blobs, nil, 0, log)

	q := queue(proc)
	svc := contracts.NewService(contracts.Deps{
		Docs:     docs,
		Blobs:    blobs,
		Queue:    q,
		Intake:   ingest.NewUsecase(docs, blobs, q, ingest.Config{}, log),
		Exporter: export.NewService(docs, engine.Library(), log),
		Library:  engine.Library(),
	}, log)
	return &stack{svc: svc, docs: docs, blobs: blobs, proc: proc}
}

func parked(*pipeline.Processor) contracts.Queue { return &parkedQueue{} }

var contractPDF = testutil.BuildPDF(testutil.TextPage(
	"MASTER SERVICES AGREEMENT between the parties named in the order form below.",
	"Effective Date: 2024-01-15",
	"Payment Terms: Net 30 days from receipt of invoice.",
))

func upload(t *testing.T, s *stack) *entity.Document {
	t.Helper()
	res, err := s.svc.Upload(context.Background(), contracts.UploadRequest{Filename: "msa.pdf", MIMEType: "application/pdf", Data: contractPDF})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	return res.Document
}

func waitStatus(t *testing.T, s *stack, id uuid.UUID, want constants.ProcessingStatus) *entity.StatusView {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		st, err := s.svc.Status(context.Background(), id)
		if err != nil {
			t.Fatalf("Status: %v", err)
		}
		if st.Status == want {
			return st
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("document %s never reached %s", id, want)
	return nil
}

func TestEndToEnd_UploadProcessResult(t *testing.T) {
	var q *async.ProcessorQueue
	s := newStack(t, func(p *pipeline.Processor) contracts.Queue {
		q = async.NewProcessorQueue(p, discardLogger(), async.WithWorkers(2))
		return q
	})
	defer q.Shutdown(context.Background())
	ctx := context.Background()

	doc := upload(t, s)
	st := waitStatus(t, s, doc.ID, constants.StatusCompleted)
	if st.Progress != 100 {
		t.Errorf("progress = %d, want 100", st.Progress)
	}

	c, err := s.svc.Result(ctx, doc.ID)
	if err != nil {
		t.Fatalf("Result: %v", err)
	}
	eff, ok := c.Fields[constants.CategoryDates]["effective_date"]
	if !ok || eff.Value != "2024-01-15" || eff.Evidence == nil || eff.Evidence.Page != 1 {
		t.Errorf("effective_date = %+v", eff)
	}
	if c.OverallScore <= 0 || c.OverallScore > 100 {
		t.Errorf("overall score = %v", c.OverallScore)
	}

	// Reprocess is accepted, then a second request conflicts until it finishes.
	useModel := false
	if _, err := s.svc.Reprocess(ctx, doc.ID, contracts.ReprocessRequest{UseModel: &useModel}); err != nil {
		t.Fatalf("Reprocess: %v", err)
	}
	waitStatus(t, s, doc.ID, constants.StatusCompleted)
	again, err := s.svc.Result(ctx, doc.ID)
	if err != nil {
		t.Fatalf("Result after reprocess: %v", err)
	}
	if again.OverallScore != c.OverallScore {
		t.Errorf("reprocess score = %v, want %v", again.OverallScore, c.OverallScore)
	}
}

func TestResult_NotReadyAndNotFound(t *testing.T) {
	s := newStack(t, parked)
	ctx := context.Background()
	doc := upload(t, s)

	if _, err := s.svc.Result(ctx, doc.ID); !errors.Is(err, common.ErrNotReady) {
		t.Errorf("Result(pending) err = %v, want NotReady", err)
	}
	if _, err := s.svc.Result(ctx, uuid.New()); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("Result(unknown) err = %v, want NotFound", err)
	}
	if _, err := s.svc.Status(ctx, uuid.New()); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("Status(unknown) err = %v, want NotFound", err)
	}
}

func TestReprocess_Conflicts(t *testing.T) {
	s := newStack(t, parked)
	ctx := context.Background()
	doc := upload(t, s)

	if _, err := s.svc.Reprocess(ctx, doc.ID, contracts.ReprocessRequest{}); !errors.Is(err, common.ErrConflict) {
		t.Errorf("Reprocess(pending) err = %v, want Conflict", err)
	}

	// Run the pipeline by hand so the document completes.
	if _, err := s.proc.Run(ctx, pipeline.Job{DocumentID: doc.ID}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	useOCR := true
	st, err := s.svc.Reprocess(ctx, doc.ID, contracts.ReprocessRequest{UseOCR: &useOCR})
	if err != nil {
		t.Fatalf("Reprocess: %v", err)
	}
	if st.Status != constants.StatusProcessing || st.Progress != 0 {
		t.Errorf("reprocess status = %+v", st)
	}
	if _, err := s.svc.Result(ctx, doc.ID); !errors.Is(err, common.ErrNotReady) {
		t.Errorf("prior result still served during reprocess: %v", err)
	}
	if _, err := s.svc.Reprocess(ctx, doc.ID, contracts.ReprocessRequest{}); !errors.Is(err, common.ErrConflict) {
		t.Errorf("second Reprocess err = %v, want Conflict", err)
	}
	got, err := s.svc.Get(ctx, doc.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !got.Options.ForceOCR {
		t.Error("option override not stored")
	}
}

// lingeringRunner finishes the pipeline, then keeps its worker until release
// is closed.
type lingeringRunner struct {
	proc    *pipeline.Processor
	done    chan struct{}
	release chan struct{}
	once    sync.Once
}

func (r *lingeringRunner) Run(ctx context.Context, job pipeline.Job) (*entity.ContractResult, error) {
	res, err := r.proc.Run(ctx, job)
	r.once.Do(func() {
		close(r.done)
		<-r.release
	})
	return res, err
}

func TestReprocess_WhileWorkerReturningLeavesResult(t *testing.T) {
	var (
		q      *async.ProcessorQueue
		runner *lingeringRunner
	)
	s := newStack(t, func(p *pipeline.Processor) contracts.Queue {
		runner = &lingeringRunner{proc: p, done: make(chan struct{}), release: make(chan struct{})}
		q = async.NewProcessorQueue(runner, discardLogger(), async.WithWorkers(1))
		return q
	})
	defer q.Shutdown(context.Background())
	ctx := context.Background()

	doc := upload(t, s)
	select {
	case <-runner.done:
	case <-time.After(10 * time.Second):
		t.Fatal("first run never finished")
	}
	before, err := s.svc.Result(ctx, doc.ID)
	if err != nil {
		t.Fatalf("Result before reprocess: %v", err)
	}

	if _, err := s.svc.Reprocess(ctx, doc.ID, contracts.ReprocessRequest{}); !errors.Is(err, common.ErrConflict) {
		t.Fatalf("Reprocess err = %v, want Conflict", err)
	}
	got, err := s.docs.Get(ctx, doc.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != constants.StatusCompleted || got.Result == nil || got.ErrorMessage != nil {
		t.Fatalf("rejected reprocess changed the document: status=%s result_nil=%v error_set=%v",
			got.Status, got.Result == nil, got.ErrorMessage != nil)
	}
	after, err := s.svc.Result(ctx, doc.ID)
	if err != nil {
		t.Fatalf("Result after rejected reprocess: %v", err)
	}
	if after.OverallScore != before.OverallScore {
		t.Errorf("score = %v, want %v", after.OverallScore, before.OverallScore)
	}

	close(runner.release)
	deadline := time.Now().Add(10 * time.Second)
	for q.InFlight(doc.ID) && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if _, err := s.svc.Reprocess(ctx, doc.ID, contracts.ReprocessRequest{}); err != nil {
		t.Fatalf("Reprocess after worker returned: %v", err)
	}
	waitStatus(t, s, doc.ID, constants.StatusCompleted)
}

func TestDownload(t *testing.T) {
	s := newStack(t, parked)
	doc := upload(t, s)
	dl, err := s.svc.Download(context.Background(), doc.ID)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	defer dl.Body.Close()
	b, _ := io.ReadAll(dl.Body)
	if string(b) != string(contractPDF) || dl.Filename != "msa.pdf" || dl.MIMEType != constants.MIMETypePDF {
		t.Errorf("download = %s %s %d bytes", dl.Filename, dl.MIMEType, len(b))
	}
}

func TestDelete(t *testing.T) {
	s := newStack(t, parked)
	ctx := context.Background()

	idle := upload(t, s)
	if err := s.svc.Delete(ctx, idle.ID, false); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.svc.Status(ctx, idle.ID); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("Status after delete err = %v", err)
	}
	if _, err := s.blobs.Open(ctx, idle.StorageKey); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("stored file survived delete: %v", err)
	}

	busyRes, err := s.svc.Upload(ctx, contracts.UploadRequest{
		Filename: "busy.pdf", MIMEType: "application/pdf",
		Data: testutil.BuildPDF(testutil.TextPage("another contract")),
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	busy := busyRes.Document
	if _, err := s.docs.Reserve(ctx, busy.ID, repository.ReserveRequest{From: []constants.ProcessingStatus{constants.StatusPending}}); err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if err := s.svc.Delete(ctx, busy.ID, false); !errors.Is(err, common.ErrConflict) {
		t.Errorf("Delete(in flight) err = %v, want Conflict", err)
	}
	if err := s.svc.Delete(ctx, busy.ID, true); err != nil {
		t.Fatalf("Delete(force): %v", err)
	}
	if _, err := s.svc.Status(ctx, busy.ID); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("forced delete left the record: %v", err)
	}
}

func TestUpload_EmptyFile(t *testing.T) {
	s := newStack(t, parked)
	_, err := s.svc.Upload(context.Background(), contracts.UploadRequest{Filename: "x.pdf", MIMEType: "application/pdf"})
	if !errors.Is(err, common.ErrInvalidInput) {
		t.Fatalf("err = %v, want InvalidInput", err)
	}
	page, err := s.svc.List(context.Background(), entity.ListQuery{Page: 1, Limit: 10})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if page.Total != 0 {
		t.Errorf("total = %d, want 0", page.Total)
	}
}
