package async_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/contracts-extractor/internal/async"
	"github.com/joseph-ayodele/contracts-extractor/internal/common"
	"github.com/joseph-ayodele/contracts-extractor/internal/entity"
	"github.com/joseph-ayodele/contracts-extractor/internal/pipeline"
)

func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

type fakeRunner struct {
	mu      sync.Mutex
	running int32
	peak    int32
	ran     []uuid.UUID
	fn      func(ctx context.Context, job pipeline.Job) (*entity.ContractResult, error)
}

func (f *fakeRunner) Run(ctx context.Context, job pipeline.Job) (*entity.ContractResult, error) {
	n := atomic.AddInt32(&f.running, 1)
	defer atomic.AddInt32(&f.running, -1)
	f.mu.Lock()
	if n > f.peak {
		f.peak = n
	}
	f.ran = append(f.ran, job.DocumentID)
	fn := f.fn
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx, job)
	}
	return &entity.ContractResult{OverallScore: 42}, nil
}

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestSubmit_WaitReturnsOutcome(t *testing.T) {
	q := async.NewProcessorQueue(&fakeRunner{}, discardLogger(), async.WithWorkers(2))
	defer q.Shutdown(context.Background())

	id := uuid.New()
	h, err := q.Submit(context.Background(), pipeline.Job{DocumentID: id})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	out, err := h.Wait(waitCtx(t))
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if out.DocumentID != id || out.Result == nil || out.Result.OverallScore != 42 {
		t.Errorf("outcome = %+v", out)
	}
	select {
	case <-h.Done():
	default:
		t.Error("Done not closed after Wait returned")
	}
	if q.InFlight(id) {
		t.Error("finished job still registered")
	}
}

func TestSubmit_RejectsDuplicateDocument(t *testing.T) {
	release := make(chan struct{})
	r := &fakeRunner{fn: func(ctx context.Context, _ pipeline.Job) (*entity.ContractResult, error) {
		<-release
		return &entity.ContractResult{}, nil
	}}
	q := async.NewProcessorQueue(r, discardLogger(), async.WithWorkers(1))
	defer q.Shutdown(context.Background())

	id := uuid.New()
	h, err := q.Submit(context.Background(), pipeline.Job{DocumentID: id})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := q.Submit(context.Background(), pipeline.Job{DocumentID: id}); !errors.Is(err, common.ErrConflict) {
		t.Errorf("duplicate Submit err = %v, want Conflict", err)
	}
	close(release)
	if _, err := h.Wait(waitCtx(t)); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	h2, err := q.Submit(context.Background(), pipeline.Job{DocumentID: id})
	if err != nil {
		t.Fatalf("resubmit after completion: %v", err)
	}
	if _, err := h2.Wait(waitCtx(t)); err != nil {
		t.Fatalf("Wait: %v", err)
	}
}

func TestSubmit_NewerReservedRunSupersedes(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 2)
	r := &fakeRunner{fn: func(ctx context.Context, job pipeline.Job) (*entity.ContractResult, error) {
		started <- struct{}{}
		if job.RunID == uuid.Nil {
			<-release
		}
		return &entity.ContractResult{}, nil
	}}
	q := async.NewProcessorQueue(r, discardLogger(), async.WithWorkers(2))
	defer q.Shutdown(context.Background())

	id := uuid.New()
	first, err := q.Submit(context.Background(), pipeline.Job{DocumentID: id})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	<-started

	run := uuid.New()
	second, err := q.Submit(context.Background(), pipeline.Job{DocumentID: id, RunID: run})
	if err != nil {
		t.Fatalf("Submit with reserved run: %v", err)
	}
	if _, err := second.Wait(waitCtx(t)); err != nil {
		t.Fatalf("Wait(second): %v", err)
	}

	close(release)
	if _, err := first.Wait(waitCtx(t)); err != nil {
		t.Fatalf("Wait(first): %v", err)
	}
	if q.InFlight(id) {
		t.Error("document still registered after both runs finished")
	}
}

func TestCancel_StopsRunningJob(t *testing.T) {
	started := make(chan struct{})
	r := &fakeRunner{fn: func(ctx context.Context, _ pipeline.Job) (*entity.ContractResult, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	q := async.NewProcessorQueue(r, discardLogger(), async.WithWorkers(1))
	defer q.Shutdown(context.Background())

	id := uuid.New()
	h, err := q.Submit(context.Background(), pipeline.Job{DocumentID: id})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	<-started
	got, ok := q.Cancel(id)
	if !ok || got != h {
		t.Fatalf("Cancel = %v, %v", got, ok)
	}
	if _, err := h.Wait(waitCtx(t)); !errors.Is(err, context.Canceled) {
		t.Errorf("Wait err = %v, want context.Canceled", err)
	}
	if _, ok := q.Cancel(uuid.New()); ok {
		t.Error("Cancel of unknown document reported ok")
	}
}

func TestSubmit_CallerContextDoesNotCancelJob(t *testing.T) {
	q := async.NewProcessorQueue(&fakeRunner{fn: func(ctx context.Context, _ pipeline.Job) (*entity.ContractResult, error) {
		time.Sleep(20 * time.Millisecond)
		return &entity.ContractResult{}, ctx.Err()
	}}, discardLogger())
	defer q.Shutdown(context.Background())

	reqCtx, cancel := context.WithCancel(context.Background())
	h, err := q.Submit(reqCtx, pipeline.Job{DocumentID: uuid.New()})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	cancel()
	if _, err := h.Wait(waitCtx(t)); err != nil {
		t.Errorf("job inherited request cancellation: %v", err)
	}
}

func TestProcessTimeout(t *testing.T) {
	r := &fakeRunner{fn: func(ctx context.Context, _ pipeline.Job) (*entity.ContractResult, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	q := async.NewProcessorQueue(r, discardLogger(), async.WithProcessTimeout(30*time.Millisecond))
	defer q.Shutdown(context.Background())

	h, err := q.Submit(context.Background(), pipeline.Job{DocumentID: uuid.New()})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := h.Wait(waitCtx(t)); !errors.Is(err, common.ErrExtractionTimeout) {
		t.Errorf("Wait err = %v, want ExtractionTimeout", err)
	}
}

func TestWorkersBounded(t *testing.T) {
	r := &fakeRunner{fn: func(context.Context, pipeline.Job) (*entity.ContractResult, error) {
		time.Sleep(10 * time.Millisecond)
		return &entity.ContractResult{}, nil
	}}
	q := async.NewProcessorQueue(r, discardLogger(), async.WithWorkers(2), async.WithQueueSize(1))

	var handles []*async.Handle
	for i := 0; i < 6; i++ {
		h, err := q.Submit(waitCtx(t), pipeline.Job{DocumentID: uuid.New()})
		if err != nil {
			t.Fatalf("Submit %d: %v", i, err)
		}
		handles = append(handles, h)
	}
	for _, h := range handles {
		if _, err := h.Wait(waitCtx(t)); err != nil {
			t.Fatalf("Wait: %v", err)
		}
	}
	q.Shutdown(context.Background())

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.peak > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", r.peak)
	}
	if len(r.ran) != 6 {
		t.Errorf("ran %d jobs, want 6", len(r.ran))
	}
}

func TestShutdown_DrainsThenRejects(t *testing.T) {
	r := &fakeRunner{}
	q := async.NewProcessorQueue(r, discardLogger(), async.WithWorkers(1))
	h, err := q.Submit(context.Background(), pipeline.Job{DocumentID: uuid.New()})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	q.Shutdown(waitCtx(t))

	select {
	case <-h.Done():
	default:
		t.Error("queued job not drained by Shutdown")
	}
	if _, err := q.Submit(context.Background(), pipeline.Job{DocumentID: uuid.New()}); !errors.Is(err, async.ErrClosed) {
		t.Errorf("Submit after Shutdown err = %v, want ErrClosed", err)
	}
	q.Shutdown(context.Background())
}

func TestPanicBecomesInternalFault(t *testing.T) {
	q := async.NewProcessorQueue(&fakeRunner{fn: func(context.Context, pipeline.Job) (*entity.ContractResult, error) {
		panic("boom")
	}}, discardLogger())
	defer q.Shutdown(context.Background())

	h, err := q.Submit(context.Background(), pipeline.Job{DocumentID: uuid.New()})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := h.Wait(waitCtx(t)); !errors.Is(err, common.ErrInternal) {
		t.Errorf("Wait err = %v, want internal fault", err)
	}
}
