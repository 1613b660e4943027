// Package async runs pipeline jobs on a bounded worker pool.
package async

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/contracts-extractor/internal/common"
	"github.com/joseph-ayodele/contracts-extractor/internal/entity"
	"github.com/joseph-ayodele/contracts-extractor/internal/pipeline"
)

// ErrClosed is returned by Submit once Shutdown has begun.
var ErrClosed = errors.New("queue is shutting down")

// Runner executes one job. *pipeline.Processor satisfies it.
type Runner interface {
	Run(ctx context.Context, job pipeline.Job) (*entity.ContractResult, error)
}

// Outcome is what a finished job produced.
type Outcome struct {
	DocumentID uuid.UUID
	Result     *entity.ContractResult
	Err        error
	Elapsed    time.Duration
}

// Handle tracks one submitted job.
type Handle struct {
	job  pipeline.Job
	done chan struct{}
	out  Outcome
}

// Done is closed when the job has finished.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Wait blocks until the job finishes or ctx is done. The returned error is
// ctx's error or the job's.
func (h *Handle) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-ctx.Done():
		return Outcome{DocumentID: h.job.DocumentID}, ctx.Err()
	case <-h.done:
		return h.out, h.out.Err
	}
}

type task struct {
	job    pipeline.Job
	handle *Handle
	ctx    context.Context
	cancel context.CancelFunc
}

type ProcessorQueue struct {
	runner  Runner
	logger  *slog.Logger
	workers int
	timeout time.Duration

	ch      chan *task
	stop    chan struct{}
	wg      sync.WaitGroup
	senders sync.WaitGroup
	once    sync.Once

	mu       sync.Mutex
	closed   bool
	inflight map[uuid.UUID]*task
}

type Option func(*ProcessorQueue)

func WithWorkers(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}
func WithQueueSize(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.ch = make(chan *task, n)
		}
	}
}
func WithProcessTimeout(d time.Duration) Option {
	return func(q *ProcessorQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

func NewProcessorQueue(runner Runner, logger *slog.Logger, opts ...Option) *ProcessorQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &ProcessorQueue{
		runner:   runner,
		logger:   logger,
		workers:  4,
		timeout:  2 * time.Minute,
		ch:       make(chan *task, 256),
		stop:     make(chan struct{}),
		inflight: map[uuid.UUID]*task{},
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *ProcessorQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Info("worker started", "worker_id", workerID)
				for t := range q.ch {
					q.process(workerID, t)
				}
				q.logger.Info("worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *ProcessorQueue) process(workerID int, t *task) {
	start := time.Now()
	out := Outcome{DocumentID: t.job.DocumentID}
	defer func() {
		if r := recover(); r != nil {
			out.Err = common.InternalFault("worker panic", fmt.Errorf("%v", r))
			q.logger.Error("worker panic", "worker_id", workerID, "doc_id", t.job.DocumentID, "panic", r)
		}
		out.Elapsed = time.Since(start)
		q.finish(t, out)
	}()

	if err := t.ctx.Err(); err != nil {
		out.Err = err
		q.logger.Info("job cancelled before start", "worker_id", workerID, "doc_id", t.job.DocumentID)
		return
	}
	ctx, cancel := context.WithTimeout(t.ctx, q.timeout)
	defer cancel()
	out.Result, out.Err = q.runner.Run(ctx, t.job)
	if errors.Is(ctx.Err(), context.DeadlineExceeded) && out.Err != nil && !errors.Is(out.Err, common.ErrExtractionTimeout) {
		out.Err = common.ExtractionTimeout("processing exceeded "+q.timeout.String(), out.Err)
	}

	if out.Err != nil {
		q.logger.Error("processing failed", "worker_id", workerID, "doc_id", t.job.DocumentID, "error", out.Err,
			"elapsed_ms", time.Since(start).Milliseconds())
	} else {
		q.logger.Info("processed document successfully", "worker_id", workerID, "doc_id", t.job.DocumentID,
			"elapsed_ms", time.Since(start).Milliseconds())
	}
}

func (q *ProcessorQueue) finish(t *task, out Outcome) {
	t.cancel()
	q.mu.Lock()
	if q.inflight[t.job.DocumentID] == t {
		delete(q.inflight, t.job.DocumentID)
	}
	q.mu.Unlock()
	t.handle.out = out
	close(t.handle.done)
}

// Submit queues job and returns its completion handle. It blocks while the
// queue is full, until ctx is done. A document already queued or running is
// rejected with Conflict, unless job carries a run reserved after the
// registered one: the store has then closed the earlier run and the task
// still registered is only returning.
func (q *ProcessorQueue) Submit(ctx context.Context, job pipeline.Job) (*Handle, error) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		q.logger.Warn("cannot submit: queue is shutting down", "doc_id", job.DocumentID)
		return nil, ErrClosed
	}
	if prev, busy := q.inflight[job.DocumentID]; busy {
		if job.RunID == uuid.Nil || prev.job.RunID == job.RunID {
			q.mu.Unlock()
			return nil, common.Conflict("document is already queued")
		}
		q.logger.Info("superseding finished run", "doc_id", job.DocumentID, "run_id", job.RunID)
	}
	tctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	t := &task{
		job:    job,
		handle: &Handle{job: job, done: make(chan struct{})},
		ctx:    tctx,
		cancel: cancel,
	}
	q.inflight[job.DocumentID] = t
	q.senders.Add(1)
	q.mu.Unlock()
	defer q.senders.Done()

	select {
	case q.ch <- t:
		q.logger.Info("queued document for processing", "doc_id", job.DocumentID, "preassigned_run", job.RunID != uuid.Nil)
		return t.handle, nil
	default:
	}
	q.logger.Warn("queue full, applying backpressure", "doc_id", job.DocumentID)
	select {
	case q.ch <- t:
		return t.handle, nil
	case <-ctx.Done():
		q.drop(t)
		return nil, ctx.Err()
	case <-q.stop:
		q.drop(t)
		return nil, ErrClosed
	}
}

func (q *ProcessorQueue) drop(t *task) {
	t.cancel()
	q.mu.Lock()
	if q.inflight[t.job.DocumentID] == t {
		delete(q.inflight, t.job.DocumentID)
	}
	q.mu.Unlock()
}

// Cancel cancels the queued or running job for id and returns its handle.
func (q *ProcessorQueue) Cancel(id uuid.UUID) (*Handle, bool) {
	q.mu.Lock()
	t, ok := q.inflight[id]
	q.mu.Unlock()
	if !ok {
		return nil, false
	}
	t.cancel()
	q.logger.Info("job cancelled", "doc_id", id)
	return t.handle, true
}

// InFlight reports whether a job for id is queued or running.
func (q *ProcessorQueue) InFlight(id uuid.UUID) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.inflight[id]
	return ok
}

// Shutdown stops intake and waits for queued jobs to drain or ctx to end.
// Jobs still running when ctx ends are cancelled.
func (q *ProcessorQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.stop)
	q.mu.Unlock()

	q.senders.Wait()
	close(q.ch)

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("shutdown interrupted by context, cancelling running jobs")
		q.mu.Lock()
		for _, t := range q.inflight {
			t.cancel()
		}
		q.mu.Unlock()
	case <-done:
		q.logger.Info("queue drained, shutdown complete")
	}
}
