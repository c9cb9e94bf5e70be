package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/timmy/gallery/internal/domain"
	"github.com/timmy/gallery/internal/logger"
)

var (
	// ErrQueueFull is returned when the enrichment queue cannot take another job.
	ErrQueueFull = errors.New("enrichment queue is full")
	// ErrDispatcherClosed is returned after the dispatcher has been stopped.
	ErrDispatcherClosed = errors.New("enrichment dispatcher is closed")
)

// Dispatcher hands enrichment jobs to background execution without waiting for them.
type Dispatcher interface {
	Dispatch(ctx context.Context, job domain.EnrichJob) error
}

// JobHandler runs one enrichment job.
type JobHandler func(ctx context.Context, job domain.EnrichJob) error

// WorkerPool runs jobs from a bounded queue on a fixed number of goroutines.
type WorkerPool struct {
	handler JobHandler
	jobs    chan domain.EnrichJob
	workers int

	mu      sync.RWMutex
	closed  bool
	started bool
	wg      sync.WaitGroup
}

// NewWorkerPool creates a pool. Jobs may be dispatched before Start; they
// wait in the queue.
func NewWorkerPool(workers, queueSize int, handler JobHandler) *WorkerPool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = workers * 2
	}
	return &WorkerPool{
		handler: handler,
		jobs:    make(chan domain.EnrichJob, queueSize),
		workers: workers,
	}
}

// Start launches the workers. ctx is the parent of every job context and
// outlives the request that dispatched the job.
func (p *WorkerPool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.closed {
		return
	}
	p.started = true

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func(workerID int) {
			defer p.wg.Done()
			p.worker(ctx, workerID)
		}(i)
	}
	logger.CtxInfo(ctx, "Enrichment worker pool started: workers=%d, queue=%d", p.workers, cap(p.jobs))
}

// Dispatch enqueues job without blocking.
func (p *WorkerPool) Dispatch(ctx context.Context, job domain.EnrichJob) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrDispatcherClosed
	}
	select {
	case p.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// Pending returns the number of queued jobs not yet picked up.
func (p *WorkerPool) Pending() int {
	return len(p.jobs)
}

// Stop closes the queue and waits for workers to drain it.
func (p *WorkerPool) Stop() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()

	p.wg.Wait()
}

func (p *WorkerPool) worker(ctx context.Context, workerID int) {
	for job := range p.jobs {
		p.run(ctx, workerID, job)
	}
}

func (p *WorkerPool) run(ctx context.Context, workerID int, job domain.EnrichJob) {
	jobCtx := logger.WithField(logger.SetPhotoID(ctx, job.PhotoID), "worker", workerID)
	if job.RequestID != "" {
		jobCtx = logger.SetRequestID(jobCtx, job.RequestID)
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			logger.CtxError(jobCtx, "Enrichment job panicked: %v", r)
		}
	}()

	if err := p.handler(jobCtx, job); err != nil {
		logger.With(logger.Fields{
			logger.FieldDurationMs: time.Since(start).Milliseconds(),
		}).Warn(jobCtx, "Enrichment job failed: %v", err)
		return
	}
	logger.With(logger.Fields{
		logger.FieldDurationMs: time.Since(start).Milliseconds(),
		"queue_wait_ms":        start.Sub(job.EnqueuedAt).Milliseconds(),
	}).Debug(jobCtx, "Enrichment job finished")
}

// DispatchAll dispatches jobs for ids and reports which were refused.
func DispatchAll(ctx context.Context, d Dispatcher, ids []string) ([]string, []domain.SkippedPhoto) {
	queued := make([]string, 0, len(ids))
	skipped := make([]domain.SkippedPhoto, 0)
	requestID := logger.GetRequestID(ctx)
	for _, id := range ids {
		if err := d.Dispatch(ctx, domain.NewEnrichJob(id, requestID)); err != nil {
			skipped = append(skipped, domain.SkippedPhoto{PhotoID: id, Reason: fmt.Sprintf("dispatch failed: %v", err)})
			continue
		}
		queued = append(queued, id)
	}
	return queued, skipped
}
