package pool

import (
	"context"
	"fmt"
	"sync"
	"time"

	errs "skinfetch/pkg/errors"
	"skinfetch/pkg/logger"
)

// Outcome is the result of processing a single work item. Every item
// submitted to a running pool yields exactly one Outcome, whether by
// success, exhausted retries, or a recovered panic.
type Outcome[T any] struct {
	Item     T
	Success  bool
	Stage    string
	Err      error
	Duration time.Duration
}

// ProcessFunc turns one work item into an Outcome. Implementations must not
// panic; if they do, the pool converts the panic into a failed Outcome.
type ProcessFunc[T any] func(ctx context.Context, item T) Outcome[T]

// Pool fans a stream of work items out to a fixed number of workers and fans
// the outcomes back in over a single results channel. Completion order is
// arbitrary.
type Pool[T any] struct {
	workers int
	process ProcessFunc[T]
	jobs    chan T
	results chan Outcome[T]
	wg      sync.WaitGroup
	ctx     context.Context
	logger  logger.Logger
}

// New creates a worker pool. The context governs submission and retry sleeps;
// cancelling it stops new dispatch while letting in-flight items finish or
// fail naturally.
func New[T any](ctx context.Context, workers int, process ProcessFunc[T], log logger.Logger) *Pool[T] {
	if log == nil {
		log = logger.GetLogger()
	}
	if workers < 1 {
		workers = 1
	}

	return &Pool[T]{
		workers: workers,
		process: process,
		jobs:    make(chan T, workers*2),
		results: make(chan Outcome[T], workers),
		ctx:     ctx,
		logger:  log,
	}
}

// Start launches the workers.
func (p *Pool[T]) Start() {
	p.logger.InfoWithFields("starting worker pool", map[string]interface{}{
		"num_workers": p.workers,
	})

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Submit queues one work item. It fails once the context is cancelled so the
// producer stops dispatching on interrupt.
func (p *Pool[T]) Submit(item T) error {
	select {
	case p.jobs <- item:
		return nil
	case <-p.ctx.Done():
		return fmt.Errorf("pool is shutting down: %w", p.ctx.Err())
	}
}

// Results returns the channel outcomes are delivered on. It is closed by
// Stop after the last worker exits.
func (p *Pool[T]) Results() <-chan Outcome[T] {
	return p.results
}

// Stop signals that no more items will be submitted, waits for the workers
// to drain the queue, and closes the results channel.
func (p *Pool[T]) Stop() {
	close(p.jobs)
	p.wg.Wait()
	close(p.results)

	p.logger.Debug("worker pool stopped")
}

func (p *Pool[T]) worker(id int) {
	defer p.wg.Done()

	p.logger.DebugWithFields("worker started", map[string]interface{}{
		"worker_id": id,
	})

	for item := range p.jobs {
		// On cancellation, queued-but-unstarted items are skipped; the
		// reporter's final counts cover completed items only.
		select {
		case <-p.ctx.Done():
			p.logger.DebugWithFields("worker stopping, run cancelled", map[string]interface{}{
				"worker_id": id,
			})
			return
		default:
		}

		p.results <- p.safeProcess(item)
	}

	p.logger.DebugWithFields("worker stopping, queue closed", map[string]interface{}{
		"worker_id": id,
	})
}

// safeProcess runs the process function and converts panics into failed
// outcomes so a single bad item cannot crash the run.
func (p *Pool[T]) safeProcess(item T) (out Outcome[T]) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			out = Outcome[T]{
				Item:     item,
				Success:  false,
				Err:      errs.Newf(errs.ErrorTypeUnknown, "unexpected panic: %v", r),
				Duration: time.Since(start),
			}
			p.logger.ErrorWithFields("recovered panic while processing item", map[string]interface{}{
				"panic": fmt.Sprintf("%v", r),
			})
		}
	}()

	return p.process(p.ctx, item)
}
