// Package worker runs the asynchronous measurement pipeline behind the
// submission queue.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/youthperformance/xlens/internal/domain/model"
	"github.com/youthperformance/xlens/pkg/logger"
	"github.com/youthperformance/xlens/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerMultiplier = 2 // multiplier for runtime.NumCPU()
	defaultMaxAttempts      = 3
	defaultBackoffBase      = 2 * time.Second
	workerShutdownTimeout   = 5 * time.Second
	poolShutdownTimeout     = 30 * time.Second
)

// Task abstracts what workers read off the queue.
type Task = model.MeasurementTask

// Processor runs one measurement attempt. A returned error means the attempt
// did not reach a verdict; Abandon is called once retries are exhausted so
// the jump can be failed terminally.
type Processor interface {
	Process(ctx context.Context, t Task) error
	Abandon(ctx context.Context, t Task, cause error)
}

// Queue defines how workers receive tasks.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Task
}

// Requeuer re-enqueues a task for another attempt.
type Requeuer interface {
	Enqueue(ctx context.Context, t Task) bool
}

// Worker processes measurement tasks until stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown gracefully stops the worker.
	Shutdown(ctx context.Context) error
}

// MeasureWorker implements Worker over a Processor.
type MeasureWorker struct {
	queue       Queue
	processor   Processor
	requeuer    Requeuer
	name        string
	maxAttempts int
	backoffBase time.Duration

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewMeasureWorker creates a new worker with configuration options.
func NewMeasureWorker(queue Queue, processor Processor, requeuer Requeuer, opts ...Option) *MeasureWorker {
	w := &MeasureWorker{
		queue:       queue,
		processor:   processor,
		requeuer:    requeuer,
		name:        "worker",
		maxAttempts: defaultMaxAttempts,
		backoffBase: defaultBackoffBase,
		shutdown:    make(chan struct{}),
		done:        make(chan struct{}),
		logger:      logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *MeasureWorker) Run(ctx context.Context) {
	defer close(w.done)

	tasks := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case task, ok := <-tasks:
			if !ok {
				return
			}
			w.processTask(ctx, task)
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *MeasureWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// processTask runs one attempt, honoring the task deadline, and either
// requeues with backoff or abandons the jump when attempts run out.
func (w *MeasureWorker) processTask(ctx context.Context, task Task) {
	start := time.Now()

	attemptCtx := ctx
	if !task.Deadline.IsZero() {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithDeadline(ctx, task.Deadline)
		defer cancel()
	}

	err := w.processor.Process(attemptCtx, task)
	metrics.RecordMeasurementLatency(float64(time.Since(start).Milliseconds()))
	if err == nil {
		return
	}

	metrics.RecordWorkerError()
	w.logger.Error(ctx, "measurement attempt failed",
		logger.String("jumpID", task.JumpID),
		logger.Int("attempt", task.Attempt),
		logger.Error(err),
	)

	if task.Attempt+1 >= w.maxAttempts {
		w.processor.Abandon(ctx, task, err)
		return
	}

	backoff := w.backoffBase << task.Attempt
	select {
	case <-ctx.Done():
		return
	case <-w.shutdown:
		return
	case <-time.After(backoff):
	}

	retry := Task{
		JumpID:   task.JumpID,
		Attempt:  task.Attempt + 1,
		Deadline: task.Deadline,
	}
	if w.requeuer.Enqueue(ctx, retry) {
		metrics.RecordWorkerRetry()
	} else {
		w.processor.Abandon(ctx, retry, err)
	}
}

// Pool manages multiple workers.
type Pool struct {
	workers []*MeasureWorker
	queue   Queue

	logger logger.Logger
}

// NewPool creates a new worker pool.
func NewPool(workerCount int, queue Queue, processor Processor, requeuer Requeuer, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	pool := &Pool{
		workers: make([]*MeasureWorker, workerCount),
		queue:   queue,
		logger:  logger.Get().Named("worker-pool"),
	}

	for i := 0; i < workerCount; i++ {
		workerOpts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		pool.workers[i] = NewMeasureWorker(queue, processor, requeuer, workerOpts...)
	}

	metrics.UpdateWorkerCount(workerCount)

	return pool
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Size returns the number of workers in the pool.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Shutdown gracefully shuts down the entire worker pool. Workers drain the
// closed queue and exit when its channel closes; any worker still busy when
// the drain window ends is stopped through its shutdown channel.
func (p *Pool) Shutdown(ctx context.Context) error {
	// Close the queue first so workers drain the backlog.
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker drain timed out, stopping it", logger.Int("worker_id", i))
			stopCtx, stop := context.WithTimeout(context.Background(), workerShutdownTimeout)
			if err := w.Shutdown(stopCtx); err != nil {
				p.logger.Error(ctx, "worker shutdown failed", logger.Int("worker_id", i), logger.Error(err))
			}
			stop()
		}
	}
	return nil
}
