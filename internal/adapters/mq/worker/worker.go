// Package worker drains the classification event queue and hands each event
// to a publisher.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/learnstyle/internal/domain/model"
	"github.com/okian/learnstyle/pkg/logger"
	"github.com/okian/learnstyle/pkg/metrics"
)

const poolShutdownTimeout = 30 * time.Second

// Event is what workers read off the queue.
type Event = model.ClassificationEvent

// Publisher delivers an event to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Queue defines how workers receive events.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Event
}

// Worker publishes events until its queue is drained or it is stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue closes.
	Run(ctx context.Context)

	// Shutdown stops the worker without waiting for the queue to drain.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue     Queue
	publisher Publisher
	name      string
	onDone    func(err error)

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, publisher Publisher, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     queue,
		publisher: publisher,
		name:      "worker",
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	events := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			err := w.processEvent(ctx, event)
			if err != nil {
				w.logger.Error(ctx, "error publishing classification event", logger.Error(err))
			}
			if w.onDone != nil {
				w.onDone(err)
			}
		}
	}
}

// Done is closed when Run returns.
func (w *InMemoryWorker) Done() <-chan struct{} {
	return w.done
}

// Shutdown stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) processEvent(ctx context.Context, event Event) error { //nolint:gocritic // hugeParam: passed by value from the channel
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	if err := w.publisher.Publish(ctx, event); err != nil {
		metrics.RecordPublishError()
		return fmt.Errorf("publish submission %s: %w", event.SubmissionID, err)
	}
	metrics.RecordEventPublished()
	return nil
}

// Pool manages multiple workers sharing one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue

	published atomic.Int64
	failed    atomic.Int64

	mu     sync.Mutex
	cancel context.CancelFunc

	logger logger.Logger
}

// NewPool creates a worker pool. A workerCount below 1 means one worker per
// CPU.
func NewPool(workerCount int, queue Queue, publisher Publisher) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   queue,
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		p.workers[i] = NewInMemoryWorker(queue, publisher,
			WithName("worker-"+strconv.Itoa(i)),
			withCompletion(p.record),
		)
	}

	metrics.UpdateWorkerCount(workerCount)
	return p
}

func (p *Pool) record(err error) {
	if err != nil {
		p.failed.Add(1)
		return
	}
	p.published.Add(1)
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Published returns how many events were delivered.
func (p *Pool) Published() int64 { return p.published.Load() }

// Failed returns how many events the publisher rejected.
func (p *Pool) Failed() int64 { return p.failed.Load() }

// Start starts all workers in the pool. The workers keep ctx's values but
// not its cancellation: they run until Shutdown, so a cancelled request or
// signal context cannot strand queued events. Calling Start twice is a no-op.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	p.cancel = cancel
	for _, w := range p.workers {
		go w.Run(runCtx)
	}
}

// Shutdown closes the queue and waits for the workers to drain it. If ctx
// (capped at 30s) expires first, the workers and their queue readers are
// cancelled and the undelivered events are dropped.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	p.mu.Lock()
	stop := p.cancel
	p.mu.Unlock()
	if stop == nil {
		return nil
	}
	defer stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var timedOut bool
	for i, w := range p.workers {
		select {
		case <-w.Done():
		case <-shutdownCtx.Done():
			timedOut = true
			p.logger.Warn(ctx, "worker drain timed out", logger.Int("worker_id", i))
			w.shutdownOnce.Do(func() { close(w.shutdown) })
		}
	}
	if !timedOut {
		return nil
	}

	stop()
	dropped := -1
	if l, ok := p.queue.(interface{ Len(context.Context) int }); ok {
		dropped = l.Len(ctx)
	}
	p.logger.Warn(ctx, "classification events dropped at shutdown", logger.Int("dropped", dropped))
	return fmt.Errorf("worker pool drain: %w", shutdownCtx.Err())
}
