// Package pipeline binds one bounded queue, a fixed worker pool and one
// annotation service into an independent unit of work.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/tika-extractor/internal/annotate"
	"github.com/JakeFAU/tika-extractor/internal/metrics"
	"github.com/JakeFAU/tika-extractor/internal/progress"
	"github.com/JakeFAU/tika-extractor/internal/queue/memory"
	"github.com/JakeFAU/tika-extractor/internal/worker"
)

// QueueFactor sizes each queue relative to its worker count.
const QueueFactor = 2

// Config describes one pipeline.
type Config struct {
	Name    string
	Workers int
	// Events, when set, receives every worker outcome.
	Events progress.Emitter
}

// Stats counts worker outcomes. Retried counts resubmissions, not records.
type Stats struct {
	Written  int64 `json:"written"`
	Filtered int64 `json:"filtered"`
	Retried  int64 `json:"retried"`
	Dropped  int64 `json:"dropped"`
}

// Terminal is the number of tasks that reached a final outcome.
func (s Stats) Terminal() int64 {
	return s.Written + s.Filtered + s.Dropped
}

// Status is a point-in-time view of a pipeline.
type Status struct {
	Name     string `json:"name"`
	Workers  int    `json:"workers"`
	Capacity int    `json:"capacity"`
	Buffered int    `json:"buffered"`
	InFlight int    `json:"in_flight"`
	Stats    Stats  `json:"stats"`
}

// Pipeline fans queue work out to a pool of workers.
type Pipeline struct {
	name    string
	events  progress.Emitter
	queue   *memory.Queue
	workers []*worker.Worker
	logger  *zap.Logger

	written  atomic.Int64
	filtered atomic.Int64
	retried  atomic.Int64
	dropped  atomic.Int64

	mu      sync.Mutex
	group   *errgroup.Group
	cancel  context.CancelFunc
	stopped bool
}

// New creates a Pipeline with cfg.Workers workers and a queue of
// QueueFactor*cfg.Workers slots.
func New(
	cfg Config,
	client annotate.Client,
	filter annotate.Filter,
	writer annotate.Writer,
	policy annotate.RetryPolicy,
	logger *zap.Logger,
) (*Pipeline, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("pipeline name is required")
	}
	if cfg.Workers <= 0 {
		return nil, fmt.Errorf("pipeline %s: workers must be > 0", cfg.Name)
	}
	if client == nil || writer == nil {
		return nil, fmt.Errorf("pipeline %s: client and writer are required", cfg.Name)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("pipeline").With(zap.String("pipeline", cfg.Name))

	p := &Pipeline{
		name:   cfg.Name,
		events: cfg.Events,
		queue:  memory.NewQueue(cfg.Workers * QueueFactor),
		logger: logger,
	}
	wcfg := worker.Config{Pipeline: cfg.Name, OnOutcome: p.observe}
	for i := 0; i < cfg.Workers; i++ {
		p.workers = append(p.workers, worker.New(
			p.queue,
			client,
			filter,
			writer,
			policy,
			wcfg,
			logger.Named("worker").With(zap.Int("index", i)),
		))
	}
	return p, nil
}

// Name identifies the pipeline in logs and metrics.
func (p *Pipeline) Name() string {
	return p.name
}

// Queue exposes the pipeline queue for inspection.
func (p *Pipeline) Queue() *memory.Queue {
	return p.queue
}

// Start launches the workers. They run until Stop is called or ctx ends.
func (p *Pipeline) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.group != nil {
		return
	}
	workerCtx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(workerCtx)
	for _, w := range p.workers {
		g.Go(func() error {
			w.Run(gctx)
			return nil
		})
	}
	p.group = g
	p.cancel = cancel
	p.logger.Info("pipeline started", zap.Int("workers", len(p.workers)), zap.Int("queue_capacity", p.queue.Cap()))
}

// Submit enqueues a record, blocking while the queue is full.
func (p *Pipeline) Submit(ctx context.Context, rec annotate.Record) error {
	if err := p.queue.Enqueue(ctx, annotate.NewTask(rec)); err != nil {
		return fmt.Errorf("pipeline %s enqueue: %w", p.name, err)
	}
	p.publishQueueState()
	return nil
}

// Join blocks until every submitted record reached a terminal outcome.
func (p *Pipeline) Join(ctx context.Context) error {
	if err := p.queue.Join(ctx); err != nil {
		return fmt.Errorf("pipeline %s join: %w", p.name, err)
	}
	return nil
}

// Stop signals the workers, waits for them to exit and closes the queue.
// Workers finish the task they are processing before exiting.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	if p.stopped || p.group == nil {
		p.stopped = true
		p.mu.Unlock()
		p.queue.Close()
		return
	}
	p.stopped = true
	g, cancel := p.group, p.cancel
	p.mu.Unlock()

	cancel()
	_ = g.Wait()
	p.queue.Close()
	p.publishQueueState()
	p.logger.Info("pipeline stopped", zap.Any("stats", p.Stats()))
}

// Stats returns the outcome counters so far.
func (p *Pipeline) Stats() Stats {
	return Stats{
		Written:  p.written.Load(),
		Filtered: p.filtered.Load(),
		Retried:  p.retried.Load(),
		Dropped:  p.dropped.Load(),
	}
}

// Status reports queue occupancy and outcome counters.
func (p *Pipeline) Status() Status {
	return Status{
		Name:     p.name,
		Workers:  len(p.workers),
		Capacity: p.queue.Cap(),
		Buffered: p.queue.Len(),
		InFlight: p.queue.InFlight(),
		Stats:    p.Stats(),
	}
}

func (p *Pipeline) observe(task annotate.Task, outcome annotate.Outcome) {
	switch outcome {
	case annotate.OutcomeWritten:
		p.written.Add(1)
	case annotate.OutcomeFiltered:
		p.filtered.Add(1)
	case annotate.OutcomeRetried:
		p.retried.Add(1)
	case annotate.OutcomeDropped:
		p.dropped.Add(1)
	}
	if p.events != nil {
		p.events.Emit(progress.Event{
			TS:       time.Now().UTC(),
			Pipeline: p.name,
			DOI:      task.Record.DOI,
			Outcome:  outcome,
			Attempt:  task.Attempt,
		})
	}
	p.publishQueueState()
}

func (p *Pipeline) publishQueueState() {
	metrics.SetQueueState(p.name, p.queue.Len(), p.queue.InFlight())
}
