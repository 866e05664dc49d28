// Package worker implements the loop that drains one pipeline queue against
// an annotation service.
package worker

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/JakeFAU/tika-extractor/internal/annotate"
	"github.com/JakeFAU/tika-extractor/internal/metrics"
	"github.com/JakeFAU/tika-extractor/internal/retry"
)

// OutcomeFunc observes the outcome of every dequeued task.
type OutcomeFunc func(task annotate.Task, outcome annotate.Outcome)

// Config controls Worker behavior.
type Config struct {
	// Pipeline labels metrics and logs.
	Pipeline string
	// OnOutcome, when set, is called before the task is marked done.
	OnOutcome OutcomeFunc
}

// Worker consumes tasks and runs the annotate, filter, write sequence.
type Worker struct {
	queue  annotate.Queue
	client annotate.Client
	filter annotate.Filter
	writer annotate.Writer
	retry  annotate.RetryPolicy
	cfg    Config
	logger *zap.Logger
}

// New constructs a Worker. A nil filter accepts every response and a nil
// retry policy resubmits failed tasks forever.
func New(
	queue annotate.Queue,
	client annotate.Client,
	filter annotate.Filter,
	writer annotate.Writer,
	policy annotate.RetryPolicy,
	cfg Config,
	logger *zap.Logger,
) *Worker {
	if filter == nil {
		filter = annotate.AcceptAll
	}
	if policy == nil {
		policy = retry.Unbounded()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		queue:  queue,
		client: client,
		filter: filter,
		writer: writer,
		retry:  policy,
		cfg:    cfg,
		logger: logger,
	}
}

// Run blocks, consuming tasks until the context finishes or the queue closes.
// A task already being processed is always finished first.
func (w *Worker) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			w.logger.Debug("worker stopping", zap.Error(ctx.Err()))
			return
		}
		task, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, annotate.ErrQueueClosed) {
				w.logger.Debug("worker stopping", zap.Error(err))
				return
			}
			w.logger.Error("dequeue failed", zap.Error(err))
			continue
		}
		w.handle(ctx, task)
	}
}

func (w *Worker) handle(ctx context.Context, task annotate.Task) {
	metrics.IncActiveWorkers(w.cfg.Pipeline)
	defer metrics.DecActiveWorkers(w.cfg.Pipeline)

	outcome := w.process(ctx, task)
	metrics.ObserveOutcome(w.cfg.Pipeline, string(outcome))
	if w.cfg.OnOutcome != nil {
		w.cfg.OnOutcome(task, outcome)
	}
	if err := w.queue.MarkDone(); err != nil {
		w.logger.Error("mark done failed", zap.String("doi", task.Record.DOI), zap.Error(err))
	}
}

// process never returns an error: every failure is folded into an outcome.
// The remote call and the write run on a context detached from worker
// cancellation so shutdown never interrupts them.
func (w *Worker) process(ctx context.Context, task annotate.Task) annotate.Outcome {
	rec := task.Record
	callCtx := context.WithoutCancel(ctx)

	resp, err := w.client.Call(callCtx, []byte(rec.Abstract))
	if err != nil {
		w.logger.Error("annotation request failed, dropping task",
			zap.String("doi", rec.DOI), zap.Int("attempt", task.Attempt), zap.Error(err))
		return annotate.OutcomeDropped
	}
	if !resp.OK() {
		return w.requeue(ctx, task, resp)
	}

	keep, err := w.filter.Accept(resp.Body)
	if err != nil {
		w.logger.Error("result filter failed, dropping task", zap.String("doi", rec.DOI), zap.Error(err))
		return annotate.OutcomeDropped
	}
	if !keep {
		w.logger.Debug("result filtered out", zap.String("doi", rec.DOI))
		return annotate.OutcomeFiltered
	}

	if _, err := w.writer.Write(callCtx, resp.Body, rec); err != nil {
		w.logger.Error("write failed, dropping task", zap.String("doi", rec.DOI), zap.Error(err))
		return annotate.OutcomeDropped
	}
	return annotate.OutcomeWritten
}

func (w *Worker) requeue(ctx context.Context, task annotate.Task, resp annotate.Response) annotate.Outcome {
	attempts := task.Attempt + 1
	if !w.retry.Allow(attempts) {
		w.logger.Error("retry limit reached, dropping task",
			zap.String("doi", task.Record.DOI),
			zap.Int("status", resp.StatusCode),
			zap.Int("attempts", attempts),
		)
		return annotate.OutcomeDropped
	}
	w.logger.Warn("non successful response, placing back in queue",
		zap.String("doi", task.Record.DOI),
		zap.Int("status", resp.StatusCode),
		zap.String("body", resp.Body),
		zap.Int("attempts", attempts),
	)
	w.queue.Requeue(ctx, task.Next(), w.retry.Delay(attempts))
	return annotate.OutcomeRetried
}
