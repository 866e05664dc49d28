// Package engine feeds input records to every pipeline and coordinates the
// drain and shutdown that follow.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/JakeFAU/tika-extractor/internal/annotate"
	"github.com/JakeFAU/tika-extractor/internal/metrics"
	"github.com/JakeFAU/tika-extractor/internal/pipeline"
)

// Record results reported to metrics.
const (
	RecordSubmitted = "submitted"
	RecordSkipped   = "skipped"
)

// Pipeline is the slice of *pipeline.Pipeline the engine drives.
type Pipeline interface {
	Name() string
	Start(ctx context.Context)
	Submit(ctx context.Context, rec annotate.Record) error
	Join(ctx context.Context) error
	Stop()
	Stats() pipeline.Stats
	Status() pipeline.Status
}

// Releaser frees resources shared by the pipelines once they have stopped.
type Releaser interface {
	Close()
}

// Stats summarizes one Run.
type Stats struct {
	Read      int
	Skipped   int
	Submitted int
	Pipelines map[string]pipeline.Stats
}

// Engine owns the producer side of the pipelines.
type Engine struct {
	pipelines []Pipeline
	shared    Releaser
	logger    *zap.Logger
	started   atomic.Bool
	running   atomic.Bool
}

// New builds an Engine. Records are submitted to pipelines in the order given.
// shared may be nil.
func New(pipelines []Pipeline, shared Releaser, logger *zap.Logger) (*Engine, error) {
	if len(pipelines) == 0 {
		return nil, errors.New("at least one pipeline is required")
	}
	seen := make(map[string]struct{}, len(pipelines))
	for _, p := range pipelines {
		if p == nil {
			return nil, errors.New("nil pipeline")
		}
		if _, dup := seen[p.Name()]; dup {
			return nil, fmt.Errorf("duplicate pipeline %q", p.Name())
		}
		seen[p.Name()] = struct{}{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		pipelines: pipelines,
		shared:    shared,
		logger:    logger.Named("engine"),
	}, nil
}

// Run starts the workers, streams src into every pipeline and returns once
// all submitted records have been processed and the workers have exited.
//
// A failing source stops intake, but the records already submitted are still
// drained before the source error is returned. Cancelling ctx abandons the
// drain. An Engine runs once.
func (e *Engine) Run(ctx context.Context, src annotate.RecordReader) (stats Stats, err error) {
	if !e.started.CompareAndSwap(false, true) {
		return stats, errors.New("engine can only run once")
	}
	e.running.Store(true)
	for _, p := range e.pipelines {
		p.Start(ctx)
	}
	defer func() {
		e.shutdown()
		e.running.Store(false)
		stats.Pipelines = e.collect()
	}()

	srcErr := e.produce(ctx, src, &stats)
	if ctx.Err() != nil {
		e.logger.Warn("run canceled before drain", zap.Error(ctx.Err()))
		return stats, fmt.Errorf("produce: %w", ctx.Err())
	}
	if srcErr != nil {
		e.logger.Error("record source failed, draining submitted records", zap.Error(srcErr))
	}

	e.logger.Info("input exhausted, waiting for pipelines",
		zap.Int("read", stats.Read),
		zap.Int("skipped", stats.Skipped),
		zap.Int("submitted", stats.Submitted),
	)
	for _, p := range e.pipelines {
		if err = p.Join(ctx); err != nil {
			return stats, err
		}
		e.logger.Info("pipeline drained", zap.String("pipeline", p.Name()))
	}

	if srcErr != nil {
		return stats, fmt.Errorf("read records: %w", srcErr)
	}
	return stats, nil
}

// Running reports whether Run is in progress.
func (e *Engine) Running() bool {
	return e.running.Load()
}

// Status reports every pipeline in submission order.
func (e *Engine) Status() []pipeline.Status {
	out := make([]pipeline.Status, 0, len(e.pipelines))
	for _, p := range e.pipelines {
		out = append(out, p.Status())
	}
	return out
}

func (e *Engine) produce(ctx context.Context, src annotate.RecordReader, stats *Stats) error {
	for {
		rec, err := src.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		stats.Read++

		if !rec.Annotatable() {
			stats.Skipped++
			metrics.ObserveRecord(RecordSkipped)
			e.logger.Debug("skipping record without abstract", zap.String("doi", rec.DOI))
			continue
		}
		for _, p := range e.pipelines {
			if err := p.Submit(ctx, rec); err != nil {
				return err
			}
		}
		stats.Submitted++
		metrics.ObserveRecord(RecordSubmitted)
	}
}

func (e *Engine) shutdown() {
	for _, p := range e.pipelines {
		p.Stop()
	}
	if e.shared != nil {
		e.shared.Close()
	}
	e.logger.Info("engine stopped")
}

func (e *Engine) collect() map[string]pipeline.Stats {
	out := make(map[string]pipeline.Stats, len(e.pipelines))
	for _, p := range e.pipelines {
		out[p.Name()] = p.Stats()
	}
	return out
}
