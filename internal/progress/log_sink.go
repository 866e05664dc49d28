package progress

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/JakeFAU/tika-extractor/internal/annotate"
)

// Totals counts outcomes for one pipeline.
type Totals map[annotate.Outcome]int64

// LogSink keeps running outcome totals and logs them after every batch.
type LogSink struct {
	logger *zap.Logger
	totals map[string]Totals
}

// NewLogSink wires a Zap logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger, totals: make(map[string]Totals)}
}

// Consume folds the batch into the totals and logs one line per pipeline.
func (s *LogSink) Consume(_ context.Context, batch []Event) error {
	for _, evt := range batch {
		t, ok := s.totals[evt.Pipeline]
		if !ok {
			t = make(Totals)
			s.totals[evt.Pipeline] = t
		}
		t[evt.Outcome]++
	}
	s.log("progress")
	return nil
}

// Close logs the final totals.
func (s *LogSink) Close(context.Context) error {
	s.log("final progress")
	return nil
}

// Totals returns a copy of the running totals for pipeline.
func (s *LogSink) Totals(pipeline string) Totals {
	out := make(Totals, len(s.totals[pipeline]))
	for k, v := range s.totals[pipeline] {
		out[k] = v
	}
	return out
}

func (s *LogSink) log(msg string) {
	names := make([]string, 0, len(s.totals))
	for name := range s.totals {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		t := s.totals[name]
		s.logger.Info(msg,
			zap.String("pipeline", name),
			zap.Int64("written", t[annotate.OutcomeWritten]),
			zap.Int64("filtered", t[annotate.OutcomeFiltered]),
			zap.Int64("retried", t[annotate.OutcomeRetried]),
			zap.Int64("dropped", t[annotate.OutcomeDropped]),
		)
	}
}
