package progress

import "context"

// Sink consumes batches of outcome events. Consume is never called
// concurrently by a Hub.
type Sink interface {
	Consume(ctx context.Context, batch []Event) error
	Close(ctx context.Context) error
}

// Emitter publishes individual events; Hub satisfies this interface so
// pipelines stay agnostic about how events are buffered.
type Emitter interface {
	Emit(evt Event)
}
