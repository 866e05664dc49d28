package annotate

import (
	"context"
	"errors"
	"time"
)

// ErrQueueClosed is returned by Queue.Dequeue once the queue has been shut down.
var ErrQueueClosed = errors.New("queue closed")

// Queue is the bounded work queue between the producer and a worker pool.
type Queue interface {
	Enqueue(ctx context.Context, task Task) error
	Dequeue(ctx context.Context) (Task, error)
	// Requeue resubmits a task to the tail without blocking the caller.
	Requeue(ctx context.Context, task Task, delay time.Duration)
	MarkDone() error
	Join(ctx context.Context) error
}

// Client sends text to one remote annotation endpoint.
type Client interface {
	Call(ctx context.Context, payload []byte) (Response, error)
}

// Filter decides whether a successful response is worth persisting.
type Filter interface {
	Accept(body string) (bool, error)
}

// FilterFunc adapts a function to the Filter interface.
type FilterFunc func(body string) (bool, error)

// Accept calls f(body).
func (f FilterFunc) Accept(body string) (bool, error) {
	return f(body)
}

// AcceptAll is the default filter; it keeps every response.
var AcceptAll Filter = FilterFunc(func(string) (bool, error) { return true, nil })

// Writer persists a response body under a name derived from its record.
type Writer interface {
	Write(ctx context.Context, body string, rec Record) (string, error)
}

// Hasher computes hex digests used for fallback file names.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// RetryPolicy governs what happens after a non-200 response.
type RetryPolicy interface {
	// Allow reports whether a task that has failed attempt times may be resubmitted.
	Allow(attempt int) bool
	// Delay returns how long to hold the resubmission back.
	Delay(attempt int) time.Duration
}

// RecordReader streams input records. Next returns io.EOF when exhausted.
type RecordReader interface {
	Next() (Record, error)
}

// IDGenerator produces run IDs.
type IDGenerator interface {
	NewID() (string, error)
}
