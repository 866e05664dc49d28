// Package memory provides the bounded in-process work queue that sits between
// the producer and each pipeline's worker pool.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/JakeFAU/tika-extractor/internal/annotate"
)

var (
	// ErrClosed is returned by Dequeue once the queue has been closed.
	ErrClosed = annotate.ErrQueueClosed
	// ErrTooManyDone is returned when MarkDone is called more often than tasks were added.
	ErrTooManyDone = errors.New("mark done called too many times")
)

// Queue is a bounded FIFO with in-flight accounting. A task holds one of the
// queue's capacity slots from the moment it is enqueued until a worker marks
// it done without resubmitting it, so Join only returns once every submitted
// task reached a terminal outcome and the producer blocks while capacity
// tasks are alive, whether they wait in the buffer, run in a worker or wait
// for a delayed resubmission.
type Queue struct {
	ch    chan annotate.Task
	slots chan struct{}

	mu       sync.Mutex
	inFlight int
	// carried counts resubmissions whose originating dequeue is not marked
	// done yet; those MarkDone calls keep the slot.
	carried int
	idle    chan struct{}

	closeOnce sync.Once
	stopped   chan struct{}
}

var _ annotate.Queue = (*Queue)(nil)

// NewQueue constructs a new queue with the provided capacity.
func NewQueue(capacity int) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	idle := make(chan struct{})
	close(idle)
	return &Queue{
		ch:      make(chan annotate.Task, capacity),
		slots:   make(chan struct{}, capacity),
		idle:    idle,
		stopped: make(chan struct{}),
	}
}

// Enqueue blocks until a capacity slot is free or the context ends. A task
// that could not be enqueued is not counted.
func (q *Queue) Enqueue(ctx context.Context, task annotate.Task) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("enqueue canceled: %w", ctx.Err())
	case <-q.stopped:
		return ErrClosed
	case q.slots <- struct{}{}:
	}
	q.add()
	// Buffered tasks never outnumber held slots, so the send cannot block.
	select {
	case q.ch <- task:
		return nil
	case <-q.stopped:
		q.release()
		return ErrClosed
	}
}

// Requeue appends a task that was dequeued and not yet marked done to the
// tail without blocking the caller. The resubmission keeps the slot of the
// dequeue it came from, so the following MarkDone does not free it. A delay
// moves delivery to a separate goroutine; a delivery abandoned because ctx
// ended or the queue closed releases the slot.
func (q *Queue) Requeue(ctx context.Context, task annotate.Task, delay time.Duration) {
	q.mu.Lock()
	q.carried++
	q.mu.Unlock()
	if delay <= 0 {
		select {
		case q.ch <- task:
			return
		default:
		}
	}
	go q.deliver(ctx, task, delay)
}

func (q *Queue) deliver(ctx context.Context, task annotate.Task, delay time.Duration) {
	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			q.release()
			return
		case <-q.stopped:
			q.release()
			return
		}
	}
	select {
	case q.ch <- task:
	case <-ctx.Done():
		q.release()
	case <-q.stopped:
		q.release()
	}
}

// Dequeue pops the next task, respecting context cancellation.
func (q *Queue) Dequeue(ctx context.Context) (annotate.Task, error) {
	select {
	case <-ctx.Done():
		return annotate.Task{}, fmt.Errorf("dequeue canceled: %w", ctx.Err())
	case <-q.stopped:
		return annotate.Task{}, ErrClosed
	case task := <-q.ch:
		return task, nil
	}
}

// MarkDone records that one dequeued task has been handled. Unless the task
// was resubmitted with Requeue, its slot is freed for the producer.
func (q *Queue) MarkDone() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.carried > 0 {
		q.carried--
		return nil
	}
	if q.inFlight == 0 {
		return ErrTooManyDone
	}
	q.decLocked()
	return nil
}

// Join blocks until no task is in flight or the context ends.
func (q *Queue) Join(ctx context.Context) error {
	q.mu.Lock()
	idle := q.idle
	q.mu.Unlock()
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("join canceled: %w", ctx.Err())
	}
}

// Len is the number of tasks buffered and awaiting dequeue.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Cap is the queue capacity.
func (q *Queue) Cap() int {
	return cap(q.ch)
}

// InFlight is the number of submitted tasks that have not reached a terminal
// outcome. It never exceeds Cap.
func (q *Queue) InFlight() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.inFlight
}

// Close stops pending deliveries and wakes blocked callers. It is safe to call
// more than once.
func (q *Queue) Close() {
	q.closeOnce.Do(func() {
		close(q.stopped)
	})
}

// add counts a task whose slot the caller already holds.
func (q *Queue) add() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.inFlight == 0 {
		q.idle = make(chan struct{})
	}
	q.inFlight++
}

func (q *Queue) release() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.decLocked()
}

func (q *Queue) decLocked() {
	<-q.slots
	q.inFlight--
	if q.inFlight == 0 {
		close(q.idle)
	}
}
