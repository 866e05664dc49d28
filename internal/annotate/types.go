package annotate

import "net/http"

// Record is one input row.
type Record struct {
	// DOI is empty when the source row had no usable identifier.
	DOI string
	// Abstract is the free text sent to the annotation services.
	Abstract string
}

// HasDOI reports whether the record carries an identifier.
func (r Record) HasDOI() bool {
	return r.DOI != ""
}

// Annotatable reports whether the record has text worth submitting.
func (r Record) Annotatable() bool {
	return r.Abstract != ""
}

// Task is a Record submitted to one pipeline's queue.
type Task struct {
	Record Record
	// Attempt counts the non-200 responses this task has already received.
	Attempt int
}

// NewTask wraps a record for its first submission.
func NewTask(rec Record) Task {
	return Task{Record: rec}
}

// Next returns the task to resubmit after a failed attempt.
func (t Task) Next() Task {
	return Task{Record: t.Record, Attempt: t.Attempt + 1}
}

// Response is the raw result of one remote annotation call.
type Response struct {
	StatusCode int
	Body       string
}

// OK reports whether the remote service accepted the request.
func (r Response) OK() bool {
	return r.StatusCode == http.StatusOK
}

// Outcome names what a worker did with one dequeued task.
type Outcome string

// Worker outcomes. Retried is the only non-terminal outcome: the task has been
// resubmitted and remains in flight.
const (
	OutcomeWritten  Outcome = "written"
	OutcomeFiltered Outcome = "filtered"
	OutcomeRetried  Outcome = "retried"
	OutcomeDropped  Outcome = "dropped"
)

// Terminal reports whether the outcome ends the task's life in its pipeline.
func (o Outcome) Terminal() bool {
	return o != OutcomeRetried
}
