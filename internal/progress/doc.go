// Package progress batches per-task outcome events off the worker hot path and
// fans them out to sinks, such as the periodic progress log of a run.
package progress
