// Package annotate defines the records, tasks, responses and collaborator
// interfaces shared by the queue, worker, pipeline and engine packages of the
// Tika feature extractor.
package annotate
