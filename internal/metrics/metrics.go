// Package metrics exposes Prometheus collectors for the extractor.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	tikaRequestsTotal          *prometheus.CounterVec
	tikaRequestDurationSeconds *prometheus.HistogramVec
	outcomesTotal              *prometheus.CounterVec
	recordsTotal               *prometheus.CounterVec
	queueDepth                 *prometheus.GaugeVec
	tasksInFlight              *prometheus.GaugeVec
	activeWorkers              *prometheus.GaugeVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	rateLimitDelaySeconds      *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		tikaRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tika_requests_total",
				Help: "Total number of annotation requests, labeled by pipeline and response code (0 for transport errors).",
			},
			[]string{"pipeline", "code"},
		)

		tikaRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tika_request_duration_seconds",
				Help:    "Histogram of annotation request latencies, labeled by pipeline.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 15, 30, 60, 120, 300, 600},
			},
			[]string{"pipeline"},
		)

		rateLimitDelaySeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tika_rate_limit_delay_seconds",
				Help:    "Time annotation requests spent waiting on the request rate limit, labeled by pipeline.",
				Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
			},
			[]string{"pipeline"},
		)

		outcomesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "extractor_task_outcomes_total",
				Help: "Worker outcomes per dequeued task, labeled by pipeline and outcome.",
			},
			[]string{"pipeline", "outcome"},
		)

		recordsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "extractor_records_total",
				Help: "Input records seen by the producer, labeled by whether they were submitted or skipped.",
			},
			[]string{"result"},
		)

		queueDepth = promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "extractor_queue_depth",
				Help: "Tasks buffered in a pipeline queue awaiting a worker.",
			},
			[]string{"pipeline"},
		)

		tasksInFlight = promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "extractor_tasks_in_flight",
				Help: "Tasks submitted to a pipeline and not yet finished.",
			},
			[]string{"pipeline"},
		)

		activeWorkers = promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "extractor_active_workers",
				Help: "Number of workers currently processing a task.",
			},
			[]string{"pipeline"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests served, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveRequest records one annotation call. Transport errors use code 0.
func ObserveRequest(pipeline string, code int, duration time.Duration) {
	Init()
	tikaRequestsTotal.WithLabelValues(pipeline, strconv.Itoa(code)).Inc()
	tikaRequestDurationSeconds.WithLabelValues(pipeline).Observe(duration.Seconds())
}

// ObserveRateLimitDelay records the time a request waited for a token.
func ObserveRateLimitDelay(pipeline string, d time.Duration) {
	Init()
	rateLimitDelaySeconds.WithLabelValues(pipeline).Observe(d.Seconds())
}

// ObserveOutcome increments the outcome counter.
func ObserveOutcome(pipeline, outcome string) {
	Init()
	outcomesTotal.WithLabelValues(pipeline, outcome).Inc()
}

// ObserveRecord counts a producer decision ("submitted" or "skipped").
func ObserveRecord(result string) {
	Init()
	recordsTotal.WithLabelValues(result).Inc()
}

// SetQueueState publishes the buffered and in-flight task counts of a pipeline.
func SetQueueState(pipeline string, buffered, inFlight int) {
	Init()
	queueDepth.WithLabelValues(pipeline).Set(float64(buffered))
	tasksInFlight.WithLabelValues(pipeline).Set(float64(inFlight))
}

// IncActiveWorkers increments the active workers gauge.
func IncActiveWorkers(pipeline string) {
	Init()
	activeWorkers.WithLabelValues(pipeline).Inc()
}

// DecActiveWorkers decrements the active workers gauge.
func DecActiveWorkers(pipeline string) {
	Init()
	activeWorkers.WithLabelValues(pipeline).Dec()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
