// Package api hosts the optional operator HTTP listener of an extractor run.
// Notable routes:
//   - GET /healthz / readyz for probes; readyz reports 503 once the run ends.
//   - GET /metrics for Prometheus scraping.
//   - GET /api/pipelines and /api/pipelines/{name} for queue and outcome
//     counters via the StatusSource interface.
package api
