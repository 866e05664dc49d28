package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/tika-extractor/internal/pipeline"
)

// StatusSource reports on a running extraction. *engine.Engine satisfies it.
type StatusSource interface {
	Running() bool
	Status() []pipeline.Status
}

// StatusHandler exposes read-only pipeline endpoints.
type StatusHandler struct {
	source StatusSource
	logger *zap.Logger
}

// NewStatusHandler wires the source and logger.
func NewStatusHandler(source StatusSource, logger *zap.Logger) *StatusHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatusHandler{source: source, logger: logger}
}

// ListPipelines handles GET /api/pipelines. It returns
// {"running": bool, "pipelines": [...]} or 503 when no source is attached.
func (h *StatusHandler) ListPipelines(w http.ResponseWriter, _ *http.Request) {
	if h.source == nil {
		writeError(h.logger, w, http.StatusServiceUnavailable, "status source unavailable")
		return
	}
	writeJSON(h.logger, w, http.StatusOK, map[string]any{
		"running":   h.source.Running(),
		"pipelines": h.source.Status(),
	})
}

// GetPipeline handles GET /api/pipelines/{name}.
func (h *StatusHandler) GetPipeline(w http.ResponseWriter, r *http.Request) {
	if h.source == nil {
		writeError(h.logger, w, http.StatusServiceUnavailable, "status source unavailable")
		return
	}
	name := chi.URLParam(r, "name")
	for _, st := range h.source.Status() {
		if st.Name == name {
			writeJSON(h.logger, w, http.StatusOK, st)
			return
		}
	}
	writeError(h.logger, w, http.StatusNotFound, "pipeline not found")
}
