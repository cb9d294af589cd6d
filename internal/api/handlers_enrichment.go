package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sydlexius/earmark/internal/enrichment"
)

// resultResponse is the JSON form of an enrichment.Result.
type resultResponse struct {
	Outcome enrichment.Outcome `json:"outcome"`
	Result  enrichment.Result  `json:"result"`
}

// handleGetEnrichment returns the stored enrichment record of a track.
// GET /api/v1/tracks/{id}/enrichment
func (r *Router) handleGetEnrichment(w http.ResponseWriter, req *http.Request) {
	t, ok := r.loadTrack(w, req)
	if !ok {
		return
	}
	rec, err := r.enrichmentStore.Get(req.Context(), t.ID)
	if err != nil {
		r.logger.Error("loading enrichment", slog.String("track_id", t.ID), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "no enrichment record")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handleEnrichTrack enriches one track synchronously. force=true bypasses
// the cache and the NOT_FOUND guard.
// POST /api/v1/tracks/{id}/enrich
func (r *Router) handleEnrichTrack(w http.ResponseWriter, req *http.Request) {
	t, ok := r.loadTrack(w, req)
	if !ok {
		return
	}
	res := r.orchestrator.Enrich(req.Context(), t, boolQuery(req, "force"))
	writeResult(w, res)
}

// handleSupplementTrack fills in fields the stored record lacks.
// POST /api/v1/tracks/{id}/supplement
func (r *Router) handleSupplementTrack(w http.ResponseWriter, req *http.Request) {
	t, ok := r.loadTrack(w, req)
	if !ok {
		return
	}
	writeResult(w, r.orchestrator.Supplement(req.Context(), t, nil))
}

// handleReenrich resets a track's record so the next batch resolves it again.
// POST /api/v1/tracks/{id}/reenrich
func (r *Router) handleReenrich(w http.ResponseWriter, req *http.Request) {
	t, ok := r.loadTrack(w, req)
	if !ok {
		return
	}
	if err := r.orchestrator.RequestReenrichment(req.Context(), t.ID); err != nil {
		r.logger.Error("requesting re-enrichment", slog.String("track_id", t.ID), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": string(enrichment.StatusPending)})
}

// handleRunBatch starts an enrichment batch in the background.
// POST /api/v1/enrichment/run
func (r *Router) handleRunBatch(w http.ResponseWriter, req *http.Request) {
	if r.runner == nil {
		writeError(w, http.StatusServiceUnavailable, "enrichment runner not configured")
		return
	}
	if r.runner.Running() {
		writeError(w, http.StatusConflict, enrichment.ErrBatchRunning.Error())
		return
	}

	limit := intQuery(req, "limit", r.batchSize)
	if limit < 1 {
		limit = r.batchSize
	}

	go func(ctx context.Context) {
		if _, err := r.runner.RunBatch(ctx, limit); err != nil {
			if errors.Is(err, enrichment.ErrBatchRunning) {
				r.logger.Debug("batch requested while another started")
				return
			}
			r.logger.Error("enrichment batch failed", slog.String("error", err.Error()))
		}
	}(r.baseCtx)

	writeJSON(w, http.StatusAccepted, map[string]any{"status": "started", "limit": limit})
}

// handleEnrichmentStatus reports record counts per status and whether a
// batch is running.
// GET /api/v1/enrichment/status
func (r *Router) handleEnrichmentStatus(w http.ResponseWriter, req *http.Request) {
	counts, err := r.enrichmentStore.CountByStatus(req.Context())
	if err != nil {
		r.logger.Error("counting enrichments", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	running := r.runner != nil && r.runner.Running()
	writeJSON(w, http.StatusOK, map[string]any{
		"running": running,
		"counts":  counts,
	})
}

// writeResult sends an enrichment result. Error outcomes map to 502 since
// they come from an upstream catalog.
func writeResult(w http.ResponseWriter, res enrichment.Result) {
	status := http.StatusOK
	if _, failed := res.(enrichment.Error); failed {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, resultResponse{Outcome: res.Outcome(), Result: res})
}
