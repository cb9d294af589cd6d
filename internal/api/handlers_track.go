package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sydlexius/earmark/internal/event"
	"github.com/sydlexius/earmark/internal/match"
	"github.com/sydlexius/earmark/internal/track"
)

// maxObservationBytes bounds the request body of a single observation.
const maxObservationBytes = 64 << 10

// handleObserve records a play and queues the track for enrichment.
// POST /api/v1/observations
func (r *Router) handleObserve(w http.ResponseWriter, req *http.Request) {
	var obs track.Observation
	if err := json.NewDecoder(http.MaxBytesReader(w, req.Body, maxObservationBytes)).Decode(&obs); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	obs.Normalize()
	if obs.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	t, created, err := r.trackService.Observe(req.Context(), obs)
	if err != nil {
		r.logger.Error("recording observation", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	// Tracks without a usable artist are kept but not queued; they would
	// only ever be skipped.
	queued := false
	if !match.IsUnknownArtist(t.Artist) {
		queued, err = r.orchestrator.CreatePending(req.Context(), t.ID)
		if err != nil {
			r.logger.Error("queueing track for enrichment", slog.String("track_id", t.ID), slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
	}

	if r.eventBus != nil {
		r.eventBus.Publish(event.Event{Type: event.TrackObserved, Data: map[string]any{
			"track_id": t.ID,
			"created":  created,
		}})
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, map[string]any{
		"track":   t,
		"created": created,
		"queued":  queued,
	})
}

// handleListTracks returns a paginated track list.
// GET /api/v1/tracks
func (r *Router) handleListTracks(w http.ResponseWriter, req *http.Request) {
	params := track.ListParams{
		Page:     intQuery(req, "page", 1),
		PageSize: intQuery(req, "page_size", 50),
		Sort:     req.URL.Query().Get("sort"),
		Order:    req.URL.Query().Get("order"),
		Search:   req.URL.Query().Get("search"),
	}
	params.Validate()

	tracks, total, err := r.trackService.List(req.Context(), params)
	if err != nil {
		r.logger.Error("listing tracks", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"tracks":    tracks,
		"total":     total,
		"page":      params.Page,
		"page_size": params.PageSize,
	})
}

// handleGetTrack returns a single track.
// GET /api/v1/tracks/{id}
func (r *Router) handleGetTrack(w http.ResponseWriter, req *http.Request) {
	t, ok := r.loadTrack(w, req)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// loadTrack resolves the {id} path value. On failure it writes the response
// and returns false.
func (r *Router) loadTrack(w http.ResponseWriter, req *http.Request) (*track.Track, bool) {
	id := req.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing track id")
		return nil, false
	}
	t, err := r.trackService.Get(req.Context(), id)
	if errors.Is(err, track.ErrNotFound) {
		writeError(w, http.StatusNotFound, "track not found")
		return nil, false
	}
	if err != nil {
		r.logger.Error("loading track", slog.String("track_id", id), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal error")
		return nil, false
	}
	return t, true
}
