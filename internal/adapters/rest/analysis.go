package rest

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/ewilliams-labs/resonate/internal/core/domain"
	"github.com/ewilliams-labs/resonate/internal/worker"
)

// wireArtist and wireTrack define what the client sends us.
type wireArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type wireTrack struct {
	ID         string       `json:"id"`
	Title      string       `json:"title"`
	Artists    []wireArtist `json:"artists"`
	Album      string       `json:"album,omitempty"`
	DurationMs int          `json:"duration_ms"`
	Popularity int          `json:"popularity"`
}

func (wt wireTrack) toDomain() domain.Track {
	artists := make([]domain.Artist, len(wt.Artists))
	for i, a := range wt.Artists {
		artists[i] = domain.Artist{ID: a.ID, Name: a.Name}
	}
	return domain.Track{
		ID:         wt.ID,
		Title:      wt.Title,
		Artists:    artists,
		Album:      wt.Album,
		DurationMs: wt.DurationMs,
		Popularity: wt.Popularity,
	}
}

type setTokenRequest struct {
	Token string `json:"token"`
}

// SetToken handles POST /token
func (h *Handler) SetToken(w http.ResponseWriter, r *http.Request) {
	if !isJSONContentType(r) {
		writeError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return
	}

	var req setTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	h.svc.SetToken(req.Token)
	w.WriteHeader(http.StatusNoContent)
}

type analyzeRequest struct {
	Tracks []wireTrack `json:"tracks"`
}

// AnalyzeLibrary handles POST /analysis. The force query parameter bypasses
// the cached result.
func (h *Handler) AnalyzeLibrary(w http.ResponseWriter, r *http.Request) {
	if !isJSONContentType(r) {
		writeError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return
	}

	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	tracks := make([]domain.Track, len(req.Tracks))
	for i, wt := range req.Tracks {
		tracks[i] = wt.toDomain()
	}

	force := r.URL.Query().Get("force") == "true"
	result, err := h.svc.AnalyzeLibrary(r.Context(), tracks, force)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ClearAnalysis handles DELETE /analysis
func (h *Handler) ClearAnalysis(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.ClearAnalysis(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Recommendations handles GET /tracks/{id}/recommendations
func (h *Handler) Recommendations(w http.ResponseWriter, r *http.Request) {
	trackID := r.PathValue("id")
	if trackID == "" {
		writeError(w, http.StatusBadRequest, "track id is required")
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	songs, err := h.svc.RecommendationsForTrack(r.Context(), trackID, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, songs)
}

type listenRequest struct {
	TrackID string    `json:"track_id"`
	At      time.Time `json:"at,omitzero"`
}

// RecordListen handles POST /listens. The event is queued to the worker pool
// so the response never waits on persistence.
func (h *Handler) RecordListen(w http.ResponseWriter, r *http.Request) {
	if !isJSONContentType(r) {
		writeError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return
	}

	var req listenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.TrackID == "" {
		writeError(w, http.StatusBadRequest, "track_id is required")
		return
	}

	h.pool.Submit(worker.Job{TrackID: req.TrackID, At: req.At})
	w.WriteHeader(http.StatusAccepted)
}
