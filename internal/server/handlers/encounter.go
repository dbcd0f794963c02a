package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"crosspath/internal/domain/engine"
	"crosspath/internal/domain/geo"
	"crosspath/internal/domain/post"
)

// EncounterHandler handles post publishing, candidate discovery and the
// lifecycle actions
type EncounterHandler struct {
	engine   engine.Engine
	location post.LocationSource
	fallback geo.Coordinate
	logger   *zap.Logger
}

// NewEncounterHandler creates a new encounter handler
func NewEncounterHandler(
	eng engine.Engine,
	location post.LocationSource,
	fallback geo.Coordinate,
	logger *zap.Logger,
) *EncounterHandler {
	return &EncounterHandler{
		engine:   eng,
		location: location,
		fallback: fallback,
		logger:   logger,
	}
}

// ListOwnPosts returns the viewer's published posts
func (h *EncounterHandler) ListOwnPosts(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.engine.OwnPosts())
}

// PublishPost creates a new own post
func (h *EncounterHandler) PublishPost(w http.ResponseWriter, r *http.Request) {
	type publishRequest struct {
		Title       string     `json:"title"`
		Description string     `json:"description"`
		Tags        []post.Tag `json:"tags"`
		ImageURL    string     `json:"image_url"`
		Latitude    float64    `json:"latitude"`
		Longitude   float64    `json:"longitude"`
	}

	var req publishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Title == "" {
		respondWithError(w, http.StatusBadRequest, "Missing title")
		return
	}

	p, err := h.engine.PublishPost(r.Context(), post.Draft{
		Title:       req.Title,
		Description: req.Description,
		Tags:        req.Tags,
		ImageURL:    req.ImageURL,
		Position:    geo.Coordinate{Latitude: req.Latitude, Longitude: req.Longitude},
	})
	if err != nil {
		if errors.Is(err, post.ErrCapacityExceeded) {
			respondWithError(w, http.StatusConflict, "Post limit reached")
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to publish post")
		return
	}

	respondWithJSON(w, http.StatusCreated, p)
}

// DeletePost deletes an own post
func (h *EncounterHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondWithError(w, http.StatusBadRequest, "Missing post ID")
		return
	}

	if err := h.engine.DeletePost(r.Context(), id); err != nil {
		if errors.Is(err, post.ErrPostNotFound) {
			respondWithError(w, http.StatusNotFound, "Post not found")
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to delete post")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListVisible returns the discoverable candidate set
func (h *EncounterHandler) ListVisible(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.engine.VisibleCandidates())
}

// GetCandidate returns a candidate by id, hidden ones included
func (h *EncounterHandler) GetCandidate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondWithError(w, http.StatusBadRequest, "Missing candidate ID")
		return
	}

	c, err := h.engine.Candidate(id)
	if err != nil {
		respondWithError(w, http.StatusNotFound, "Candidate not found")
		return
	}

	respondWithJSON(w, http.StatusOK, c)
}

// GetNearbyCounts returns the per-own-post drill-down counts
func (h *EncounterHandler) GetNearbyCounts(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.engine.NearbyCounts())
}

// RefreshCandidates pulls a fresh candidate batch near the viewer. A failing
// location source falls back to the configured coordinate.
func (h *EncounterHandler) RefreshCandidates(w http.ResponseWriter, r *http.Request) {
	near, err := h.location.CurrentCoordinate(r.Context())
	if err != nil {
		h.logger.Warn("location source unavailable, using fallback", zap.Error(err))
		near = h.fallback
	}

	added, err := h.engine.RefreshCandidates(r.Context(), near)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to refresh candidates")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]int{"added": added})
}

// Connect likes a candidate
func (h *EncounterHandler) Connect(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondWithError(w, http.StatusBadRequest, "Missing candidate ID")
		return
	}

	status, err := h.engine.Connect(r.Context(), id)
	if err != nil {
		respondWithActionError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]post.Status{"status": status})
}

// Reject hides a candidate
func (h *EncounterHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondWithError(w, http.StatusBadRequest, "Missing candidate ID")
		return
	}

	if err := h.engine.Reject(r.Context(), id); err != nil {
		respondWithActionError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]post.Status{"status": post.StatusHidden})
}

// Unmatch resets a matched candidate to pending
func (h *EncounterHandler) Unmatch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondWithError(w, http.StatusBadRequest, "Missing candidate ID")
		return
	}

	if err := h.engine.Unmatch(r.Context(), id); err != nil {
		respondWithActionError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]post.Status{"status": post.StatusPending})
}

// SetFilters replaces the visibility toggles
func (h *EncounterHandler) SetFilters(w http.ResponseWriter, r *http.Request) {
	type filterRequest struct {
		ShowHidden *bool             `json:"show_hidden"`
		Tags       *[]post.Tag       `json:"tags"`
		Map        *engine.MapFilter `json:"map"`
	}

	var req filterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.ShowHidden != nil {
		h.engine.SetShowHidden(*req.ShowHidden)
	}
	if req.Tags != nil {
		h.engine.SetTagFilter(*req.Tags)
	}
	if req.Map != nil {
		h.engine.SetMapFilter(*req.Map)
	}

	w.WriteHeader(http.StatusNoContent)
}

// respondWithActionError maps lifecycle errors to HTTP statuses
func respondWithActionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, post.ErrPostNotFound):
		respondWithError(w, http.StatusNotFound, "Candidate not found")
	case errors.Is(err, post.ErrInvalidTransition):
		respondWithError(w, http.StatusConflict, "Action not allowed in current status")
	default:
		respondWithError(w, http.StatusInternalServerError, "Action failed")
	}
}
