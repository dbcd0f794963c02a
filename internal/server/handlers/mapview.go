package handlers

import (
	"net/http"
	"strconv"

	"crosspath/internal/domain/engine"
)

// MapHandler serves the clustered marker projection for map rendering
type MapHandler struct {
	engine engine.Engine
}

// NewMapHandler creates a new map handler
func NewMapHandler(eng engine.Engine) *MapHandler {
	return &MapHandler{
		engine: eng,
	}
}

// GetMarkers returns single markers and clusters for a zoom level
func (h *MapHandler) GetMarkers(w http.ResponseWriter, r *http.Request) {
	// Default to a street-level zoom
	zoom := 14
	if zoomStr := r.URL.Query().Get("zoom"); zoomStr != "" {
		parsed, err := strconv.Atoi(zoomStr)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid zoom")
			return
		}
		zoom = parsed
	}

	respondWithJSON(w, http.StatusOK, h.engine.Markers(zoom))
}
