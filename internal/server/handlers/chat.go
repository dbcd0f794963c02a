package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"crosspath/internal/domain/chat"
	"crosspath/internal/domain/engine"
)

// ChatHandler handles chat session HTTP requests
type ChatHandler struct {
	engine engine.Engine
}

// NewChatHandler creates a new chat handler
func NewChatHandler(eng engine.Engine) *ChatHandler {
	return &ChatHandler{
		engine: eng,
	}
}

// ListSessions returns session summaries plus the aggregate unread badge
func (h *ChatHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"sessions":     h.engine.Sessions(),
		"unread_total": h.engine.UnreadTotal(),
	})
}

// OpenChat focuses a session, creating one lazily for a matched candidate
// that has none
func (h *ChatHandler) OpenChat(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondWithError(w, http.StatusBadRequest, "Missing chat ID")
		return
	}

	session, err := h.engine.OpenChat(r.Context(), id)
	if err != nil {
		if errors.Is(err, chat.ErrSessionNotFound) {
			respondWithError(w, http.StatusNotFound, "Chat not found")
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to open chat")
		return
	}

	respondWithJSON(w, http.StatusOK, session)
}

// CloseChat unfocuses a session
func (h *ChatHandler) CloseChat(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondWithError(w, http.StatusBadRequest, "Missing chat ID")
		return
	}

	h.engine.CloseChat(id)
	w.WriteHeader(http.StatusNoContent)
}

// GetSession returns a session without focusing it
func (h *ChatHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondWithError(w, http.StatusBadRequest, "Missing chat ID")
		return
	}

	session, err := h.engine.Session(id)
	if err != nil {
		respondWithError(w, http.StatusNotFound, "Chat not found")
		return
	}

	respondWithJSON(w, http.StatusOK, session)
}

// SendMessage appends a user message and schedules the partner reply
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondWithError(w, http.StatusBadRequest, "Missing chat ID")
		return
	}

	type sendRequest struct {
		Text string `json:"text"`
	}

	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Text == "" {
		respondWithError(w, http.StatusBadRequest, "Missing message text")
		return
	}

	msg, err := h.engine.SendMessage(r.Context(), id, req.Text)
	if err != nil {
		if errors.Is(err, chat.ErrSessionNotFound) {
			respondWithError(w, http.StatusNotFound, "Chat not found")
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to send message")
		return
	}

	respondWithJSON(w, http.StatusCreated, msg)
}
