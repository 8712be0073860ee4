package handlers

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/paarshan4800/fin-advisor/internal/api/middleware"
	"github.com/paarshan4800/fin-advisor/internal/domain"
	"github.com/paarshan4800/fin-advisor/internal/session"
)

// SessionStore exposes and forgets conversation history.
type SessionStore interface {
	History(sessionID string) []domain.Interaction
	Clear(sessionID string) bool
}

// MemoryHandler handles conversation memory endpoints.
type MemoryHandler struct {
	sessions SessionStore
	log      zerolog.Logger
}

// NewMemoryHandler creates a new memory handler.
func NewMemoryHandler(sessions SessionStore, log zerolog.Logger) *MemoryHandler {
	return &MemoryHandler{
		sessions: sessions,
		log:      log,
	}
}

// GetMemory handles GET /api/memory/{session_id}
func (h *MemoryHandler) GetMemory(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("session_id")
	history := h.sessions.History(session.Key(middleware.IdentityFrom(r.Context()), id))
	if history == nil {
		history = []domain.Interaction{}
	}

	middleware.WriteSuccess(w, http.StatusOK, map[string]interface{}{
		"session_id":   id,
		"interactions": history,
		"count":        len(history),
	})
}

// ClearMemory handles DELETE /api/memory/{session_id}
func (h *MemoryHandler) ClearMemory(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("session_id")
	if !h.sessions.Clear(session.Key(middleware.IdentityFrom(r.Context()), id)) {
		middleware.WriteError(w, http.StatusNotFound, "Session not found", id)
		return
	}

	h.log.Info().Str("session_id", id).Msg("Session memory cleared")
	middleware.WriteSuccess(w, http.StatusOK, map[string]string{
		"session_id": id,
		"status":     "cleared",
	})
}
