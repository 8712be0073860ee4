package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/paarshan4800/fin-advisor/internal/api/middleware"
	"github.com/paarshan4800/fin-advisor/internal/logger"
	"github.com/paarshan4800/fin-advisor/internal/pipeline"
	"github.com/paarshan4800/fin-advisor/internal/session"
)

// Answerer answers one natural-language question.
type Answerer interface {
	Answer(ctx context.Context, req pipeline.Request) pipeline.Response
}

// QueryHandler handles question endpoints.
type QueryHandler struct {
	agent Answerer
	log   zerolog.Logger
}

// NewQueryHandler creates a new query handler.
func NewQueryHandler(agent Answerer, log zerolog.Logger) *QueryHandler {
	return &QueryHandler{
		agent: agent,
		log:   log,
	}
}

// Ask handles POST /api/query
func (h *QueryHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query     string `json:"query"`
		SessionID string `json:"session_id"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Debug().Err(err).Msg("Rejected query body")
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		middleware.WriteError(w, http.StatusBadRequest, "Query is required", "")
		return
	}

	identity := middleware.IdentityFrom(r.Context())
	log := logger.WithFields(logger.FromContext(r.Context()), map[string]interface{}{
		"identity":   identity,
		"session_id": req.SessionID,
	})
	ctx := logger.WithContext(r.Context(), log)

	resp := h.agent.Answer(ctx, pipeline.Request{
		Query:     req.Query,
		SessionID: session.Key(identity, req.SessionID),
		Identity:  identity,
	})

	if resp.Error != nil {
		log.Warn().
			Str("kind", string(resp.Error.Kind)).
			Msg("Query answered with error artifact")
	}

	middleware.WriteSuccess(w, http.StatusOK, resp)
}
