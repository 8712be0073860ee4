package handlers

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/paarshan4800/fin-advisor/internal/api/middleware"
	"github.com/paarshan4800/fin-advisor/internal/domain"
	"github.com/paarshan4800/fin-advisor/internal/ledger"
)

// UsersHandler lists the account holders a client can pick from.
type UsersHandler struct {
	store ledger.Store
	log   zerolog.Logger
}

// NewUsersHandler creates a new users handler.
func NewUsersHandler(store ledger.Store, log zerolog.Logger) *UsersHandler {
	return &UsersHandler{
		store: store,
		log:   log,
	}
}

// UserList is the body of GET /api/users/all.
type UserList struct {
	Items        []domain.User `json:"items"`
	TotalRecords int           `json:"total_records"`
}

// ListUsers handles GET /api/users/all
func (h *UsersHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.Users(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list users")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list users", "")
		return
	}
	middleware.WriteSuccess(w, http.StatusOK, UserList{Items: users, TotalRecords: len(users)})
}
