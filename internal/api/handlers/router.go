package handlers

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/paarshan4800/fin-advisor/internal/api/middleware"
	"github.com/paarshan4800/fin-advisor/internal/ledger"
)

// RouterConfig holds what the HTTP surface needs.
type RouterConfig struct {
	Agent     Answerer
	Sessions  SessionStore
	Ledger    ledger.Store
	JWTSecret string
	RateLimit float64
	RateBurst int
}

// NewRouter registers every endpoint behind the middleware chain. The index
// and health endpoints skip authentication. Authenticated routes are rate
// limited per verified identity, the rest per client IP.
func NewRouter(cfg RouterConfig, log zerolog.Logger) http.Handler {
	query := NewQueryHandler(cfg.Agent, log)
	memory := NewMemoryHandler(cfg.Sessions, log)
	transactions := NewTransactionsHandler(cfg.Ledger, log)
	users := NewUsersHandler(cfg.Ledger, log)

	rate := cfg.RateLimit
	if rate <= 0 {
		rate = 5
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 10
	}
	limit := middleware.NewRateLimiter(rate, burst, log).Middleware
	auth := middleware.Auth(cfg.JWTSecret, log)
	public := func(h http.HandlerFunc) http.Handler { return limit(h) }
	private := func(h http.HandlerFunc) http.Handler { return auth(limit(h)) }

	mux := http.NewServeMux()
	mux.Handle("GET /{$}", public(Index))
	mux.Handle("GET /api/health", public(Health))
	mux.Handle("POST /api/query", private(query.Ask))
	mux.Handle("GET /api/memory/{session_id}", private(memory.GetMemory))
	mux.Handle("DELETE /api/memory/{session_id}", private(memory.ClearMemory))
	mux.Handle("POST /api/transactions/get", private(transactions.ListTransactions))
	mux.Handle("GET /api/users/all", private(users.ListUsers))
	mux.Handle("/", public(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, http.StatusNotFound, "Endpoint not found", "The requested resource was not found on this server")
	}))

	return middleware.Chain(mux,
		middleware.Recovery(log),
		middleware.Logger(log),
		middleware.RequestID,
		middleware.CORS,
	)
}
