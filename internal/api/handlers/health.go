package handlers

import (
	"net/http"

	"github.com/paarshan4800/fin-advisor/internal/api/middleware"
)

// Version is reported by the index and health endpoints.
const Version = "1.0.0"

// Health handles GET /api/health
func Health(w http.ResponseWriter, r *http.Request) {
	middleware.WriteSuccess(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": Version,
	})
}

// Index handles GET /
func Index(w http.ResponseWriter, r *http.Request) {
	middleware.WriteSuccess(w, http.StatusOK, map[string]interface{}{
		"service": "Personal Finance AI Assistant",
		"version": Version,
		"status":  "running",
		"endpoints": map[string]string{
			"query":        "/api/query",
			"health":       "/api/health",
			"memory":       "/api/memory/{session_id}",
			"transactions": "/api/transactions/get",
			"users":        "/api/users/all",
		},
	})
}
