package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/paarshan4800/fin-advisor/internal/logger"
)

// Chain applies mws so the first one is the outermost.
func Chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// Logger adds structured logging to HTTP requests and places a request-scoped
// logger in the context.
func Logger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			ctx := logger.WithContext(r.Context(), log)

			next.ServeHTTP(wrapped, r.WithContext(ctx))

			log.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", wrapped.statusCode).
				Dur("duration", time.Since(start)).
				Str("remote_addr", r.RemoteAddr).
				Str("request_id", w.Header().Get(requestIDHeader)).
				Msg("HTTP request")
		})
	}
}

// CORS allows any origin and answers preflight requests.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-User-ID, X-Request-ID")
		w.Header().Set("Access-Control-Max-Age", "3600")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Recovery turns a handler panic into a 500 envelope.
func Recovery(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.Error().
						Interface("error", err).
						Str("method", r.Method).
						Str("path", r.URL.Path).
						Msg("Panic recovered")

					WriteError(w, http.StatusInternalServerError, "Internal server error", "An unexpected error occurred")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

const requestIDHeader = "X-Request-ID"

// RequestID adds a unique request ID to the context and the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		w.Header().Set(requestIDHeader, requestID)
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		log := logger.FromContext(ctx).With().Str("request_id", requestID).Logger()
		ctx = logger.WithContext(ctx, log)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// responseWriter records the status written by the handler.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Context keys.
type contextKey string

const (
	requestIDKey contextKey = "requestID"
	identityKey  contextKey = "identity"
)

// RequestIDFrom returns the request ID set by RequestID.
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// IdentityFrom returns the account holder authenticated by Auth.
func IdentityFrom(ctx context.Context) string {
	id, _ := ctx.Value(identityKey).(string)
	return id
}

// WithIdentity stores the authenticated account holder in ctx.
func WithIdentity(ctx context.Context, identity string) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}
