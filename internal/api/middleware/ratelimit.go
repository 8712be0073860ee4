package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// RateLimiter keeps one token bucket per client. Mount it after Auth so
// authenticated callers are keyed by their verified identity.
type RateLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*limiterEntry
	rate      rate.Limit
	burst     int
	idle      time.Duration
	lastPrune time.Time
	now       func() time.Time
	log       zerolog.Logger
}

type limiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// NewRateLimiter allows perSecond requests per client with the given burst.
func NewRateLimiter(perSecond float64, burst int, log zerolog.Logger) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*limiterEntry),
		rate:     rate.Limit(perSecond),
		burst:    burst,
		idle:     10 * time.Minute,
		now:      time.Now,
		log:      log,
	}
}

// limiter returns the bucket for key and drops buckets idle for too long.
func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastPrune) > rl.idle/2 {
		for k, e := range rl.limiters {
			if now.Sub(e.lastAccess) > rl.idle {
				delete(rl.limiters, k)
			}
		}
		rl.lastPrune = now
	}

	e, ok := rl.limiters[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[key] = e
	}
	e.lastAccess = now
	return e.limiter
}

// clientKey identifies a caller by the identity Auth stored in the context,
// else by remote IP. Request headers are never trusted here.
func clientKey(r *http.Request) string {
	if id := IdentityFrom(r.Context()); id != "" {
		return "user:" + id
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}

// Middleware rejects requests over the limit with 429.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientKey(r)
		if !rl.limiter(key).Allow() {
			rl.log.Warn().Str("client", key).Str("path", r.URL.Path).Msg("Rate limit exceeded")
			w.Header().Set("Retry-After", "1")
			WriteError(w, http.StatusTooManyRequests, "Too many requests", "Rate limit exceeded, retry shortly")
			return
		}
		next.ServeHTTP(w, r)
	})
}
