package middleware

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var nop = zerolog.New(io.Discard)

func echoIdentity() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WriteSuccess(w, http.StatusOK, map[string]string{
			"identity":   IdentityFrom(r.Context()),
			"request_id": RequestIDFrom(r.Context()),
		})
	})
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestAuth_Header(t *testing.T) {
	h := Auth("", nop)(echoIdentity())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(UserIDHeader, "alice")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice", decode(t, rec).Data.(map[string]interface{})["identity"])

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	env := decode(t, rec)
	assert.False(t, env.Success)
	assert.Equal(t, "Unauthorized", env.Error.Message)
}

func TestAuth_JWT(t *testing.T) {
	const secret = "s3cret"
	good, err := SignToken(secret, "alice")
	require.NoError(t, err)
	forged, err := SignToken("other", "mallory")
	require.NoError(t, err)
	noSub, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{}).SignedString([]byte(secret))
	require.NoError(t, err)
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "alice",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	}).SignedString([]byte(secret))
	require.NoError(t, err)

	tests := []struct {
		name     string
		header   string
		userID   string
		wantCode int
	}{
		{"valid token", "Bearer " + good, "", http.StatusOK},
		{"wrong secret", "Bearer " + forged, "", http.StatusUnauthorized},
		{"no subject", "Bearer " + noSub, "", http.StatusUnauthorized},
		{"expired", "Bearer " + expired, "", http.StatusUnauthorized},
		{"header ignored when secret set", "", "alice", http.StatusUnauthorized},
		{"not bearer", "Basic abc", "", http.StatusUnauthorized},
	}

	h := Auth(secret, nop)(echoIdentity())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.userID != "" {
				req.Header.Set(UserIDHeader, tt.userID)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
}

func TestRequestID(t *testing.T) {
	h := RequestID(echoIdentity())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "req-1", rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "req-1", decode(t, rec).Data.(map[string]interface{})["request_id"])

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, rec.Header().Get("X-Request-ID"), 36)
}

func TestRecovery(t *testing.T) {
	h := Recovery(nop)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":{"message":"Internal server error","details":"An unexpected error occurred"}}`, rec.Body.String())
}

func TestCORS_Preflight(t *testing.T) {
	called := false
	h := CORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/query", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.False(t, called)
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(1, 2, nop)
	h := rl.Middleware(echoIdentity())

	send := func(user string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(WithIdentity(req.Context(), user))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send("alice"))
	assert.Equal(t, http.StatusOK, send("alice"))
	assert.Equal(t, http.StatusTooManyRequests, send("alice"))
	assert.Equal(t, http.StatusOK, send("bob"))
}

func TestRateLimiter_IgnoresUserHeader(t *testing.T) {
	rl := NewRateLimiter(1, 1, nop)
	h := rl.Middleware(echoIdentity())

	allowed := 0
	for i := 0; i < 20; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:4000"
		req.Header.Set(UserIDHeader, fmt.Sprintf("user-%d", i))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code == http.StatusOK {
			allowed++
		}
	}
	assert.Equal(t, 1, allowed)
	assert.Len(t, rl.limiters, 1)
}

func TestRateLimiter_AfterAuth(t *testing.T) {
	const secret = "s3cret"
	rl := NewRateLimiter(1, 1, nop)
	h := Auth(secret, nop)(rl.Middleware(echoIdentity()))

	send := func(identity, remote string) int {
		token, err := SignToken(secret, identity)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = remote
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set(UserIDHeader, "spoofed")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send("alice", "10.0.0.1:1"))
	assert.Equal(t, http.StatusTooManyRequests, send("alice", "10.0.0.2:1"))
	assert.Equal(t, http.StatusOK, send("bob", "10.0.0.1:1"))
}

func TestRateLimiter_DropsIdleClients(t *testing.T) {
	now := time.Now()
	rl := NewRateLimiter(1, 1, nop)
	rl.now = func() time.Time { return now }

	rl.limiter("a")
	rl.limiter("b")
	require.Len(t, rl.limiters, 2)

	now = now.Add(11 * time.Minute)
	rl.limiter("b")
	assert.Len(t, rl.limiters, 1)
}

func TestChain_Order(t *testing.T) {
	var order []string
	mark := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	h := Chain(http.NotFoundHandler(), mark("outer"), mark("inner"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, []string{"outer", "inner"}, order)
}
