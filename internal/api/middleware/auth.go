package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

// UserIDHeader names the caller directly when no signing secret is configured.
const UserIDHeader = "X-User-ID"

var errNoToken = errors.New("missing bearer token")

// Auth resolves the caller identity. With a secret it requires an HS256
// bearer token and takes the identity from the sub claim; without one it
// trusts the X-User-ID header. Requests without an identity get a 401.
func Auth(secret string, log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var (
				identity string
				err      error
			)
			if secret == "" {
				identity = strings.TrimSpace(r.Header.Get(UserIDHeader))
				if identity == "" {
					err = fmt.Errorf("missing %s header", UserIDHeader)
				}
			} else {
				identity, err = subject(r.Header.Get("Authorization"), secret)
			}
			if err != nil {
				log.Warn().Err(err).Str("path", r.URL.Path).Msg("Unauthenticated request")
				WriteError(w, http.StatusUnauthorized, "Unauthorized", err.Error())
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

func subject(header, secret string) (string, error) {
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(raw) == "" {
		return "", errNoToken
	}

	token, err := jwt.ParseWithClaims(strings.TrimSpace(raw), &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", fmt.Errorf("invalid token: %w", err)
	}

	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", errors.New("token has no subject")
	}
	return sub, nil
}

// SignToken issues an HS256 token for identity, as printed by `fin-advisor token`.
func SignToken(secret, identity string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: identity})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("SignToken: %w", err)
	}
	return signed, nil
}
