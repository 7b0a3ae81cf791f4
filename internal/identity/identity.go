// Package identity resolves the caller's user id from a bearer credential.
// Identity itself is owned by an external provider; this package only
// verifies what the provider issued.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"creatorfin/internal/core"
)

type ctxKey struct{}

// Verifier turns a credential into a user id.
type Verifier interface {
	Verify(ctx context.Context, credential string) (string, error)
}

// JWTVerifier accepts HMAC-signed tokens. The user id is the "sub" claim,
// falling back to "user_id".
type JWTVerifier struct {
	secret []byte
	issuer string
}

func NewJWTVerifier(secret, issuer string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret), issuer: issuer}
}

func (v *JWTVerifier) Verify(_ context.Context, credential string) (string, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(credential, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return "", fmt.Errorf("%w: invalid token", core.ErrUnauthenticated)
	}

	sub, _ := claims.GetSubject()
	if sub == "" {
		sub, _ = claims["user_id"].(string)
	}
	if sub == "" {
		return "", fmt.Errorf("%w: token has no subject", core.ErrUnauthenticated)
	}
	return sub, nil
}

// IssueToken signs an HS256 token for userID. Used by local tooling and tests.
func IssueToken(secret, issuer, userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// BearerVerifier treats the bearer credential itself as the user id.
// Only suitable for local development behind a trusted proxy.
type BearerVerifier struct{}

func (BearerVerifier) Verify(_ context.Context, credential string) (string, error) {
	if credential == "" {
		return "", core.ErrUnauthenticated
	}
	return credential, nil
}

// WithUserID stores the authenticated user id in ctx.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, userID)
}

// UserID returns the authenticated user id or core.ErrUnauthenticated.
func UserID(ctx context.Context) (string, error) {
	uid, ok := ctx.Value(ctxKey{}).(string)
	if !ok || uid == "" {
		return "", core.ErrUnauthenticated
	}
	return uid, nil
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) < 7 || !strings.EqualFold(h[:7], "Bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}

// Require rejects requests without a verifiable bearer token.
func Require(v Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				unauthorized(w, "missing auth token")
				return
			}

			uid, err := v.Verify(r.Context(), token)
			if err != nil {
				slog.DebugContext(r.Context(), "Rejected bearer token", "error", err, "path", r.URL.Path)
				if !errors.Is(err, core.ErrUnauthenticated) {
					slog.WarnContext(r.Context(), "Token verification failed", "error", err)
				}
				unauthorized(w, "invalid auth token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), uid)))
		})
	}
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
