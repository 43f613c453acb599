package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// UnitClaims are the JWT claims carried by a unit's ingest token.
type UnitClaims struct {
	UnitID string `json:"unit_id"`
	jwt.RegisteredClaims
}

// ParseIngestToken validates an ingest JWT and returns its claims.
func ParseIngestToken(tokenString string, secret []byte) (*UnitClaims, error) {
	if tokenString == "" {
		return nil, errors.New("auth: empty token")
	}
	if len(secret) == 0 {
		return nil, errors.New("auth: empty secret")
	}

	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	claims := &UnitClaims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("auth: invalid signing method")
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("auth: invalid token")
	}
	if claims.UnitID == "" {
		return nil, errors.New("auth: missing unit_id")
	}
	if claims.ExpiresAt != nil && time.Now().After(claims.ExpiresAt.Time) {
		return nil, errors.New("auth: token expired")
	}
	return claims, nil
}

// IngestAuthMiddleware enforces bearer-token auth on the ingest endpoint.
// With an empty secret the middleware is a no-op, which keeps local
// development and tests free of token plumbing.
type IngestAuthMiddleware struct {
	secret []byte
}

// NewIngestAuthMiddleware constructs the middleware.
func NewIngestAuthMiddleware(secret []byte) *IngestAuthMiddleware {
	return &IngestAuthMiddleware{secret: secret}
}

// Wrap enforces token validation before calling next.
func (m *IngestAuthMiddleware) Wrap(next http.Handler) http.Handler {
	if m == nil || len(m.secret) == 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}
		claims, err := ParseIngestToken(strings.TrimPrefix(header, "Bearer "), m.secret)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUnitID(r.Context(), claims.UnitID)))
	})
}
