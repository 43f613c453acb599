package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signToken(t *testing.T, secret []byte, claims UnitClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func TestParseIngestTokenRoundTrip(t *testing.T) {
	secret := []byte("test-secret")
	token := signToken(t, secret, UnitClaims{
		UnitID: "unit-1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	claims, err := ParseIngestToken(token, secret)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UnitID != "unit-1" {
		t.Fatalf("expected unit-1, got %q", claims.UnitID)
	}
}

func TestParseIngestTokenRejectsWrongSecret(t *testing.T) {
	token := signToken(t, []byte("right"), UnitClaims{UnitID: "unit-1"})
	if _, err := ParseIngestToken(token, []byte("wrong")); err == nil {
		t.Fatal("expected signature failure")
	}
}

func TestParseIngestTokenRejectsExpired(t *testing.T) {
	secret := []byte("test-secret")
	token := signToken(t, secret, UnitClaims{
		UnitID: "unit-1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})
	if _, err := ParseIngestToken(token, secret); err == nil {
		t.Fatal("expected expiry failure")
	}
}

func TestParseIngestTokenRequiresUnitID(t *testing.T) {
	secret := []byte("test-secret")
	token := signToken(t, secret, UnitClaims{})
	if _, err := ParseIngestToken(token, secret); err == nil {
		t.Fatal("expected missing unit_id failure")
	}
}

func TestMiddlewarePassesValidToken(t *testing.T) {
	secret := []byte("test-secret")
	var gotUnit string
	wrapped := NewIngestAuthMiddleware(secret).Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUnit = UnitIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodPost, "/ingest/telemetry", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, secret, UnitClaims{UnitID: "unit-1"}))
	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if gotUnit != "unit-1" {
		t.Fatalf("expected unit id in context, got %q", gotUnit)
	}
}

func TestMiddlewareRejectsMissingToken(t *testing.T) {
	wrapped := NewIngestAuthMiddleware([]byte("test-secret")).Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run without a token")
	}))

	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ingest/telemetry", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestMiddlewareNoOpWithoutSecret(t *testing.T) {
	called := false
	wrapped := NewIngestAuthMiddleware(nil).Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ingest/telemetry", nil))
	if !called || rec.Code != http.StatusOK {
		t.Fatalf("expected pass-through, called=%t code=%d", called, rec.Code)
	}
}
