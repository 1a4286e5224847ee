package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/wolfman30/pharmacy-intake-bridge/pkg/logging"
)

func runAdmin(t *testing.T, secret, authHeader string) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/admin/consultations/call_1", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	called := false
	AdminJWT(secret, logging.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		claims, ok := AdminClaimsFromContext(r.Context())
		if !ok || claims.Subject != "pharmacist-1" {
			t.Fatalf("expected admin claims in context, got %+v", claims)
		}
		w.WriteHeader(http.StatusOK)
	})).ServeHTTP(rec, req)
	return rec, called
}

func TestAdminJWTRejects(t *testing.T) {
	expired := signedAdminToken(t, "secret", jwt.SigningMethodHS256, time.Now().Add(-time.Minute))
	tests := []struct {
		name   string
		secret string
		header string
	}{
		{"auth disabled", "", "Bearer " + signedAdminToken(t, "secret", jwt.SigningMethodHS256, time.Now().Add(time.Minute))},
		{"missing header", "secret", ""},
		{"wrong scheme", "secret", "Basic abc"},
		{"wrong secret", "secret", "Bearer " + signedAdminToken(t, "wrong", jwt.SigningMethodHS256, time.Now().Add(time.Minute))},
		{"wrong algorithm", "secret", "Bearer " + signedAdminToken(t, "secret", jwt.SigningMethodHS512, time.Now().Add(time.Minute))},
		{"expired", "secret", "Bearer " + expired},
		{"no expiry", "secret", "Bearer " + unboundedToken(t, "secret")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, called := runAdmin(t, tt.secret, tt.header)
			if called {
				t.Fatal("handler should not be called")
			}
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
			}
		})
	}
}

func TestAdminJWTValidToken(t *testing.T) {
	rec, called := runAdmin(t, "secret", "bearer "+signedAdminToken(t, "secret", jwt.SigningMethodHS256, time.Now().Add(5*time.Minute)))
	if !called {
		t.Fatalf("expected handler to be called")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
}

func signedAdminToken(t *testing.T, secret string, method jwt.SigningMethod, expires time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   "pharmacist-1",
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	signed, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func unboundedToken(t *testing.T, secret string) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "pharmacist-1"}).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}
