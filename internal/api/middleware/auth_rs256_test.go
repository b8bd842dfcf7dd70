package middleware

import (
	"crypto/rand"
	"crypto/rsa"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/quarterfold/suppliersync/internal/api/supplierctx"
)

func signRS256(t *testing.T, priv *rsa.PrivateKey, supplierID string, ttl time.Duration) string {
	t.Helper()

	now := time.Now().UTC()

	claims := jwt.MapClaims{
		"supplier_id": supplierID,
		"iss":         "suppliersync",
		"sub":         "test-client",
		"iat":         now.Unix(),
		"exp":         now.Add(ttl).Unix(),
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	s, err := tok.SignedString(priv)
	if err != nil {
		t.Fatalf("sign token failed: %v", err)
	}

	return s
}

func TestAuthMiddleware_Prod_RejectsMissingToken(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("keygen: %v", err)
	}

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("next should not be called when token is missing")
	})

	h := AuthMiddleware{
		Env:       "prod",
		PublicKey: &priv.PublicKey,
		Next:      next,
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/batches", nil)
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestAuthMiddleware_Prod_RejectsInvalidToken(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("keygen: %v", err)
	}

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("next should not be called when token is invalid")
	})

	h := AuthMiddleware{
		Env:       "prod",
		PublicKey: &priv.PublicKey,
		Next:      next,
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/batches", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestAuthMiddleware_Prod_AcceptsValidTokenAndSetsSupplier(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("keygen: %v", err)
	}

	var gotSupplier string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSupplier = supplierctx.SupplierID(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	h := AuthMiddleware{
		Env:       "prod",
		PublicKey: &priv.PublicKey,
		Next:      next,
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/batches", nil)
	req.Header.Set("Authorization", "Bearer "+signRS256(t, priv, "supplier-42", 10*time.Minute))
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if gotSupplier != "supplier-42" {
		t.Fatalf("expected supplier-42 in context, got %q", gotSupplier)
	}
}

func TestAuthMiddleware_Dev_AllowsMissingTokenWithHeaderOverride(t *testing.T) {
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})

	chain := SupplierMiddleware{
		Env: "dev",
		Next: AuthMiddleware{
			Env:  "dev",
			Next: next,
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/batches", nil)
	req.Header.Set(SupplierHeaderKey, "supplier-local")
	rec := httptest.NewRecorder()

	chain.ServeHTTP(rec, req)

	if !called {
		t.Fatalf("expected dev request to pass without token")
	}
}

func TestAuthMiddleware_Prod_RejectsExpiredToken(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("keygen: %v", err)
	}

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("next should not be called with an expired token")
	})

	h := AuthMiddleware{
		Env:       "prod",
		PublicKey: &priv.PublicKey,
		Next:      next,
	}

	// Expired well beyond the parser's leeway.
	req := httptest.NewRequest(http.MethodGet, "/v1/batches", nil)
	req.Header.Set("Authorization", "Bearer "+signRS256(t, priv, "supplier-42", -10*time.Minute))
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", rec.Code, rec.Body.String())
	}
}
