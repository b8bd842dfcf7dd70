package middleware

import (
	"crypto/rsa"
	"net/http"
	"strings"

	"github.com/quarterfold/suppliersync/internal/api/auth"
	"github.com/quarterfold/suppliersync/internal/api/supplierctx"
)

type AuthMiddleware struct {
	Env       string
	PublicKey *rsa.PublicKey
	Next      http.Handler
}

func (m AuthMiddleware) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if m.Next == nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	// In dev, if a supplier was explicitly set via X-Supplier-ID
	// (SupplierMiddleware), allow it as a fallback to avoid blocking local
	// testing tooling.
	if strings.EqualFold(strings.TrimSpace(m.Env), "dev") {
		if supplierctx.SupplierID(r.Context()) != supplierctx.DefaultSupplierID || strings.TrimSpace(r.Header.Get("Authorization")) == "" {
			m.Next.ServeHTTP(w, r)
			return
		}
	}

	// In non-dev (or if Authorization is present in dev), require a valid Bearer token.
	authz := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(authz, "Bearer ") {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"unauthorized","message":"missing bearer token"}`))
		return
	}

	tokenString := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer "))
	if tokenString == "" {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"unauthorized","message":"empty bearer token"}`))
		return
	}

	claims, err := auth.ParseAndValidateRS256(tokenString, m.PublicKey)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"unauthorized","message":"invalid token"}`))
		return
	}

	ctx := supplierctx.WithSupplierID(r.Context(), claims.SupplierID)
	m.Next.ServeHTTP(w, r.WithContext(ctx))
}
