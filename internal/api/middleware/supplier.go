package middleware

import (
	"net/http"
	"strings"

	"github.com/quarterfold/suppliersync/internal/api/supplierctx"
)

const SupplierHeaderKey = "X-Supplier-ID"

type SupplierMiddleware struct {
	Env  string // "dev" enables header override
	Next http.Handler
}

func (m SupplierMiddleware) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if m.Next == nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	supplierID := supplierctx.DefaultSupplierID

	// Only allow header override in dev
	if strings.EqualFold(strings.TrimSpace(m.Env), "dev") {
		raw := strings.TrimSpace(r.Header.Get(SupplierHeaderKey))
		if raw != "" {
			supplierID = raw
		}
	}

	ctx := supplierctx.WithSupplierID(r.Context(), supplierID)
	m.Next.ServeHTTP(w, r.WithContext(ctx))
}
