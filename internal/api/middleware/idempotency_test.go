package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/quarterfold/suppliersync/internal/api/supplierctx"
	"github.com/quarterfold/suppliersync/internal/state"
)

func TestIdempotencyMiddleware_CachesResponseViaStateStore(t *testing.T) {
	store := state.NewMemoryStore()

	calls := 0
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id":"batch_x","status":"SUCCESS"}`))
	})

	mw := IdempotencyMiddleware{
		Store: store,
		Next:  next,
	}

	req1 := httptest.NewRequest(http.MethodPost, "/v1/products/batch", bytes.NewBufferString(`{}`))
	req1 = req1.WithContext(supplierctx.WithSupplierID(req1.Context(), "supplier-a"))
	req1.Header.Set(IdempotencyHeaderKey, "abc123")
	rec1 := httptest.NewRecorder()
	mw.ServeHTTP(rec1, req1)

	req2 := httptest.NewRequest(http.MethodPost, "/v1/products/batch", bytes.NewBufferString(`{}`))
	req2 = req2.WithContext(supplierctx.WithSupplierID(req2.Context(), "supplier-a"))
	req2.Header.Set(IdempotencyHeaderKey, "abc123")
	rec2 := httptest.NewRecorder()
	mw.ServeHTTP(rec2, req2)

	if calls != 1 {
		t.Fatalf("expected underlying handler called once, got %d", calls)
	}
	if rec1.Body.String() != rec2.Body.String() {
		t.Fatalf("expected cached response match")
	}
}

func TestIdempotencyMiddleware_SkipsWithoutHeader(t *testing.T) {
	store := state.NewMemoryStore()

	calls := 0
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	})

	mw := IdempotencyMiddleware{Store: store, Next: next}

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/v1/products/batch", bytes.NewBufferString(`{}`))
		req = req.WithContext(supplierctx.WithSupplierID(req.Context(), "supplier-a"))
		rec := httptest.NewRecorder()
		mw.ServeHTTP(rec, req)
	}

	if calls != 2 {
		t.Fatalf("expected handler called twice without Idempotency-Key, got %d", calls)
	}
}

func TestIdempotency_IsSupplierScoped_SameKeyDifferentSupplierDoesNotShareCache(t *testing.T) {
	store := state.NewMemoryStore()

	calls := 0
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	mw := IdempotencyMiddleware{Store: store, Next: next}

	for _, supplierID := range []string{"supplier-a", "supplier-b"} {
		req := httptest.NewRequest(http.MethodPost, "/v1/products/batch", bytes.NewBufferString(`{}`))
		req = req.WithContext(supplierctx.WithSupplierID(req.Context(), supplierID))
		req.Header.Set(IdempotencyHeaderKey, "shared-key")
		rec := httptest.NewRecorder()
		mw.ServeHTTP(rec, req)
	}

	if calls != 2 {
		t.Fatalf("expected one call per supplier, got %d", calls)
	}
}
