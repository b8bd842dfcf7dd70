package supplierctx

import "context"

type ctxKeySupplierID struct{}

// DefaultSupplierID is the fallback identity used for local development when
// neither a token nor an explicit header names a supplier.
const DefaultSupplierID = "supplier-dev"

func WithSupplierID(ctx context.Context, supplierID string) context.Context {
	return context.WithValue(ctx, ctxKeySupplierID{}, supplierID)
}

func SupplierID(ctx context.Context) string {
	v := ctx.Value(ctxKeySupplierID{})
	if v == nil {
		return DefaultSupplierID
	}

	if id, ok := v.(string); ok && id != "" {
		return id
	}

	return DefaultSupplierID
}
