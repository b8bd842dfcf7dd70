package state

import (
	"context"
	"time"

	"github.com/quarterfold/suppliersync/internal/domain"
)

// BatchRecord is one submitted batch as persisted. Content is the original
// submission payload (JSON), Result the serialized processing report.
type BatchRecord struct {
	ID         string
	SupplierID string
	Type       string
	Status     domain.BatchStatus
	Name       string
	Date       time.Time
	RunDate    *time.Time
	Content    []byte
	Result     []byte
	CreatedAt  time.Time
}

// BatchUpdate is a sparse batch mutation. Nil fields are left untouched.
type BatchUpdate struct {
	Status  *domain.BatchStatus
	Result  []byte
	RunDate *time.Time
}

// BatchQuery filters and pages ListBatches.
type BatchQuery struct {
	PageIndex int
	PageSize  int

	Name        string
	Status      domain.BatchStatus
	RunEarliest *time.Time
	RunLatest   *time.Time
}

type BatchPage struct {
	Count int           `json:"count"`
	Rows  []BatchRecord `json:"rows"`
}

// VariantLookup identifies canonical variants by exactly one external key.
// SKU matches either the supplier sku or the generated fallback sku.
type VariantLookup struct {
	SKU        string
	VariantKey string
}

// VariantMatch pairs a matched canonical variant with its owning product, so
// callers can tell a same-supplier match from a foreign one.
type VariantMatch struct {
	Variant    domain.SuppliedVariant
	SupplierID string
}

// ImportedProductUpdate is a sparse downstream product mutation. Pointer
// fields overwrite when non-nil; Clear* flags null a column out.
type ImportedProductUpdate struct {
	State           *domain.RecordState
	Category        *string
	ProductType     *string
	Image           *string
	VendorImages    *string
	DisabledAt      *time.Time
	ClearDisabledAt bool
}

// ImportedVariantUpdate is a sparse downstream variant mutation.
type ImportedVariantUpdate struct {
	SKU             *string
	Price           *float64
	CompareAtPrice  *float64
	WholesalePrice  *float64
	Qty             *int
	TrackInventory  *bool
	State           *domain.RecordState
	Image           *string
	DisabledAt      *time.Time
	DisabledCode    *string
	DisabledEvent   *string
	ClearDisabledAt bool
}

// SuppliedVariantUpdate is a sparse canonical variant mutation used by the
// inventory adjustment path.
type SuppliedVariantUpdate struct {
	Price             *float64
	CompareAtPrice    *float64
	WholesalePrice    *float64
	InventoryQuantity *int
	InventoryPolicy   *domain.InventoryPolicy
}

// AdjustmentWrite is one resolved adjustment: a canonical variant update
// plus the downstream variant updates that mirror it. ApplyAdjustments
// commits a slice of these atomically.
type AdjustmentWrite struct {
	SuppliedVariantID string
	Canonical         SuppliedVariantUpdate

	Downstream []ImportedVariantWrite
}

type ImportedVariantWrite struct {
	ImportedVariantID string
	Update            ImportedVariantUpdate
}

type IdempotencyRecord struct {
	StatusCode int
	BodyJSON   []byte
	ExpiresAt  time.Time
	CreatedAt  time.Time
}

type Store interface {
	// Suppliers
	GetSupplier(ctx context.Context, supplierID string) (domain.Supplier, bool, error)
	PutSupplier(ctx context.Context, supplier domain.Supplier) error
	UpdateSupplierConfig(ctx context.Context, supplierID string, cfg domain.SupplierConfig) error

	// Batches
	CreateBatch(ctx context.Context, rec BatchRecord) error
	GetBatch(ctx context.Context, supplierID, batchID string) (BatchRecord, bool, error)
	UpdateBatch(ctx context.Context, batchID string, upd BatchUpdate) error
	ListBatches(ctx context.Context, supplierID string, q BatchQuery) (BatchPage, error)
	ListPendingBatches(ctx context.Context, limit int) ([]BatchRecord, error)
	HasNewerCompletedBatch(ctx context.Context, supplierID string, date time.Time) (bool, error)

	// Canonical supplied products
	GetSuppliedProduct(ctx context.Context, supplierID, productKey string) (domain.SuppliedProduct, bool, error)
	ListSuppliedProducts(ctx context.Context, supplierID string) ([]domain.SuppliedProduct, error)
	UpsertSuppliedProduct(ctx context.Context, supplierID string, product domain.SuppliedProduct) (domain.SuppliedProduct, error)
	DisableSuppliedProductsNotSeen(ctx context.Context, supplierID string, since time.Time) ([]domain.SuppliedProduct, error)
	DisableSuppliedVariants(ctx context.Context, variantIDs []string) error
	FindSuppliedVariants(ctx context.Context, lookup VariantLookup) ([]VariantMatch, error)
	FindVariantsByVariantKey(ctx context.Context, supplierID, variantKey string) ([]domain.SuppliedVariant, error)
	SetGeneratedSKU(ctx context.Context, suppliedVariantID, generatedSKU string) error
	HasGeneratedSKU(ctx context.Context, generatedSKU string) (bool, error)

	// Downstream imported products
	PutImportedProduct(ctx context.Context, product domain.ImportedProduct) error
	FindImportedProduct(ctx context.Context, supplierID, vendorProductID string, importedOnly bool) (domain.ImportedProduct, bool, error)
	FindImportedVariants(ctx context.Context, supplierID, vendorVariantID string) ([]domain.ImportedVariant, error)
	UpdateImportedProduct(ctx context.Context, importedProductID string, upd ImportedProductUpdate) error
	UpdateImportedVariant(ctx context.Context, importedVariantID string, upd ImportedVariantUpdate) error

	// Inventory adjustments
	ApplyAdjustments(ctx context.Context, writes []AdjustmentWrite) error

	// Idempotency cache
	GetIdempotency(ctx context.Context, supplierID, endpoint, idemKeyHash string) (IdempotencyRecord, bool, error)
	PutIdempotency(ctx context.Context, supplierID, endpoint, idemKeyHash string, rec IdempotencyRecord) error
}
