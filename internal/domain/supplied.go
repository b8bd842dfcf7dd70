package domain

import "time"

// RecordState is the lifecycle state shared by canonical and downstream
// records. Absence from a batch retires a record to DISABLED; nothing is
// ever deleted.
type RecordState string

const (
	StateEnabled  RecordState = "ENABLED"
	StateDisabled RecordState = "DISABLED"
)

type InventoryPolicy string

const (
	// InventoryPolicyDeny tracks a finite quantity.
	InventoryPolicyDeny InventoryPolicy = "deny"
	// InventoryPolicyContinue means unlimited stock.
	InventoryPolicyContinue InventoryPolicy = "continue"
)

// SuppliedVariant is the canonical mirror of one supplier-submitted variant.
// ID and SuppliedProductID are assigned by the store; GeneratedSKU is
// assigned lazily after the first upsert.
type SuppliedVariant struct {
	ID                string
	SuppliedProductID string

	// VariantID and ProductID are the supplier's external keys. VariantID is
	// the stable matching key under the immutable-variant-key strategy.
	VariantID string
	ProductID string

	Name         string
	SKU          string
	GeneratedSKU string

	Option1 *string
	Option2 *string
	Option3 *string

	Price          *float64
	CompareAtPrice *float64
	WholesalePrice *float64

	InventoryQuantity *int
	InventoryPolicy   InventoryPolicy

	ImageID string
	Images  []Image

	State     RecordState
	CheckedOn time.Time
}

// SuppliedProduct is the canonical mirror of one supplier-submitted product,
// keyed by (ProductID, SupplierID).
type SuppliedProduct struct {
	ID         string
	SupplierID string
	ProductID  string

	Name        string
	Description string
	Brand       string
	Category    string
	ProductType string

	Tags    []string
	Options []string
	Option1 *string
	Option2 *string
	Option3 *string

	Images []Image

	State     RecordState
	CheckedOn time.Time

	Variants []SuppliedVariant
}

// OptionsEqual reports whether two variants occupy the same option tuple.
func OptionsEqual(a, b SuppliedVariant) bool {
	return strPtrEqual(a.Option1, b.Option1) &&
		strPtrEqual(a.Option2, b.Option2) &&
		strPtrEqual(a.Option3, b.Option3)
}

// OptionsCompatible reports whether existing could be the same variant as
// incoming: every option the existing variant declares must match. Unset
// options on the existing side act as wildcards, mirroring how sparse
// canonical rows are probed for a counterpart.
func OptionsCompatible(existing, incoming SuppliedVariant) bool {
	if existing.Option1 != nil && !strPtrEqual(existing.Option1, incoming.Option1) {
		return false
	}
	if existing.Option2 != nil && !strPtrEqual(existing.Option2, incoming.Option2) {
		return false
	}
	if existing.Option3 != nil && !strPtrEqual(existing.Option3, incoming.Option3) {
		return false
	}
	return true
}

func strPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
