package domain

import "time"

// ImportedVariant is the downstream (marketplace-facing) projection of one
// variant. It links back to the canonical side through VendorVariantID, not
// a foreign key, because downstream materialization is selective.
type ImportedVariant struct {
	ID                string
	ImportedProductID string

	VendorVariantID string
	ItemID          string
	ExternalID      string

	SKU            string
	Price          *float64
	CompareAtPrice *float64
	WholesalePrice *float64

	Qty            int
	TrackInventory bool

	State         RecordState
	DisabledAt    *time.Time
	DisabledCode  string
	DisabledEvent string

	// Image is a JSON object string of the shape {"src": "..."} or empty.
	Image string
}

// ImportedProduct is the downstream projection of a supplied product that a
// merchant chose to import. Only rows with Imported=true take part in batch
// propagation.
type ImportedProduct struct {
	ID         string
	SupplierID string

	VendorProductID string
	ExternalID      string
	Imported        bool

	Category    string
	ProductType string

	State      RecordState
	DisabledAt *time.Time

	// Image is a comma-joined list of product image URLs.
	Image string
	// VendorImages is a JSON shadow of the supplier's image list, only
	// maintained for the merchant-api platform.
	VendorImages string

	Variants []ImportedVariant
}

// UnlimitedQtySentinel is written downstream when inventory tracking is
// turned off; integrations treat it as "always in stock".
const UnlimitedQtySentinel = 1000
