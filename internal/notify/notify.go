// Package notify pushes downstream change events to the marketplace
// integration queues. Dispatch is fire-and-forget: failures are logged and
// never propagate back into the persistence path that triggered them.
package notify

const (
	TypeInventoryPrices = "UPDATE_INVENTORY_PRICES"
	TypeProductStatus   = "ENABLED_DISABLED_PRODUCTS"
	TypeProductImages   = "SYNC_PRODUCT_IMAGES"
)

// VariantInventoryPriceItem describes one variant whose qty, price,
// compare-at price or sku changed. Pointer fields are omitted when the
// corresponding field did not change.
type VariantInventoryPriceItem struct {
	ID              string   `json:"id"`
	VariantID       string   `json:"variantId,omitempty"`
	ProductID       string   `json:"productId"`
	VendorVariantID string   `json:"vendorVariantId"`
	ExternalID      string   `json:"externalId,omitempty"`
	Price           *float64 `json:"price,omitempty"`
	CompareAtPrice  *float64 `json:"compareAtPrice,omitempty"`
	SKU             *string  `json:"sku,omitempty"`
	Quantity        *int     `json:"quantity,omitempty"`
}

// VariantStatusItem describes one variant forced to disabled.
type VariantStatusItem struct {
	IsEnabledProducts bool   `json:"isEnabledProducts"`
	ItemID            string `json:"itemId"`
	ProductID         string `json:"productId"`
	Qty               int    `json:"qty"`
}

// ProductImageSyncItem carries a product's rewritten image state.
type ProductImageSyncItem struct {
	VariantImageMap map[string]string `json:"variantImageMap"`
	ProductID       string            `json:"productId"`
	Images          string            `json:"images"`
}

// Dispatcher sends downstream notifications. Implementations swallow and log
// their own errors; callers never block on delivery.
type Dispatcher interface {
	SendVariantInventoryPricesUpdate(items []VariantInventoryPriceItem, supplierID string)
	SendVariantStatusUpdate(items []VariantStatusItem, supplierID string)
	SendProductImages(items []ProductImageSyncItem, supplierID string)
}
