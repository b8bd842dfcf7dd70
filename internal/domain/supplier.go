package domain

// Platform identifies the marketplace integration the downstream model is
// projected into. It gates which fields propagate on partial updates.
type Platform string

const (
	PlatformShopify     Platform = "shopify"
	PlatformWooCommerce Platform = "woocommerce"
	PlatformMerchantAPI Platform = "merchant_api"
)

// SyncSettings controls how product batches from a supplier are reconciled.
// ImmutableVariantKey is a tri-state: nil means no strategy configured at
// all, true selects the immutable-variant-key strategy, false selects the
// immutable-product-key strategy (not supported yet).
type SyncSettings struct {
	ImmutableVariantKey *bool `json:"immutableVariantKey,omitempty"`
	AsyncMode           bool  `json:"asyncMode,omitempty"`
	HasPricing          bool  `json:"hasPricing,omitempty"`
	HasInventory        bool  `json:"hasInventory,omitempty"`
	HasWholesalePricing bool  `json:"hasWholesalePricing,omitempty"`
}

type SupplierConfig struct {
	Currency             string        `json:"currency,omitempty"`
	StockThreshold       int           `json:"stockThreshold,omitempty"`
	UpdatePrices         bool          `json:"updatePrices,omitempty"`
	CatalogSyncImages    bool          `json:"catalogSyncImages,omitempty"`
	ProductsSyncSettings *SyncSettings `json:"productsSyncSettings,omitempty"`

	// LatestProductsSyncTimestamp is advanced to the batch submission date
	// whenever a batch finishes SUCCESS.
	LatestProductsSyncTimestamp string `json:"latestProductsSyncTimeStamp,omitempty"`
}

// SyncSettingsOrDefault never returns nil so callers can read flags without
// guarding against unconfigured suppliers.
func (c SupplierConfig) SyncSettingsOrDefault() SyncSettings {
	if c.ProductsSyncSettings == nil {
		return SyncSettings{}
	}
	return *c.ProductsSyncSettings
}

type Supplier struct {
	ID     string
	Name   string
	Config SupplierConfig
}
