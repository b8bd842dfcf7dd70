package domain

// AdjustmentItem is one ad-hoc price/inventory override against a single
// variant, addressed by exactly one of SKU or VariantKey. Only the fields
// present in the item are applied; everything else is left untouched.
type AdjustmentItem struct {
	SKU        string `json:"sku,omitempty"`
	VariantKey string `json:"variantKey,omitempty"`

	Quantity       *int   `json:"quantity,omitempty"`
	Price          *Money `json:"price,omitempty"`
	CompareToPrice *Money `json:"compareToPrice,omitempty"`
	WholesalePrice *Money `json:"wholesalePrice,omitempty"`
	Unlimited      *bool  `json:"unlimited,omitempty"`
	Currency       string `json:"currency,omitempty"`
}
