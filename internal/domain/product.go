package domain

// Money is an amount with an optional ISO currency code. Amount is a pointer
// because suppliers may omit pricing entirely and the sync policy needs to
// distinguish "absent" from zero.
type Money struct {
	Amount   *float64 `json:"amount,omitempty"`
	Currency string   `json:"currency,omitempty"`
}

type Stock struct {
	Quantity  *int `json:"quantity,omitempty"`
	Unlimited bool `json:"unlimited,omitempty"`
}

type Image struct {
	ID  string `json:"id,omitempty"`
	URL string `json:"url,omitempty"`
}

// RawVariant is one variant as submitted by the supplier. RefID is the
// positional index assigned at ingestion, only used to correlate errors
// back to the submitted payload.
type RawVariant struct {
	VariantKey     string            `json:"variantKey"`
	SKU            string            `json:"sku,omitempty"`
	Price          *Money            `json:"price,omitempty"`
	CompareToPrice *Money            `json:"compareToPrice,omitempty"`
	WholesalePrice *Money            `json:"wholesalePrice,omitempty"`
	Stock          *Stock            `json:"stock,omitempty"`
	Options        map[string]string `json:"options,omitempty"`
	Images         []Image           `json:"images,omitempty"`
	Active         *bool             `json:"active,omitempty"`
	RefID          int               `json:"refId"`
}

// RawProduct is one product as submitted by the supplier.
type RawProduct struct {
	ProductKey      string       `json:"productKey"`
	Name            string       `json:"name"`
	Description     string       `json:"description,omitempty"`
	BrandName       string       `json:"brandName,omitempty"`
	ProductCategory string       `json:"productCategory,omitempty"`
	ProductType     string       `json:"productType,omitempty"`
	Tags            []string     `json:"tags,omitempty"`
	Options         []string     `json:"options,omitempty"`
	Images          []Image      `json:"images,omitempty"`
	Active          *bool        `json:"active,omitempty"`
	Variants        []RawVariant `json:"variants"`
	RefID           int          `json:"refId"`
}

// IsActive defaults to true when the supplier did not send the flag.
func (p RawProduct) IsActive() bool {
	return p.Active == nil || *p.Active
}

func (v RawVariant) IsActive() bool {
	return v.Active == nil || *v.Active
}
