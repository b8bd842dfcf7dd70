package ingest

import (
	"strings"

	"github.com/quarterfold/suppliersync/internal/domain"
)

// AssignRefIDs copies the submitted products with positional refIds on every
// product and variant. The refIds are what error reports point back to.
func AssignRefIDs(products []domain.RawProduct) []domain.RawProduct {
	out := make([]domain.RawProduct, len(products))
	for i, product := range products {
		product.RefID = i
		variants := make([]domain.RawVariant, len(product.Variants))
		for j, variant := range product.Variants {
			variant.RefID = j
			variants[j] = variant
		}
		product.Variants = variants
		out[i] = product
	}
	return out
}

// ToSuppliedProduct maps one validated raw product (and all its variants)
// into the canonical model.
func ToSuppliedProduct(product domain.RawProduct) domain.SuppliedProduct {
	sp := domain.SuppliedProduct{
		ProductID:   product.ProductKey,
		Name:        product.Name,
		Description: product.Description,
		Brand:       product.BrandName,
		Category:    product.ProductCategory,
		ProductType: product.ProductType,
		Tags:        append([]string(nil), product.Tags...),
		Options:     append([]string(nil), product.Options...),
		Option1:     optionName(product.Options, 0),
		Option2:     optionName(product.Options, 1),
		Option3:     optionName(product.Options, 2),
		Images:      append([]domain.Image(nil), product.Images...),
		State:       stateOf(product.IsActive()),
	}

	for _, variant := range product.Variants {
		sp.Variants = append(sp.Variants, ToSuppliedVariant(product, variant))
	}

	return sp
}

// ToSuppliedVariant maps one raw variant into the canonical model, resolving
// the variant's option values against the product's ordered option names.
func ToSuppliedVariant(product domain.RawProduct, variant domain.RawVariant) domain.SuppliedVariant {
	option1 := optionValue(product.Options, variant.Options, 0)
	option2 := optionValue(product.Options, variant.Options, 1)
	option3 := optionValue(product.Options, variant.Options, 2)

	sv := domain.SuppliedVariant{
		VariantID:       variant.VariantKey,
		ProductID:       product.ProductKey,
		Name:            joinOptionValues(option1, option2, option3),
		SKU:             variant.SKU,
		Option1:         option1,
		Option2:         option2,
		Option3:         option3,
		InventoryPolicy: domain.InventoryPolicyDeny,
		Images:          append([]domain.Image(nil), variant.Images...),
		State:           stateOf(variant.IsActive()),
	}

	if len(variant.Images) > 0 {
		sv.ImageID = variant.Images[0].ID
	}

	if variant.Price != nil && variant.Price.Amount != nil {
		sv.Price = copyFloat(variant.Price.Amount)
	}
	if variant.CompareToPrice != nil && variant.CompareToPrice.Amount != nil {
		sv.CompareAtPrice = copyFloat(variant.CompareToPrice.Amount)
	}
	if variant.WholesalePrice != nil && variant.WholesalePrice.Amount != nil {
		sv.WholesalePrice = copyFloat(variant.WholesalePrice.Amount)
	}

	if variant.Stock != nil {
		if variant.Stock.Unlimited {
			sv.InventoryPolicy = domain.InventoryPolicyContinue
		}
		if variant.Stock.Quantity != nil {
			sv.InventoryQuantity = copyInt(variant.Stock.Quantity)
		}
	}

	return sv
}

func stateOf(active bool) domain.RecordState {
	if active {
		return domain.StateEnabled
	}
	return domain.StateDisabled
}

func optionName(options []string, idx int) *string {
	if idx >= len(options) {
		return nil
	}
	name := options[idx]
	return &name
}

func optionValue(productOptions []string, variantOptions map[string]string, idx int) *string {
	if idx >= len(productOptions) || variantOptions == nil {
		return nil
	}
	value, ok := variantOptions[productOptions[idx]]
	if !ok {
		return nil
	}
	return &value
}

func joinOptionValues(values ...*string) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		if v != nil {
			parts = append(parts, *v)
		}
	}
	return strings.Join(parts, " / ")
}

func copyFloat(v *float64) *float64 {
	f := *v
	return &f
}

func copyInt(v *int) *int {
	n := *v
	return &n
}
