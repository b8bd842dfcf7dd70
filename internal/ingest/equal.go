package ingest

import "github.com/quarterfold/suppliersync/internal/domain"

// VariantEqual reports whether a freshly mapped variant carries the same
// supplier-facing data as the stored one. Identity fields (ids, generated
// sku, checkedOn) are excluded on purpose.
func VariantEqual(a, b domain.SuppliedVariant) bool {
	if a.Name != b.Name || a.SKU != b.SKU || a.State != b.State {
		return false
	}
	if a.InventoryPolicy != b.InventoryPolicy {
		return false
	}
	if !strPtrEq(a.Option1, b.Option1) || !strPtrEq(a.Option2, b.Option2) || !strPtrEq(a.Option3, b.Option3) {
		return false
	}
	if !floatPtrEq(a.Price, b.Price) || !floatPtrEq(a.CompareAtPrice, b.CompareAtPrice) || !floatPtrEq(a.WholesalePrice, b.WholesalePrice) {
		return false
	}
	if !intPtrEq(a.InventoryQuantity, b.InventoryQuantity) {
		return false
	}
	if a.ImageID != b.ImageID || !imagesEqual(a.Images, b.Images) {
		return false
	}
	return true
}

// ProductEqual reports whether a freshly mapped product carries the same
// supplier-facing data as the stored one, ignoring variants.
func ProductEqual(a, b domain.SuppliedProduct) bool {
	if a.Name != b.Name || a.Description != b.Description || a.Brand != b.Brand {
		return false
	}
	if a.Category != b.Category || a.ProductType != b.ProductType || a.State != b.State {
		return false
	}
	if !stringsEqual(a.Tags, b.Tags) || !stringsEqual(a.Options, b.Options) {
		return false
	}
	if !strPtrEq(a.Option1, b.Option1) || !strPtrEq(a.Option2, b.Option2) || !strPtrEq(a.Option3, b.Option3) {
		return false
	}
	return imagesEqual(a.Images, b.Images)
}

func imagesEqual(a, b []domain.Image) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID || a[i].URL != b[i].URL {
			return false
		}
	}
	return true
}

func stringsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func strPtrEq(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func floatPtrEq(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func intPtrEq(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
