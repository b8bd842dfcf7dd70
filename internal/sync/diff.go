package sync

import (
	"time"

	"github.com/quarterfold/suppliersync/internal/domain"
	"github.com/quarterfold/suppliersync/internal/state"
)

// importedProductDiff computes the minimal downstream product update for one
// canonical product. Category and product type only propagate on the
// merchant-api platform.
func importedProductDiff(sp domain.SuppliedProduct, ip domain.ImportedProduct, platform domain.Platform, now time.Time) state.ImportedProductUpdate {
	var upd state.ImportedProductUpdate

	if sp.State != ip.State {
		st := sp.State
		upd.State = &st
		if sp.State == domain.StateEnabled {
			upd.ClearDisabledAt = true
		} else {
			at := now
			upd.DisabledAt = &at
		}
	}

	if platform == domain.PlatformMerchantAPI {
		category := sp.Category
		productType := sp.ProductType
		upd.Category = &category
		upd.ProductType = &productType
	}

	return upd
}

// importedVariantDiff computes the minimal downstream variant update for one
// matched variant pair. Disabling wins outright: no other field matters once
// the variant goes dark.
func importedVariantDiff(sv domain.SuppliedVariant, iv domain.ImportedVariant, supplier domain.Supplier, now time.Time) state.ImportedVariantUpdate {
	var upd state.ImportedVariantUpdate

	if sv.State != iv.State {
		if sv.State == domain.StateDisabled {
			st := domain.StateDisabled
			zero := 0
			at := now
			upd.State = &st
			upd.Qty = &zero
			upd.DisabledAt = &at
			return upd
		}

		st := domain.StateEnabled
		qty := canonicalQty(sv)
		upd.State = &st
		upd.Qty = &qty
		upd.ClearDisabledAt = true
	}

	threshold := supplier.Config.StockThreshold

	switch {
	case sv.InventoryPolicy == domain.InventoryPolicyContinue && iv.TrackInventory:
		// Supplier stopped tracking stock: stop tracking downstream too and
		// park quantity on the always-in-stock sentinel.
		f := false
		qty := domain.UnlimitedQtySentinel
		upd.TrackInventory = &f
		upd.Qty = &qty

	case sv.InventoryPolicy == domain.InventoryPolicyDeny && !iv.TrackInventory:
		t := true
		qty := adjustedQty(canonicalQty(sv), threshold)
		upd.TrackInventory = &t
		upd.Qty = &qty

	case canonicalQty(sv) != iv.Qty && iv.TrackInventory:
		qty := adjustedQty(canonicalQty(sv), threshold)
		upd.Qty = &qty
	}

	if !floatPtrEqual(sv.Price, iv.Price) && supplier.Config.UpdatePrices {
		upd.Price = copyFloat(sv.Price)
	}

	if !floatPtrEqual(sv.CompareAtPrice, iv.CompareAtPrice) {
		upd.CompareAtPrice = copyFloat(sv.CompareAtPrice)
	}

	if sku := effectiveSKU(sv); sku != iv.SKU {
		s := sku
		upd.SKU = &s
	}

	return upd
}

// variantUpdateEmpty reports whether the diff carries nothing to persist.
func variantUpdateEmpty(upd state.ImportedVariantUpdate) bool {
	return upd.SKU == nil && upd.Price == nil && upd.CompareAtPrice == nil &&
		upd.WholesalePrice == nil && upd.Qty == nil && upd.TrackInventory == nil &&
		upd.State == nil && upd.Image == nil && upd.DisabledAt == nil &&
		upd.DisabledCode == nil && upd.DisabledEvent == nil && !upd.ClearDisabledAt
}

func productUpdateEmpty(upd state.ImportedProductUpdate) bool {
	return upd.State == nil && upd.Category == nil && upd.ProductType == nil &&
		upd.Image == nil && upd.VendorImages == nil && upd.DisabledAt == nil &&
		!upd.ClearDisabledAt
}

// touchesInventoryOrPrice reports whether the update needs an outbound
// inventory/price notification.
func touchesInventoryOrPrice(upd state.ImportedVariantUpdate) bool {
	return upd.Qty != nil || upd.Price != nil || upd.CompareAtPrice != nil || upd.SKU != nil
}

// effectiveSKU prefers the supplier's sku, falling back to the generated one.
func effectiveSKU(sv domain.SuppliedVariant) string {
	if sv.SKU != "" {
		return sv.SKU
	}
	return sv.GeneratedSKU
}

func canonicalQty(sv domain.SuppliedVariant) int {
	if sv.InventoryQuantity == nil {
		return 0
	}
	return *sv.InventoryQuantity
}

func adjustedQty(qty, threshold int) int {
	adjusted := qty - threshold
	if adjusted < 0 {
		return 0
	}
	return adjusted
}

func floatPtrEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	f := *v
	return &f
}
