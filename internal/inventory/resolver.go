// Package inventory resolves out-of-band stock and price adjustments against
// canonical variants and mirrors them downstream. Requests are strictly
// all-or-nothing: one bad item rejects the whole set before any write.
package inventory

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/quarterfold/suppliersync/internal/apierr"
	"github.com/quarterfold/suppliersync/internal/domain"
	"github.com/quarterfold/suppliersync/internal/state"
)

// disabledCodeMissingWholesale marks downstream variants parked because the
// supplier never sent a wholesale price. A wholesale adjustment can revive
// them.
const disabledCodeMissingWholesale = "missing_wholesale_price"

type Resolver struct {
	store    state.Store
	platform domain.Platform
	logger   *log.Logger
}

func NewResolver(store state.Store, platform domain.Platform, logger *log.Logger) *Resolver {
	return &Resolver{store: store, platform: platform, logger: logger}
}

// ProcessAdjustments resolves every item, then commits all resulting writes
// in one transaction. Per-item failures are aggregated into a single
// 422-style error and nothing is persisted.
func (r *Resolver) ProcessAdjustments(ctx context.Context, items []domain.AdjustmentItem, supplier domain.Supplier) error {
	// Key-shape problems are request-level: reject before touching any item.
	for _, item := range items {
		hasSKU := item.SKU != ""
		hasKey := item.VariantKey != ""
		if hasSKU == hasKey {
			return apierr.New(http.StatusBadRequest, "Must pass a valid value for either variantKey or sku")
		}
	}

	writes := make([]state.AdjustmentWrite, 0, len(items))
	var issues []apierr.BatchIssue

	for index, item := range items {
		write, err := r.resolveItem(ctx, item, supplier)
		if err != nil {
			issues = append(issues, apierr.BatchIssue{Path: index, Message: err.Error()})
			continue
		}
		writes = append(writes, write)
	}

	if len(issues) > 0 {
		return apierr.NewBatch(http.StatusUnprocessableEntity, issues)
	}

	return r.store.ApplyAdjustments(ctx, writes)
}

func (r *Resolver) resolveItem(ctx context.Context, item domain.AdjustmentItem, supplier domain.Supplier) (state.AdjustmentWrite, error) {
	matched, err := r.matchCanonicalVariant(ctx, item, supplier)
	if err != nil {
		return state.AdjustmentWrite{}, err
	}

	write := state.AdjustmentWrite{
		SuppliedVariantID: matched.ID,
		Canonical:         canonicalUpdate(item),
	}

	downstream, err := r.downstreamWrites(ctx, matched, item, supplier)
	if err != nil {
		return state.AdjustmentWrite{}, err
	}
	write.Downstream = downstream

	return write, nil
}

func (r *Resolver) matchCanonicalVariant(ctx context.Context, item domain.AdjustmentItem, supplier domain.Supplier) (domain.SuppliedVariant, error) {
	if item.Currency != "" && supplier.Config.Currency != "" &&
		!strings.EqualFold(item.Currency, supplier.Config.Currency) {
		return domain.SuppliedVariant{}, apierr.New(http.StatusBadRequest,
			"Currency value does not match value inside of supplier configuration")
	}

	var (
		lookup state.VariantLookup
		key    string
		value  string
	)
	if item.SKU != "" {
		lookup = state.VariantLookup{SKU: item.SKU}
		key, value = "sku", item.SKU
	} else {
		lookup = state.VariantLookup{VariantKey: item.VariantKey}
		key, value = "variantKey", item.VariantKey
	}

	candidates, err := r.store.FindSuppliedVariants(ctx, lookup)
	if err != nil {
		return domain.SuppliedVariant{}, err
	}
	if len(candidates) == 0 {
		return domain.SuppliedVariant{}, apierr.New(http.StatusBadRequest,
			"No variant found with %s value of %s", key, value)
	}

	matched := make([]domain.SuppliedVariant, 0, 1)
	for _, c := range candidates {
		if c.SupplierID == supplier.ID {
			matched = append(matched, c.Variant)
		}
	}
	if len(matched) == 0 {
		return domain.SuppliedVariant{}, apierr.New(http.StatusBadRequest,
			"No variant matched with %s value of %s and supplier %s", key, value, supplier.ID)
	}
	if len(matched) > 1 {
		return domain.SuppliedVariant{}, apierr.New(http.StatusBadRequest,
			"Multiple variants matched with %s value of %s and supplier %s", key, value, supplier.ID)
	}

	return matched[0], nil
}

// canonicalUpdate copies only the fields the adjustment explicitly carries.
func canonicalUpdate(item domain.AdjustmentItem) state.SuppliedVariantUpdate {
	var upd state.SuppliedVariantUpdate

	if item.Quantity != nil {
		q := *item.Quantity
		upd.InventoryQuantity = &q
	}
	if item.Price != nil && item.Price.Amount != nil {
		p := *item.Price.Amount
		upd.Price = &p
	}
	if item.CompareToPrice != nil && item.CompareToPrice.Amount != nil {
		p := *item.CompareToPrice.Amount
		upd.CompareAtPrice = &p
	}
	if item.WholesalePrice != nil && item.WholesalePrice.Amount != nil {
		p := *item.WholesalePrice.Amount
		upd.WholesalePrice = &p
	}
	if item.Unlimited != nil {
		policy := domain.InventoryPolicyDeny
		if *item.Unlimited {
			policy = domain.InventoryPolicyContinue
		}
		upd.InventoryPolicy = &policy
	}

	return upd
}

func (r *Resolver) downstreamWrites(ctx context.Context, matched domain.SuppliedVariant, item domain.AdjustmentItem, supplier domain.Supplier) ([]state.ImportedVariantWrite, error) {
	downstream, err := r.store.FindImportedVariants(ctx, supplier.ID, matched.VariantID)
	if err != nil {
		return nil, err
	}
	if len(downstream) == 0 {
		return nil, nil
	}
	iv := downstream[0]

	upd, err := r.downstreamUpdate(ctx, iv, item, supplier, matched)
	if err != nil {
		return nil, err
	}

	switch r.platform {
	case domain.PlatformMerchantAPI:
		// Full dataset propagation.
		return []state.ImportedVariantWrite{{ImportedVariantID: iv.ID, Update: upd}}, nil

	case domain.PlatformShopify, domain.PlatformWooCommerce:
		// Only wholesale adjustments flow through on queue-driven platforms,
		// and only their wholesale-related subset.
		if upd.WholesalePrice == nil {
			return nil, nil
		}
		return []state.ImportedVariantWrite{{ImportedVariantID: iv.ID, Update: state.ImportedVariantUpdate{
			WholesalePrice:  upd.WholesalePrice,
			State:           upd.State,
			DisabledAt:      upd.DisabledAt,
			ClearDisabledAt: upd.ClearDisabledAt,
			DisabledCode:    upd.DisabledCode,
			DisabledEvent:   upd.DisabledEvent,
		}}}, nil

	default:
		return nil, nil
	}
}

func (r *Resolver) downstreamUpdate(ctx context.Context, iv domain.ImportedVariant, item domain.AdjustmentItem, supplier domain.Supplier, matched domain.SuppliedVariant) (state.ImportedVariantUpdate, error) {
	var upd state.ImportedVariantUpdate

	if item.Quantity != nil {
		q := *item.Quantity
		upd.Qty = &q
	}
	if item.Price != nil && item.Price.Amount != nil {
		p := *item.Price.Amount
		upd.Price = &p
	}
	if item.CompareToPrice != nil && item.CompareToPrice.Amount != nil {
		p := *item.CompareToPrice.Amount
		upd.CompareAtPrice = &p
	}
	if item.WholesalePrice != nil && item.WholesalePrice.Amount != nil {
		p := *item.WholesalePrice.Amount
		upd.WholesalePrice = &p
	}
	if item.Unlimited != nil {
		track := !*item.Unlimited
		upd.TrackInventory = &track
		if *item.Unlimited {
			q := domain.UnlimitedQtySentinel
			upd.Qty = &q
		}
	}

	// A wholesale price arriving for a variant parked on the missing
	// wholesale price code can bring it back, provided the canonical side is
	// still enabled.
	if upd.WholesalePrice != nil && iv.DisabledCode == disabledCodeMissingWholesale {
		enabled, err := r.canonicalEnabled(ctx, supplier.ID, matched)
		if err != nil {
			return state.ImportedVariantUpdate{}, err
		}

		empty := ""
		if enabled {
			st := domain.StateEnabled
			upd.State = &st
			upd.DisabledCode = &empty
			upd.DisabledEvent = &empty
			upd.ClearDisabledAt = true
		} else {
			event := "Supplier product variant is disabled"
			upd.DisabledCode = &empty
			upd.DisabledEvent = &event
		}
	}

	return upd, nil
}

func (r *Resolver) canonicalEnabled(ctx context.Context, supplierID string, matched domain.SuppliedVariant) (bool, error) {
	if matched.State != domain.StateEnabled {
		return false, nil
	}
	product, ok, err := r.store.GetSuppliedProduct(ctx, supplierID, matched.ProductID)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, fmt.Errorf("missing supplied product %s for variant %s", matched.ProductID, matched.VariantID)
	}
	return product.State == domain.StateEnabled, nil
}
