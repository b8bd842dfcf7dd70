// Package sync propagates canonical catalog changes to the downstream
// imported model and notifies the marketplace integration.
package sync

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/quarterfold/suppliersync/internal/domain"
	"github.com/quarterfold/suppliersync/internal/notify"
	"github.com/quarterfold/suppliersync/internal/state"
)

type Propagator struct {
	store      state.Store
	dispatcher notify.Dispatcher
	platform   domain.Platform
	skuPrefix  string
	logger     *log.Logger

	now func() time.Time
}

func NewPropagator(store state.Store, dispatcher notify.Dispatcher, platform domain.Platform, skuPrefix string, logger *log.Logger) *Propagator {
	return &Propagator{
		store:      store,
		dispatcher: dispatcher,
		platform:   platform,
		skuPrefix:  skuPrefix,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// UpsertAll folds Upsert over every canonical record of one batch, then
// retires every enabled canonical product the batch did not touch, cascading
// the retirement downstream.
func (p *Propagator) UpsertAll(ctx context.Context, products []domain.SuppliedProduct, supplier domain.Supplier, batchTimestamp time.Time) error {
	for _, product := range products {
		if err := p.Upsert(ctx, product, supplier); err != nil {
			return err
		}
	}

	disabled, err := p.store.DisableSuppliedProductsNotSeen(ctx, supplier.ID, batchTimestamp)
	if err != nil {
		return err
	}

	return p.disableImportedProductsAndVariants(ctx, disabled, supplier.ID)
}

// Upsert writes one canonical product (with variants), retires the product's
// enabled variants the batch no longer mentions, then syncs the downstream
// projection.
func (p *Propagator) Upsert(ctx context.Context, product domain.SuppliedProduct, supplier domain.Supplier) error {
	stored, err := p.store.UpsertSuppliedProduct(ctx, supplier.ID, product)
	if err != nil {
		return err
	}

	var retire []string
	for _, sv := range stored.Variants {
		if sv.State != domain.StateEnabled {
			continue
		}
		if findCanonicalVariant(product.Variants, sv.VariantID) == nil {
			retire = append(retire, sv.ID)
		}
	}
	if len(retire) > 0 {
		if err := p.store.DisableSuppliedVariants(ctx, retire); err != nil {
			return err
		}
	}

	if err := p.assignGeneratedSKUs(ctx, stored); err != nil {
		return err
	}

	return p.syncImportedProduct(ctx, supplier.ID, product.ProductID, supplier)
}

func (p *Propagator) syncImportedProduct(ctx context.Context, supplierID, productKey string, supplier domain.Supplier) error {
	sp, ok, err := p.store.GetSuppliedProduct(ctx, supplierID, productKey)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("could not find upserted supplied product with key %s", productKey)
	}

	ip, ok, err := p.store.FindImportedProduct(ctx, supplierID, sp.ProductID, true)
	if err != nil {
		return err
	}
	if !ok {
		// Never materialized downstream; nothing to propagate.
		return nil
	}

	now := p.now()

	if upd := importedProductDiff(sp, ip, p.platform, now); !productUpdateEmpty(upd) {
		if err := p.store.UpdateImportedProduct(ctx, ip.ID, upd); err != nil {
			return err
		}
	}

	for _, sv := range sp.Variants {
		iv := findImportedVariant(ip.Variants, sv.VariantID)
		if iv == nil {
			// New canonically, not yet imported downstream: materialization
			// is a separate selective flow, so skip.
			continue
		}

		upd := importedVariantDiff(sv, *iv, supplier, now)
		if variantUpdateEmpty(upd) {
			continue
		}

		if err := p.store.UpdateImportedVariant(ctx, iv.ID, upd); err != nil {
			p.logger.Printf("sync: updating imported variant with vendor variant id %s failed: %v", sv.VariantID, err)
			continue
		}

		if touchesInventoryOrPrice(upd) {
			item := notify.VariantInventoryPriceItem{
				ID:              iv.ItemID,
				ProductID:       ip.VendorProductID,
				VendorVariantID: iv.VendorVariantID,
				ExternalID:      ip.ExternalID,
				Price:           upd.Price,
				CompareAtPrice:  upd.CompareAtPrice,
				SKU:             upd.SKU,
				Quantity:        upd.Qty,
			}
			if item.ID == "" {
				item.ID = iv.ID
			}
			p.dispatcher.SendVariantInventoryPricesUpdate([]notify.VariantInventoryPriceItem{item}, supplierID)
		}
	}

	return p.syncImages(ctx, sp, supplier)
}

// disableImportedProductsAndVariants mirrors canonical retirement downstream
// and tells the integration once per affected product.
func (p *Propagator) disableImportedProductsAndVariants(ctx context.Context, disabled []domain.SuppliedProduct, supplierID string) error {
	now := p.now()
	st := domain.StateDisabled

	for _, sp := range disabled {
		ip, ok, err := p.store.FindImportedProduct(ctx, supplierID, sp.ProductID, false)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}

		at := now
		if err := p.store.UpdateImportedProduct(ctx, ip.ID, state.ImportedProductUpdate{
			State:      &st,
			DisabledAt: &at,
		}); err != nil {
			return err
		}

		items := make([]notify.VariantStatusItem, 0, len(ip.Variants))
		for _, iv := range ip.Variants {
			zero := 0
			track := true
			vAt := now
			vSt := domain.StateDisabled
			if err := p.store.UpdateImportedVariant(ctx, iv.ID, state.ImportedVariantUpdate{
				State:          &vSt,
				Qty:            &zero,
				TrackInventory: &track,
				DisabledAt:     &vAt,
			}); err != nil {
				return err
			}
			items = append(items, notify.VariantStatusItem{
				IsEnabledProducts: false,
				ItemID:            iv.ItemID,
				ProductID:         ip.ExternalID,
				Qty:               0,
			})
		}

		if len(items) > 0 {
			p.dispatcher.SendVariantStatusUpdate(items, supplierID)
		}
	}
	return nil
}

func findImportedVariant(variants []domain.ImportedVariant, vendorVariantID string) *domain.ImportedVariant {
	for i := range variants {
		if variants[i].VendorVariantID == vendorVariantID {
			return &variants[i]
		}
	}
	return nil
}
