package state

import (
	"context"

	"github.com/google/uuid"

	"github.com/quarterfold/suppliersync/internal/domain"
)

func (s *MemoryStore) PutImportedProduct(ctx context.Context, product domain.ImportedProduct) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := copyImportedProduct(&product)
	if cp.ID == "" {
		cp.ID = uuid.New().String()
	}
	for i := range cp.Variants {
		if cp.Variants[i].ID == "" {
			cp.Variants[i].ID = uuid.New().String()
		}
		cp.Variants[i].ImportedProductID = cp.ID
	}
	s.imported[cp.ID] = &cp
	return nil
}

func (s *MemoryStore) FindImportedProduct(ctx context.Context, supplierID, vendorProductID string, importedOnly bool) (domain.ImportedProduct, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.imported {
		if p.SupplierID != supplierID || p.VendorProductID != vendorProductID {
			continue
		}
		if importedOnly && !p.Imported {
			continue
		}
		return copyImportedProduct(p), true, nil
	}
	return domain.ImportedProduct{}, false, nil
}

func (s *MemoryStore) FindImportedVariants(ctx context.Context, supplierID, vendorVariantID string) ([]domain.ImportedVariant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.ImportedVariant, 0, 1)
	for _, p := range s.imported {
		if p.SupplierID != supplierID {
			continue
		}
		for i := range p.Variants {
			if p.Variants[i].VendorVariantID == vendorVariantID {
				out = append(out, copyImportedVariant(&p.Variants[i]))
			}
		}
	}
	return out, nil
}

func (s *MemoryStore) UpdateImportedProduct(ctx context.Context, importedProductID string, upd ImportedProductUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.imported[importedProductID]
	if !ok {
		return nil
	}
	applyImportedProductUpdate(p, upd)
	return nil
}

func (s *MemoryStore) UpdateImportedVariant(ctx context.Context, importedVariantID string, upd ImportedVariantUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := s.findImportedVariantLocked(importedVariantID)
	if v == nil {
		return nil
	}
	applyImportedVariantUpdate(v, upd)
	return nil
}

// ApplyAdjustments commits every write under one lock so readers never see a
// half-applied adjustment batch.
func (s *MemoryStore) ApplyAdjustments(ctx context.Context, writes []AdjustmentWrite) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, w := range writes {
		v := s.findSuppliedVariantLocked(w.SuppliedVariantID)
		if v != nil {
			if w.Canonical.Price != nil {
				v.Price = copyF64(w.Canonical.Price)
			}
			if w.Canonical.CompareAtPrice != nil {
				v.CompareAtPrice = copyF64(w.Canonical.CompareAtPrice)
			}
			if w.Canonical.WholesalePrice != nil {
				v.WholesalePrice = copyF64(w.Canonical.WholesalePrice)
			}
			if w.Canonical.InventoryQuantity != nil {
				v.InventoryQuantity = copyI(w.Canonical.InventoryQuantity)
			}
			if w.Canonical.InventoryPolicy != nil {
				v.InventoryPolicy = *w.Canonical.InventoryPolicy
			}
		}

		for _, dw := range w.Downstream {
			iv := s.findImportedVariantLocked(dw.ImportedVariantID)
			if iv != nil {
				applyImportedVariantUpdate(iv, dw.Update)
			}
		}
	}
	return nil
}

func (s *MemoryStore) findSuppliedVariantLocked(id string) *domain.SuppliedVariant {
	for _, byKey := range s.products {
		for _, p := range byKey {
			for i := range p.Variants {
				if p.Variants[i].ID == id {
					return &p.Variants[i]
				}
			}
		}
	}
	return nil
}

func (s *MemoryStore) findImportedVariantLocked(id string) *domain.ImportedVariant {
	for _, p := range s.imported {
		for i := range p.Variants {
			if p.Variants[i].ID == id {
				return &p.Variants[i]
			}
		}
	}
	return nil
}

func applyImportedProductUpdate(p *domain.ImportedProduct, upd ImportedProductUpdate) {
	if upd.State != nil {
		p.State = *upd.State
	}
	if upd.Category != nil {
		p.Category = *upd.Category
	}
	if upd.ProductType != nil {
		p.ProductType = *upd.ProductType
	}
	if upd.Image != nil {
		p.Image = *upd.Image
	}
	if upd.VendorImages != nil {
		p.VendorImages = *upd.VendorImages
	}
	if upd.DisabledAt != nil {
		t := *upd.DisabledAt
		p.DisabledAt = &t
	}
	if upd.ClearDisabledAt {
		p.DisabledAt = nil
	}
}

func applyImportedVariantUpdate(v *domain.ImportedVariant, upd ImportedVariantUpdate) {
	if upd.SKU != nil {
		v.SKU = *upd.SKU
	}
	if upd.Price != nil {
		v.Price = copyF64(upd.Price)
	}
	if upd.CompareAtPrice != nil {
		v.CompareAtPrice = copyF64(upd.CompareAtPrice)
	}
	if upd.WholesalePrice != nil {
		v.WholesalePrice = copyF64(upd.WholesalePrice)
	}
	if upd.Qty != nil {
		v.Qty = *upd.Qty
	}
	if upd.TrackInventory != nil {
		v.TrackInventory = *upd.TrackInventory
	}
	if upd.State != nil {
		v.State = *upd.State
	}
	if upd.Image != nil {
		v.Image = *upd.Image
	}
	if upd.DisabledAt != nil {
		t := *upd.DisabledAt
		v.DisabledAt = &t
	}
	if upd.ClearDisabledAt {
		v.DisabledAt = nil
	}
	if upd.DisabledCode != nil {
		v.DisabledCode = *upd.DisabledCode
	}
	if upd.DisabledEvent != nil {
		v.DisabledEvent = *upd.DisabledEvent
	}
}

func copyImportedProduct(p *domain.ImportedProduct) domain.ImportedProduct {
	cp := *p
	if p.DisabledAt != nil {
		t := *p.DisabledAt
		cp.DisabledAt = &t
	}
	cp.Variants = make([]domain.ImportedVariant, len(p.Variants))
	for i := range p.Variants {
		cp.Variants[i] = copyImportedVariant(&p.Variants[i])
	}
	return cp
}

func copyImportedVariant(v *domain.ImportedVariant) domain.ImportedVariant {
	cv := *v
	cv.Price = copyF64(v.Price)
	cv.CompareAtPrice = copyF64(v.CompareAtPrice)
	cv.WholesalePrice = copyF64(v.WholesalePrice)
	if v.DisabledAt != nil {
		t := *v.DisabledAt
		cv.DisabledAt = &t
	}
	return cv
}
