package state

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/quarterfold/suppliersync/internal/domain"
)

func (s *MemoryStore) GetSuppliedProduct(ctx context.Context, supplierID, productKey string) (domain.SuppliedProduct, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byKey, ok := s.products[supplierID]
	if !ok {
		return domain.SuppliedProduct{}, false, nil
	}
	p, ok := byKey[productKey]
	if !ok {
		return domain.SuppliedProduct{}, false, nil
	}
	return copyProduct(p), true, nil
}

func (s *MemoryStore) ListSuppliedProducts(ctx context.Context, supplierID string) ([]domain.SuppliedProduct, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byKey := s.products[supplierID]
	out := make([]domain.SuppliedProduct, 0, len(byKey))
	for _, p := range byKey {
		out = append(out, copyProduct(p))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ProductID < out[j].ProductID
	})
	return out, nil
}

// UpsertSuppliedProduct inserts or refreshes the product row keyed by
// (productKey, supplierID) and upserts each incoming variant by variantKey.
// Stored variants missing from the incoming set are left as-is; staleness
// sweeps retire them later.
func (s *MemoryStore) UpsertSuppliedProduct(ctx context.Context, supplierID string, product domain.SuppliedProduct) (domain.SuppliedProduct, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byKey, ok := s.products[supplierID]
	if !ok {
		byKey = make(map[string]*domain.SuppliedProduct)
		s.products[supplierID] = byKey
	}

	existing, ok := byKey[product.ProductID]
	if !ok {
		fresh := copyProduct(&product)
		fresh.ID = uuid.New().String()
		fresh.SupplierID = supplierID
		for i := range fresh.Variants {
			fresh.Variants[i].ID = uuid.New().String()
			fresh.Variants[i].SuppliedProductID = fresh.ID
		}
		byKey[product.ProductID] = &fresh
		return copyProduct(&fresh), nil
	}

	existing.Name = product.Name
	existing.Description = product.Description
	existing.Brand = product.Brand
	existing.Category = product.Category
	existing.ProductType = product.ProductType
	existing.Tags = append([]string(nil), product.Tags...)
	existing.Options = append([]string(nil), product.Options...)
	existing.Option1 = copyStr(product.Option1)
	existing.Option2 = copyStr(product.Option2)
	existing.Option3 = copyStr(product.Option3)
	existing.Images = append([]domain.Image(nil), product.Images...)
	existing.State = product.State
	existing.CheckedOn = product.CheckedOn

	for _, incoming := range product.Variants {
		idx := -1
		for i := range existing.Variants {
			if existing.Variants[i].VariantID == incoming.VariantID {
				idx = i
				break
			}
		}
		if idx == -1 {
			v := incoming
			v.ID = uuid.New().String()
			v.SuppliedProductID = existing.ID
			v.Images = append([]domain.Image(nil), incoming.Images...)
			existing.Variants = append(existing.Variants, v)
			continue
		}

		cur := &existing.Variants[idx]
		cur.Name = incoming.Name
		cur.SKU = incoming.SKU
		cur.Option1 = copyStr(incoming.Option1)
		cur.Option2 = copyStr(incoming.Option2)
		cur.Option3 = copyStr(incoming.Option3)
		cur.Price = copyF64(incoming.Price)
		cur.CompareAtPrice = copyF64(incoming.CompareAtPrice)
		cur.WholesalePrice = copyF64(incoming.WholesalePrice)
		cur.InventoryQuantity = copyI(incoming.InventoryQuantity)
		cur.InventoryPolicy = incoming.InventoryPolicy
		cur.ImageID = incoming.ImageID
		cur.Images = append([]domain.Image(nil), incoming.Images...)
		cur.State = incoming.State
		cur.CheckedOn = incoming.CheckedOn
	}

	return copyProduct(existing), nil
}

func (s *MemoryStore) DisableSuppliedProductsNotSeen(ctx context.Context, supplierID string, since time.Time) ([]domain.SuppliedProduct, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	disabled := make([]domain.SuppliedProduct, 0)
	for _, p := range s.products[supplierID] {
		if p.State != domain.StateEnabled || !p.CheckedOn.Before(since) {
			continue
		}
		p.State = domain.StateDisabled
		zero := 0
		for i := range p.Variants {
			p.Variants[i].State = domain.StateDisabled
			p.Variants[i].InventoryQuantity = copyI(&zero)
			p.Variants[i].InventoryPolicy = domain.InventoryPolicyDeny
		}
		disabled = append(disabled, copyProduct(p))
	}
	sort.Slice(disabled, func(i, j int) bool {
		return disabled[i].ProductID < disabled[j].ProductID
	})
	return disabled, nil
}

// DisableSuppliedVariants retires canonical variants that dropped out of a
// batch: state DISABLED, quantity zeroed, policy deny.
func (s *MemoryStore) DisableSuppliedVariants(ctx context.Context, variantIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make(map[string]struct{}, len(variantIDs))
	for _, id := range variantIDs {
		ids[id] = struct{}{}
	}

	zero := 0
	for _, byKey := range s.products {
		for _, p := range byKey {
			for i := range p.Variants {
				v := &p.Variants[i]
				if _, ok := ids[v.ID]; !ok {
					continue
				}
				v.State = domain.StateDisabled
				v.InventoryQuantity = copyI(&zero)
				v.InventoryPolicy = domain.InventoryPolicyDeny
			}
		}
	}
	return nil
}

// FindSuppliedVariants matches across all suppliers; callers compare the
// returned SupplierID to tell their own variants from foreign ones.
func (s *MemoryStore) FindSuppliedVariants(ctx context.Context, lookup VariantLookup) ([]VariantMatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]VariantMatch, 0, 2)
	for supplierID, byKey := range s.products {
		for _, p := range byKey {
			for i := range p.Variants {
				v := &p.Variants[i]
				if lookup.SKU != "" && v.SKU != lookup.SKU && v.GeneratedSKU != lookup.SKU {
					continue
				}
				if lookup.VariantKey != "" && v.VariantID != lookup.VariantKey {
					continue
				}
				out = append(out, VariantMatch{Variant: copyVariant(v), SupplierID: supplierID})
			}
		}
	}
	return out, nil
}

func (s *MemoryStore) FindVariantsByVariantKey(ctx context.Context, supplierID, variantKey string) ([]domain.SuppliedVariant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.SuppliedVariant, 0, 1)
	for _, p := range s.products[supplierID] {
		for i := range p.Variants {
			if p.Variants[i].VariantID == variantKey {
				out = append(out, copyVariant(&p.Variants[i]))
			}
		}
	}
	return out, nil
}

func (s *MemoryStore) SetGeneratedSKU(ctx context.Context, suppliedVariantID, generatedSKU string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, byKey := range s.products {
		for _, p := range byKey {
			for i := range p.Variants {
				if p.Variants[i].ID == suppliedVariantID {
					p.Variants[i].GeneratedSKU = generatedSKU
					return nil
				}
			}
		}
	}
	return nil
}

func (s *MemoryStore) HasGeneratedSKU(ctx context.Context, generatedSKU string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, byKey := range s.products {
		for _, p := range byKey {
			for i := range p.Variants {
				if p.Variants[i].GeneratedSKU == generatedSKU {
					return true, nil
				}
			}
		}
	}
	return false, nil
}

func copyProduct(p *domain.SuppliedProduct) domain.SuppliedProduct {
	cp := *p
	cp.Tags = append([]string(nil), p.Tags...)
	cp.Options = append([]string(nil), p.Options...)
	cp.Option1 = copyStr(p.Option1)
	cp.Option2 = copyStr(p.Option2)
	cp.Option3 = copyStr(p.Option3)
	cp.Images = append([]domain.Image(nil), p.Images...)
	cp.Variants = make([]domain.SuppliedVariant, len(p.Variants))
	for i := range p.Variants {
		cp.Variants[i] = copyVariant(&p.Variants[i])
	}
	return cp
}

func copyVariant(v *domain.SuppliedVariant) domain.SuppliedVariant {
	cv := *v
	cv.Option1 = copyStr(v.Option1)
	cv.Option2 = copyStr(v.Option2)
	cv.Option3 = copyStr(v.Option3)
	cv.Price = copyF64(v.Price)
	cv.CompareAtPrice = copyF64(v.CompareAtPrice)
	cv.WholesalePrice = copyF64(v.WholesalePrice)
	cv.InventoryQuantity = copyI(v.InventoryQuantity)
	cv.Images = append([]domain.Image(nil), v.Images...)
	return cv
}

func copyStr(v *string) *string {
	if v == nil {
		return nil
	}
	s := *v
	return &s
}

func copyF64(v *float64) *float64 {
	if v == nil {
		return nil
	}
	f := *v
	return &f
}

func copyI(v *int) *int {
	if v == nil {
		return nil
	}
	n := *v
	return &n
}
