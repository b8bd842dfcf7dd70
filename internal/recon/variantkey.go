package recon

import (
	"context"
	"time"

	"github.com/quarterfold/suppliersync/internal/domain"
	"github.com/quarterfold/suppliersync/internal/ingest"
)

// variantKeyPass is the outcome of one immutable-variant-key reconciliation
// run over a validated batch.
type variantKeyPass struct {
	status    domain.BatchStatus
	imported  []domain.ImportedProductRef
	errors    []domain.ProductError
	conflicts []ConflictRecord
	err       error
}

// ConflictRecord surfaces one flagged collision in the batch result so the
// colliding canonical variant can be reviewed by id.
type ConflictRecord struct {
	VariantKey         string `json:"variantKey"`
	CanonicalVariantID string `json:"canonicalVariantId"`
	Reason             string `json:"reason"`
}

type flaggedVariantError struct {
	productKey string
	variant    domain.VariantError
}

// runVariantKeyPass flattens the batch to variants, classifies each against
// canonical state, accumulates upserts per product, and persists the
// surviving set if at least 60% of submitted products made it through.
func (p *Processor) runVariantKeyPass(ctx context.Context, supplier domain.Supplier, products []domain.RawProduct, batchTimestamp time.Time) variantKeyPass {
	pass := variantKeyPass{status: domain.BatchStatusProcessing}

	existing, err := p.store.ListSuppliedProducts(ctx, supplier.ID)
	if err != nil {
		pass.err = err
		return pass
	}

	existingByProductKey := make(map[string]*domain.SuppliedProduct, len(existing))
	variantsByKey := make(map[string][]domain.SuppliedVariant)
	for i := range existing {
		existingByProductKey[existing[i].ProductID] = &existing[i]
		for _, v := range existing[i].Variants {
			// Variant keys are unique among enabled variants only. A retired
			// copy left behind by a cross-product move stays canonical for
			// audit but no longer occupies its key.
			if v.State == domain.StateDisabled {
				continue
			}
			variantsByKey[v.VariantID] = append(variantsByKey[v.VariantID], v)
		}
	}

	productsByKey := make(map[string]domain.RawProduct, len(products))
	for _, product := range products {
		productsByKey[product.ProductKey] = product
	}

	// Accumulator owned by this pass: productKey -> product to upsert with
	// only the variants that classified cleanly.
	upserts := make(map[string]*domain.SuppliedProduct)
	var variantErrors []flaggedVariantError

	accumulate := func(product domain.RawProduct, mapped domain.SuppliedVariant) {
		target, ok := upserts[product.ProductKey]
		if !ok {
			t := ingest.ToSuppliedProduct(product)
			t.Variants = nil
			target = &t
			upserts[product.ProductKey] = target
		}
		target.Variants = append(target.Variants, mapped)
	}

	for _, product := range products {
		for _, variant := range product.Variants {
			adjusted, reason, ok := ApplyVariantPolicy(variant, product, supplier)
			if !ok {
				variantErrors = append(variantErrors, flaggedVariantError{
					productKey: product.ProductKey,
					variant: domain.VariantError{
						VariantKey: variant.VariantKey,
						RefID:      variant.RefID,
						Reason:     reason,
					},
				})
				continue
			}

			mapped := ingest.ToSuppliedVariant(product, adjusted)
			outcome := Classify(MatchInput{
				Incoming:      mapped,
				Matches:       variantsByKey[mapped.VariantID],
				TargetProduct: existingByProductKey[product.ProductKey],
			})

			switch outcome.Kind {
			case OutcomeDuplicate:
				variantErrors = append(variantErrors, flaggedVariantError{
					productKey: product.ProductKey,
					variant: domain.VariantError{
						VariantKey: variant.VariantKey,
						RefID:      variant.RefID,
						Reason:     outcome.Reason,
					},
				})

			case OutcomeConflict:
				pass.conflicts = append(pass.conflicts, ConflictRecord{
					VariantKey:         mapped.VariantID,
					CanonicalVariantID: outcome.MatchedVariantID,
					Reason:             outcome.Reason,
				})
				p.logger.Printf("recon: conflict on variantKey %s (canonical %s): %s",
					mapped.VariantID, outcome.MatchedVariantID, outcome.Reason)
				accumulate(product, mapped)

			default:
				accumulate(product, mapped)
			}
		}
	}

	// One rejected variant excludes its whole product from the upsert set.
	errorsByProductKey := make(map[string]*domain.ProductError)
	var errorKeyOrder []string
	for _, ve := range variantErrors {
		pe, ok := errorsByProductKey[ve.productKey]
		if !ok {
			pe = &domain.ProductError{
				ProductKey: ve.productKey,
				RefID:      productsByKey[ve.productKey].RefID,
				Reason:     msgVariantErrors,
			}
			errorsByProductKey[ve.productKey] = pe
			errorKeyOrder = append(errorKeyOrder, ve.productKey)
		}
		pe.Variants = append(pe.Variants, ve.variant)
	}
	for key := range errorsByProductKey {
		delete(upserts, key)
	}
	for _, key := range errorKeyOrder {
		pass.errors = append(pass.errors, *errorsByProductKey[key])
	}

	// Shared checkedOn timestamp across the surviving set.
	toUpsert := make([]domain.SuppliedProduct, 0, len(upserts))
	for _, product := range products {
		target, ok := upserts[product.ProductKey]
		if !ok {
			continue
		}
		target.CheckedOn = batchTimestamp
		for i := range target.Variants {
			target.Variants[i].CheckedOn = batchTimestamp
		}
		toUpsert = append(toUpsert, *target)
	}

	if len(products) == 0 || float64(len(toUpsert))/float64(len(products))*100 < ingest.AdmissionThresholdPercent {
		pass.status = domain.BatchStatusError
		return pass
	}

	applyDisableCascade(toUpsert)

	if err := p.propagator.UpsertAll(ctx, toUpsert, supplier, batchTimestamp); err != nil {
		pass.err = err
		return pass
	}

	for _, product := range toUpsert {
		ref := domain.ImportedProductRef{ProductKey: product.ProductID}
		for _, v := range product.Variants {
			ref.Variants = append(ref.Variants, domain.ImportedVariantRef{VariantKey: v.VariantID})
		}
		pass.imported = append(pass.imported, ref)
	}
	pass.status = domain.BatchStatusSuccess
	return pass
}

// applyDisableCascade makes disabled state self-consistent before persisting:
// a disabled product disables all its variants, and a disabled variant
// always carries zero quantity with a deny policy.
func applyDisableCascade(products []domain.SuppliedProduct) {
	for i := range products {
		product := &products[i]
		for j := range product.Variants {
			v := &product.Variants[j]
			if product.State == domain.StateDisabled {
				v.State = domain.StateDisabled
			}
			if v.State == domain.StateDisabled {
				zero := 0
				v.InventoryQuantity = &zero
				v.InventoryPolicy = domain.InventoryPolicyDeny
			}
		}
	}
}
