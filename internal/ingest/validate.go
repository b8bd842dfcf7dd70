package ingest

import (
	"sort"
	"strings"

	"github.com/quarterfold/suppliersync/internal/domain"
)

// AdmissionThresholdPercent is the minimum share of structurally valid
// products required for a batch to be processed at all. It bounds the blast
// radius of malformed supplier feeds.
const AdmissionThresholdPercent = 60

type ValidationResult struct {
	ValidProducts []domain.RawProduct
	Errors        []domain.ProductError
	IsBatchValid  bool
}

// ValidateBatch runs the structural and uniqueness validation of one raw
// batch. Pure function, no I/O: the same input always yields the same
// result, and every submitted product ends up in exactly one of
// ValidProducts or Errors.
func ValidateBatch(products []domain.RawProduct) ValidationResult {
	var res ValidationResult

	nonNull, nullErrors := filterNonNullKeyProducts(products)
	res.Errors = append(res.Errors, nullErrors...)

	unique, uniqueErrors := filterUniqueProducts(nonNull)
	res.Errors = append(res.Errors, uniqueErrors...)

	for _, product := range unique {
		if perr, ok := validateProduct(product); !ok {
			res.Errors = append(res.Errors, perr)
			continue
		}
		res.ValidProducts = append(res.ValidProducts, product)
	}

	res.IsBatchValid = isBatchValid(len(products), len(res.ValidProducts))

	return res
}

func isBatchValid(submitted, valid int) bool {
	if submitted == 0 {
		return false
	}
	return float64(valid)/float64(submitted)*100 >= AdmissionThresholdPercent
}

// filterNonNullKeyProducts drops any product missing a productKey or
// containing a variant with a missing variantKey. Products are never
// partially valid: one bad variant disqualifies the whole product.
func filterNonNullKeyProducts(products []domain.RawProduct) ([]domain.RawProduct, []domain.ProductError) {
	kept := make([]domain.RawProduct, 0, len(products))
	var errors []domain.ProductError

	for _, product := range products {
		if product.ProductKey == "" {
			errors = append(errors, domain.ProductError{
				ProductKey: product.ProductKey,
				RefID:      product.RefID,
				Reason:     "missing a productKey",
			})
			continue
		}

		var variantErrors []domain.VariantError
		for _, variant := range product.Variants {
			if variant.VariantKey == "" {
				variantErrors = append(variantErrors, domain.VariantError{
					VariantKey: variant.VariantKey,
					RefID:      variant.RefID,
					Reason:     "missing a variantKey",
				})
			}
		}

		if len(variantErrors) > 0 {
			errors = append(errors, domain.ProductError{
				ProductKey: product.ProductKey,
				RefID:      product.RefID,
				Reason:     "has variants with missing variantKey",
				Variants:   variantErrors,
			})
			continue
		}

		kept = append(kept, product)
	}

	return kept, errors
}

// filterUniqueProducts removes every copy of a duplicated productKey, then
// removes every product implicated in a variantKey collision across the
// whole batch.
func filterUniqueProducts(products []domain.RawProduct) ([]domain.RawProduct, []domain.ProductError) {
	var errors []domain.ProductError

	byKey := make(map[string][]domain.RawProduct)
	order := make([]string, 0, len(products))
	for _, product := range products {
		if _, seen := byKey[product.ProductKey]; !seen {
			order = append(order, product.ProductKey)
		}
		byKey[product.ProductKey] = append(byKey[product.ProductKey], product)
	}

	removed := make(map[string]bool)
	for _, key := range order {
		group := byKey[key]
		if len(group) <= 1 {
			continue
		}
		for _, dup := range group {
			errors = append(errors, domain.ProductError{
				ProductKey: dup.ProductKey,
				RefID:      dup.RefID,
				Reason:     "batch contains duplicates of this productKey",
			})
		}
		removed[key] = true
	}

	// Flatten all variants of the surviving one-per-key set and group by
	// variantKey. Any variantKey shared across (or within) products removes
	// every implicated product.
	type variantRef struct {
		product domain.RawProduct
		variant domain.RawVariant
	}
	variantsByKey := make(map[string][]variantRef)
	variantOrder := make([]string, 0)
	for _, key := range order {
		if removed[key] {
			continue
		}
		product := byKey[key][0]
		for _, variant := range product.Variants {
			if _, seen := variantsByKey[variant.VariantKey]; !seen {
				variantOrder = append(variantOrder, variant.VariantKey)
			}
			variantsByKey[variant.VariantKey] = append(variantsByKey[variant.VariantKey], variantRef{product: product, variant: variant})
		}
	}

	conflictByProduct := make(map[string]*domain.ProductError)
	conflictOrder := make([]string, 0)
	for _, vkey := range variantOrder {
		refs := variantsByKey[vkey]
		if len(refs) <= 1 {
			continue
		}
		for _, ref := range refs {
			perr, ok := conflictByProduct[ref.product.ProductKey]
			if !ok {
				perr = &domain.ProductError{
					ProductKey: ref.product.ProductKey,
					RefID:      ref.product.RefID,
					Reason:     "Product contains variants with duplicate variantKey values",
				}
				conflictByProduct[ref.product.ProductKey] = perr
				conflictOrder = append(conflictOrder, ref.product.ProductKey)
			}
			perr.Variants = append(perr.Variants, domain.VariantError{
				VariantKey: ref.variant.VariantKey,
				RefID:      ref.variant.RefID,
				Reason:     "batch contains duplicates of this variantKey",
			})
			removed[ref.product.ProductKey] = true
		}
	}
	for _, key := range conflictOrder {
		errors = append(errors, *conflictByProduct[key])
	}

	kept := make([]domain.RawProduct, 0, len(order))
	for _, key := range order {
		if removed[key] {
			continue
		}
		kept = append(kept, byKey[key][0])
	}

	return kept, errors
}

// validateProduct checks structural rules inside one product: duplicate
// option names, duplicate variant keys, and duplicate variant option tuples
// (case-insensitive on values). Any hit invalidates this product only.
func validateProduct(product domain.RawProduct) (domain.ProductError, bool) {
	var reasons []string

	seenOptions := make(map[string]bool)
	for _, option := range product.Options {
		if seenOptions[option] {
			reasons = append(reasons, "Product has duplicate options")
			break
		}
		seenOptions[option] = true
	}

	seenVariantKeys := make(map[string]bool)
	for _, variant := range product.Variants {
		if seenVariantKeys[variant.VariantKey] {
			reasons = append(reasons, "Product contains variants with duplicate variantKey")
			break
		}
		seenVariantKeys[variant.VariantKey] = true
	}

	seenTuples := make(map[string]bool)
	for _, variant := range product.Variants {
		tuple := optionTupleKey(variant.Options)
		if seenTuples[tuple] {
			reasons = append(reasons, "Product contains variants with duplicate options")
			break
		}
		seenTuples[tuple] = true
	}

	if len(reasons) == 0 {
		return domain.ProductError{}, true
	}

	return domain.ProductError{
		ProductKey: product.ProductKey,
		RefID:      product.RefID,
		Reason:     strings.Join(reasons, "; "),
	}, false
}

// optionTupleKey builds a deterministic, case-insensitive identity for a
// variant's option map.
func optionTupleKey(options map[string]string) string {
	if len(options) == 0 {
		return ""
	}

	keys := make([]string, 0, len(options))
	for k := range options {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(strings.ToLower(options[k]))
		b.WriteByte(';')
	}
	return b.String()
}
