package recon

import (
	"fmt"
	"sort"
	"strings"

	"github.com/quarterfold/suppliersync/internal/domain"
)

// ApplyVariantPolicy checks one raw variant against the supplier's sync
// settings and returns the policy-adjusted copy. Fields the supplier has not
// opted into are stripped even when present; fields the supplier requires
// must carry a value. The returned reason joins every violation with "; ".
func ApplyVariantPolicy(variant domain.RawVariant, product domain.RawProduct, supplier domain.Supplier) (domain.RawVariant, string, bool) {
	settings := supplier.Config.SyncSettingsOrDefault()
	reasons := make([]string, 0, 2)

	if settings.HasPricing {
		if variant.Price == nil || variant.Price.Amount == nil {
			reasons = append(reasons, "hasPricing flag is set for this supplier but variant is missing a price value")
		}
	} else {
		variant.Price = nil
	}

	if settings.HasInventory {
		if variant.Stock == nil {
			reasons = append(reasons, "hasInventory flag is set for this supplier but variant is missing a stock value")
		}
	} else {
		variant.Stock = nil
	}

	if settings.HasWholesalePricing {
		if variant.WholesalePrice == nil || variant.WholesalePrice.Amount == nil {
			reasons = append(reasons, "hasWholesalePricing flag is set for this supplier but variant is missing a wholesalePrice value")
		}
	} else {
		variant.WholesalePrice = nil
	}

	if supplier.Config.Currency != "" && hasCurrencyMismatch(variant, supplier.Config.Currency) {
		reasons = append(reasons, "currency supplier configuration does not match the currency sent")
	}

	reasons = append(reasons, optionConsistencyReasons(variant, product)...)

	if len(reasons) > 0 {
		return variant, strings.Join(reasons, "; "), false
	}
	return variant, "", true
}

func hasCurrencyMismatch(variant domain.RawVariant, supplierCurrency string) bool {
	want := strings.ToLower(supplierCurrency)
	for _, m := range []*domain.Money{variant.Price, variant.WholesalePrice, variant.CompareToPrice} {
		if m != nil && m.Currency != "" && strings.ToLower(m.Currency) != want {
			return true
		}
	}
	return false
}

func optionConsistencyReasons(variant domain.RawVariant, product domain.RawProduct) []string {
	reasons := make([]string, 0, 1)

	if len(product.Options) == 0 && len(variant.Options) > 0 {
		reasons = append(reasons, "variant includes options but product has no options")
	}

	invalid := make([]string, 0, 1)
	for key := range variant.Options {
		if !containsString(product.Options, key) {
			invalid = append(invalid, key)
		}
	}
	if len(invalid) > 0 {
		sort.Strings(invalid)
		reasons = append(reasons, fmt.Sprintf("variant includes options that are not found in product: %s", strings.Join(invalid, ",")))
	}

	missing := make([]string, 0, 1)
	for _, name := range product.Options {
		if _, ok := variant.Options[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		reasons = append(reasons, fmt.Sprintf("variant is missing the following options found in product: %s", strings.Join(missing, ",")))
	}

	return reasons
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
