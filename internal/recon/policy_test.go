package recon

import (
	"strings"
	"testing"

	"github.com/quarterfold/suppliersync/internal/domain"
)

func floatp(v float64) *float64 { return &v }
func intp(v int) *int           { return &v }

func supplierWith(settings domain.SyncSettings, currency string) domain.Supplier {
	return domain.Supplier{
		ID:   "supplier-a",
		Name: "Supplier A",
		Config: domain.SupplierConfig{
			Currency:             currency,
			ProductsSyncSettings: &settings,
		},
	}
}

func TestApplyVariantPolicy_RequiredPriceMissing(t *testing.T) {
	supplier := supplierWith(domain.SyncSettings{HasPricing: true}, "")

	_, reason, ok := ApplyVariantPolicy(domain.RawVariant{VariantKey: "v1"}, domain.RawProduct{ProductKey: "p1"}, supplier)

	if ok {
		t.Fatalf("expected rejection for missing price")
	}
	if reason != "hasPricing flag is set for this supplier but variant is missing a price value" {
		t.Fatalf("reason = %q", reason)
	}
}

func TestApplyVariantPolicy_StripsFieldsNotOptedInto(t *testing.T) {
	supplier := supplierWith(domain.SyncSettings{}, "")
	v := domain.RawVariant{
		VariantKey:     "v1",
		Price:          &domain.Money{Amount: floatp(10)},
		WholesalePrice: &domain.Money{Amount: floatp(5)},
		Stock:          &domain.Stock{Quantity: intp(3)},
	}

	adjusted, _, ok := ApplyVariantPolicy(v, domain.RawProduct{ProductKey: "p1"}, supplier)

	if !ok {
		t.Fatalf("expected variant accepted")
	}
	if adjusted.Price != nil || adjusted.WholesalePrice != nil || adjusted.Stock != nil {
		t.Fatalf("expected unconfigured fields stripped, got %+v", adjusted)
	}
}

func TestApplyVariantPolicy_CurrencyMismatch(t *testing.T) {
	supplier := supplierWith(domain.SyncSettings{HasPricing: true}, "usd")
	v := domain.RawVariant{
		VariantKey: "v1",
		Price:      &domain.Money{Amount: floatp(10), Currency: "EUR"},
	}

	_, reason, ok := ApplyVariantPolicy(v, domain.RawProduct{ProductKey: "p1"}, supplier)

	if ok {
		t.Fatalf("expected rejection for currency mismatch")
	}
	if reason != "currency supplier configuration does not match the currency sent" {
		t.Fatalf("reason = %q", reason)
	}
}

func TestApplyVariantPolicy_CurrencyComparisonIsCaseInsensitive(t *testing.T) {
	supplier := supplierWith(domain.SyncSettings{HasPricing: true}, "USD")
	v := domain.RawVariant{
		VariantKey: "v1",
		Price:      &domain.Money{Amount: floatp(10), Currency: "usd"},
	}

	_, _, ok := ApplyVariantPolicy(v, domain.RawProduct{ProductKey: "p1"}, supplier)

	if !ok {
		t.Fatalf("expected case-insensitive currency match to pass")
	}
}

func TestApplyVariantPolicy_VariantOptionsWithoutProductOptions(t *testing.T) {
	supplier := supplierWith(domain.SyncSettings{}, "")
	v := domain.RawVariant{
		VariantKey: "v1",
		Options:    map[string]string{"Color": "Red"},
	}

	_, reason, ok := ApplyVariantPolicy(v, domain.RawProduct{ProductKey: "p1"}, supplier)

	if ok {
		t.Fatalf("expected rejection")
	}
	if !strings.Contains(reason, "variant includes options but product has no options") {
		t.Fatalf("reason = %q", reason)
	}
}

func TestApplyVariantPolicy_UnknownAndMissingOptions(t *testing.T) {
	supplier := supplierWith(domain.SyncSettings{}, "")
	product := domain.RawProduct{ProductKey: "p1", Options: []string{"Color", "Size"}}
	v := domain.RawVariant{
		VariantKey: "v1",
		Options:    map[string]string{"Color": "Red", "Material": "Wool"},
	}

	_, reason, ok := ApplyVariantPolicy(v, product, supplier)

	if ok {
		t.Fatalf("expected rejection")
	}
	if !strings.Contains(reason, "variant includes options that are not found in product: Material") {
		t.Fatalf("reason missing unknown option: %q", reason)
	}
	if !strings.Contains(reason, "variant is missing the following options found in product: Size") {
		t.Fatalf("reason missing absent option: %q", reason)
	}
}

func TestApplyVariantPolicy_MultipleReasonsJoined(t *testing.T) {
	supplier := supplierWith(domain.SyncSettings{HasPricing: true, HasInventory: true}, "")

	_, reason, ok := ApplyVariantPolicy(domain.RawVariant{VariantKey: "v1"}, domain.RawProduct{ProductKey: "p1"}, supplier)

	if ok {
		t.Fatalf("expected rejection")
	}
	if !strings.Contains(reason, "; ") {
		t.Fatalf("expected joined reasons, got %q", reason)
	}
}
