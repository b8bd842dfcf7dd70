package inventory

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarterfold/suppliersync/internal/apierr"
	"github.com/quarterfold/suppliersync/internal/domain"
	"github.com/quarterfold/suppliersync/internal/state"
)

func floatp(v float64) *float64 { return &v }
func intp(v int) *int           { return &v }
func boolp(v bool) *bool        { return &v }

func newTestResolver(t *testing.T, platform domain.Platform) (*Resolver, *state.MemoryStore) {
	t.Helper()
	store := state.NewMemoryStore()
	return NewResolver(store, platform, log.New(io.Discard, "", 0)), store
}

func adjustmentSupplier() domain.Supplier {
	return domain.Supplier{
		ID:     "supplier-a",
		Name:   "Supplier A",
		Config: domain.SupplierConfig{Currency: "usd"},
	}
}

func seedCanonicalVariant(t *testing.T, store *state.MemoryStore, supplierID, productKey, variantKey, sku string) domain.SuppliedVariant {
	t.Helper()

	now := time.Now().UTC()
	sp := domain.SuppliedProduct{
		ProductID: productKey,
		Name:      "Product " + productKey,
		State:     domain.StateEnabled,
		CheckedOn: now,
		Variants: []domain.SuppliedVariant{{
			VariantID:         variantKey,
			ProductID:         productKey,
			SKU:               sku,
			Price:             floatp(10),
			InventoryQuantity: intp(5),
			InventoryPolicy:   domain.InventoryPolicyDeny,
			State:             domain.StateEnabled,
			CheckedOn:         now,
		}},
	}

	stored, err := store.UpsertSuppliedProduct(context.Background(), supplierID, sp)
	require.NoError(t, err)
	require.Len(t, stored.Variants, 1)
	return stored.Variants[0]
}

func TestProcessAdjustments_RejectsBothKeys(t *testing.T) {
	r, store := newTestResolver(t, domain.PlatformMerchantAPI)
	supplier := adjustmentSupplier()
	seedCanonicalVariant(t, store, supplier.ID, "p1", "v1", "SKU-1")

	err := r.ProcessAdjustments(context.Background(), []domain.AdjustmentItem{
		{SKU: "SKU-1", VariantKey: "v1", Quantity: intp(3)},
	}, supplier)

	require.Error(t, err)
	assert.Equal(t, "Must pass a valid value for either variantKey or sku", err.Error())
	assert.Equal(t, 400, apierr.StatusOf(err, 0))
}

func TestProcessAdjustments_RejectsNeitherKey(t *testing.T) {
	r, _ := newTestResolver(t, domain.PlatformMerchantAPI)

	err := r.ProcessAdjustments(context.Background(), []domain.AdjustmentItem{
		{Quantity: intp(3)},
	}, adjustmentSupplier())

	require.Error(t, err)
	assert.Equal(t, "Must pass a valid value for either variantKey or sku", err.Error())
}

func TestProcessAdjustments_KeyShapeRejectionHappensBeforeAnyWrite(t *testing.T) {
	r, store := newTestResolver(t, domain.PlatformMerchantAPI)
	supplier := adjustmentSupplier()
	seeded := seedCanonicalVariant(t, store, supplier.ID, "p1", "v1", "SKU-1")

	err := r.ProcessAdjustments(context.Background(), []domain.AdjustmentItem{
		{VariantKey: "v1", Quantity: intp(99)},
		{SKU: "SKU-1", VariantKey: "v1"}, // malformed
	}, supplier)
	require.Error(t, err)

	sp, _, err2 := store.GetSuppliedProduct(context.Background(), supplier.ID, "p1")
	require.NoError(t, err2)
	require.Len(t, sp.Variants, 1)
	assert.Equal(t, 5, *sp.Variants[0].InventoryQuantity, "quantity of %s must be untouched", seeded.VariantID)
}

func TestProcessAdjustments_NoMatch(t *testing.T) {
	r, _ := newTestResolver(t, domain.PlatformMerchantAPI)

	err := r.ProcessAdjustments(context.Background(), []domain.AdjustmentItem{
		{VariantKey: "missing", Quantity: intp(3)},
	}, adjustmentSupplier())

	require.Error(t, err)
	var batchErr *apierr.BatchError
	require.ErrorAs(t, err, &batchErr)
	assert.Equal(t, 422, batchErr.Status)
	require.Len(t, batchErr.Issues, 1)
	assert.Equal(t, 0, batchErr.Issues[0].Path)
	assert.Equal(t, "No variant found with variantKey value of missing", batchErr.Issues[0].Message)
}

func TestProcessAdjustments_ForeignSupplierMatchRejected(t *testing.T) {
	r, store := newTestResolver(t, domain.PlatformMerchantAPI)
	supplier := adjustmentSupplier()
	seedCanonicalVariant(t, store, "supplier-other", "p1", "v1", "SKU-1")

	err := r.ProcessAdjustments(context.Background(), []domain.AdjustmentItem{
		{SKU: "SKU-1", Quantity: intp(3)},
	}, supplier)

	var batchErr *apierr.BatchError
	require.ErrorAs(t, err, &batchErr)
	assert.Equal(t, "No variant matched with sku value of SKU-1 and supplier supplier-a", batchErr.Issues[0].Message)
}

func TestProcessAdjustments_AmbiguousMatchRejected(t *testing.T) {
	r, store := newTestResolver(t, domain.PlatformMerchantAPI)
	supplier := adjustmentSupplier()
	seedCanonicalVariant(t, store, supplier.ID, "p1", "v1", "SKU-1")
	seedCanonicalVariant(t, store, supplier.ID, "p2", "v2", "SKU-1")

	err := r.ProcessAdjustments(context.Background(), []domain.AdjustmentItem{
		{SKU: "SKU-1", Quantity: intp(3)},
	}, supplier)

	var batchErr *apierr.BatchError
	require.ErrorAs(t, err, &batchErr)
	assert.Equal(t, "Multiple variants matched with sku value of SKU-1 and supplier supplier-a", batchErr.Issues[0].Message)
}

func TestProcessAdjustments_CurrencyMismatch(t *testing.T) {
	r, store := newTestResolver(t, domain.PlatformMerchantAPI)
	supplier := adjustmentSupplier()
	seedCanonicalVariant(t, store, supplier.ID, "p1", "v1", "SKU-1")

	err := r.ProcessAdjustments(context.Background(), []domain.AdjustmentItem{
		{VariantKey: "v1", Price: &domain.Money{Amount: floatp(12)}, Currency: "eur"},
	}, supplier)

	var batchErr *apierr.BatchError
	require.ErrorAs(t, err, &batchErr)
	assert.Equal(t, "Currency value does not match value inside of supplier configuration", batchErr.Issues[0].Message)
}

func TestProcessAdjustments_AllOrNothing(t *testing.T) {
	r, store := newTestResolver(t, domain.PlatformMerchantAPI)
	supplier := adjustmentSupplier()
	seedCanonicalVariant(t, store, supplier.ID, "p1", "v1", "SKU-1")

	err := r.ProcessAdjustments(context.Background(), []domain.AdjustmentItem{
		{VariantKey: "v1", Quantity: intp(42)}, // resolvable
		{VariantKey: "missing", Quantity: intp(1)},
	}, supplier)

	var batchErr *apierr.BatchError
	require.ErrorAs(t, err, &batchErr)
	require.Len(t, batchErr.Issues, 1)
	assert.Equal(t, 1, batchErr.Issues[0].Path)

	sp, _, err2 := store.GetSuppliedProduct(context.Background(), supplier.ID, "p1")
	require.NoError(t, err2)
	assert.Equal(t, 5, *sp.Variants[0].InventoryQuantity, "resolvable item must not persist when a sibling fails")
}

func TestProcessAdjustments_AppliesCanonicalUpdate(t *testing.T) {
	r, store := newTestResolver(t, domain.PlatformMerchantAPI)
	supplier := adjustmentSupplier()
	seedCanonicalVariant(t, store, supplier.ID, "p1", "v1", "SKU-1")

	err := r.ProcessAdjustments(context.Background(), []domain.AdjustmentItem{
		{
			VariantKey: "v1",
			Quantity:   intp(42),
			Price:      &domain.Money{Amount: floatp(12.5), Currency: "USD"},
		},
	}, supplier)
	require.NoError(t, err)

	sp, _, err := store.GetSuppliedProduct(context.Background(), supplier.ID, "p1")
	require.NoError(t, err)
	v := sp.Variants[0]
	assert.Equal(t, 42, *v.InventoryQuantity)
	assert.Equal(t, 12.5, *v.Price)
}

func TestProcessAdjustments_GeneratedSKULookupMatches(t *testing.T) {
	r, store := newTestResolver(t, domain.PlatformMerchantAPI)
	supplier := adjustmentSupplier()
	seeded := seedCanonicalVariant(t, store, supplier.ID, "p1", "v1", "")
	require.NoError(t, store.SetGeneratedSKU(context.Background(), seeded.ID, "SYNC-abc12345"))

	err := r.ProcessAdjustments(context.Background(), []domain.AdjustmentItem{
		{SKU: "SYNC-abc12345", Quantity: intp(3)},
	}, supplier)
	require.NoError(t, err)

	sp, _, err := store.GetSuppliedProduct(context.Background(), supplier.ID, "p1")
	require.NoError(t, err)
	assert.Equal(t, 3, *sp.Variants[0].InventoryQuantity)
}

func TestProcessAdjustments_UnlimitedFlipsPolicy(t *testing.T) {
	r, store := newTestResolver(t, domain.PlatformMerchantAPI)
	supplier := adjustmentSupplier()
	seedCanonicalVariant(t, store, supplier.ID, "p1", "v1", "SKU-1")

	err := r.ProcessAdjustments(context.Background(), []domain.AdjustmentItem{
		{VariantKey: "v1", Unlimited: boolp(true)},
	}, supplier)
	require.NoError(t, err)

	sp, _, err := store.GetSuppliedProduct(context.Background(), supplier.ID, "p1")
	require.NoError(t, err)
	assert.Equal(t, domain.InventoryPolicyContinue, sp.Variants[0].InventoryPolicy)
}

func seedImportedVariant(t *testing.T, store *state.MemoryStore, supplierID string, iv domain.ImportedVariant) {
	t.Helper()
	err := store.PutImportedProduct(context.Background(), domain.ImportedProduct{
		SupplierID:      supplierID,
		VendorProductID: "p1",
		ExternalID:      "ext-p1",
		Imported:        true,
		State:           domain.StateEnabled,
		Variants:        []domain.ImportedVariant{iv},
	})
	require.NoError(t, err)
}

func TestProcessAdjustments_MerchantAPIPropagatesFullUpdate(t *testing.T) {
	r, store := newTestResolver(t, domain.PlatformMerchantAPI)
	supplier := adjustmentSupplier()
	seedCanonicalVariant(t, store, supplier.ID, "p1", "v1", "SKU-1")
	seedImportedVariant(t, store, supplier.ID, domain.ImportedVariant{
		VendorVariantID: "v1",
		SKU:             "SKU-1",
		Qty:             5,
		TrackInventory:  true,
		State:           domain.StateEnabled,
	})

	err := r.ProcessAdjustments(context.Background(), []domain.AdjustmentItem{
		{VariantKey: "v1", Quantity: intp(9), Price: &domain.Money{Amount: floatp(11)}},
	}, supplier)
	require.NoError(t, err)

	ivs, err := store.FindImportedVariants(context.Background(), supplier.ID, "v1")
	require.NoError(t, err)
	require.Len(t, ivs, 1)
	assert.Equal(t, 9, ivs[0].Qty)
	assert.Equal(t, 11.0, *ivs[0].Price)
}

func TestProcessAdjustments_ShopifyOnlyPropagatesWholesale(t *testing.T) {
	r, store := newTestResolver(t, domain.PlatformShopify)
	supplier := adjustmentSupplier()
	seedCanonicalVariant(t, store, supplier.ID, "p1", "v1", "SKU-1")
	seedImportedVariant(t, store, supplier.ID, domain.ImportedVariant{
		VendorVariantID: "v1",
		SKU:             "SKU-1",
		Qty:             5,
		TrackInventory:  true,
		State:           domain.StateEnabled,
	})

	// A plain quantity adjustment stays canonical on queue-driven platforms.
	err := r.ProcessAdjustments(context.Background(), []domain.AdjustmentItem{
		{VariantKey: "v1", Quantity: intp(9)},
	}, supplier)
	require.NoError(t, err)

	ivs, err := store.FindImportedVariants(context.Background(), supplier.ID, "v1")
	require.NoError(t, err)
	assert.Equal(t, 5, ivs[0].Qty, "downstream qty must not move on shopify")

	// A wholesale adjustment flows through, restricted to its subset.
	err = r.ProcessAdjustments(context.Background(), []domain.AdjustmentItem{
		{VariantKey: "v1", WholesalePrice: &domain.Money{Amount: floatp(4.5)}, Quantity: intp(50)},
	}, supplier)
	require.NoError(t, err)

	ivs, err = store.FindImportedVariants(context.Background(), supplier.ID, "v1")
	require.NoError(t, err)
	require.NotNil(t, ivs[0].WholesalePrice)
	assert.Equal(t, 4.5, *ivs[0].WholesalePrice)
	assert.Equal(t, 5, ivs[0].Qty, "quantity stays out of the wholesale subset")
}

func TestProcessAdjustments_WholesaleRevivesParkedVariant(t *testing.T) {
	r, store := newTestResolver(t, domain.PlatformShopify)
	supplier := adjustmentSupplier()
	seedCanonicalVariant(t, store, supplier.ID, "p1", "v1", "SKU-1")

	at := time.Now().UTC()
	seedImportedVariant(t, store, supplier.ID, domain.ImportedVariant{
		VendorVariantID: "v1",
		SKU:             "SKU-1",
		TrackInventory:  true,
		State:           domain.StateDisabled,
		DisabledAt:      &at,
		DisabledCode:    "missing_wholesale_price",
	})

	err := r.ProcessAdjustments(context.Background(), []domain.AdjustmentItem{
		{VariantKey: "v1", WholesalePrice: &domain.Money{Amount: floatp(4.5)}},
	}, supplier)
	require.NoError(t, err)

	ivs, err := store.FindImportedVariants(context.Background(), supplier.ID, "v1")
	require.NoError(t, err)
	iv := ivs[0]
	assert.Equal(t, domain.StateEnabled, iv.State)
	assert.Empty(t, iv.DisabledCode)
	assert.Nil(t, iv.DisabledAt)
	require.NotNil(t, iv.WholesalePrice)
	assert.Equal(t, 4.5, *iv.WholesalePrice)
}

func TestProcessAdjustments_WholesaleDoesNotReviveDisabledCanonical(t *testing.T) {
	r, store := newTestResolver(t, domain.PlatformShopify)
	supplier := adjustmentSupplier()

	// Canonical variant disabled.
	now := time.Now().UTC()
	_, err := store.UpsertSuppliedProduct(context.Background(), supplier.ID, domain.SuppliedProduct{
		ProductID: "p1",
		Name:      "Product p1",
		State:     domain.StateEnabled,
		CheckedOn: now,
		Variants: []domain.SuppliedVariant{{
			VariantID: "v1",
			ProductID: "p1",
			SKU:       "SKU-1",
			State:     domain.StateDisabled,
			CheckedOn: now,
		}},
	})
	require.NoError(t, err)

	at := now
	seedImportedVariant(t, store, supplier.ID, domain.ImportedVariant{
		VendorVariantID: "v1",
		SKU:             "SKU-1",
		TrackInventory:  true,
		State:           domain.StateDisabled,
		DisabledAt:      &at,
		DisabledCode:    "missing_wholesale_price",
	})

	err = r.ProcessAdjustments(context.Background(), []domain.AdjustmentItem{
		{VariantKey: "v1", WholesalePrice: &domain.Money{Amount: floatp(4.5)}},
	}, supplier)
	require.NoError(t, err)

	ivs, err := store.FindImportedVariants(context.Background(), supplier.ID, "v1")
	require.NoError(t, err)
	iv := ivs[0]
	assert.Equal(t, domain.StateDisabled, iv.State)
	assert.Empty(t, iv.DisabledCode)
	assert.Equal(t, "Supplier product variant is disabled", iv.DisabledEvent)
}
