package sync

import (
	"context"
	"io"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarterfold/suppliersync/internal/domain"
	"github.com/quarterfold/suppliersync/internal/notify"
	"github.com/quarterfold/suppliersync/internal/state"
)

func newTestPropagator(t *testing.T, platform domain.Platform) (*Propagator, *state.MemoryStore, *notify.MemoryDispatcher) {
	t.Helper()

	store := state.NewMemoryStore()
	dispatcher := notify.NewMemoryDispatcher()
	p := NewPropagator(store, dispatcher, platform, "SYNC-", log.New(io.Discard, "", 0))
	return p, store, dispatcher
}

func testSupplier() domain.Supplier {
	return domain.Supplier{
		ID:   "supplier-a",
		Name: "Supplier A",
		Config: domain.SupplierConfig{
			Currency:     "usd",
			UpdatePrices: true,
		},
	}
}

func canonicalProduct(productKey string, checkedOn time.Time, variants ...domain.SuppliedVariant) domain.SuppliedProduct {
	return domain.SuppliedProduct{
		ProductID: productKey,
		Name:      "Product " + productKey,
		State:     domain.StateEnabled,
		CheckedOn: checkedOn,
		Variants:  variants,
	}
}

func seedImported(t *testing.T, store *state.MemoryStore, supplierID string, ip domain.ImportedProduct) {
	t.Helper()
	ip.SupplierID = supplierID
	if err := store.PutImportedProduct(context.Background(), ip); err != nil {
		t.Fatalf("seed imported: %v", err)
	}
}

func TestPropagator_UpsertAssignsGeneratedSKUs(t *testing.T) {
	p, store, _ := newTestPropagator(t, domain.PlatformShopify)
	supplier := testSupplier()
	ctx := context.Background()

	now := time.Now().UTC()
	err := p.Upsert(ctx, canonicalProduct("p1", now, domain.SuppliedVariant{
		VariantID: "v1",
		ProductID: "p1",
		State:     domain.StateEnabled,
		CheckedOn: now,
	}), supplier)
	require.NoError(t, err)

	sp, ok, err := store.GetSuppliedProduct(ctx, supplier.ID, "p1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, sp.Variants, 1)

	gen := sp.Variants[0].GeneratedSKU
	require.NotEmpty(t, gen)
	assert.True(t, strings.HasPrefix(gen, "SYNC-"), "generated sku %q", gen)
	assert.Len(t, gen, len("SYNC-")+8)

	taken, err := store.HasGeneratedSKU(ctx, gen)
	require.NoError(t, err)
	assert.True(t, taken)
}

func TestPropagator_UpsertKeepsSupplierSKU(t *testing.T) {
	p, store, _ := newTestPropagator(t, domain.PlatformShopify)
	supplier := testSupplier()
	ctx := context.Background()

	now := time.Now().UTC()
	err := p.Upsert(ctx, canonicalProduct("p1", now, domain.SuppliedVariant{
		VariantID: "v1",
		ProductID: "p1",
		SKU:       "SUPPLIER-SKU",
		State:     domain.StateEnabled,
		CheckedOn: now,
	}), supplier)
	require.NoError(t, err)

	sp, _, err := store.GetSuppliedProduct(ctx, supplier.ID, "p1")
	require.NoError(t, err)
	assert.Empty(t, sp.Variants[0].GeneratedSKU)
}

func TestPropagator_PriceChangeNotifiesInventoryQueue(t *testing.T) {
	p, store, dispatcher := newTestPropagator(t, domain.PlatformShopify)
	supplier := testSupplier()
	ctx := context.Background()

	now := time.Now().UTC()
	price := 10.0
	qty := 5

	first := canonicalProduct("p1", now, domain.SuppliedVariant{
		VariantID:         "v1",
		ProductID:         "p1",
		SKU:               "SKU-1",
		Price:             &price,
		InventoryQuantity: &qty,
		InventoryPolicy:   domain.InventoryPolicyDeny,
		State:             domain.StateEnabled,
		CheckedOn:         now,
	})
	require.NoError(t, p.Upsert(ctx, first, supplier))

	seedImported(t, store, supplier.ID, domain.ImportedProduct{
		VendorProductID: "p1",
		ExternalID:      "ext-p1",
		Imported:        true,
		State:           domain.StateEnabled,
		Variants: []domain.ImportedVariant{{
			VendorVariantID: "v1",
			ItemID:          "item-1",
			ExternalID:      "ext-v1",
			SKU:             "SKU-1",
			Price:           &price,
			Qty:             qty,
			TrackInventory:  true,
			State:           domain.StateEnabled,
		}},
	})

	newPrice := 12.5
	second := first
	second.Variants = []domain.SuppliedVariant{first.Variants[0]}
	second.Variants[0].Price = &newPrice
	require.NoError(t, p.Upsert(ctx, second, supplier))

	require.Len(t, dispatcher.InventoryPrices, 1)
	send := dispatcher.InventoryPrices[0]
	assert.Equal(t, supplier.ID, send.SupplierID)
	require.Len(t, send.Items, 1)
	assert.Equal(t, "item-1", send.Items[0].ID)
	assert.Equal(t, "p1", send.Items[0].ProductID)
	require.NotNil(t, send.Items[0].Price)
	assert.Equal(t, 12.5, *send.Items[0].Price)

	// Downstream row actually moved.
	ivs, err := store.FindImportedVariants(ctx, supplier.ID, "v1")
	require.NoError(t, err)
	require.Len(t, ivs, 1)
	require.NotNil(t, ivs[0].Price)
	assert.Equal(t, 12.5, *ivs[0].Price)
}

func TestPropagator_UnimportedProductsStayLocal(t *testing.T) {
	p, store, dispatcher := newTestPropagator(t, domain.PlatformShopify)
	supplier := testSupplier()
	ctx := context.Background()

	// Downstream row exists but was never imported by the merchant.
	seedImported(t, store, supplier.ID, domain.ImportedProduct{
		VendorProductID: "p1",
		Imported:        false,
		State:           domain.StateEnabled,
	})

	now := time.Now().UTC()
	price := 10.0
	require.NoError(t, p.Upsert(ctx, canonicalProduct("p1", now, domain.SuppliedVariant{
		VariantID: "v1",
		ProductID: "p1",
		SKU:       "SKU-1",
		Price:     &price,
		State:     domain.StateEnabled,
		CheckedOn: now,
	}), supplier))

	assert.Empty(t, dispatcher.InventoryPrices)
	assert.Empty(t, dispatcher.StatusUpdates)
}

func TestPropagator_RetiredProductsDisableDownstream(t *testing.T) {
	p, store, dispatcher := newTestPropagator(t, domain.PlatformShopify)
	supplier := testSupplier()
	ctx := context.Background()

	old := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, p.Upsert(ctx, canonicalProduct("p-old", old, domain.SuppliedVariant{
		VariantID: "v-old",
		ProductID: "p-old",
		State:     domain.StateEnabled,
		CheckedOn: old,
	}), supplier))

	seedImported(t, store, supplier.ID, domain.ImportedProduct{
		VendorProductID: "p-old",
		ExternalID:      "ext-p-old",
		Imported:        true,
		State:           domain.StateEnabled,
		Variants: []domain.ImportedVariant{{
			VendorVariantID: "v-old",
			ItemID:          "item-old",
			Qty:             5,
			TrackInventory:  true,
			State:           domain.StateEnabled,
		}},
	})

	// Next batch no longer carries p-old.
	next := old.Add(24 * time.Hour)
	fresh := canonicalProduct("p-new", next, domain.SuppliedVariant{
		VariantID: "v-new",
		ProductID: "p-new",
		State:     domain.StateEnabled,
		CheckedOn: next,
	})
	require.NoError(t, p.UpsertAll(ctx, []domain.SuppliedProduct{fresh}, supplier, next))

	ip, ok, err := store.FindImportedProduct(ctx, supplier.ID, "p-old", false)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, domain.StateDisabled, ip.State)
	require.NotNil(t, ip.DisabledAt)
	require.Len(t, ip.Variants, 1)
	assert.Equal(t, domain.StateDisabled, ip.Variants[0].State)
	assert.Equal(t, 0, ip.Variants[0].Qty)

	require.Len(t, dispatcher.StatusUpdates, 1)
	items := dispatcher.StatusUpdates[0].Items
	require.Len(t, items, 1)
	assert.False(t, items[0].IsEnabledProducts)
	assert.Equal(t, "item-old", items[0].ItemID)
	assert.Equal(t, "ext-p-old", items[0].ProductID)
	assert.Equal(t, 0, items[0].Qty)
}

func TestPropagator_ImageSyncDropsOrphanedVariantImages(t *testing.T) {
	p, store, dispatcher := newTestPropagator(t, domain.PlatformShopify)
	supplier := testSupplier()
	supplier.Config.CatalogSyncImages = true
	ctx := context.Background()

	now := time.Now().UTC()
	product := canonicalProduct("p1", now,
		domain.SuppliedVariant{
			VariantID: "v1",
			ProductID: "p1",
			SKU:       "SKU-1",
			Images:    []domain.Image{{ID: "img-1", URL: "https://cdn.example.com/a.jpg"}},
			State:     domain.StateEnabled,
			CheckedOn: now,
		},
		domain.SuppliedVariant{
			VariantID: "v2",
			ProductID: "p1",
			SKU:       "SKU-2",
			// Points at an image the product list does not carry.
			Images:    []domain.Image{{ID: "img-x", URL: "https://cdn.example.com/orphan.jpg"}},
			State:     domain.StateEnabled,
			CheckedOn: now,
		},
	)
	product.Images = []domain.Image{{ID: "img-1", URL: "https://cdn.example.com/a.jpg"}}

	seedImported(t, store, supplier.ID, domain.ImportedProduct{
		VendorProductID: "p1",
		ExternalID:      "ext-p1",
		Imported:        true,
		State:           domain.StateEnabled,
		Variants: []domain.ImportedVariant{
			{VendorVariantID: "v1", ExternalID: "ext-v1", SKU: "SKU-1", TrackInventory: true, State: domain.StateEnabled},
			{VendorVariantID: "v2", ExternalID: "ext-v2", SKU: "SKU-2", TrackInventory: true, State: domain.StateEnabled},
		},
	})

	require.NoError(t, p.Upsert(ctx, product, supplier))

	ip, _, err := store.FindImportedProduct(ctx, supplier.ID, "p1", false)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/a.jpg", ip.Image)

	for _, iv := range ip.Variants {
		switch iv.VendorVariantID {
		case "v1":
			assert.Equal(t, `{"src":"https://cdn.example.com/a.jpg"}`, iv.Image)
		case "v2":
			assert.Empty(t, iv.Image, "orphaned image reference must be dropped")
		}
	}

	require.Len(t, dispatcher.ImageSyncs, 1)
	item := dispatcher.ImageSyncs[0].Items[0]
	assert.Equal(t, "ext-p1", item.ProductID)
	assert.Equal(t, map[string]string{"ext-v1": "https://cdn.example.com/a.jpg"}, item.VariantImageMap)
}

func TestPropagator_ImageSyncSkippedWhenDisabledForSupplier(t *testing.T) {
	p, store, dispatcher := newTestPropagator(t, domain.PlatformShopify)
	supplier := testSupplier() // CatalogSyncImages false
	ctx := context.Background()

	seedImported(t, store, supplier.ID, domain.ImportedProduct{
		VendorProductID: "p1",
		ExternalID:      "ext-p1",
		Imported:        true,
		State:           domain.StateEnabled,
	})

	now := time.Now().UTC()
	product := canonicalProduct("p1", now)
	product.Images = []domain.Image{{ID: "img-1", URL: "https://cdn.example.com/a.jpg"}}

	require.NoError(t, p.Upsert(ctx, product, supplier))

	assert.Empty(t, dispatcher.ImageSyncs)
	ip, _, err := store.FindImportedProduct(ctx, supplier.ID, "p1", false)
	require.NoError(t, err)
	assert.Empty(t, ip.Image)
}
