package notify

import "sync"

// MemoryDispatcher records dispatched notifications for inspection in tests.
type MemoryDispatcher struct {
	mu sync.Mutex

	InventoryPrices []RecordedSend[VariantInventoryPriceItem]
	StatusUpdates   []RecordedSend[VariantStatusItem]
	ImageSyncs      []RecordedSend[ProductImageSyncItem]
}

type RecordedSend[T any] struct {
	SupplierID string
	Items      []T
}

func NewMemoryDispatcher() *MemoryDispatcher {
	return &MemoryDispatcher{}
}

func (d *MemoryDispatcher) SendVariantInventoryPricesUpdate(items []VariantInventoryPriceItem, supplierID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.InventoryPrices = append(d.InventoryPrices, RecordedSend[VariantInventoryPriceItem]{SupplierID: supplierID, Items: items})
}

func (d *MemoryDispatcher) SendVariantStatusUpdate(items []VariantStatusItem, supplierID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.StatusUpdates = append(d.StatusUpdates, RecordedSend[VariantStatusItem]{SupplierID: supplierID, Items: items})
}

func (d *MemoryDispatcher) SendProductImages(items []ProductImageSyncItem, supplierID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ImageSyncs = append(d.ImageSyncs, RecordedSend[ProductImageSyncItem]{SupplierID: supplierID, Items: items})
}
