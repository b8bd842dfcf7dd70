package state

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/quarterfold/suppliersync/internal/domain"
)

type MemoryStore struct {
	mu sync.RWMutex

	suppliers map[string]domain.Supplier

	batches map[string]BatchRecord

	products map[string]map[string]*domain.SuppliedProduct // supplier -> productKey -> product

	imported map[string]*domain.ImportedProduct // id -> product

	idem map[string]map[string]map[string]IdempotencyRecord // supplier -> endpoint -> keyhash -> record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		suppliers: make(map[string]domain.Supplier),
		batches:   make(map[string]BatchRecord),
		products:  make(map[string]map[string]*domain.SuppliedProduct),
		imported:  make(map[string]*domain.ImportedProduct),
		idem:      make(map[string]map[string]map[string]IdempotencyRecord),
	}
}

func (s *MemoryStore) GetSupplier(ctx context.Context, supplierID string) (domain.Supplier, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sup, ok := s.suppliers[supplierID]
	return sup, ok, nil
}

func (s *MemoryStore) PutSupplier(ctx context.Context, supplier domain.Supplier) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.suppliers[supplier.ID] = supplier
	return nil
}

func (s *MemoryStore) UpdateSupplierConfig(ctx context.Context, supplierID string, cfg domain.SupplierConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sup, ok := s.suppliers[supplierID]
	if !ok {
		return nil
	}
	sup.Config = cfg
	s.suppliers[supplierID] = sup
	return nil
}

func (s *MemoryStore) GetIdempotency(ctx context.Context, supplierID, endpoint, idemKeyHash string) (IdempotencyRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sp, ok := s.idem[supplierID]
	if !ok {
		return IdempotencyRecord{}, false, nil
	}
	ep, ok := sp[endpoint]
	if !ok {
		return IdempotencyRecord{}, false, nil
	}
	rec, ok := ep[idemKeyHash]
	if !ok {
		return IdempotencyRecord{}, false, nil
	}

	if time.Now().UTC().After(rec.ExpiresAt) {
		return IdempotencyRecord{}, false, nil
	}

	return rec, true, nil
}

func (s *MemoryStore) PutIdempotency(ctx context.Context, supplierID, endpoint, idemKeyHash string, rec IdempotencyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sp, ok := s.idem[supplierID]
	if !ok {
		sp = make(map[string]map[string]IdempotencyRecord)
		s.idem[supplierID] = sp
	}
	ep, ok := sp[endpoint]
	if !ok {
		ep = make(map[string]IdempotencyRecord)
		sp[endpoint] = ep
	}
	ep[idemKeyHash] = rec
	return nil
}

// Helper for hashing idempotency keys deterministically
func HashIdempotencyKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}
