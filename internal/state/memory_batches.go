package state

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/quarterfold/suppliersync/internal/domain"
)

func (s *MemoryStore) CreateBatch(ctx context.Context, rec BatchRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	s.batches[rec.ID] = rec
	return nil
}

func (s *MemoryStore) GetBatch(ctx context.Context, supplierID, batchID string) (BatchRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.batches[batchID]
	if !ok || rec.SupplierID != supplierID {
		return BatchRecord{}, false, nil
	}
	return rec, true, nil
}

func (s *MemoryStore) UpdateBatch(ctx context.Context, batchID string, upd BatchUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.batches[batchID]
	if !ok {
		return nil
	}
	if upd.Status != nil {
		rec.Status = *upd.Status
	}
	if upd.Result != nil {
		rec.Result = upd.Result
	}
	if upd.RunDate != nil {
		rec.RunDate = upd.RunDate
	}
	s.batches[batchID] = rec
	return nil
}

func (s *MemoryStore) ListBatches(ctx context.Context, supplierID string, q BatchQuery) (BatchPage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]BatchRecord, 0, 64)
	for _, rec := range s.batches {
		if rec.SupplierID != supplierID {
			continue
		}
		if q.Name != "" && !strings.Contains(strings.ToLower(rec.Name), strings.ToLower(q.Name)) {
			continue
		}
		if q.Status != "" && rec.Status != q.Status {
			continue
		}
		if q.RunEarliest != nil && (rec.RunDate == nil || rec.RunDate.Before(*q.RunEarliest)) {
			continue
		}
		if q.RunLatest != nil && (rec.RunDate == nil || rec.RunDate.After(*q.RunLatest)) {
			continue
		}
		matched = append(matched, rec)
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	page := BatchPage{Count: len(matched), Rows: []BatchRecord{}}

	size := q.PageSize
	if size <= 0 {
		size = 20
	}
	start := q.PageIndex * size
	if start >= len(matched) {
		return page, nil
	}
	end := start + size
	if end > len(matched) {
		end = len(matched)
	}
	page.Rows = append(page.Rows, matched[start:end]...)
	return page, nil
}

func (s *MemoryStore) ListPendingBatches(ctx context.Context, limit int) ([]BatchRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]BatchRecord, 0, 16)
	for _, rec := range s.batches {
		if rec.Status != domain.BatchStatusPending {
			continue
		}
		out = append(out, rec)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})

	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) HasNewerCompletedBatch(ctx context.Context, supplierID string, date time.Time) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, rec := range s.batches {
		if rec.SupplierID != supplierID {
			continue
		}
		if rec.Status != domain.BatchStatusSuccess {
			continue
		}
		if rec.Date.After(date) {
			return true, nil
		}
	}
	return false, nil
}
