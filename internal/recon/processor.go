// Package recon reconciles supplier product batches against canonical state
// using the immutable-variant-key strategy: variants, not products, are the
// unit of truth.
package recon

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/quarterfold/suppliersync/internal/apierr"
	"github.com/quarterfold/suppliersync/internal/domain"
	"github.com/quarterfold/suppliersync/internal/ingest"
	"github.com/quarterfold/suppliersync/internal/locks"
	"github.com/quarterfold/suppliersync/internal/state"
	syncpkg "github.com/quarterfold/suppliersync/internal/sync"
)

const (
	msgTooManyErrorsPreprocess = "Too many errors in batch, could not process"
	msgTooManyErrorsProcess    = "Failed because of too many errors found in batch, changes were not persisted."
	msgStaleBatch              = "A completed batch exists that has more recent product information."
	msgNoSyncSettings          = "No product sync settings defined in supplier config"
	msgProductKeyStrategy      = "The immutableProductKey reconciliation strategy is not supported yet"
	msgVariantErrors           = "errors occurred with variants"
)

type Processor struct {
	store      state.Store
	propagator *syncpkg.Propagator
	locks      *locks.KeyedMutex
	logger     *log.Logger

	now func() time.Time
}

func NewProcessor(store state.Store, propagator *syncpkg.Propagator, logger *log.Logger) *Processor {
	return &Processor{
		store:      store,
		propagator: propagator,
		locks:      locks.NewKeyedMutex(),
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// PreprocessResult tells the caller whether to continue synchronously, defer
// to the worker, or stop with the already-final result.
type PreprocessResult struct {
	Valid   bool
	Async   bool
	BatchID string
	Result  domain.BatchResult
}

// Preprocess assigns refIds, persists the batch as PENDING, validates, and
// short-circuits to ERROR when the admission ratio fails.
func (p *Processor) Preprocess(ctx context.Context, supplier domain.Supplier, body domain.BatchSubmission) (PreprocessResult, error) {
	products := ingest.AssignRefIDs(body.Products)

	content, err := json.Marshal(domain.BatchSubmission{Batch: body.Batch, Products: products})
	if err != nil {
		return PreprocessResult{}, err
	}

	batchID := uuid.New().String()
	if err := p.store.CreateBatch(ctx, state.BatchRecord{
		ID:         batchID,
		SupplierID: supplier.ID,
		Type:       domain.BatchTypeSuppliedProduct,
		Status:     domain.BatchStatusPending,
		Name:       body.Batch.BatchName,
		Date:       body.Batch.BatchDate,
		Content:    content,
	}); err != nil {
		return PreprocessResult{}, err
	}

	out := PreprocessResult{
		Valid:   true,
		BatchID: batchID,
		Result:  newBatchResult(batchID, body.Batch.BatchName, body.Batch.BatchDate, domain.BatchStatusPending),
	}

	validation := ingest.ValidateBatch(products)
	out.Result.ProductsNotImported = append(out.Result.ProductsNotImported, validation.Errors...)

	if !validation.IsBatchValid {
		out.Valid = false
		out.Result.Status = domain.BatchStatusError
		out.Result.CustomData["message"] = msgTooManyErrorsPreprocess

		runDate := p.now()
		out.Result.BatchRunDate = &runDate

		if err := p.finalizeBatch(ctx, batchID, out.Result, &runDate); err != nil {
			return PreprocessResult{}, err
		}
		return out, nil
	}

	if supplier.Config.SyncSettingsOrDefault().AsyncMode {
		out.Async = true
		return out, nil
	}

	return out, nil
}

// Process runs the full reconciliation pass for one PENDING batch. The whole
// pass holds the supplier's lock so two batches for the same supplier never
// interleave their canonical writes.
func (p *Processor) Process(ctx context.Context, batchID string, supplier domain.Supplier) (domain.BatchResult, error) {
	p.locks.Lock(supplier.ID)
	defer p.locks.Unlock(supplier.ID)

	rec, ok, err := p.store.GetBatch(ctx, supplier.ID, batchID)
	if err != nil {
		return domain.BatchResult{}, err
	}
	if !ok {
		return domain.BatchResult{}, apierr.New(http.StatusBadRequest, "No batch found with id: %s", batchID)
	}

	result := p.resultFromRecord(rec)

	// Only a pending batch processes; anything else already ran or is
	// running right now.
	if rec.Status != domain.BatchStatusPending {
		return result, nil
	}

	var submission domain.BatchSubmission
	if err := json.Unmarshal(rec.Content, &submission); err != nil {
		return domain.BatchResult{}, err
	}
	products := ingest.ValidateBatch(submission.Products).ValidProducts

	runDate := p.now()
	processing := domain.BatchStatusProcessing
	if err := p.store.UpdateBatch(ctx, rec.ID, state.BatchUpdate{Status: &processing, RunDate: &runDate}); err != nil {
		return domain.BatchResult{}, err
	}
	result.BatchRunDate = &runDate

	final, err := p.reconcile(ctx, rec, supplier, products, result)
	if err != nil {
		// Orchestration boundary: a batch is never left PROCESSING.
		p.logger.Printf("recon: batch %s failed: %v", rec.ID, err)
		final.Status = domain.BatchStatusError
		final.CustomData["message"] = err.Error()
		if ferr := p.finalizeBatch(ctx, rec.ID, final, nil); ferr != nil {
			p.logger.Printf("recon: finalizing failed batch %s: %v", rec.ID, ferr)
		}
		return final, err
	}

	if err := p.finalizeBatch(ctx, rec.ID, final, nil); err != nil {
		return domain.BatchResult{}, err
	}

	if final.Status == domain.BatchStatusSuccess {
		cfg := supplier.Config
		cfg.LatestProductsSyncTimestamp = rec.Date.UTC().Format(time.RFC3339)
		if err := p.store.UpdateSupplierConfig(ctx, supplier.ID, cfg); err != nil {
			return domain.BatchResult{}, err
		}
	}

	return final, nil
}

func (p *Processor) reconcile(ctx context.Context, rec state.BatchRecord, supplier domain.Supplier, products []domain.RawProduct, result domain.BatchResult) (domain.BatchResult, error) {
	newer, err := p.store.HasNewerCompletedBatch(ctx, supplier.ID, rec.Date)
	if err != nil {
		return result, err
	}
	if newer {
		return result, apierr.New(http.StatusBadRequest, msgStaleBatch)
	}

	settings := supplier.Config.SyncSettingsOrDefault()
	switch {
	case settings.ImmutableVariantKey == nil:
		return result, apierr.New(http.StatusBadRequest, msgNoSyncSettings)

	case !*settings.ImmutableVariantKey:
		return result, apierr.New(http.StatusBadRequest, msgProductKeyStrategy)
	}

	pass := p.runVariantKeyPass(ctx, supplier, products, rec.Date)
	if pass.err != nil {
		return result, pass.err
	}

	result.ProductsImported = append(result.ProductsImported, pass.imported...)
	result.ProductsNotImported = append(result.ProductsNotImported, pass.errors...)
	count := len(result.ProductsImported)
	notCount := len(result.ProductsNotImported)
	result.ProductsImportedCount = &count
	result.ProductsNotImportedCount = &notCount
	result.Status = pass.status

	if len(pass.conflicts) > 0 {
		result.CustomData["conflicts"] = pass.conflicts
	}
	if result.Status == domain.BatchStatusError {
		result.CustomData["message"] = msgTooManyErrorsProcess
	}

	return result, nil
}

func (p *Processor) finalizeBatch(ctx context.Context, batchID string, result domain.BatchResult, runDate *time.Time) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return err
	}
	status := result.Status
	return p.store.UpdateBatch(ctx, batchID, state.BatchUpdate{
		Status:  &status,
		Result:  resultJSON,
		RunDate: runDate,
	})
}

func (p *Processor) resultFromRecord(rec state.BatchRecord) domain.BatchResult {
	if len(rec.Result) > 0 {
		var stored domain.BatchResult
		if err := json.Unmarshal(rec.Result, &stored); err == nil {
			if stored.CustomData == nil {
				stored.CustomData = map[string]any{}
			}
			return stored
		}
	}

	result := newBatchResult(rec.ID, rec.Name, rec.Date, rec.Status)
	result.BatchRunDate = rec.RunDate
	return result
}

func newBatchResult(id, name string, date time.Time, status domain.BatchStatus) domain.BatchResult {
	return domain.BatchResult{
		ID:                  id,
		BatchName:           name,
		BatchDate:           date,
		Status:              status,
		ProductsImported:    []domain.ImportedProductRef{},
		ProductsNotImported: []domain.ProductError{},
		CustomData:          map[string]any{},
	}
}
