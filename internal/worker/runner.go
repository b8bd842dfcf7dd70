package worker

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/quarterfold/suppliersync/internal/recon"
	"github.com/quarterfold/suppliersync/internal/state"
)

// Runner drains PENDING batches for suppliers configured with asyncMode. The
// processor itself serializes per supplier, so a single runner instance is
// enough; batches for the same supplier finish in submission order because
// ListPendingBatches returns oldest first.
type Runner struct {
	Store     state.Store
	Processor *recon.Processor
	Logger    *log.Logger

	PollEvery   time.Duration
	MaxPerClaim int
}

func (r Runner) Run(ctx context.Context) error {
	if r.Store == nil {
		return errors.New("store is nil")
	}
	if r.Processor == nil {
		return errors.New("processor is nil")
	}
	if r.PollEvery <= 0 {
		r.PollEvery = 500 * time.Millisecond
	}
	if r.MaxPerClaim <= 0 {
		r.MaxPerClaim = 10
	}

	ticker := time.NewTicker(r.PollEvery)
	defer ticker.Stop()

	// one immediate pass
	if err := r.tick(ctx); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.tick(ctx); err != nil {
				return err
			}
		}
	}
}

func (r Runner) tick(ctx context.Context) error {
	pending, err := r.Store.ListPendingBatches(ctx, r.MaxPerClaim)
	if err != nil {
		return err
	}

	for _, rec := range pending {
		supplier, ok, err := r.Store.GetSupplier(ctx, rec.SupplierID)
		if err != nil {
			return err
		}
		if !ok {
			r.logf("batch %s: supplier %s not found, skipping", rec.ID, rec.SupplierID)
			continue
		}

		// Synchronous suppliers are processed inline by the API; their
		// PENDING rows are in-flight requests, not work for us.
		if !supplier.Config.SyncSettingsOrDefault().AsyncMode {
			continue
		}

		result, err := r.Processor.Process(ctx, rec.ID, supplier)
		if err != nil {
			// Process already persisted the ERROR outcome; keep draining.
			r.logf("batch %s: %v", rec.ID, err)
			continue
		}

		r.logf("batch %s finished with status %s", rec.ID, result.Status)
	}

	return nil
}

func (r Runner) logf(format string, args ...any) {
	if r.Logger != nil {
		r.Logger.Printf(format, args...)
	}
}
