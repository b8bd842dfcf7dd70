package sync

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/quarterfold/suppliersync/internal/domain"
)

const skuGenerationAttempts = 5

// assignGeneratedSKUs backfills a globally unique fallback sku onto every
// stored variant that arrived without one. Existing generated skus are
// never regenerated, so downstream references stay stable.
func (p *Propagator) assignGeneratedSKUs(ctx context.Context, product domain.SuppliedProduct) error {
	for _, v := range product.Variants {
		if v.SKU != "" || v.GeneratedSKU != "" {
			continue
		}

		sku, err := p.newGeneratedSKU(ctx)
		if err != nil {
			return err
		}
		if err := p.store.SetGeneratedSKU(ctx, v.ID, sku); err != nil {
			return err
		}
	}
	return nil
}

func (p *Propagator) newGeneratedSKU(ctx context.Context) (string, error) {
	for i := 0; i < skuGenerationAttempts; i++ {
		id := strings.ReplaceAll(uuid.New().String(), "-", "")
		sku := p.skuPrefix + id[len(id)-8:]

		taken, err := p.store.HasGeneratedSKU(ctx, sku)
		if err != nil {
			return "", err
		}
		if !taken {
			return sku, nil
		}
	}
	return "", fmt.Errorf("could not generate a unique sku after %d attempts", skuGenerationAttempts)
}
