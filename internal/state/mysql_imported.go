package state

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"

	"github.com/quarterfold/suppliersync/internal/domain"
)

const importedProductCols = `
id, supplier_id, vendor_product_id, external_id, imported, category, product_type,
state, disabled_at, image, vendor_images`

const importedVariantCols = `
id, imported_product_id, vendor_variant_id, item_id, external_id, sku,
price, compare_at_price, wholesale_price, qty, track_inventory,
state, disabled_at, disabled_code, disabled_event, image`

func (s *MySQLStore) PutImportedProduct(ctx context.Context, product domain.ImportedProduct) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if product.ID == "" {
		product.ID = uuid.New().String()
	}

	_, err = tx.ExecContext(ctx, `
INSERT INTO imported_products
	(id, supplier_id, vendor_product_id, external_id, imported, category, product_type,
	 state, disabled_at, image, vendor_images)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
	external_id = VALUES(external_id), imported = VALUES(imported),
	category = VALUES(category), product_type = VALUES(product_type),
	state = VALUES(state), disabled_at = VALUES(disabled_at),
	image = VALUES(image), vendor_images = VALUES(vendor_images)
`, product.ID, product.SupplierID, product.VendorProductID, product.ExternalID,
		product.Imported, product.Category, product.ProductType,
		string(product.State), nullTime(product.DisabledAt), product.Image, product.VendorImages)
	if err != nil {
		return err
	}

	for _, v := range product.Variants {
		if v.ID == "" {
			v.ID = uuid.New().String()
		}
		_, err = tx.ExecContext(ctx, `
INSERT INTO imported_product_variants
	(id, imported_product_id, vendor_variant_id, item_id, external_id, sku,
	 price, compare_at_price, wholesale_price, qty, track_inventory,
	 state, disabled_at, disabled_code, disabled_event, image)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
	item_id = VALUES(item_id), external_id = VALUES(external_id), sku = VALUES(sku),
	price = VALUES(price), compare_at_price = VALUES(compare_at_price),
	wholesale_price = VALUES(wholesale_price), qty = VALUES(qty),
	track_inventory = VALUES(track_inventory), state = VALUES(state),
	disabled_at = VALUES(disabled_at), disabled_code = VALUES(disabled_code),
	disabled_event = VALUES(disabled_event), image = VALUES(image)
`, v.ID, product.ID, v.VendorVariantID, v.ItemID, v.ExternalID, v.SKU,
			nullF64(v.Price), nullF64(v.CompareAtPrice), nullF64(v.WholesalePrice),
			v.Qty, v.TrackInventory, string(v.State), nullTime(v.DisabledAt),
			v.DisabledCode, v.DisabledEvent, v.Image)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *MySQLStore) FindImportedProduct(ctx context.Context, supplierID, vendorProductID string, importedOnly bool) (domain.ImportedProduct, bool, error) {
	q := `
SELECT ` + importedProductCols + `
FROM imported_products
WHERE supplier_id = ? AND vendor_product_id = ?`
	if importedOnly {
		q += ` AND imported = TRUE`
	}

	row := s.db.QueryRowContext(ctx, q, supplierID, vendorProductID)
	p, err := scanImportedProduct(row)
	if err == sql.ErrNoRows {
		return domain.ImportedProduct{}, false, nil
	}
	if err != nil {
		return domain.ImportedProduct{}, false, err
	}

	if err := s.loadImportedVariants(ctx, &p); err != nil {
		return domain.ImportedProduct{}, false, err
	}
	return p, true, nil
}

func (s *MySQLStore) FindImportedVariants(ctx context.Context, supplierID, vendorVariantID string) ([]domain.ImportedVariant, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT `+prefixCols(importedVariantCols, "v.")+`
FROM imported_product_variants v
JOIN imported_products p ON p.id = v.imported_product_id
WHERE p.supplier_id = ? AND v.vendor_variant_id = ?
`, supplierID, vendorVariantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.ImportedVariant, 0, 1)
	for rows.Next() {
		v, err := scanImportedVariant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *MySQLStore) UpdateImportedProduct(ctx context.Context, importedProductID string, upd ImportedProductUpdate) error {
	sets, args := importedProductSets(upd)
	if len(sets) == 0 {
		return nil
	}
	args = append(args, importedProductID)
	_, err := s.db.ExecContext(ctx,
		`UPDATE imported_products SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	return err
}

func (s *MySQLStore) UpdateImportedVariant(ctx context.Context, importedVariantID string, upd ImportedVariantUpdate) error {
	sets, args := importedVariantSets(upd)
	if len(sets) == 0 {
		return nil
	}
	args = append(args, importedVariantID)
	_, err := s.db.ExecContext(ctx,
		`UPDATE imported_product_variants SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	return err
}

// ApplyAdjustments runs every canonical and downstream write in a single
// transaction. Any failure rolls the whole adjustment set back.
func (s *MySQLStore) ApplyAdjustments(ctx context.Context, writes []AdjustmentWrite) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, w := range writes {
		sets, args := suppliedVariantSets(w.Canonical)
		if len(sets) > 0 {
			args = append(args, w.SuppliedVariantID)
			if _, err := tx.ExecContext(ctx,
				`UPDATE supplied_product_variants SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...); err != nil {
				return err
			}
		}

		for _, dw := range w.Downstream {
			vsets, vargs := importedVariantSets(dw.Update)
			if len(vsets) == 0 {
				continue
			}
			vargs = append(vargs, dw.ImportedVariantID)
			if _, err := tx.ExecContext(ctx,
				`UPDATE imported_product_variants SET `+strings.Join(vsets, ", ")+` WHERE id = ?`, vargs...); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

func (s *MySQLStore) loadImportedVariants(ctx context.Context, p *domain.ImportedProduct) error {
	rows, err := s.db.QueryContext(ctx, `
SELECT `+importedVariantCols+`
FROM imported_product_variants
WHERE imported_product_id = ?
ORDER BY vendor_variant_id ASC
`, p.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		v, err := scanImportedVariant(rows)
		if err != nil {
			return err
		}
		p.Variants = append(p.Variants, v)
	}
	return rows.Err()
}

func suppliedVariantSets(upd SuppliedVariantUpdate) ([]string, []any) {
	sets := make([]string, 0, 5)
	args := make([]any, 0, 5)

	if upd.Price != nil {
		sets = append(sets, "price = ?")
		args = append(args, *upd.Price)
	}
	if upd.CompareAtPrice != nil {
		sets = append(sets, "compare_at_price = ?")
		args = append(args, *upd.CompareAtPrice)
	}
	if upd.WholesalePrice != nil {
		sets = append(sets, "wholesale_price = ?")
		args = append(args, *upd.WholesalePrice)
	}
	if upd.InventoryQuantity != nil {
		sets = append(sets, "inventory_quantity = ?")
		args = append(args, *upd.InventoryQuantity)
	}
	if upd.InventoryPolicy != nil {
		sets = append(sets, "inventory_policy = ?")
		args = append(args, string(*upd.InventoryPolicy))
	}
	return sets, args
}

func importedProductSets(upd ImportedProductUpdate) ([]string, []any) {
	sets := make([]string, 0, 6)
	args := make([]any, 0, 6)

	if upd.State != nil {
		sets = append(sets, "state = ?")
		args = append(args, string(*upd.State))
	}
	if upd.Category != nil {
		sets = append(sets, "category = ?")
		args = append(args, *upd.Category)
	}
	if upd.ProductType != nil {
		sets = append(sets, "product_type = ?")
		args = append(args, *upd.ProductType)
	}
	if upd.Image != nil {
		sets = append(sets, "image = ?")
		args = append(args, *upd.Image)
	}
	if upd.VendorImages != nil {
		sets = append(sets, "vendor_images = ?")
		args = append(args, *upd.VendorImages)
	}
	if upd.ClearDisabledAt {
		sets = append(sets, "disabled_at = NULL")
	} else if upd.DisabledAt != nil {
		sets = append(sets, "disabled_at = ?")
		args = append(args, upd.DisabledAt.UTC())
	}
	return sets, args
}

func importedVariantSets(upd ImportedVariantUpdate) ([]string, []any) {
	sets := make([]string, 0, 10)
	args := make([]any, 0, 10)

	if upd.SKU != nil {
		sets = append(sets, "sku = ?")
		args = append(args, *upd.SKU)
	}
	if upd.Price != nil {
		sets = append(sets, "price = ?")
		args = append(args, *upd.Price)
	}
	if upd.CompareAtPrice != nil {
		sets = append(sets, "compare_at_price = ?")
		args = append(args, *upd.CompareAtPrice)
	}
	if upd.WholesalePrice != nil {
		sets = append(sets, "wholesale_price = ?")
		args = append(args, *upd.WholesalePrice)
	}
	if upd.Qty != nil {
		sets = append(sets, "qty = ?")
		args = append(args, *upd.Qty)
	}
	if upd.TrackInventory != nil {
		sets = append(sets, "track_inventory = ?")
		args = append(args, *upd.TrackInventory)
	}
	if upd.State != nil {
		sets = append(sets, "state = ?")
		args = append(args, string(*upd.State))
	}
	if upd.Image != nil {
		sets = append(sets, "image = ?")
		args = append(args, *upd.Image)
	}
	if upd.ClearDisabledAt {
		sets = append(sets, "disabled_at = NULL")
	} else if upd.DisabledAt != nil {
		sets = append(sets, "disabled_at = ?")
		args = append(args, upd.DisabledAt.UTC())
	}
	if upd.DisabledCode != nil {
		sets = append(sets, "disabled_code = ?")
		args = append(args, *upd.DisabledCode)
	}
	if upd.DisabledEvent != nil {
		sets = append(sets, "disabled_event = ?")
		args = append(args, *upd.DisabledEvent)
	}
	return sets, args
}

func prefixCols(cols, prefix string) string {
	parts := strings.Split(cols, ",")
	for i, p := range parts {
		parts[i] = prefix + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}

func scanImportedProduct(row rowScanner) (domain.ImportedProduct, error) {
	var (
		p          domain.ImportedProduct
		state      string
		disabledAt sql.NullTime
	)

	err := row.Scan(&p.ID, &p.SupplierID, &p.VendorProductID, &p.ExternalID, &p.Imported,
		&p.Category, &p.ProductType, &state, &disabledAt, &p.Image, &p.VendorImages)
	if err != nil {
		return domain.ImportedProduct{}, err
	}

	p.State = domain.RecordState(state)
	p.DisabledAt = timeFromNull(disabledAt)
	return p, nil
}

func scanImportedVariant(row rowScanner) (domain.ImportedVariant, error) {
	var (
		v               domain.ImportedVariant
		price, cmp, whl sql.NullFloat64
		state           string
		disabledAt      sql.NullTime
	)

	err := row.Scan(&v.ID, &v.ImportedProductID, &v.VendorVariantID, &v.ItemID, &v.ExternalID,
		&v.SKU, &price, &cmp, &whl, &v.Qty, &v.TrackInventory,
		&state, &disabledAt, &v.DisabledCode, &v.DisabledEvent, &v.Image)
	if err != nil {
		return domain.ImportedVariant{}, err
	}

	v.Price = f64FromNull(price)
	v.CompareAtPrice = f64FromNull(cmp)
	v.WholesalePrice = f64FromNull(whl)
	v.State = domain.RecordState(state)
	v.DisabledAt = timeFromNull(disabledAt)
	return v, nil
}
