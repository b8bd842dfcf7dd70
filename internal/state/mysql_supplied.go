package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/quarterfold/suppliersync/internal/domain"
)

const suppliedProductCols = `
id, supplier_id, product_key, name, description, brand, category, product_type,
tags_json, options_json, option1, option2, option3, images_json, state, checked_on`

const suppliedVariantCols = `
id, supplied_product_id, supplier_id, product_key, variant_key, name, sku, generated_sku,
option1, option2, option3, price, compare_at_price, wholesale_price,
inventory_quantity, inventory_policy, image_id, images_json, state, checked_on`

func (s *MySQLStore) GetSuppliedProduct(ctx context.Context, supplierID, productKey string) (domain.SuppliedProduct, bool, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT `+suppliedProductCols+`
FROM supplied_products
WHERE supplier_id = ? AND product_key = ?
`, supplierID, productKey)

	p, err := scanSuppliedProduct(row)
	if err == sql.ErrNoRows {
		return domain.SuppliedProduct{}, false, nil
	}
	if err != nil {
		return domain.SuppliedProduct{}, false, err
	}

	if err := s.loadVariants(ctx, &p); err != nil {
		return domain.SuppliedProduct{}, false, err
	}
	return p, true, nil
}

func (s *MySQLStore) ListSuppliedProducts(ctx context.Context, supplierID string) ([]domain.SuppliedProduct, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT `+suppliedProductCols+`
FROM supplied_products
WHERE supplier_id = ?
ORDER BY product_key ASC
`, supplierID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.SuppliedProduct, 0, 64)
	for rows.Next() {
		p, err := scanSuppliedProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		if err := s.loadVariants(ctx, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *MySQLStore) UpsertSuppliedProduct(ctx context.Context, supplierID string, product domain.SuppliedProduct) (domain.SuppliedProduct, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.SuppliedProduct{}, err
	}
	defer tx.Rollback()

	tags, err := json.Marshal(product.Tags)
	if err != nil {
		return domain.SuppliedProduct{}, err
	}
	options, err := json.Marshal(product.Options)
	if err != nil {
		return domain.SuppliedProduct{}, err
	}
	images, err := json.Marshal(product.Images)
	if err != nil {
		return domain.SuppliedProduct{}, err
	}

	newID := uuid.New().String()
	_, err = tx.ExecContext(ctx, `
INSERT INTO supplied_products
	(id, supplier_id, product_key, name, description, brand, category, product_type,
	 tags_json, options_json, option1, option2, option3, images_json, state, checked_on)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
	name = VALUES(name), description = VALUES(description), brand = VALUES(brand),
	category = VALUES(category), product_type = VALUES(product_type),
	tags_json = VALUES(tags_json), options_json = VALUES(options_json),
	option1 = VALUES(option1), option2 = VALUES(option2), option3 = VALUES(option3),
	images_json = VALUES(images_json), state = VALUES(state), checked_on = VALUES(checked_on)
`, newID, supplierID, product.ProductID, product.Name, product.Description, product.Brand,
		product.Category, product.ProductType, tags, options,
		nullStr(product.Option1), nullStr(product.Option2), nullStr(product.Option3),
		images, string(product.State), product.CheckedOn.UTC())
	if err != nil {
		return domain.SuppliedProduct{}, err
	}

	var productID string
	if err := tx.QueryRowContext(ctx, `
SELECT id FROM supplied_products WHERE supplier_id = ? AND product_key = ?
`, supplierID, product.ProductID).Scan(&productID); err != nil {
		return domain.SuppliedProduct{}, err
	}

	for _, v := range product.Variants {
		vimages, err := json.Marshal(v.Images)
		if err != nil {
			return domain.SuppliedProduct{}, err
		}

		_, err = tx.ExecContext(ctx, `
INSERT INTO supplied_product_variants
	(id, supplied_product_id, supplier_id, product_key, variant_key, name, sku,
	 option1, option2, option3, price, compare_at_price, wholesale_price,
	 inventory_quantity, inventory_policy, image_id, images_json, state, checked_on)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
	name = VALUES(name), sku = VALUES(sku),
	option1 = VALUES(option1), option2 = VALUES(option2), option3 = VALUES(option3),
	price = VALUES(price), compare_at_price = VALUES(compare_at_price),
	wholesale_price = VALUES(wholesale_price),
	inventory_quantity = VALUES(inventory_quantity), inventory_policy = VALUES(inventory_policy),
	image_id = VALUES(image_id), images_json = VALUES(images_json),
	state = VALUES(state), checked_on = VALUES(checked_on)
`, uuid.New().String(), productID, supplierID, product.ProductID, v.VariantID, v.Name, v.SKU,
			nullStr(v.Option1), nullStr(v.Option2), nullStr(v.Option3),
			nullF64(v.Price), nullF64(v.CompareAtPrice), nullF64(v.WholesalePrice),
			nullInt(v.InventoryQuantity), string(v.InventoryPolicy),
			v.ImageID, vimages, string(v.State), v.CheckedOn.UTC())
		if err != nil {
			return domain.SuppliedProduct{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.SuppliedProduct{}, err
	}

	stored, _, err := s.GetSuppliedProduct(ctx, supplierID, product.ProductID)
	return stored, err
}

func (s *MySQLStore) DisableSuppliedProductsNotSeen(ctx context.Context, supplierID string, since time.Time) ([]domain.SuppliedProduct, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT product_key
FROM supplied_products
WHERE supplier_id = ? AND state = ? AND checked_on < ?
ORDER BY product_key ASC
`, supplierID, string(domain.StateEnabled), since.UTC())
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, 16)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			rows.Close()
			return nil, err
		}
		keys = append(keys, key)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]domain.SuppliedProduct, 0, len(keys))
	for _, key := range keys {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return nil, err
		}
		_, err = tx.ExecContext(ctx, `
UPDATE supplied_products SET state = ? WHERE supplier_id = ? AND product_key = ?
`, string(domain.StateDisabled), supplierID, key)
		if err == nil {
			_, err = tx.ExecContext(ctx, `
UPDATE supplied_product_variants
SET state = ?, inventory_quantity = 0, inventory_policy = 'deny'
WHERE supplier_id = ? AND product_key = ?
`, string(domain.StateDisabled), supplierID, key)
		}
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		if err := tx.Commit(); err != nil {
			return nil, err
		}

		p, ok, err := s.GetSuppliedProduct(ctx, supplierID, key)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *MySQLStore) DisableSuppliedVariants(ctx context.Context, variantIDs []string) error {
	if len(variantIDs) == 0 {
		return nil
	}

	placeholders := strings.Repeat(",?", len(variantIDs))[1:]
	args := make([]any, 0, len(variantIDs)+1)
	args = append(args, string(domain.StateDisabled))
	for _, id := range variantIDs {
		args = append(args, id)
	}

	_, err := s.db.ExecContext(ctx, `
UPDATE supplied_product_variants
SET state = ?, inventory_quantity = 0, inventory_policy = 'deny'
WHERE id IN (`+placeholders+`)`, args...)
	return err
}

func (s *MySQLStore) FindSuppliedVariants(ctx context.Context, lookup VariantLookup) ([]VariantMatch, error) {
	var (
		cond string
		args []any
	)
	if lookup.SKU != "" {
		cond = "sku = ? OR generated_sku = ?"
		args = []any{lookup.SKU, lookup.SKU}
	} else {
		cond = "variant_key = ?"
		args = []any{lookup.VariantKey}
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT `+suppliedVariantCols+`
FROM supplied_product_variants
WHERE `+cond+`
`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]VariantMatch, 0, 2)
	for rows.Next() {
		var supplierID string
		v, err := scanSuppliedVariantWithSupplier(rows, &supplierID)
		if err != nil {
			return nil, err
		}
		out = append(out, VariantMatch{Variant: v, SupplierID: supplierID})
	}
	return out, rows.Err()
}

func (s *MySQLStore) FindVariantsByVariantKey(ctx context.Context, supplierID, variantKey string) ([]domain.SuppliedVariant, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT `+suppliedVariantCols+`
FROM supplied_product_variants
WHERE supplier_id = ? AND variant_key = ?
`, supplierID, variantKey)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.SuppliedVariant, 0, 1)
	for rows.Next() {
		v, err := scanSuppliedVariant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *MySQLStore) SetGeneratedSKU(ctx context.Context, suppliedVariantID, generatedSKU string) error {
	_, err := s.db.ExecContext(ctx, `
UPDATE supplied_product_variants SET generated_sku = ? WHERE id = ?
`, generatedSKU, suppliedVariantID)
	return err
}

func (s *MySQLStore) HasGeneratedSKU(ctx context.Context, generatedSKU string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
SELECT COUNT(*) FROM supplied_product_variants WHERE generated_sku = ?
`, generatedSKU).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *MySQLStore) loadVariants(ctx context.Context, p *domain.SuppliedProduct) error {
	rows, err := s.db.QueryContext(ctx, `
SELECT `+suppliedVariantCols+`
FROM supplied_product_variants
WHERE supplied_product_id = ?
ORDER BY variant_key ASC
`, p.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		v, err := scanSuppliedVariant(rows)
		if err != nil {
			return err
		}
		p.Variants = append(p.Variants, v)
	}
	return rows.Err()
}

func scanSuppliedProduct(row rowScanner) (domain.SuppliedProduct, error) {
	var (
		p                     domain.SuppliedProduct
		tags, options, images []byte
		opt1, opt2, opt3      sql.NullString
		state                 string
	)

	err := row.Scan(&p.ID, &p.SupplierID, &p.ProductID, &p.Name, &p.Description,
		&p.Brand, &p.Category, &p.ProductType, &tags, &options,
		&opt1, &opt2, &opt3, &images, &state, &p.CheckedOn)
	if err != nil {
		return domain.SuppliedProduct{}, err
	}

	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &p.Tags); err != nil {
			return domain.SuppliedProduct{}, err
		}
	}
	if len(options) > 0 {
		if err := json.Unmarshal(options, &p.Options); err != nil {
			return domain.SuppliedProduct{}, err
		}
	}
	if len(images) > 0 {
		if err := json.Unmarshal(images, &p.Images); err != nil {
			return domain.SuppliedProduct{}, err
		}
	}

	p.Option1 = strFromNull(opt1)
	p.Option2 = strFromNull(opt2)
	p.Option3 = strFromNull(opt3)
	p.State = domain.RecordState(state)
	p.CheckedOn = p.CheckedOn.UTC()
	return p, nil
}

func scanSuppliedVariant(row rowScanner) (domain.SuppliedVariant, error) {
	var supplierID string
	return scanSuppliedVariantWithSupplier(row, &supplierID)
}

func scanSuppliedVariantWithSupplier(row rowScanner, supplierID *string) (domain.SuppliedVariant, error) {
	var (
		v                domain.SuppliedVariant
		genSKU           sql.NullString
		opt1, opt2, opt3 sql.NullString
		price, cmp, whl  sql.NullFloat64
		qty              sql.NullInt64
		policy, state    string
		images           []byte
	)

	err := row.Scan(&v.ID, &v.SuppliedProductID, supplierID, &v.ProductID, &v.VariantID,
		&v.Name, &v.SKU, &genSKU, &opt1, &opt2, &opt3, &price, &cmp, &whl,
		&qty, &policy, &v.ImageID, &images, &state, &v.CheckedOn)
	if err != nil {
		return domain.SuppliedVariant{}, err
	}

	if genSKU.Valid {
		v.GeneratedSKU = genSKU.String
	}
	v.Option1 = strFromNull(opt1)
	v.Option2 = strFromNull(opt2)
	v.Option3 = strFromNull(opt3)
	v.Price = f64FromNull(price)
	v.CompareAtPrice = f64FromNull(cmp)
	v.WholesalePrice = f64FromNull(whl)
	v.InventoryQuantity = intFromNull(qty)
	v.InventoryPolicy = domain.InventoryPolicy(policy)
	v.State = domain.RecordState(state)
	v.CheckedOn = v.CheckedOn.UTC()

	if len(images) > 0 {
		if err := json.Unmarshal(images, &v.Images); err != nil {
			return domain.SuppliedVariant{}, err
		}
	}
	return v, nil
}
