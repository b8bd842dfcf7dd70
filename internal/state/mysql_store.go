package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/quarterfold/suppliersync/internal/domain"
)

type MySQLStore struct {
	db *sql.DB
}

func NewMySQLStore(db *sql.DB) *MySQLStore {
	return &MySQLStore{db: db}
}

func (s *MySQLStore) GetSupplier(ctx context.Context, supplierID string) (domain.Supplier, bool, error) {
	var (
		sup        domain.Supplier
		configJSON []byte
	)

	err := s.db.QueryRowContext(ctx, `
SELECT id, name, config_json
FROM suppliers
WHERE id = ?
`, supplierID).Scan(&sup.ID, &sup.Name, &configJSON)

	if err == sql.ErrNoRows {
		return domain.Supplier{}, false, nil
	}
	if err != nil {
		return domain.Supplier{}, false, err
	}

	if len(configJSON) > 0 {
		if err := json.Unmarshal(configJSON, &sup.Config); err != nil {
			return domain.Supplier{}, false, err
		}
	}
	return sup, true, nil
}

func (s *MySQLStore) PutSupplier(ctx context.Context, supplier domain.Supplier) error {
	configJSON, err := json.Marshal(supplier.Config)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
INSERT INTO suppliers (id, name, config_json)
VALUES (?, ?, ?)
ON DUPLICATE KEY UPDATE name = VALUES(name), config_json = VALUES(config_json)
`, supplier.ID, supplier.Name, configJSON)

	return err
}

func (s *MySQLStore) UpdateSupplierConfig(ctx context.Context, supplierID string, cfg domain.SupplierConfig) error {
	configJSON, err := json.Marshal(cfg)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
UPDATE suppliers SET config_json = ? WHERE id = ?
`, configJSON, supplierID)

	return err
}

func (s *MySQLStore) GetIdempotency(ctx context.Context, supplierID, endpoint, idemKeyHash string) (IdempotencyRecord, bool, error) {
	var status int
	var body []byte
	var created time.Time
	var expires time.Time

	err := s.db.QueryRowContext(ctx, `
SELECT status_code, response_body_json, created_at, expires_at
FROM idempotency
WHERE supplier_id = ? AND endpoint = ? AND idem_key_hash = ?
`, supplierID, endpoint, idemKeyHash).Scan(&status, &body, &created, &expires)

	if err == sql.ErrNoRows {
		return IdempotencyRecord{}, false, nil
	}
	if err != nil {
		return IdempotencyRecord{}, false, err
	}

	if time.Now().UTC().After(expires.UTC()) {
		return IdempotencyRecord{}, false, nil
	}

	return IdempotencyRecord{
		StatusCode: status,
		BodyJSON:   body,
		CreatedAt:  created.UTC(),
		ExpiresAt:  expires.UTC(),
	}, true, nil
}

func (s *MySQLStore) PutIdempotency(ctx context.Context, supplierID, endpoint, idemKeyHash string, rec IdempotencyRecord) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO idempotency (supplier_id, endpoint, idem_key_hash, status_code, response_body_json, created_at, expires_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
	status_code = VALUES(status_code),
	response_body_json = VALUES(response_body_json),
	expires_at = VALUES(expires_at)
`, supplierID, endpoint, idemKeyHash, rec.StatusCode, rec.BodyJSON, rec.CreatedAt.UTC(), rec.ExpiresAt.UTC())

	return err
}

func nullStr(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullF64(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullTime(v *time.Time) any {
	if v == nil {
		return nil
	}
	return v.UTC()
}

func strFromNull(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func f64FromNull(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func intFromNull(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func timeFromNull(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time.UTC()
	return &t
}
