package state

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/quarterfold/suppliersync/internal/domain"
)

func (s *MySQLStore) CreateBatch(ctx context.Context, rec BatchRecord) error {
	created := rec.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO batches (id, supplier_id, type, status, name, batch_date, run_date, content_json, result_json, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`, rec.ID, rec.SupplierID, rec.Type, string(rec.Status), rec.Name,
		rec.Date.UTC(), nullTime(rec.RunDate), rec.Content, rec.Result, created)

	return err
}

func (s *MySQLStore) GetBatch(ctx context.Context, supplierID, batchID string) (BatchRecord, bool, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, supplier_id, type, status, name, batch_date, run_date, content_json, result_json, created_at
FROM batches
WHERE id = ? AND supplier_id = ?
`, batchID, supplierID)

	rec, err := scanBatch(row)
	if err == sql.ErrNoRows {
		return BatchRecord{}, false, nil
	}
	if err != nil {
		return BatchRecord{}, false, err
	}
	return rec, true, nil
}

func (s *MySQLStore) UpdateBatch(ctx context.Context, batchID string, upd BatchUpdate) error {
	sets := make([]string, 0, 3)
	args := make([]any, 0, 4)

	if upd.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*upd.Status))
	}
	if upd.Result != nil {
		sets = append(sets, "result_json = ?")
		args = append(args, upd.Result)
	}
	if upd.RunDate != nil {
		sets = append(sets, "run_date = ?")
		args = append(args, upd.RunDate.UTC())
	}
	if len(sets) == 0 {
		return nil
	}

	args = append(args, batchID)
	_, err := s.db.ExecContext(ctx,
		`UPDATE batches SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	return err
}

func (s *MySQLStore) ListBatches(ctx context.Context, supplierID string, q BatchQuery) (BatchPage, error) {
	where := []string{"supplier_id = ?"}
	args := []any{supplierID}

	if q.Name != "" {
		where = append(where, "name LIKE ?")
		args = append(args, "%"+q.Name+"%")
	}
	if q.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(q.Status))
	}
	if q.RunEarliest != nil {
		where = append(where, "run_date >= ?")
		args = append(args, q.RunEarliest.UTC())
	}
	if q.RunLatest != nil {
		where = append(where, "run_date <= ?")
		args = append(args, q.RunLatest.UTC())
	}

	cond := strings.Join(where, " AND ")

	page := BatchPage{Rows: []BatchRecord{}}
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM batches WHERE `+cond, args...,
	).Scan(&page.Count); err != nil {
		return BatchPage{}, err
	}

	size := q.PageSize
	if size <= 0 {
		size = 20
	}
	offset := q.PageIndex * size

	rows, err := s.db.QueryContext(ctx, `
SELECT id, supplier_id, type, status, name, batch_date, run_date, content_json, result_json, created_at
FROM batches
WHERE `+cond+`
ORDER BY created_at DESC
LIMIT ? OFFSET ?
`, append(args, size, offset)...)
	if err != nil {
		return BatchPage{}, err
	}
	defer rows.Close()

	for rows.Next() {
		rec, err := scanBatch(rows)
		if err != nil {
			return BatchPage{}, err
		}
		page.Rows = append(page.Rows, rec)
	}
	return page, rows.Err()
}

func (s *MySQLStore) ListPendingBatches(ctx context.Context, limit int) ([]BatchRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT id, supplier_id, type, status, name, batch_date, run_date, content_json, result_json, created_at
FROM batches
WHERE status = ?
ORDER BY created_at ASC
LIMIT ?
`, string(domain.BatchStatusPending), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]BatchRecord, 0, limit)
	for rows.Next() {
		rec, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *MySQLStore) HasNewerCompletedBatch(ctx context.Context, supplierID string, date time.Time) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
SELECT COUNT(*)
FROM batches
WHERE supplier_id = ? AND status = ? AND batch_date > ?
`, supplierID, string(domain.BatchStatusSuccess), date.UTC()).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBatch(row rowScanner) (BatchRecord, error) {
	var (
		rec     BatchRecord
		status  string
		runDate sql.NullTime
	)

	err := row.Scan(&rec.ID, &rec.SupplierID, &rec.Type, &status, &rec.Name,
		&rec.Date, &runDate, &rec.Content, &rec.Result, &rec.CreatedAt)
	if err != nil {
		return BatchRecord{}, err
	}

	rec.Status = domain.BatchStatus(status)
	rec.Date = rec.Date.UTC()
	rec.RunDate = timeFromNull(runDate)
	rec.CreatedAt = rec.CreatedAt.UTC()
	return rec, nil
}
