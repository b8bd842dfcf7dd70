package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/quarterfold/suppliersync/internal/api/supplierctx"
	"github.com/quarterfold/suppliersync/internal/domain"
	"github.com/quarterfold/suppliersync/internal/state"
)

type BatchesHandler struct {
	Store state.Store
}

// BatchView is the list-row projection of a batch. The content and result
// snapshots stay out of listings; the detail endpoint returns the result.
type BatchView struct {
	ID           string             `json:"id"`
	BatchName    string             `json:"batchName"`
	BatchDate    time.Time          `json:"batchDate"`
	BatchRunDate *time.Time         `json:"batchRunDate"`
	Status       domain.BatchStatus `json:"status"`
	CreatedAt    time.Time          `json:"createdAt"`
}

func (h BatchesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	supplierID := supplierctx.SupplierID(r.Context())

	// LIST: exactly /v1/batches
	if r.URL.Path == "/v1/batches" {
		q, err := parseBatchQuery(r)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid_query", "message": err.Error()})
			return
		}

		page, err := h.Store.ListBatches(r.Context(), supplierID, q)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "list_batches_failed", "message": err.Error()})
			return
		}

		rows := make([]BatchView, 0, len(page.Rows))
		for _, rec := range page.Rows {
			rows = append(rows, BatchView{
				ID:           rec.ID,
				BatchName:    rec.Name,
				BatchDate:    rec.Date,
				BatchRunDate: rec.RunDate,
				Status:       rec.Status,
				CreatedAt:    rec.CreatedAt,
			})
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"count": page.Count,
			"rows":  rows,
		})
		return
	}

	// DETAIL: /v1/batches/{batch_id}
	if !strings.HasPrefix(r.URL.Path, "/v1/batches/") {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "not_found", "message": "not found"})
		return
	}

	suffix := strings.TrimPrefix(r.URL.Path, "/v1/batches/")
	suffix = strings.TrimSpace(suffix)

	// Only first path segment
	if i := strings.IndexByte(suffix, '/'); i >= 0 {
		suffix = suffix[:i]
	}

	batchID := strings.TrimSpace(suffix)
	if batchID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid_batch_id", "message": "batch_id missing or invalid"})
		return
	}

	rec, ok, err := h.Store.GetBatch(r.Context(), supplierID, batchID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "get_batch_failed", "message": err.Error()})
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"error":   "not_found",
			"message": "No batch found with id: " + batchID,
		})
		return
	}

	// Finished batches carry their full result snapshot; earlier states fall
	// back to the row projection.
	if len(rec.Result) > 0 {
		var result domain.BatchResult
		if err := json.Unmarshal(rec.Result, &result); err == nil {
			writeJSON(w, http.StatusOK, result)
			return
		}
	}

	writeJSON(w, http.StatusOK, BatchView{
		ID:           rec.ID,
		BatchName:    rec.Name,
		BatchDate:    rec.Date,
		BatchRunDate: rec.RunDate,
		Status:       rec.Status,
		CreatedAt:    rec.CreatedAt,
	})
}

func parseBatchQuery(r *http.Request) (state.BatchQuery, error) {
	q := state.BatchQuery{}
	vals := r.URL.Query()

	if v := vals.Get("page_index"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return q, errParam("page_index must be a non-negative integer")
		}
		q.PageIndex = n
	}

	if v := vals.Get("page_size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return q, errParam("page_size must be a positive integer")
		}
		q.PageSize = n
	}

	q.Name = strings.TrimSpace(vals.Get("batch_name"))

	if v := strings.TrimSpace(vals.Get("status")); v != "" {
		q.Status = domain.BatchStatus(strings.ToUpper(v))
	}

	if v := strings.TrimSpace(vals.Get("batch_run_earliest")); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return q, errParam("batch_run_earliest must be RFC3339")
		}
		q.RunEarliest = &t
	}

	if v := strings.TrimSpace(vals.Get("batch_run_latest")); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return q, errParam("batch_run_latest must be RFC3339")
		}
		q.RunLatest = &t
	}

	return q, nil
}

type paramError string

func (e paramError) Error() string { return string(e) }

func errParam(msg string) error { return paramError(msg) }
