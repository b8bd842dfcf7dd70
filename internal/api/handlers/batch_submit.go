package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/quarterfold/suppliersync/internal/api/supplierctx"
	"github.com/quarterfold/suppliersync/internal/apierr"
	"github.com/quarterfold/suppliersync/internal/domain"
	"github.com/quarterfold/suppliersync/internal/recon"
	"github.com/quarterfold/suppliersync/internal/state"
)

type BatchSubmitHandler struct {
	Store     state.Store
	Processor *recon.Processor
}

func (h BatchSubmitHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	supplier, ok := loadSupplier(w, r, h.Store)
	if !ok {
		return
	}

	var body domain.BatchSubmission
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid_json", "message": err.Error()})
		return
	}

	if body.Batch.BatchName == "" || body.Batch.BatchDate.IsZero() {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":   "invalid_batch",
			"message": "batch.batchName and batch.batchDate are required",
		})
		return
	}

	pre, err := h.Processor.Preprocess(r.Context(), supplier, body)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	// Rejected at admission: the result already carries ERROR and the
	// per-product reasons.
	if !pre.Valid {
		writeJSON(w, http.StatusOK, pre.Result)
		return
	}

	// Async suppliers get the PENDING snapshot back; the worker picks the
	// batch up from the store.
	if pre.Async {
		writeJSON(w, http.StatusAccepted, pre.Result)
		return
	}

	result, err := h.Processor.Process(r.Context(), pre.BatchID, supplier)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func loadSupplier(w http.ResponseWriter, r *http.Request, store state.Store) (domain.Supplier, bool) {
	supplierID := supplierctx.SupplierID(r.Context())

	supplier, ok, err := store.GetSupplier(r.Context(), supplierID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "get_supplier_failed", "message": err.Error()})
		return domain.Supplier{}, false
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"error":   "supplier_not_found",
			"message": "no supplier configured for id " + supplierID,
		})
		return domain.Supplier{}, false
	}

	return supplier, true
}

func writeServiceError(w http.ResponseWriter, err error) {
	var batchErr *apierr.BatchError
	if errors.As(err, &batchErr) {
		writeJSON(w, batchErr.Status, map[string]any{"issues": batchErr.Issues})
		return
	}

	writeJSON(w, apierr.StatusOf(err, http.StatusInternalServerError), map[string]any{
		"message": err.Error(),
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
