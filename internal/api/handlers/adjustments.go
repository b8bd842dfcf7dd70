package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/quarterfold/suppliersync/internal/domain"
	"github.com/quarterfold/suppliersync/internal/inventory"
	"github.com/quarterfold/suppliersync/internal/state"
)

type AdjustmentsHandler struct {
	Store    state.Store
	Resolver *inventory.Resolver
}

func (h AdjustmentsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	supplier, ok := loadSupplier(w, r, h.Store)
	if !ok {
		return
	}

	var items []domain.AdjustmentItem
	if err := json.NewDecoder(r.Body).Decode(&items); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid_json", "message": err.Error()})
		return
	}

	if len(items) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":   "empty_request",
			"message": "request body must be a non-empty array of adjustments",
		})
		return
	}

	if err := h.Resolver.ProcessAdjustments(r.Context(), items, supplier); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
