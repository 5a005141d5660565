package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"drone-ops-api/internal/ledger"
	"drone-ops-api/internal/models"
	"drone-ops-api/internal/reporting"
	"drone-ops-api/internal/telemetry"

	"github.com/gorilla/mux"
)

// InventoryHandler handles medical inventory HTTP requests
type InventoryHandler struct {
	inventory *ledger.Ledger
	reporting *reporting.Service
	telemetry *telemetry.OpsTelemetry
}

// NewInventoryHandler creates a new inventory handler
func NewInventoryHandler(inventory *ledger.Ledger, reports *reporting.Service, tel *telemetry.OpsTelemetry) *InventoryHandler {
	return &InventoryHandler{
		inventory: inventory,
		reporting: reports,
		telemetry: tel,
	}
}

// ListInventory handles GET /api/inventory - all items, optionally filtered
// by a search term.
func (h *InventoryHandler) ListInventory(w http.ResponseWriter, r *http.Request) {
	if term := r.URL.Query().Get("search"); term != "" {
		writeJSONResponse(w, http.StatusOK, h.inventory.Search(term))
		return
	}
	writeJSONResponse(w, http.StatusOK, h.inventory.List())
}

// GetInventoryItem handles GET /api/inventory/{itemId}
func (h *InventoryHandler) GetInventoryItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.inventory.Get(mux.Vars(r)["itemId"])
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, item)
}

// GetInventoryOverview handles GET /api/inventory/overview
func (h *InventoryHandler) GetInventoryOverview(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, h.inventory.Overview())
}

// GetCriticalStockAlerts handles GET /api/inventory/critical - items at or
// below their reorder points plus batches expiring within 30 days.
func (h *InventoryHandler) GetCriticalStockAlerts(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"low_stock":     h.inventory.LowStock(),
		"expiring_soon": h.inventory.ExpiringSoon(),
	})
}

// GetInventoryCategories handles GET /api/inventory/categories
func (h *InventoryHandler) GetInventoryCategories(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, h.inventory.ByCategory())
}

// RestockItem handles POST /api/admin/inventory/{itemId}/restock
func (h *InventoryHandler) RestockItem(w http.ResponseWriter, r *http.Request) {
	itemID := mux.Vars(r)["itemId"]

	var req models.RestockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Invalid JSON in restock request", "error", err, "remote_addr", r.RemoteAddr)
		writeErrorResponse(w, http.StatusBadRequest, "bad_request", "Invalid JSON", nil)
		return
	}
	if req.Quantity <= 0 {
		writeErrorResponse(w, http.StatusBadRequest, "validation_error", "Invalid restock request",
			[]models.ErrorDetail{{Field: "quantity", Issue: "must be positive"}})
		return
	}

	var expiry *time.Time
	if req.ExpiryDate != "" {
		parsed, err := parseExpiryDate(req.ExpiryDate)
		if err != nil {
			writeErrorResponse(w, http.StatusBadRequest, "validation_error", "Invalid restock request",
				[]models.ErrorDetail{{Field: "expiry_date", Issue: "must be YYYY-MM-DD or RFC3339"}})
			return
		}
		expiry = &parsed
	}

	if err := h.inventory.Restock(itemID, req.Quantity, req.BatchNumber, expiry); err != nil {
		writeDomainError(w, err)
		return
	}

	slog.Info("Inventory restocked",
		"item_id", itemID,
		"quantity", req.Quantity,
		"batch_number", req.BatchNumber)

	if h.telemetry != nil {
		h.telemetry.RecordRestock(r.Context())
	}
	h.reporting.Invalidate()

	item, err := h.inventory.Get(itemID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, item)
}

func parseExpiryDate(raw string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, raw)
}
