package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"drone-ops-api/internal/delivery"
	"drone-ops-api/internal/models"
	"drone-ops-api/internal/reporting"
	"drone-ops-api/internal/telemetry"

	"github.com/gorilla/mux"
)

// DeliveryHandler handles delivery-related HTTP requests
type DeliveryHandler struct {
	deliveries *delivery.Manager
	reporting  *reporting.Service
	telemetry  *telemetry.OpsTelemetry
}

// NewDeliveryHandler creates a new delivery handler
func NewDeliveryHandler(deliveries *delivery.Manager, reports *reporting.Service, tel *telemetry.OpsTelemetry) *DeliveryHandler {
	return &DeliveryHandler{
		deliveries: deliveries,
		reporting:  reports,
		telemetry:  tel,
	}
}

// CreateDelivery handles POST /api/deliveries - open a new delivery order
func (h *DeliveryHandler) CreateDelivery(w http.ResponseWriter, r *http.Request) {
	var req models.CreateDeliveryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Invalid JSON in create delivery request", "error", err, "remote_addr", r.RemoteAddr)
		writeErrorResponse(w, http.StatusBadRequest, "bad_request", "Invalid JSON", nil)
		return
	}

	var details []models.ErrorDetail
	if req.ItemID == "" {
		details = append(details, models.ErrorDetail{Field: "item_id", Issue: "required"})
	}
	if req.Destination == "" {
		details = append(details, models.ErrorDetail{Field: "destination", Issue: "required"})
	}
	if req.Quantity <= 0 {
		details = append(details, models.ErrorDetail{Field: "quantity", Issue: "must be positive"})
	}
	if len(details) > 0 {
		writeErrorResponse(w, http.StatusBadRequest, "validation_error", "Invalid delivery request", details)
		return
	}

	order, err := h.deliveries.Create(req.ItemID, req.Quantity, req.Destination, req.Priority, req.DroneID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	slog.Info("Delivery created",
		"delivery_id", order.ID,
		"item_id", order.ItemID,
		"quantity", order.Quantity,
		"priority", order.Priority)

	if h.telemetry != nil {
		h.telemetry.RecordDeliveryCreated(r.Context(), order.Priority)
	}
	h.reporting.Invalidate()

	writeJSONResponse(w, http.StatusCreated, order)
}

// ListActiveDeliveries handles GET /api/deliveries/active
func (h *DeliveryHandler) ListActiveDeliveries(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, h.deliveries.Active())
}

// ListDeliveryHistory handles GET /api/deliveries/history?days=N
func (h *DeliveryHandler) ListDeliveryHistory(w http.ResponseWriter, r *http.Request) {
	days := 7
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeErrorResponse(w, http.StatusBadRequest, "bad_request", "Invalid days parameter", nil)
			return
		}
		days = parsed
	}
	writeJSONResponse(w, http.StatusOK, h.deliveries.History(days))
}

// UpdateDeliveryStatus handles PUT /api/deliveries/{deliveryId}/status
func (h *DeliveryHandler) UpdateDeliveryStatus(w http.ResponseWriter, r *http.Request) {
	deliveryID := mux.Vars(r)["deliveryId"]

	var req models.UpdateDeliveryStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Invalid JSON in update delivery status request", "error", err, "remote_addr", r.RemoteAddr)
		writeErrorResponse(w, http.StatusBadRequest, "bad_request", "Invalid JSON", nil)
		return
	}

	status, err := delivery.ParseStatus(req.Status)
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "validation_error", "Unknown delivery status",
			[]models.ErrorDetail{{Field: "status", Issue: "must be one of Pending, Assigned, InTransit, Delivered, Cancelled"}})
		return
	}

	order, err := h.deliveries.UpdateStatus(deliveryID, status, req.Location, req.Temperature)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	h.reporting.Invalidate()

	writeJSONResponse(w, http.StatusOK, order)
}

// GetSupplyChainMetrics handles GET /api/deliveries/metrics
func (h *DeliveryHandler) GetSupplyChainMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, h.deliveries.Metrics())
}
