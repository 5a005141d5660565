package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"drone-ops-api/internal/fleet"
	"drone-ops-api/internal/models"
	"drone-ops-api/internal/reporting"

	"github.com/gorilla/mux"
)

// FleetHandler handles drone fleet HTTP requests
type FleetHandler struct {
	fleet     *fleet.Manager
	reporting *reporting.Service
}

// NewFleetHandler creates a new fleet handler
func NewFleetHandler(fleetMgr *fleet.Manager, reports *reporting.Service) *FleetHandler {
	return &FleetHandler{
		fleet:     fleetMgr,
		reporting: reports,
	}
}

// GetFleetOverview handles GET /api/fleet/overview
func (h *FleetHandler) GetFleetOverview(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, h.fleet.Overview())
}

// GetFleetStatus handles GET /api/fleet/status - the per-drone status table
func (h *FleetHandler) GetFleetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, h.fleet.Statuses())
}

// GetDroneDetails handles GET /api/fleet/{droneId}
func (h *FleetHandler) GetDroneDetails(w http.ResponseWriter, r *http.Request) {
	drone, err := h.fleet.Get(mux.Vars(r)["droneId"])
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, drone)
}

// GetBatteryDistribution handles GET /api/fleet/battery-distribution
func (h *FleetHandler) GetBatteryDistribution(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, h.fleet.BatteryDistribution())
}

// GetEmergencyReadyDrones handles GET /api/fleet/emergency-ready
func (h *FleetHandler) GetEmergencyReadyDrones(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"drones": h.fleet.EmergencyReady(),
	})
}

// UpdateDroneStatus handles PUT /api/admin/fleet/{droneId}/status
func (h *FleetHandler) UpdateDroneStatus(w http.ResponseWriter, r *http.Request) {
	droneID := mux.Vars(r)["droneId"]

	var req models.UpdateDroneStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Invalid JSON in drone status request", "error", err, "remote_addr", r.RemoteAddr)
		writeErrorResponse(w, http.StatusBadRequest, "bad_request", "Invalid JSON", nil)
		return
	}
	if !fleet.ValidStatus(req.Status) {
		writeErrorResponse(w, http.StatusBadRequest, "validation_error", "Unknown drone status",
			[]models.ErrorDetail{{Field: "status", Issue: "must be one of Active, Charging, Maintenance, Standby, Returning"}})
		return
	}

	if err := h.fleet.SetStatus(droneID, req.Status); err != nil {
		writeDomainError(w, err)
		return
	}
	h.reporting.Invalidate()
	writeJSONResponse(w, http.StatusOK, models.SuccessResponse{Success: true})
}

// DeployDrone handles POST /api/admin/fleet/{droneId}/deploy
func (h *FleetHandler) DeployDrone(w http.ResponseWriter, r *http.Request) {
	droneID := mux.Vars(r)["droneId"]

	var req models.DeployDroneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Invalid JSON in deploy request", "error", err, "remote_addr", r.RemoteAddr)
		writeErrorResponse(w, http.StatusBadRequest, "bad_request", "Invalid JSON", nil)
		return
	}

	var details []models.ErrorDetail
	if req.MissionType == "" {
		details = append(details, models.ErrorDetail{Field: "mission_type", Issue: "required"})
	}
	if req.Destination == "" {
		details = append(details, models.ErrorDetail{Field: "destination", Issue: "required"})
	}
	if len(details) > 0 {
		writeErrorResponse(w, http.StatusBadRequest, "validation_error", "Invalid deploy request", details)
		return
	}

	if err := h.fleet.Deploy(droneID, req.MissionType, req.Destination, req.Priority); err != nil {
		writeDomainError(w, err)
		return
	}

	slog.Info("Drone deployed",
		"drone_id", droneID,
		"mission_type", req.MissionType,
		"destination", req.Destination)

	h.reporting.Invalidate()
	writeJSONResponse(w, http.StatusOK, models.SuccessResponse{Success: true})
}

// RecallDrone handles POST /api/admin/fleet/{droneId}/recall
func (h *FleetHandler) RecallDrone(w http.ResponseWriter, r *http.Request) {
	droneID := mux.Vars(r)["droneId"]

	if err := h.fleet.Recall(droneID); err != nil {
		writeDomainError(w, err)
		return
	}

	slog.Info("Drone recalled", "drone_id", droneID)
	h.reporting.Invalidate()
	writeJSONResponse(w, http.StatusOK, models.SuccessResponse{Success: true})
}
