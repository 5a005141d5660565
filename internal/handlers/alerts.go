package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"drone-ops-api/internal/alerts"
	"drone-ops-api/internal/fleet"
	"drone-ops-api/internal/models"
	"drone-ops-api/internal/reporting"
	"drone-ops-api/internal/telemetry"

	"github.com/gorilla/mux"
)

// AlertsHandler handles alert lifecycle HTTP requests
type AlertsHandler struct {
	engine    *alerts.Engine
	fleet     *fleet.Manager
	reporting *reporting.Service
	telemetry *telemetry.OpsTelemetry
}

// NewAlertsHandler creates a new alerts handler
func NewAlertsHandler(engine *alerts.Engine, fleetMgr *fleet.Manager, reports *reporting.Service, tel *telemetry.OpsTelemetry) *AlertsHandler {
	return &AlertsHandler{
		engine:    engine,
		fleet:     fleetMgr,
		reporting: reports,
		telemetry: tel,
	}
}

// ListAlerts handles GET /api/alerts?limit=N - active alerts by priority
func (h *AlertsHandler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeErrorResponse(w, http.StatusBadRequest, "bad_request", "Invalid limit parameter", nil)
			return
		}
		limit = parsed
	}
	writeJSONResponse(w, http.StatusOK, h.engine.ListActive(limit))
}

// AcknowledgeAlert handles POST /api/alerts/{alertId}/acknowledge
func (h *AlertsHandler) AcknowledgeAlert(w http.ResponseWriter, r *http.Request) {
	alertID := mux.Vars(r)["alertId"]

	var req models.AcknowledgeAlertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Invalid JSON in acknowledge request", "error", err, "remote_addr", r.RemoteAddr)
		writeErrorResponse(w, http.StatusBadRequest, "bad_request", "Invalid JSON", nil)
		return
	}
	if req.User == "" {
		req.User = "System"
	}

	if err := h.engine.Acknowledge(alertID, req.User); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.SuccessResponse{Success: true})
}

// ResolveAlert handles POST /api/alerts/{alertId}/resolve
func (h *AlertsHandler) ResolveAlert(w http.ResponseWriter, r *http.Request) {
	alertID := mux.Vars(r)["alertId"]

	var req models.ResolveAlertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Invalid JSON in resolve request", "error", err, "remote_addr", r.RemoteAddr)
		writeErrorResponse(w, http.StatusBadRequest, "bad_request", "Invalid JSON", nil)
		return
	}
	if req.User == "" {
		req.User = "System"
	}

	if err := h.engine.Resolve(alertID, req.User, req.Notes); err != nil {
		writeDomainError(w, err)
		return
	}
	h.reporting.Invalidate()
	writeJSONResponse(w, http.StatusOK, models.SuccessResponse{Success: true})
}

// GetAlertStatistics handles GET /api/alerts/statistics
func (h *AlertsHandler) GetAlertStatistics(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, h.engine.Statistics())
}

// GetCriticalSummary handles GET /api/alerts/summary - the dashboard's
// critical-alert banner payload.
func (h *AlertsHandler) GetCriticalSummary(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, h.engine.CriticalSummary())
}

// ListActivities handles GET /api/activities?limit=N
func (h *AlertsHandler) ListActivities(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeErrorResponse(w, http.StatusBadRequest, "bad_request", "Invalid limit parameter", nil)
			return
		}
		limit = parsed
	}
	writeJSONResponse(w, http.StatusOK, h.engine.Activities().Recent(limit))
}

// ActivateEmergency handles POST /api/admin/emergency - raises the
// emergency alert and recalls every active drone.
func (h *AlertsHandler) ActivateEmergency(w http.ResponseWriter, r *http.Request) {
	alert := h.engine.CreateEmergency()
	recalled := h.fleet.RecallAll()

	slog.Warn("Emergency protocol activated",
		"alert_id", alert.ID,
		"drones_recalled", len(recalled))

	if h.telemetry != nil {
		h.telemetry.RecordAlertRaised(r.Context(), alert.Severity, alert.Type)
	}
	h.reporting.Invalidate()

	writeJSONResponse(w, http.StatusOK, map[string]any{
		"alert":           alert,
		"drones_recalled": recalled,
	})
}
