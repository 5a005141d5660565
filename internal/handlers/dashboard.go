package handlers

import (
	"net/http"

	"drone-ops-api/internal/reporting"
)

// DashboardHandler serves the aggregated reporting views
type DashboardHandler struct {
	reporting *reporting.Service
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(reports *reporting.Service) *DashboardHandler {
	return &DashboardHandler{reporting: reports}
}

// GetKPIs handles GET /api/dashboard/kpis
func (h *DashboardHandler) GetKPIs(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, h.reporting.KPIs())
}

// GetDashboardOverview handles GET /api/dashboard/overview - the single
// composite payload the operations dashboard renders from.
func (h *DashboardHandler) GetDashboardOverview(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, h.reporting.Dashboard())
}

// GetMissionStats handles GET /api/dashboard/missions
func (h *DashboardHandler) GetMissionStats(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, h.reporting.MissionStats())
}

// GetSystemHealth handles GET /api/dashboard/system-health
func (h *DashboardHandler) GetSystemHealth(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, h.reporting.SystemHealth())
}
