package handlers

import (
	"net/http"
	"testing"

	"drone-ops-api/internal/reporting"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetKPIs(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, "GET", "/api/dashboard/kpis", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	kpis := decodeJSON[reporting.KPIs](t, rr)
	assert.Equal(t, 5, kpis.TotalDrones)
}

func TestGetDashboardOverview(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, "GET", "/api/dashboard/overview", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	dashboard := decodeJSON[reporting.Dashboard](t, rr)
	assert.Equal(t, 5, dashboard.Fleet.Total)
	assert.Equal(t, 3, dashboard.Inventory.TotalItems)
	assert.NotEmpty(t, dashboard.Activities)
}

func TestGetMissionStats(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, "GET", "/api/dashboard/missions", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	stats := decodeJSON[reporting.MissionStats](t, rr)
	assert.Zero(t, stats.CompletedToday)
}

func TestGetSystemHealth(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, "GET", "/api/dashboard/system-health", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	health := decodeJSON[map[string]string](t, rr)
	assert.Contains(t, health, "Drone Fleet")
	assert.Contains(t, health, "Medical Inventory")
}
