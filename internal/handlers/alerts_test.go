package handlers

import (
	"net/http"
	"testing"

	"drone-ops-api/internal/alerts"
	"drone-ops-api/internal/fleet"
	"drone-ops-api/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedAlert(env *testEnv) alerts.Alert {
	return env.engine.Create(
		alerts.TypeDroneBattery,
		alerts.SeverityCritical,
		"Critical Battery Alert",
		"Drone LLA-001 battery at 9%",
		"LLA-001",
		nil,
	)
}

func TestListAlerts(t *testing.T) {
	env := newTestEnv(t)
	seedAlert(env)
	env.engine.Create(alerts.TypeMaintenance, alerts.SeverityInfo, "Maintenance Due", "Routine check", "LLA-002", nil)

	rr := env.do(t, "GET", "/api/alerts", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	listed := decodeJSON[[]alerts.Alert](t, rr)
	require.Len(t, listed, 2)
	// Highest priority score first.
	assert.Equal(t, "Critical Battery Alert", listed[0].Title)

	rr = env.do(t, "GET", "/api/alerts?limit=1", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decodeJSON[[]alerts.Alert](t, rr), 1)

	rr = env.do(t, "GET", "/api/alerts?limit=no", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAcknowledgeAlert(t *testing.T) {
	env := newTestEnv(t)
	alert := seedAlert(env)

	rr := env.do(t, "POST", "/api/alerts/"+alert.ID+"/acknowledge",
		models.AcknowledgeAlertRequest{User: "operator-7"})
	require.Equal(t, http.StatusOK, rr.Code)

	listed := env.engine.ListActive(0)
	require.Len(t, listed, 1)
	assert.True(t, listed[0].Acknowledged)
	assert.Equal(t, "operator-7", listed[0].AcknowledgedBy)
}

func TestAcknowledgeAlert_DefaultsUser(t *testing.T) {
	env := newTestEnv(t)
	alert := seedAlert(env)

	rr := env.do(t, "POST", "/api/alerts/"+alert.ID+"/acknowledge",
		models.AcknowledgeAlertRequest{})
	require.Equal(t, http.StatusOK, rr.Code)

	listed := env.engine.ListActive(0)
	require.Len(t, listed, 1)
	assert.Equal(t, "System", listed[0].AcknowledgedBy)
}

func TestResolveAlert(t *testing.T) {
	env := newTestEnv(t)
	alert := seedAlert(env)

	rr := env.do(t, "POST", "/api/alerts/"+alert.ID+"/resolve",
		models.ResolveAlertRequest{User: "operator-7", Notes: "battery swapped"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, env.engine.ListActive(0))

	// Resolving twice fails: the alert left the active set.
	rr = env.do(t, "POST", "/api/alerts/"+alert.ID+"/resolve",
		models.ResolveAlertRequest{User: "operator-7"})
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAlertStatistics(t *testing.T) {
	env := newTestEnv(t)
	seedAlert(env)

	rr := env.do(t, "GET", "/api/alerts/statistics", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	stats := decodeJSON[alerts.Statistics](t, rr)
	assert.Equal(t, 1, stats.TotalActive)
	assert.Equal(t, 1, stats.SeverityBreakdown["critical"])
}

func TestCriticalSummary(t *testing.T) {
	env := newTestEnv(t)
	seedAlert(env)

	rr := env.do(t, "GET", "/api/alerts/summary", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	summary := decodeJSON[alerts.CriticalSummary](t, rr)
	assert.Equal(t, 1, summary.CriticalCount)
	require.NotNil(t, summary.LatestCritical)
	assert.Equal(t, "Critical Battery Alert", summary.LatestCritical.Title)
}

func TestListActivities(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, "GET", "/api/activities?limit=5", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	activities := decodeJSON[[]alerts.ActivityEntry](t, rr)
	assert.Len(t, activities, 5)
}

func TestActivateEmergency(t *testing.T) {
	env := newTestEnv(t)

	// Put two drones in the air so the recall has something to pull back.
	require.NoError(t, env.fleet.SetStatus("LLA-001", fleet.StatusActive))
	require.NoError(t, env.fleet.SetStatus("LLA-002", fleet.StatusActive))
	for _, id := range []string{"LLA-003", "LLA-004", "LLA-005"} {
		require.NoError(t, env.fleet.SetStatus(id, fleet.StatusStandby))
	}

	rr := env.do(t, "POST", "/api/admin/emergency", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	type emergencyResponse struct {
		Alert          alerts.Alert `json:"alert"`
		DronesRecalled []string     `json:"drones_recalled"`
	}
	body := decodeJSON[emergencyResponse](t, rr)

	assert.Equal(t, "Emergency Protocol Activated", body.Alert.Title)
	assert.Equal(t, alerts.SeverityCritical, body.Alert.Severity)
	assert.Equal(t, []string{"LLA-001", "LLA-002"}, body.DronesRecalled)

	for _, id := range body.DronesRecalled {
		drone, err := env.fleet.Get(id)
		require.NoError(t, err)
		assert.Equal(t, fleet.StatusReturning, drone.Status)
	}
}
