package reporting

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drone-ops-api/internal/alerts"
	"drone-ops-api/internal/delivery"
	"drone-ops-api/internal/fleet"
	"drone-ops-api/internal/ledger"
)

func newTestService(t *testing.T) (*Service, *delivery.Manager, *alerts.Engine) {
	t.Helper()

	stock := ledger.New([]ledger.Item{{
		ID:            "MED-0001",
		Name:          "Blood Type O-",
		Category:      "Blood Products",
		CurrentStock:  50,
		MinStockLevel: 10,
		MaxStockLevel: 100,
		UnitCost:      150,
		ExpiryDate:    time.Now().AddDate(0, 6, 0),
	}})
	deliveries := delivery.NewManager(stock, delivery.FixedEstimator{Duration: 30 * time.Minute})
	engine := alerts.NewEngine(100)
	fleetMgr := fleet.NewManager(15, rand.New(rand.NewSource(1)))

	return NewService(fleetMgr, deliveries, stock, engine, 0), deliveries, engine
}

func TestService_KPIs(t *testing.T) {
	svc, _, _ := newTestService(t)

	kpis := svc.KPIs()
	assert.Equal(t, 15, kpis.TotalDrones)
	// No settled deliveries yet, rate figures are zero rather than invented
	assert.Zero(t, kpis.SuccessRate)
	assert.Zero(t, kpis.AvgDeliveryTime)
}

func TestService_MissionStatsFromHistory(t *testing.T) {
	svc, deliveries, _ := newTestService(t)

	order, err := deliveries.Create("MED-0001", 5, "Station A", "High", "LLA-001")
	require.NoError(t, err)
	_, err = deliveries.UpdateStatus(order.ID, delivery.StatusInTransit, "Zone Alpha", nil)
	require.NoError(t, err)
	_, err = deliveries.UpdateStatus(order.ID, delivery.StatusDelivered, "Station A", nil)
	require.NoError(t, err)

	stats := svc.MissionStats()
	assert.Equal(t, 1, stats.CompletedToday)
	assert.Zero(t, stats.ChangePercent)
	assert.Greater(t, stats.SuccessRate, 0.0)
}

func TestService_Dashboard(t *testing.T) {
	svc, deliveries, engine := newTestService(t)

	_, err := deliveries.Create("MED-0001", 5, "Station A", "High", "")
	require.NoError(t, err)
	engine.Create(alerts.TypeDroneBattery, alerts.SeverityCritical, "Critical Battery Alert", "m", "LLA-001", nil)

	dash := svc.Dashboard()
	assert.Equal(t, 15, dash.Fleet.Total)
	assert.Equal(t, 1, dash.Inventory.TotalItems)
	assert.Equal(t, 1, dash.SupplyChain.ActiveDeliveries)
	require.Len(t, dash.Alerts, 1)
	assert.Equal(t, "critical", dash.CriticalAlerts.SystemStatus)
	assert.NotEmpty(t, dash.Activities)
	assert.Greater(t, dash.AverageBattery, 0.0)

	total := 0
	for _, n := range dash.BatteryDistribution {
		total += n
	}
	assert.Equal(t, 15, total)
}

func TestService_DashboardCaching(t *testing.T) {
	stock := ledger.New(nil)
	deliveries := delivery.NewManager(stock, delivery.FixedEstimator{Duration: time.Minute})
	engine := alerts.NewEngine(100)
	fleetMgr := fleet.NewManager(3, rand.New(rand.NewSource(1)))
	svc := NewService(fleetMgr, deliveries, stock, engine, time.Minute)

	before := svc.Dashboard()
	engine.Create(alerts.TypeWeather, alerts.SeverityWarning, "t", "m", "s", nil)

	cached := svc.Dashboard()
	assert.Len(t, cached.Alerts, len(before.Alerts))

	svc.Invalidate()
	fresh := svc.Dashboard()
	assert.Len(t, fresh.Alerts, len(before.Alerts)+1)
}

func TestService_SystemHealth(t *testing.T) {
	svc, _, _ := newTestService(t)

	health := svc.SystemHealth()
	assert.Equal(t, "OK", health["Medical Inventory"])
	assert.Contains(t, health, "Drone Fleet")
	assert.Contains(t, health, "Weather Service")
}

func TestService_SystemHealthDegradesOnCriticalStock(t *testing.T) {
	stock := ledger.New([]ledger.Item{{
		ID:            "MED-0001",
		Name:          "Blood Type O-",
		CurrentStock:  2,
		MinStockLevel: 10,
		ExpiryDate:    time.Now().AddDate(0, 6, 0),
	}})
	deliveries := delivery.NewManager(stock, delivery.FixedEstimator{Duration: time.Minute})
	svc := NewService(fleet.NewManager(3, rand.New(rand.NewSource(1))), deliveries, stock, alerts.NewEngine(100), 0)

	assert.Equal(t, "Attention", svc.SystemHealth()["Medical Inventory"])
}
