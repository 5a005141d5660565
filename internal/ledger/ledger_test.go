package ledger

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLedger() *Ledger {
	return New([]Item{
		{
			ID:            "MED-0001",
			Category:      "Blood Products",
			Name:          "O+ Blood Pack",
			CurrentStock:  20,
			ReservedStock: 0,
			MinStockLevel: 10,
			UnitCost:      120.0,
			ExpiryDate:    time.Now().AddDate(0, 0, 90),
		},
		{
			ID:            "MED-0002",
			Category:      "Emergency Medications",
			Name:          "Epinephrine Auto-Injector",
			CurrentStock:  4,
			ReservedStock: 0,
			MinStockLevel: 10,
			UnitCost:      45.0,
			ExpiryDate:    time.Now().AddDate(0, 0, 5),
		},
	})
}

func TestLedger_ReserveAndInsufficientStock(t *testing.T) {
	l := testLedger()

	// Reserve 15 of 20 leaves 5 available
	err := l.Reserve("MED-0001", 15)
	require.NoError(t, err)

	item, err := l.Get("MED-0001")
	require.NoError(t, err)
	assert.Equal(t, 15, item.ReservedStock)
	assert.Equal(t, 5, item.Available())

	// Reserving 10 more must fail and leave state unchanged
	err = l.Reserve("MED-0001", 10)
	assert.ErrorIs(t, err, ErrInsufficientStock)

	item, err = l.Get("MED-0001")
	require.NoError(t, err)
	assert.Equal(t, 15, item.ReservedStock)
	assert.Equal(t, 20, item.CurrentStock)
}

func TestLedger_ReserveUnknownItem(t *testing.T) {
	l := testLedger()
	err := l.Reserve("MED-9999", 1)
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestLedger_ConsumeSettlesReservation(t *testing.T) {
	l := testLedger()

	require.NoError(t, l.Reserve("MED-0001", 8))
	require.NoError(t, l.Consume("MED-0001", 8))

	item, err := l.Get("MED-0001")
	require.NoError(t, err)
	assert.Equal(t, 12, item.CurrentStock)
	assert.Equal(t, 0, item.ReservedStock)
	assert.GreaterOrEqual(t, item.ReservedStock, 0)
	assert.LessOrEqual(t, item.ReservedStock, item.CurrentStock)
}

func TestLedger_ConsumeInvariantViolation(t *testing.T) {
	l := testLedger()

	// Nothing reserved, consuming would drive reserved stock negative
	err := l.Consume("MED-0001", 5)
	assert.ErrorIs(t, err, ErrInvariantViolation)

	item, err := l.Get("MED-0001")
	require.NoError(t, err)
	assert.Equal(t, 20, item.CurrentStock)
	assert.Equal(t, 0, item.ReservedStock)
}

func TestLedger_ReleaseFlooredAtZero(t *testing.T) {
	l := testLedger()

	require.NoError(t, l.Reserve("MED-0001", 3))
	require.NoError(t, l.Release("MED-0001", 10))

	item, err := l.Get("MED-0001")
	require.NoError(t, err)
	assert.Equal(t, 0, item.ReservedStock)
	assert.Equal(t, 20, item.CurrentStock)
}

func TestLedger_Restock(t *testing.T) {
	l := testLedger()

	expiry := time.Now().AddDate(1, 0, 0)
	err := l.Restock("MED-0002", 50, "BT77777", &expiry)
	require.NoError(t, err)

	item, err := l.Get("MED-0002")
	require.NoError(t, err)
	assert.Equal(t, 54, item.CurrentStock)
	assert.Equal(t, "BT77777", item.BatchNumber)
	assert.Equal(t, expiry, item.ExpiryDate)
	assert.False(t, item.LastRestocked.IsZero())

	err = l.Restock("MED-9999", 10, "", nil)
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestLedger_LowStockSeverity(t *testing.T) {
	l := testLedger()

	alerts := l.LowStock()
	require.Len(t, alerts, 1)
	// 4 < 0.5 * 10 is critical
	assert.Equal(t, "MED-0002", alerts[0].ItemID)
	assert.Equal(t, SeverityCritical, alerts[0].Severity)

	// Drop MED-0001 to exactly its minimum: warning, not critical
	require.NoError(t, l.Reserve("MED-0001", 10))
	require.NoError(t, l.Consume("MED-0001", 10))

	alerts = l.LowStock()
	require.Len(t, alerts, 2)
	assert.Equal(t, SeverityWarning, alerts[0].Severity)
	assert.Equal(t, "MED-0001", alerts[0].ItemID)
}

func TestLedger_ExpiringSoon(t *testing.T) {
	l := testLedger()

	alerts := l.ExpiringSoon()
	require.Len(t, alerts, 1)
	assert.Equal(t, "MED-0002", alerts[0].ItemID)
	assert.Equal(t, SeverityCritical, alerts[0].Severity)
	assert.LessOrEqual(t, alerts[0].DaysRemaining, 7)
}

func TestLedger_OverviewAndCategories(t *testing.T) {
	l := testLedger()

	overview := l.Overview()
	assert.Equal(t, 2, overview.TotalItems)
	assert.Equal(t, 1, overview.CriticalStock)
	assert.InDelta(t, 50.0, overview.Availability, 0.01)
	assert.InDelta(t, 20*120.0+4*45.0, overview.TotalValue, 0.01)

	categories := l.ByCategory()
	require.Len(t, categories, 2)
	assert.Equal(t, "Blood Products", categories[0].Category)
	assert.Equal(t, 20, categories[0].TotalStock)
	assert.Equal(t, 1, categories[0].ItemCount)
}

func TestLedger_Search(t *testing.T) {
	l := testLedger()

	matches := l.Search("blood")
	require.Len(t, matches, 1)
	assert.Equal(t, "MED-0001", matches[0].ID)

	matches = l.Search("medications")
	require.Len(t, matches, 1)
	assert.Equal(t, "MED-0002", matches[0].ID)

	assert.Empty(t, l.Search("no-such-item"))
}

func TestSeed_Deterministic(t *testing.T) {
	a := Seed(rand.New(rand.NewSource(42)))
	b := Seed(rand.New(rand.NewSource(42)))

	require.Equal(t, len(a), len(b))
	for i := range a {
		assert.Equal(t, a[i].ID, b[i].ID)
		assert.Equal(t, a[i].Name, b[i].Name)
		assert.Equal(t, a[i].CurrentStock, b[i].CurrentStock)
		assert.Equal(t, a[i].ReservedStock, b[i].ReservedStock)
		assert.Equal(t, a[i].UnitCost, b[i].UnitCost)
	}

	// Every seeded item satisfies the reservation invariant
	for _, item := range a {
		assert.GreaterOrEqual(t, item.ReservedStock, 0)
		assert.LessOrEqual(t, item.ReservedStock, item.CurrentStock)
	}

	assert.Equal(t, "MED-0001", a[0].ID)
	assert.Equal(t, "O+ Blood Pack", a[0].Name)
	assert.Equal(t, "2-8°C", a[0].TemperatureRequirement)
}
