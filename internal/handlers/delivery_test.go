package handlers

import (
	"net/http"
	"testing"

	"drone-ops-api/internal/delivery"
	"drone-ops-api/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateDelivery(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, "POST", "/api/deliveries", models.CreateDeliveryRequest{
		ItemID:      "MED-0001",
		Quantity:    5,
		Destination: "Rural Clinic A",
		Priority:    "High",
	})
	require.Equal(t, http.StatusCreated, rr.Code)

	order := decodeJSON[delivery.Order](t, rr)
	assert.Equal(t, "DEL-000001", order.ID)
	assert.Equal(t, "O+ Blood Pack", order.ItemName)
	assert.Equal(t, delivery.StatusPending, order.Status)
	assert.Empty(t, order.ChainOfCustody)

	// Reservation is visible through the inventory API.
	item, err := env.inventory.Get("MED-0001")
	require.NoError(t, err)
	assert.Equal(t, 5, item.ReservedStock)
}

func TestCreateDelivery_ValidationErrors(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		req  models.CreateDeliveryRequest
	}{
		{"missing item", models.CreateDeliveryRequest{Quantity: 1, Destination: "Rural Clinic A"}},
		{"missing destination", models.CreateDeliveryRequest{ItemID: "MED-0001", Quantity: 1}},
		{"zero quantity", models.CreateDeliveryRequest{ItemID: "MED-0001", Destination: "Rural Clinic A"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(t, "POST", "/api/deliveries", tt.req)
			assert.Equal(t, http.StatusBadRequest, rr.Code)

			errResp := decodeJSON[models.ErrorResponse](t, rr)
			assert.Equal(t, "validation_error", errResp.Code)
			assert.NotEmpty(t, errResp.Details)
		})
	}
}

func TestCreateDelivery_UnknownItem(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, "POST", "/api/deliveries", models.CreateDeliveryRequest{
		ItemID: "MED-9999", Quantity: 1, Destination: "Rural Clinic A",
	})
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCreateDelivery_InsufficientStock(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, "POST", "/api/deliveries", models.CreateDeliveryRequest{
		ItemID: "MED-0002", Quantity: 500, Destination: "Rural Clinic A",
	})
	assert.Equal(t, http.StatusConflict, rr.Code)

	errResp := decodeJSON[models.ErrorResponse](t, rr)
	assert.Equal(t, "conflict", errResp.Code)
}

func TestUpdateDeliveryStatus_FullLifecycle(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, "POST", "/api/deliveries", models.CreateDeliveryRequest{
		ItemID: "MED-0001", Quantity: 5, Destination: "Rural Clinic A",
	})
	require.Equal(t, http.StatusCreated, rr.Code)
	order := decodeJSON[delivery.Order](t, rr)

	temp := 4.2
	for _, step := range []models.UpdateDeliveryStatusRequest{
		{Status: "Assigned"},
		{Status: "InTransit", Location: "Zone Alpha", Temperature: &temp},
		{Status: "Delivered", Location: "Rural Clinic A"},
	} {
		rr = env.do(t, "PUT", "/api/deliveries/"+order.ID+"/status", step)
		require.Equal(t, http.StatusOK, rr.Code, "transition to %s", step.Status)
	}

	final := decodeJSON[delivery.Order](t, rr)
	assert.Equal(t, delivery.StatusDelivered, final.Status)
	assert.NotNil(t, final.CompletedTime)
	assert.Len(t, final.ChainOfCustody, 3)

	// Settled: reservation consumed, stock reduced.
	item, err := env.inventory.Get("MED-0001")
	require.NoError(t, err)
	assert.Equal(t, 45, item.CurrentStock)
	assert.Equal(t, 0, item.ReservedStock)

	// Order moved out of the active set into history.
	assert.Empty(t, env.deliveries.Active())

	rr = env.do(t, "GET", "/api/deliveries/history", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	history := decodeJSON[[]delivery.Order](t, rr)
	require.Len(t, history, 1)
	assert.Equal(t, order.ID, history[0].ID)
}

func TestUpdateDeliveryStatus_Regression(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, "POST", "/api/deliveries", models.CreateDeliveryRequest{
		ItemID: "MED-0001", Quantity: 2, Destination: "Rural Clinic A",
	})
	require.Equal(t, http.StatusCreated, rr.Code)
	order := decodeJSON[delivery.Order](t, rr)

	rr = env.do(t, "PUT", "/api/deliveries/"+order.ID+"/status",
		models.UpdateDeliveryStatusRequest{Status: "InTransit"})
	require.Equal(t, http.StatusOK, rr.Code)

	rr = env.do(t, "PUT", "/api/deliveries/"+order.ID+"/status",
		models.UpdateDeliveryStatusRequest{Status: "Pending"})
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestUpdateDeliveryStatus_UnknownStatus(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, "PUT", "/api/deliveries/DEL-000001/status",
		models.UpdateDeliveryStatusRequest{Status: "Teleported"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	errResp := decodeJSON[models.ErrorResponse](t, rr)
	assert.Equal(t, "validation_error", errResp.Code)
}

func TestUpdateDeliveryStatus_NotFound(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, "PUT", "/api/deliveries/DEL-999999/status",
		models.UpdateDeliveryStatusRequest{Status: "Assigned"})
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestListActiveDeliveries(t *testing.T) {
	env := newTestEnv(t)

	for i := 0; i < 2; i++ {
		rr := env.do(t, "POST", "/api/deliveries", models.CreateDeliveryRequest{
			ItemID: "MED-0001", Quantity: 1, Destination: "Rural Clinic A",
		})
		require.Equal(t, http.StatusCreated, rr.Code)
	}

	rr := env.do(t, "GET", "/api/deliveries/active", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	active := decodeJSON[[]delivery.Order](t, rr)
	assert.Len(t, active, 2)
}

func TestDeliveryHistory_InvalidDays(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, "GET", "/api/deliveries/history?days=zero", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSupplyChainMetrics(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, "GET", "/api/deliveries/metrics", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	metrics := decodeJSON[delivery.Metrics](t, rr)
	assert.Zero(t, metrics.ActiveDeliveries)
	assert.Zero(t, metrics.CompletedDeliveries7d)
}
