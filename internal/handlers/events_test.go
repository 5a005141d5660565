package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"drone-ops-api/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetEvents_Empty(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, "GET", "/api/events", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	resp := decodeJSON[EventsResponse](t, rr)
	assert.Empty(t, resp.Events)
	assert.Zero(t, resp.NextOffset)
	assert.False(t, resp.HasMore)
}

func TestGetEvents_AfterLifecycleActivity(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, "POST", "/api/deliveries", models.CreateDeliveryRequest{
		ItemID: "MED-0001", Quantity: 1, Destination: "Rural Clinic A",
	})
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = env.do(t, "GET", "/api/events", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	resp := decodeJSON[EventsResponse](t, rr)
	require.Len(t, resp.Events, 1)
	assert.Equal(t, "delivery_created", resp.Events[0].EventType)
	assert.Equal(t, "DEL-000001", resp.Events[0].EntityID)
	assert.Equal(t, int64(1), resp.NextOffset)
}

func TestGetEvents_OffsetAndLimit(t *testing.T) {
	env := newTestEnv(t)

	for i := 0; i < 5; i++ {
		env.stream.Publish("drone_status_change", "LLA-001", map[string]any{"status": "Active"})
	}

	rr := env.do(t, "GET", "/api/events?offset=2&limit=2", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	resp := decodeJSON[EventsResponse](t, rr)
	require.Len(t, resp.Events, 2)
	assert.Equal(t, int64(2), resp.Events[0].Offset)
	assert.Equal(t, int64(4), resp.NextOffset)
	assert.True(t, resp.HasMore)
}

func TestGetEvents_BadParameters(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{
		"/api/events?offset=-1",
		"/api/events?limit=0",
		"/api/events?wait=soon",
	} {
		rr := env.do(t, "GET", path, nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code, path)
	}
}

func TestGetEvents_LongPollWakesOnPublish(t *testing.T) {
	env := newTestEnv(t)

	done := make(chan EventsResponse, 1)
	go func() {
		rr := env.do(t, "GET", "/api/events?wait=5", nil)
		var resp EventsResponse
		json.Unmarshal(rr.Body.Bytes(), &resp)
		done <- resp
	}()

	// Whether the publish lands before or after the poller parks, the
	// response must carry the event rather than time out empty.
	env.stream.Publish("alert_created", "ALT-000001", nil)

	resp := <-done
	if assert.NotEmpty(t, resp.Events) {
		assert.Equal(t, "alert_created", resp.Events[0].EventType)
	}
}
