package events

import (
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStream(maxEvents int) *Stream {
	return NewStream(maxEvents, slog.Default())
}

func TestStream_PublishAndGet(t *testing.T) {
	s := newTestStream(100)

	s.Publish("delivery_created", "DEL-000001", map[string]any{"quantity": 5})
	s.Publish("alert_created", "ALT-000001", nil)

	events, nextOffset, hasMore := s.Get(0, 10)
	require.Len(t, events, 2)
	assert.Equal(t, int64(0), events[0].Offset)
	assert.Equal(t, "delivery_created", events[0].EventType)
	assert.Equal(t, "DEL-000001", events[0].EntityID)
	assert.Equal(t, int64(1), events[1].Offset)
	assert.Equal(t, int64(2), nextOffset)
	assert.False(t, hasMore)
}

func TestStream_GetWithLimit(t *testing.T) {
	s := newTestStream(100)
	for i := 0; i < 5; i++ {
		s.Publish("delivery_updated", fmt.Sprintf("DEL-%06d", i+1), nil)
	}

	events, nextOffset, hasMore := s.Get(0, 3)
	require.Len(t, events, 3)
	assert.True(t, hasMore)
	assert.Equal(t, int64(3), nextOffset)

	events, nextOffset, hasMore = s.Get(nextOffset, 3)
	require.Len(t, events, 2)
	assert.False(t, hasMore)
	assert.Equal(t, int64(5), nextOffset)
}

func TestStream_GetPastEnd(t *testing.T) {
	s := newTestStream(100)
	s.Publish("delivery_created", "DEL-000001", nil)

	events, nextOffset, hasMore := s.Get(10, 5)
	assert.Empty(t, events)
	assert.Equal(t, int64(1), nextOffset)
	assert.False(t, hasMore)
}

func TestStream_RotationPreservesOffsets(t *testing.T) {
	s := newTestStream(8)
	for i := 0; i < 9; i++ {
		s.Publish("delivery_updated", fmt.Sprintf("DEL-%06d", i+1), nil)
	}

	// Rotation keeps the newest 75% of the bound; offsets stay monotonic
	events, nextOffset, _ := s.Get(0, 100)
	require.Len(t, events, 6)
	assert.Equal(t, int64(3), events[0].Offset)
	assert.Equal(t, int64(8), events[len(events)-1].Offset)
	assert.Equal(t, int64(9), nextOffset)
	assert.Equal(t, int64(9), s.CurrentOffset())
}

func TestStream_WaitImmediateWhenEventsExist(t *testing.T) {
	s := newTestStream(100)
	s.Publish("alert_created", "ALT-000001", nil)

	select {
	case <-s.Wait(0, time.Second):
	case <-time.After(100 * time.Millisecond):
		t.Fatal("wait should resolve immediately when events exist")
	}
}

func TestStream_WaitWakesOnPublish(t *testing.T) {
	s := newTestStream(100)

	done := s.Wait(0, 5*time.Second)
	go func() {
		time.Sleep(20 * time.Millisecond)
		s.Publish("alert_created", "ALT-000001", nil)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("wait should wake when an event is published")
	}

	events, _, _ := s.Get(0, 10)
	assert.Len(t, events, 1)
}

func TestStream_WaitTimesOut(t *testing.T) {
	s := newTestStream(100)

	start := time.Now()
	<-s.Wait(0, 50*time.Millisecond)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
	assert.Equal(t, int64(0), s.CurrentOffset())
}
