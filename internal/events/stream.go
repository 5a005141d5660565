// Package events implements the in-memory operations event stream. Domain
// components publish lifecycle events into it and clients consume them via
// offset-based reads with optional long-polling. State is process-lifetime
// only; a restart loses the stream.
package events

import (
	"log/slog"
	"sync"
	"time"
)

// Event is a single entry on the operations stream.
type Event struct {
	Offset    int64          `json:"offset"`
	Timestamp string         `json:"timestamp"`
	EventType string         `json:"eventType"`
	EntityID  string         `json:"entityId"`
	Data      map[string]any `json:"data,omitempty"`
}

// Stream is a bounded, offset-addressed event log. Rotation drops the
// oldest quarter once the bound is exceeded; offsets keep increasing
// monotonically across rotations.
type Stream struct {
	mu         sync.RWMutex
	events     []Event
	nextOffset int64
	maxEvents  int
	logger     *slog.Logger
	now        func() time.Time

	waitersMu sync.Mutex
	waiters   map[int64][]chan struct{}
}

// NewStream creates a stream retaining at most maxEvents entries.
func NewStream(maxEvents int, logger *slog.Logger) *Stream {
	if maxEvents <= 0 {
		maxEvents = 1000
	}
	return &Stream{
		events:    make([]Event, 0),
		maxEvents: maxEvents,
		logger:    logger,
		now:       time.Now,
		waiters:   make(map[int64][]chan struct{}),
	}
}

// Publish appends an event and wakes any long-poll waiters it satisfies.
func (s *Stream) Publish(eventType, entityID string, data map[string]any) {
	s.mu.Lock()
	event := Event{
		Offset:    s.nextOffset,
		Timestamp: s.now().Format(time.RFC3339),
		EventType: eventType,
		EntityID:  entityID,
		Data:      data,
	}
	s.nextOffset++
	s.events = append(s.events, event)

	if len(s.events) > s.maxEvents {
		keep := s.maxEvents * 3 / 4
		dropped := len(s.events) - keep
		s.events = s.events[dropped:]
		s.logger.Info("Event stream rotated",
			"removed_events", dropped,
			"remaining_events", keep,
		)
	}
	s.mu.Unlock()

	s.logger.Debug("Event published",
		"offset", event.Offset,
		"event_type", eventType,
		"entity_id", entityID,
	)

	s.notifyWaiters(event.Offset)
}

// Get retrieves up to limit events starting at fromOffset. It returns the
// events, the offset to resume from, and whether more events remain.
func (s *Stream) Get(fromOffset int64, limit int) ([]Event, int64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	startIdx := -1
	for i, event := range s.events {
		if event.Offset >= fromOffset {
			startIdx = i
			break
		}
	}
	if startIdx == -1 {
		return nil, s.nextOffset, false
	}

	endIdx := startIdx + limit
	hasMore := false
	if endIdx >= len(s.events) {
		endIdx = len(s.events)
	} else {
		hasMore = true
	}

	result := make([]Event, endIdx-startIdx)
	copy(result, s.events[startIdx:endIdx])

	nextOffset := s.nextOffset
	if len(result) > 0 {
		nextOffset = result[len(result)-1].Offset + 1
	}
	return result, nextOffset, hasMore
}

// Wait returns a channel that closes when an event at or after fromOffset
// becomes available, or when the timeout elapses. If such an event already
// exists the channel is closed immediately.
func (s *Stream) Wait(fromOffset int64, timeout time.Duration) <-chan struct{} {
	s.waitersMu.Lock()
	defer s.waitersMu.Unlock()

	s.mu.RLock()
	hasEvents := len(s.events) > 0 && s.events[len(s.events)-1].Offset >= fromOffset
	s.mu.RUnlock()

	notify := make(chan struct{})
	if hasEvents {
		close(notify)
		return notify
	}

	s.waiters[fromOffset] = append(s.waiters[fromOffset], notify)

	go func() {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		select {
		case <-notify:
		case <-timer.C:
			s.waitersMu.Lock()
			s.closeWaiterLocked(fromOffset, notify)
			s.waitersMu.Unlock()
		}
	}()

	return notify
}

// CurrentOffset returns the next offset to be assigned.
func (s *Stream) CurrentOffset() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nextOffset
}

func (s *Stream) notifyWaiters(offset int64) {
	s.waitersMu.Lock()
	defer s.waitersMu.Unlock()

	for waitOffset, waiters := range s.waiters {
		if waitOffset > offset {
			continue
		}
		for _, waiter := range waiters {
			close(waiter)
		}
		delete(s.waiters, waitOffset)
	}
}

func (s *Stream) closeWaiterLocked(fromOffset int64, notify chan struct{}) {
	waiters := s.waiters[fromOffset]
	for i, waiter := range waiters {
		if waiter != notify {
			continue
		}
		close(waiter)
		s.waiters[fromOffset] = append(waiters[:i], waiters[i+1:]...)
		if len(s.waiters[fromOffset]) == 0 {
			delete(s.waiters, fromOffset)
		}
		return
	}
}
