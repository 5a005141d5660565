package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"drone-ops-api/internal/events"
)

const (
	defaultEventLimit = 100
	maxEventLimit     = 1000
	maxWaitSeconds    = 30
)

// EventsResponse is the payload for the operations event feed.
type EventsResponse struct {
	Events     []events.Event `json:"events"`
	NextOffset int64          `json:"next_offset"`
	HasMore    bool           `json:"has_more"`
}

// EventsHandler serves the operations event stream
type EventsHandler struct {
	stream *events.Stream
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(stream *events.Stream) *EventsHandler {
	return &EventsHandler{stream: stream}
}

// GetEvents handles GET /api/events?offset=N&limit=N&wait=S - returns
// events at or after the given offset, optionally long-polling up to
// `wait` seconds when the stream has nothing new.
func (h *EventsHandler) GetEvents(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var offset int64
	if raw := query.Get("offset"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 0 {
			writeErrorResponse(w, http.StatusBadRequest, "bad_request", "Invalid offset parameter", nil)
			return
		}
		offset = parsed
	}

	limit := defaultEventLimit
	if raw := query.Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeErrorResponse(w, http.StatusBadRequest, "bad_request", "Invalid limit parameter", nil)
			return
		}
		limit = min(parsed, maxEventLimit)
	}

	waitSeconds := 0
	if raw := query.Get("wait"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeErrorResponse(w, http.StatusBadRequest, "bad_request", "Invalid wait parameter", nil)
			return
		}
		waitSeconds = min(parsed, maxWaitSeconds)
	}

	evts, nextOffset, hasMore := h.stream.Get(offset, limit)

	// Long poll: block until something lands past the offset, the timeout
	// fires, or the client goes away.
	if len(evts) == 0 && waitSeconds > 0 {
		slog.Debug("Long-polling event stream", "offset", offset, "wait_seconds", waitSeconds)
		select {
		case <-h.stream.Wait(offset, time.Duration(waitSeconds)*time.Second):
		case <-r.Context().Done():
			return
		}
		evts, nextOffset, hasMore = h.stream.Get(offset, limit)
	}

	if evts == nil {
		evts = []events.Event{}
	}
	writeJSONResponse(w, http.StatusOK, EventsResponse{
		Events:     evts,
		NextOffset: nextOffset,
		HasMore:    hasMore,
	})
}
