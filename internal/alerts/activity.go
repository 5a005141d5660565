package alerts

import (
	"sort"
	"sync"
	"time"
)

// ActivityEntry is one line in the operations audit trail.
type ActivityEntry struct {
	Timestamp   time.Time `json:"timestamp"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	User        string    `json:"user"`
}

// Messages used to warm-start an empty activity log, oldest last.
var bootstrapActivities = []string{
	"System initialization completed successfully",
	"Weather data synchronization active",
	"Drone fleet status monitoring enabled",
	"Medical inventory tracking online",
	"Emergency protocols loaded and verified",
	"Communication systems operational",
	"GPS tracking calibration complete",
	"Temperature monitoring systems active",
}

// ActivityLog is an append-only ring of the most recent entries. Eviction is
// FIFO: entries are never re-touched after insertion.
type ActivityLog struct {
	mu       sync.Mutex
	entries  []ActivityEntry
	capacity int
	now      func() time.Time
}

// NewActivityLog creates a log retaining at most capacity entries.
func NewActivityLog(capacity int) *ActivityLog {
	if capacity <= 0 {
		capacity = 100
	}
	return &ActivityLog{
		capacity: capacity,
		now:      time.Now,
	}
}

// Append records an activity, evicting the oldest entries past capacity.
func (a *ActivityLog) Append(description, activityType, user string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.entries = append(a.entries, ActivityEntry{
		Timestamp:   a.now(),
		Type:        activityType,
		Description: description,
		User:        user,
	})
	if len(a.entries) > a.capacity {
		a.entries = a.entries[len(a.entries)-a.capacity:]
	}
}

// Recent returns up to limit entries, newest first. An empty log is seeded
// with the bootstrap system-startup messages spaced five minutes apart.
func (a *ActivityLog) Recent(limit int) []ActivityEntry {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.entries) == 0 {
		now := a.now()
		for i, description := range bootstrapActivities {
			a.entries = append(a.entries, ActivityEntry{
				Timestamp:   now.Add(-time.Duration(i) * 5 * time.Minute),
				Type:        "system",
				Description: description,
				User:        "System",
			})
		}
	}

	sorted := make([]ActivityEntry, len(a.entries))
	copy(sorted, a.entries)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.After(sorted[j].Timestamp)
	})

	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}

// Len returns the number of retained entries.
func (a *ActivityLog) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.entries)
}
