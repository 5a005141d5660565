package alerts

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"
)

// ErrAlertNotFound is returned when an alert id is not in the active set,
// including alerts that were already resolved.
var ErrAlertNotFound = errors.New("alert not found")

// Alert severities.
const (
	SeverityCritical = "critical"
	SeverityWarning  = "warning"
	SeverityInfo     = "info"
	SeveritySuccess  = "success"
)

// Alert type tags.
const (
	TypeDroneBattery  = "drone_battery"
	TypeMedicalSupply = "medical_supply"
	TypeSystemError   = "system_error"
	TypeWeather       = "weather"
	TypeMaintenance   = "maintenance"
	TypeSystemHealth  = "system_health"
	TypeEmergency     = "emergency"
)

// Severity base scores and per-type weight. An unknown severity scores zero;
// an unknown type takes the neutral 1.0 multiplier.
var severityScores = map[string]int{
	SeverityCritical: 100,
	SeverityWarning:  50,
	SeverityInfo:     20,
	SeveritySuccess:  10,
}

var typeMultipliers = map[string]float64{
	TypeDroneBattery:  1.5,
	TypeMedicalSupply: 1.3,
	TypeSystemError:   1.4,
	TypeWeather:       1.1,
	TypeMaintenance:   1.0,
}

// Alert is a single operational alert. PriorityScore is computed once at
// creation and frozen afterwards.
type Alert struct {
	ID              string         `json:"id"`
	Type            string         `json:"type"`
	Severity        string         `json:"severity"`
	Title           string         `json:"title"`
	Message         string         `json:"message"`
	Source          string         `json:"source"`
	Timestamp       time.Time      `json:"timestamp"`
	Location        string         `json:"location"`
	Acknowledged    bool           `json:"acknowledged"`
	AcknowledgedBy  string         `json:"acknowledged_by,omitempty"`
	AcknowledgedAt  *time.Time     `json:"acknowledged_at,omitempty"`
	Resolved        bool           `json:"resolved"`
	ResolvedBy      string         `json:"resolved_by,omitempty"`
	ResolvedAt      *time.Time     `json:"resolved_at,omitempty"`
	ResolutionNotes string         `json:"resolution_notes,omitempty"`
	Metadata        map[string]any `json:"metadata"`
	PriorityScore   int            `json:"priority_score"`
}

// Statistics is the aggregate view over active and resolved alerts.
type Statistics struct {
	TotalActive           int            `json:"total_active"`
	TotalResolvedToday    int            `json:"total_resolved_today"`
	SeverityBreakdown     map[string]int `json:"severity_breakdown"`
	TypeBreakdown         map[string]int `json:"type_breakdown"`
	RecentAlerts1h        int            `json:"recent_alerts_1h"`
	AverageResolutionTime float64        `json:"average_resolution_time"`
}

// CriticalSummary condenses the active set for the dashboard header.
type CriticalSummary struct {
	CriticalCount  int    `json:"critical_count"`
	WarningCount   int    `json:"warning_count"`
	LatestCritical *Alert `json:"latest_critical"`
	SystemStatus   string `json:"system_status"`
}

// EventPublisher receives alert lifecycle events for the operations stream.
type EventPublisher interface {
	Publish(eventType, entityID string, data map[string]any)
}

// Engine owns the alert collections and the activity log. All mutations are
// serialized behind a single mutex; reads return copies.
type Engine struct {
	mu         sync.Mutex
	active     []*Alert
	history    []*Alert
	activities *ActivityLog
	seq        int
	now        func() time.Time
	publisher  EventPublisher
}

// NewEngine creates an alert engine with the given activity log capacity.
func NewEngine(activityCapacity int) *Engine {
	return &Engine{
		activities: NewActivityLog(activityCapacity),
		now:        time.Now,
	}
}

// SetEventPublisher wires the operations event stream. Optional.
func (e *Engine) SetEventPublisher(p EventPublisher) {
	e.publisher = p
}

// Activities exposes the engine-owned activity log.
func (e *Engine) Activities() *ActivityLog {
	return e.activities
}

// Create raises a new alert. Repeated identical triggers create distinct
// alerts; there is no deduplication.
func (e *Engine) Create(alertType, severity, title, message, source string, metadata map[string]any) Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	if metadata == nil {
		metadata = map[string]any{}
	}
	location := "System"
	if loc, ok := metadata["location"].(string); ok && loc != "" {
		location = loc
	}

	e.seq++
	alert := &Alert{
		ID:            fmt.Sprintf("ALT-%06d", e.seq),
		Type:          alertType,
		Severity:      severity,
		Title:         title,
		Message:       message,
		Source:        source,
		Timestamp:     e.now(),
		Location:      location,
		Metadata:      metadata,
		PriorityScore: priorityScore(severity, alertType),
	}
	e.active = append(e.active, alert)

	slog.Info("Alert created",
		"alert_id", alert.ID,
		"type", alertType,
		"severity", severity,
		"priority_score", alert.PriorityScore)

	e.activities.Append(fmt.Sprintf("Alert created: %s", title), "alert", "System")

	if e.publisher != nil {
		e.publisher.Publish("alert_created", alert.ID, map[string]any{
			"type":     alertType,
			"severity": severity,
			"title":    title,
		})
	}

	return *alert
}

// CreateEmergency raises the fixed-template emergency protocol alert.
func (e *Engine) CreateEmergency() Alert {
	return e.Create(
		TypeEmergency,
		SeverityCritical,
		"Emergency Protocol Activated",
		"Emergency protocol has been manually activated. All active drones are being recalled to base station immediately.",
		"Manual Override",
		map[string]any{"emergency_type": "manual_activation", "all_drones_affected": true},
	)
}

// ListActive returns unresolved alerts ordered by priority score descending,
// then timestamp descending, then id descending as a final tie-break so the
// order is a strict total order.
func (e *Engine) ListActive(limit int) []Alert {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.listActiveLocked(limit)
}

func (e *Engine) listActiveLocked(limit int) []Alert {
	alerts := make([]Alert, 0, len(e.active))
	for _, alert := range e.active {
		if !alert.Resolved {
			alerts = append(alerts, *alert)
		}
	}

	sort.Slice(alerts, func(i, j int) bool {
		if alerts[i].PriorityScore != alerts[j].PriorityScore {
			return alerts[i].PriorityScore > alerts[j].PriorityScore
		}
		if !alerts[i].Timestamp.Equal(alerts[j].Timestamp) {
			return alerts[i].Timestamp.After(alerts[j].Timestamp)
		}
		return alerts[i].ID > alerts[j].ID
	})

	if limit > 0 && len(alerts) > limit {
		alerts = alerts[:limit]
	}
	return alerts
}

// Acknowledge marks an active alert as seen. Informational only; the alert
// stays active. Resolved alerts are no longer in the active set, so
// acknowledging them fails with ErrAlertNotFound.
func (e *Engine) Acknowledge(alertID, user string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, alert := range e.active {
		if alert.ID == alertID {
			now := e.now()
			alert.Acknowledged = true
			alert.AcknowledgedBy = user
			alert.AcknowledgedAt = &now

			e.activities.Append(fmt.Sprintf("Alert %s acknowledged by %s", alertID, user), "alert_action", user)
			slog.Info("Alert acknowledged", "alert_id", alertID, "user", user)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrAlertNotFound, alertID)
}

// Resolve stamps an alert resolved and moves it to history. Resolution is
// terminal: a second resolve of the same id fails with ErrAlertNotFound.
func (e *Engine) Resolve(alertID, user, notes string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i, alert := range e.active {
		if alert.ID == alertID {
			now := e.now()
			alert.Resolved = true
			alert.ResolvedBy = user
			alert.ResolvedAt = &now
			alert.ResolutionNotes = notes

			e.active = append(e.active[:i], e.active[i+1:]...)
			e.history = append(e.history, alert)

			e.activities.Append(fmt.Sprintf("Alert %s resolved by %s", alertID, user), "alert_action", user)
			slog.Info("Alert resolved", "alert_id", alertID, "user", user)

			if e.publisher != nil {
				e.publisher.Publish("alert_resolved", alertID, map[string]any{"resolved_by": user})
			}
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrAlertNotFound, alertID)
}

// Statistics aggregates the active set and today's resolutions.
func (e *Engine) Statistics() Statistics {
	e.mu.Lock()
	defer e.mu.Unlock()

	active := e.listActiveLocked(0)
	now := e.now()

	severityCounts := map[string]int{
		SeverityCritical: 0,
		SeverityWarning:  0,
		SeverityInfo:     0,
		SeveritySuccess:  0,
	}
	typeCounts := map[string]int{}
	recent := 0
	for _, alert := range active {
		severityCounts[alert.Severity]++
		typeCounts[alert.Type]++
		if now.Sub(alert.Timestamp) < time.Hour {
			recent++
		}
	}

	resolvedToday := 0
	totalMinutes := 0.0
	for _, alert := range e.history {
		if alert.ResolvedAt == nil || !sameDay(*alert.ResolvedAt, now) {
			continue
		}
		resolvedToday++
		totalMinutes += alert.ResolvedAt.Sub(alert.Timestamp).Minutes()
	}

	avgResolution := 0.0
	if resolvedToday > 0 {
		avgResolution = math.Round(totalMinutes/float64(resolvedToday)*10) / 10
	}

	return Statistics{
		TotalActive:           len(active),
		TotalResolvedToday:    resolvedToday,
		SeverityBreakdown:     severityCounts,
		TypeBreakdown:         typeCounts,
		RecentAlerts1h:        recent,
		AverageResolutionTime: avgResolution,
	}
}

// CriticalSummary condenses active alerts into dashboard status.
func (e *Engine) CriticalSummary() CriticalSummary {
	e.mu.Lock()
	defer e.mu.Unlock()

	active := e.listActiveLocked(0)
	summary := CriticalSummary{SystemStatus: "operational"}
	for i := range active {
		switch active[i].Severity {
		case SeverityCritical:
			summary.CriticalCount++
			if summary.LatestCritical == nil {
				critical := active[i]
				summary.LatestCritical = &critical
			}
		case SeverityWarning:
			summary.WarningCount++
		}
	}

	if summary.CriticalCount > 0 {
		summary.SystemStatus = "critical"
	} else if summary.WarningCount > 0 {
		summary.SystemStatus = "warning"
	}
	return summary
}

// priorityScore derives the frozen display ranking for an alert.
func priorityScore(severity, alertType string) int {
	base := severityScores[severity]
	multiplier, known := typeMultipliers[alertType]
	if !known {
		multiplier = 1.0
	}
	return int(float64(base) * multiplier)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
