// Package fleet tracks the drone fleet: per-drone state, deployment and
// recall, and the periodic simulation tick that stands in for real
// telemetry ingestion.
package fleet

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"
)

var (
	// ErrDroneNotFound is returned when a drone id does not exist.
	ErrDroneNotFound = errors.New("drone not found")
	// ErrDroneNotDeployable is returned when a deploy targets a drone
	// that is not on standby.
	ErrDroneNotDeployable = errors.New("drone not deployable")
	// ErrDroneNotRecallable is returned when a recall targets a drone
	// that is not on an active mission.
	ErrDroneNotRecallable = errors.New("drone not recallable")
)

// Drone statuses.
const (
	StatusActive      = "Active"
	StatusCharging    = "Charging"
	StatusMaintenance = "Maintenance"
	StatusStandby     = "Standby"
	StatusReturning   = "Returning"
)

// ValidStatus reports whether s is a known drone status.
func ValidStatus(s string) bool {
	switch s {
	case StatusActive, StatusCharging, StatusMaintenance, StatusStandby, StatusReturning:
		return true
	}
	return false
}

// Base station coordinates the fleet operates from.
const (
	baseLatitude  = 28.6139
	baseLongitude = 77.2090
)

var operatingZones = []string{"Zone Alpha", "Zone Beta", "Zone Gamma", "Base Station"}

var missionTypes = []string{"Medical Delivery", "Search & Rescue", "Supply Drop", "Reconnaissance", "Standby"}

// Location is a drone's position.
type Location struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
	Altitude  float64 `json:"altitude"`
	Zone      string  `json:"zone"`
}

// Mission is the drone's current assignment.
type Mission struct {
	Type              string    `json:"type"`
	Destination       string    `json:"destination"`
	StartTime         time.Time `json:"start_time"`
	EstimatedDuration int       `json:"estimated_duration"`
	Priority          string    `json:"priority"`
}

// Technical holds the airframe specifications and counters.
type Technical struct {
	Model             string  `json:"model"`
	MaxRangeKm        int     `json:"max_range"`
	MaxPayloadKg      int     `json:"max_payload"`
	MaxSpeedKmh       int     `json:"max_speed"`
	CurrentSpeedKmh   float64 `json:"current_speed"`
	FlightTimeTotal   float64 `json:"flight_time_total"`
	TotalFlightCycles int     `json:"cycles_total"`
}

// Drone is the full record for one airframe.
type Drone struct {
	ID         string    `json:"id"`
	Status     string    `json:"status"`
	Battery    float64   `json:"battery"`
	Location   Location  `json:"location"`
	Mission    Mission   `json:"mission"`
	Technical  Technical `json:"technical"`
	LastUpdate time.Time `json:"last_update"`
}

// Overview is the fleet headline block for the dashboard.
type Overview struct {
	Total        int `json:"total"`
	Active       int `json:"active"`
	Charging     int `json:"charging"`
	Maintenance  int `json:"maintenance"`
	Standby      int `json:"standby"`
	Returning    int `json:"returning"`
	ActiveChange int `json:"active_change"`
}

// StatusRow is the condensed per-drone line for fleet status tables.
type StatusRow struct {
	ID         string    `json:"id"`
	Status     string    `json:"status"`
	Battery    float64   `json:"battery"`
	Mission    string    `json:"mission"`
	Zone       string    `json:"location"`
	Latitude   float64   `json:"lat"`
	Longitude  float64   `json:"lon"`
	Altitude   float64   `json:"altitude"`
	SpeedKmh   float64   `json:"speed"`
	LastUpdate time.Time `json:"last_update"`
}

// EventPublisher receives drone lifecycle events for the operations stream.
type EventPublisher interface {
	Publish(eventType, entityID string, data map[string]any)
}

// Manager owns the fleet map. All mutation goes through the mutex; reads
// hand out copies.
type Manager struct {
	mu              sync.Mutex
	drones          map[string]*Drone
	rng             *rand.Rand
	now             func() time.Time
	publisher       EventPublisher
	lastActiveCount int
}

// NewManager initializes a fleet of count drones with randomized state
// drawn from rng. A fixed-seed rng makes the fleet reproducible.
func NewManager(count int, rng *rand.Rand) *Manager {
	m := &Manager{
		drones: make(map[string]*Drone, count),
		rng:    rng,
		now:    time.Now,
	}
	m.seed(count)
	m.lastActiveCount = m.countStatusLocked(StatusActive)
	return m
}

// SetEventPublisher wires the operations event stream. Optional.
func (m *Manager) SetEventPublisher(p EventPublisher) {
	m.publisher = p
}

func (m *Manager) seed(count int) {
	now := m.now()
	statuses := []string{StatusActive, StatusCharging, StatusMaintenance, StatusStandby}
	priorities := []string{"Critical", "High", "Medium", "Low"}

	for i := 1; i <= count; i++ {
		id := fmt.Sprintf("LLA-%03d", i)
		status := statuses[m.rng.Intn(len(statuses))]

		speed := 0.0
		if status == StatusActive {
			speed = m.rng.Float64() * 80
		}

		m.drones[id] = &Drone{
			ID:      id,
			Status:  status,
			Battery: float64(20 + m.rng.Intn(81)),
			Location: Location{
				Latitude:  baseLatitude + (m.rng.Float64()-0.5)*0.1,
				Longitude: baseLongitude + (m.rng.Float64()-0.5)*0.1,
				Altitude:  m.rng.Float64() * 150,
				Zone:      operatingZones[m.rng.Intn(len(operatingZones))],
			},
			Mission: Mission{
				Type:              missionTypes[m.rng.Intn(len(missionTypes))],
				Destination:       fmt.Sprintf("Station %c", 'A'+m.rng.Intn(5)),
				StartTime:         now.Add(-time.Duration(m.rng.Intn(121)) * time.Minute),
				EstimatedDuration: 15 + m.rng.Intn(46),
				Priority:          priorities[m.rng.Intn(len(priorities))],
			},
			Technical: Technical{
				Model:             "VTOL-MD-2024",
				MaxRangeKm:        25,
				MaxPayloadKg:      5,
				MaxSpeedKmh:       80,
				CurrentSpeedKmh:   speed,
				FlightTimeTotal:   100 + m.rng.Float64()*700,
				TotalFlightCycles: 500 + m.rng.Intn(1501),
			},
			LastUpdate: now.Add(-time.Duration(m.rng.Intn(6)) * time.Minute),
		}
	}
}

// Overview returns fleet-level counts. ActiveChange is the delta against
// the active count recorded at the previous simulation tick.
func (m *Manager) Overview() Overview {
	m.mu.Lock()
	defer m.mu.Unlock()

	active := m.countStatusLocked(StatusActive)
	return Overview{
		Total:        len(m.drones),
		Active:       active,
		Charging:     m.countStatusLocked(StatusCharging),
		Maintenance:  m.countStatusLocked(StatusMaintenance),
		Standby:      m.countStatusLocked(StatusStandby),
		Returning:    m.countStatusLocked(StatusReturning),
		ActiveChange: active - m.lastActiveCount,
	}
}

func (m *Manager) countStatusLocked(status string) int {
	count := 0
	for _, d := range m.drones {
		if d.Status == status {
			count++
		}
	}
	return count
}

// Statuses returns one row per drone ordered by id.
func (m *Manager) Statuses() []StatusRow {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows := make([]StatusRow, 0, len(m.drones))
	for _, d := range m.drones {
		rows = append(rows, StatusRow{
			ID:         d.ID,
			Status:     d.Status,
			Battery:    d.Battery,
			Mission:    d.Mission.Type,
			Zone:       d.Location.Zone,
			Latitude:   d.Location.Latitude,
			Longitude:  d.Location.Longitude,
			Altitude:   d.Location.Altitude,
			SpeedKmh:   d.Technical.CurrentSpeedKmh,
			LastUpdate: d.LastUpdate,
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
	return rows
}

// Get returns a copy of the drone record.
func (m *Manager) Get(droneID string) (Drone, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.drones[droneID]
	if !ok {
		return Drone{}, fmt.Errorf("drone %s: %w", droneID, ErrDroneNotFound)
	}
	return *d, nil
}

// SetStatus overrides a drone's status, used by operator actions.
func (m *Manager) SetStatus(droneID, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.drones[droneID]
	if !ok {
		return fmt.Errorf("drone %s: %w", droneID, ErrDroneNotFound)
	}
	d.Status = status
	d.LastUpdate = m.now()
	m.publishLocked("drone_status_change", droneID, map[string]any{"status": status})
	return nil
}

// Deploy moves a standby drone onto a new mission.
func (m *Manager) Deploy(droneID, missionType, destination, priority string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.drones[droneID]
	if !ok {
		return fmt.Errorf("drone %s: %w", droneID, ErrDroneNotFound)
	}
	if d.Status != StatusStandby {
		return fmt.Errorf("drone %s in status %s: %w", droneID, d.Status, ErrDroneNotDeployable)
	}
	if priority == "" {
		priority = "Medium"
	}

	d.Status = StatusActive
	d.Mission = Mission{
		Type:              missionType,
		Destination:       destination,
		StartTime:         m.now(),
		EstimatedDuration: 15 + m.rng.Intn(46),
		Priority:          priority,
	}
	d.LastUpdate = m.now()
	m.publishLocked("drone_status_change", droneID, map[string]any{
		"status":      StatusActive,
		"mission":     missionType,
		"destination": destination,
	})
	return nil
}

// Recall sends an active drone back to base.
func (m *Manager) Recall(droneID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.recallLocked(droneID)
}

func (m *Manager) recallLocked(droneID string) error {
	d, ok := m.drones[droneID]
	if !ok {
		return fmt.Errorf("drone %s: %w", droneID, ErrDroneNotFound)
	}
	if d.Status != StatusActive {
		return fmt.Errorf("drone %s in status %s: %w", droneID, d.Status, ErrDroneNotRecallable)
	}

	d.Status = StatusReturning
	d.Mission.Type = "Return to Base"
	d.LastUpdate = m.now()
	m.publishLocked("drone_status_change", droneID, map[string]any{"status": StatusReturning})
	return nil
}

// RecallAll recalls every active drone and returns the recalled ids. Used
// by the emergency protocol.
func (m *Manager) RecallAll() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var recalled []string
	for _, id := range m.sortedIDsLocked() {
		if m.drones[id].Status != StatusActive {
			continue
		}
		if err := m.recallLocked(id); err == nil {
			recalled = append(recalled, id)
		}
	}
	return recalled
}

// EmergencyReady lists drones that can be deployed immediately: on
// standby with battery above 80%.
func (m *Manager) EmergencyReady() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var ready []string
	for _, id := range m.sortedIDsLocked() {
		d := m.drones[id]
		if d.Status == StatusStandby && d.Battery > 80 {
			ready = append(ready, id)
		}
	}
	return ready
}

// BatteryDistribution buckets the fleet by battery band.
func (m *Manager) BatteryDistribution() map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()

	buckets := map[string]int{
		"80-100%": 0,
		"60-80%":  0,
		"40-60%":  0,
		"20-40%":  0,
		"0-20%":   0,
	}
	for _, d := range m.drones {
		switch {
		case d.Battery >= 80:
			buckets["80-100%"]++
		case d.Battery >= 60:
			buckets["60-80%"]++
		case d.Battery >= 40:
			buckets["40-60%"]++
		case d.Battery >= 20:
			buckets["20-40%"]++
		default:
			buckets["0-20%"]++
		}
	}
	return buckets
}

// AverageBattery returns the fleet-wide mean battery level.
func (m *Manager) AverageBattery() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.drones) == 0 {
		return 0
	}
	total := 0.0
	for _, d := range m.drones {
		total += d.Battery
	}
	return total / float64(len(m.drones))
}

// TotalFlightHours sums lifetime flight hours across the fleet.
func (m *Manager) TotalFlightHours() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	total := 0.0
	for _, d := range m.drones {
		total += d.Technical.FlightTimeTotal
	}
	return total
}

// Simulate advances the fleet one tick: active drones drain battery and
// drift, low-battery drones auto-return, charging drones fill up and go
// back to standby when ready.
func (m *Manager) Simulate() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for _, d := range m.drones {
		switch d.Status {
		case StatusActive:
			d.Battery = max(0, d.Battery-(0.5+m.rng.Float64()*1.5))
			if d.Battery < 15 {
				d.Status = StatusReturning
				d.Mission.Type = "Return to Base"
				m.publishLocked("drone_status_change", d.ID, map[string]any{
					"status": StatusReturning,
					"reason": "low_battery",
				})
			}
		case StatusCharging:
			d.Battery = min(100, d.Battery+(1.0+m.rng.Float64()*2.0))
			if d.Battery >= 95 {
				d.Status = StatusStandby
			}
		}

		if d.Status == StatusActive || d.Status == StatusReturning {
			d.Location.Latitude += (m.rng.Float64() - 0.5) * 0.002
			d.Location.Longitude += (m.rng.Float64() - 0.5) * 0.002
			d.Technical.CurrentSpeedKmh = 30 + m.rng.Float64()*50
		} else {
			d.Technical.CurrentSpeedKmh = 0
		}
		d.LastUpdate = now
	}

	m.lastActiveCount = m.countStatusLocked(StatusActive)
}

func (m *Manager) sortedIDsLocked() []string {
	ids := make([]string, 0, len(m.drones))
	for id := range m.drones {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (m *Manager) publishLocked(eventType, droneID string, data map[string]any) {
	if m.publisher == nil {
		return
	}
	m.publisher.Publish(eventType, droneID, data)
}
