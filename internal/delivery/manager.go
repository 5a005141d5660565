package delivery

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"drone-ops-api/internal/ledger"
)

// Typed failures returned by delivery operations.
var (
	ErrDeliveryNotFound  = errors.New("delivery not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidQuantity   = errors.New("invalid quantity")
)

// Status is the delivery lifecycle state.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusAssigned  Status = "Assigned"
	StatusInTransit Status = "InTransit"
	StatusDelivered Status = "Delivered"
	StatusCancelled Status = "Cancelled"
)

// Forward progress ranks. Cancelled is handled separately.
var statusRank = map[Status]int{
	StatusPending:   0,
	StatusAssigned:  1,
	StatusInTransit: 2,
	StatusDelivered: 3,
}

// ParseStatus validates a status string from the HTTP boundary.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusAssigned, StatusInTransit, StatusDelivered, StatusCancelled:
		return Status(s), nil
	}
	return "", fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, s)
}

// CustodyEntry is one chain-of-custody record. Insertion order is meaningful.
type CustodyEntry struct {
	Timestamp   time.Time `json:"timestamp"`
	Status      Status    `json:"status"`
	Location    string    `json:"location,omitempty"`
	Temperature *float64  `json:"temperature,omitempty"`
}

// Order is a delivery order. Item fields are snapshots taken at creation
// time, not live references into the ledger.
type Order struct {
	ID                     string         `json:"delivery_id"`
	ItemID                 string         `json:"item_id"`
	ItemName               string         `json:"item_name"`
	Category               string         `json:"category"`
	Quantity               int            `json:"quantity"`
	UnitOfMeasure          string         `json:"unit_of_measure"`
	Destination            string         `json:"destination"`
	Priority               string         `json:"priority"`
	DroneID                string         `json:"drone_id,omitempty"`
	Status                 Status         `json:"status"`
	CreatedTime            time.Time      `json:"created_time"`
	EstimatedDeliveryTime  time.Time      `json:"estimated_delivery_time"`
	CompletedTime          *time.Time     `json:"completed_time,omitempty"`
	ActualDeliveryTime     *time.Time     `json:"actual_delivery_time,omitempty"`
	TemperatureRequirement string         `json:"temperature_requirement"`
	SpecialHandling        []string       `json:"special_handling"`
	BatchNumber            string         `json:"batch_number"`
	ChainOfCustody         []CustodyEntry `json:"chain_of_custody"`
}

// Metrics are supply-chain performance figures computed over settled orders.
type Metrics struct {
	AvgDeliveryTimeMinutes float64 `json:"avg_delivery_time_minutes"`
	OnTimeDeliveryRate     float64 `json:"on_time_delivery_rate"`
	ActiveDeliveries       int     `json:"active_deliveries"`
	CompletedDeliveries7d  int     `json:"completed_deliveries_7d"`
}

// StockLedger is the slice of the inventory ledger the manager mutates.
// Stock is only ever touched through this reservation API.
type StockLedger interface {
	Reserve(itemID string, qty int) error
	Release(itemID string, qty int) error
	Consume(itemID string, qty int) error
	Get(itemID string) (ledger.Item, error)
}

// EventPublisher receives delivery lifecycle events for the operations stream.
type EventPublisher interface {
	Publish(eventType, entityID string, data map[string]any)
}

// Manager owns the delivery order collections. All mutations are serialized
// behind a single mutex; reads return copies.
type Manager struct {
	mu        sync.Mutex
	stock     StockLedger
	estimator Estimator
	active    []*Order
	history   []*Order
	seq       int
	now       func() time.Time
	publisher EventPublisher
}

// NewManager creates a delivery lifecycle manager backed by the given ledger.
func NewManager(stock StockLedger, estimator Estimator) *Manager {
	return &Manager{
		stock:     stock,
		estimator: estimator,
		now:       time.Now,
	}
}

// SetEventPublisher wires the operations event stream. Optional.
func (m *Manager) SetEventPublisher(p EventPublisher) {
	m.publisher = p
}

// Create reserves stock and opens a new delivery order. The ledger is left
// untouched when any validation or the reservation itself fails.
func (m *Manager) Create(itemID string, quantity int, destination, priority, droneID string) (Order, error) {
	if quantity <= 0 {
		return Order{}, fmt.Errorf("%w: %d", ErrInvalidQuantity, quantity)
	}
	if priority == "" {
		priority = "Medium"
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	item, err := m.stock.Get(itemID)
	if err != nil {
		return Order{}, err
	}

	if err := m.stock.Reserve(itemID, quantity); err != nil {
		slog.Warn("Delivery creation rejected",
			"item_id", itemID,
			"quantity", quantity,
			"error", err)
		return Order{}, err
	}

	m.seq++
	status := StatusPending
	if droneID != "" {
		status = StatusAssigned
	}

	now := m.now()
	order := &Order{
		ID:                     fmt.Sprintf("DEL-%06d", m.seq),
		ItemID:                 itemID,
		ItemName:               item.Name,
		Category:               item.Category,
		Quantity:               quantity,
		UnitOfMeasure:          item.UnitOfMeasure,
		Destination:            destination,
		Priority:               priority,
		DroneID:                droneID,
		Status:                 status,
		CreatedTime:            now,
		EstimatedDeliveryTime:  now.Add(m.estimator.Estimate(destination, quantity)),
		TemperatureRequirement: item.TemperatureRequirement,
		SpecialHandling:        specialHandling(item),
		BatchNumber:            item.BatchNumber,
		ChainOfCustody:         []CustodyEntry{},
	}
	m.active = append(m.active, order)

	slog.Info("Delivery order created",
		"delivery_id", order.ID,
		"item_id", itemID,
		"quantity", quantity,
		"destination", destination,
		"status", order.Status)

	if m.publisher != nil {
		m.publisher.Publish("delivery_created", order.ID, map[string]any{
			"item_id":  itemID,
			"quantity": quantity,
			"status":   string(order.Status),
		})
	}

	return *order, nil
}

// UpdateStatus advances a delivery through its state machine and appends a
// chain-of-custody entry. Delivered settles stock and moves the order to
// history exactly once; Cancelled releases the reservation instead.
func (m *Manager) UpdateStatus(deliveryID string, newStatus Status, location string, temperature *float64) (Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := -1
	for i, order := range m.active {
		if order.ID == deliveryID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return Order{}, fmt.Errorf("%w: %s", ErrDeliveryNotFound, deliveryID)
	}
	order := m.active[idx]

	if err := validateTransition(order.Status, newStatus); err != nil {
		slog.Warn("Rejected delivery status transition",
			"delivery_id", deliveryID,
			"from", order.Status,
			"to", newStatus)
		return Order{}, err
	}

	now := m.now()

	if newStatus == StatusDelivered {
		// Settle before mutating the order so a ledger failure leaves the
		// delivery active and retryable.
		if err := m.stock.Consume(order.ItemID, order.Quantity); err != nil {
			slog.Error("Delivery settlement failed",
				"delivery_id", deliveryID,
				"item_id", order.ItemID,
				"error", err)
			return Order{}, err
		}
	}
	if newStatus == StatusCancelled {
		if err := m.stock.Release(order.ItemID, order.Quantity); err != nil {
			slog.Error("Reservation release failed on cancellation",
				"delivery_id", deliveryID,
				"item_id", order.ItemID,
				"error", err)
			return Order{}, err
		}
	}

	order.Status = newStatus
	order.ChainOfCustody = append(order.ChainOfCustody, CustodyEntry{
		Timestamp:   now,
		Status:      newStatus,
		Location:    location,
		Temperature: temperature,
	})

	terminal := newStatus == StatusDelivered || newStatus == StatusCancelled
	if newStatus == StatusDelivered {
		completed := now
		order.CompletedTime = &completed
		order.ActualDeliveryTime = &completed
	}
	if terminal {
		m.active = append(m.active[:idx], m.active[idx+1:]...)
		m.history = append(m.history, order)
	}

	slog.Info("Delivery status updated",
		"delivery_id", deliveryID,
		"status", newStatus,
		"location", location,
		"terminal", terminal)

	if m.publisher != nil {
		eventType := "delivery_updated"
		if newStatus == StatusDelivered {
			eventType = "delivery_settled"
		}
		m.publisher.Publish(eventType, deliveryID, map[string]any{
			"status":   string(newStatus),
			"location": location,
		})
	}

	return *order, nil
}

// Cancel aborts a non-terminal delivery and releases its reservation.
func (m *Manager) Cancel(deliveryID, reason string) (Order, error) {
	return m.UpdateStatus(deliveryID, StatusCancelled, reason, nil)
}

// Active returns copies of all in-flight deliveries.
func (m *Manager) Active() []Order {
	m.mu.Lock()
	defer m.mu.Unlock()

	orders := make([]Order, 0, len(m.active))
	for _, order := range m.active {
		orders = append(orders, cloneOrder(order))
	}
	return orders
}

// History returns settled deliveries created within the last n days.
func (m *Manager) History(days int) []Order {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().AddDate(0, 0, -days)
	var orders []Order
	for _, order := range m.history {
		if !order.CreatedTime.Before(cutoff) {
			orders = append(orders, cloneOrder(order))
		}
	}
	return orders
}

// Metrics computes supply-chain performance over settled orders only.
// An empty history yields zeros.
func (m *Manager) Metrics() Metrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	metrics := Metrics{ActiveDeliveries: len(m.active)}

	var delivered []*Order
	for _, order := range m.history {
		if order.Status == StatusDelivered {
			delivered = append(delivered, order)
		}
	}

	if len(delivered) > 0 {
		totalMinutes := 0.0
		onTime := 0
		for _, order := range delivered {
			totalMinutes += order.ActualDeliveryTime.Sub(order.CreatedTime).Minutes()
			if !order.ActualDeliveryTime.After(order.EstimatedDeliveryTime) {
				onTime++
			}
		}
		metrics.AvgDeliveryTimeMinutes = totalMinutes / float64(len(delivered))
		metrics.OnTimeDeliveryRate = float64(onTime) / float64(len(delivered)) * 100
	}

	cutoff := m.now().AddDate(0, 0, -7)
	for _, order := range delivered {
		if !order.CompletedTime.Before(cutoff) {
			metrics.CompletedDeliveries7d++
		}
	}

	return metrics
}

// validateTransition permits forward movement through the state machine and
// cancellation from any non-terminal state.
func validateTransition(from, to Status) error {
	if to == StatusCancelled {
		if from == StatusDelivered || from == StatusCancelled {
			return fmt.Errorf("%w: cannot cancel a %s delivery", ErrInvalidTransition, from)
		}
		return nil
	}

	fromRank, fromKnown := statusRank[from]
	toRank, toKnown := statusRank[to]
	if !fromKnown || !toKnown {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	if toRank < fromRank {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

// specialHandling derives handling tags from the item snapshot.
func specialHandling(item ledger.Item) []string {
	var tags []string
	if item.TemperatureRequirement != "Room Temp" {
		tags = append(tags, "Temperature Controlled")
	}
	if strings.Contains(item.Name, "Blood") {
		tags = append(tags, "Biohazard", "Urgent Delivery")
	}
	if item.Priority == "Critical" {
		tags = append(tags, "Priority Handling")
	}
	if strings.Contains(item.Name, "Vaccine") {
		tags = append(tags, "Cold Chain Required")
	}
	return tags
}

func cloneOrder(order *Order) Order {
	clone := *order
	clone.ChainOfCustody = append([]CustodyEntry(nil), order.ChainOfCustody...)
	clone.SpecialHandling = append([]string(nil), order.SpecialHandling...)
	return clone
}
