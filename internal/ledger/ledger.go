package ledger

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"
)

// Typed failures returned by ledger operations. Callers match with errors.Is.
var (
	ErrItemNotFound       = errors.New("item not found")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrInvariantViolation = errors.New("stock invariant violation")
)

// Item is a single inventory position. CurrentStock is physical quantity on
// hand, ReservedStock is held for pending deliveries. The invariant
// 0 <= ReservedStock <= CurrentStock holds after every ledger operation.
type Item struct {
	ID                     string    `json:"item_id"`
	Category               string    `json:"category"`
	Name                   string    `json:"item_name"`
	CurrentStock           int       `json:"current_stock"`
	ReservedStock          int       `json:"reserved_stock"`
	MinStockLevel          int       `json:"min_stock_level"`
	MaxStockLevel          int       `json:"max_stock_level"`
	UnitOfMeasure          string    `json:"unit_of_measure"`
	TemperatureRequirement string    `json:"temperature_requirement"`
	ExpiryDate             time.Time `json:"expiry_date"`
	BatchNumber            string    `json:"batch_number"`
	Supplier               string    `json:"supplier"`
	UnitCost               float64   `json:"unit_cost"`
	Location               string    `json:"location"`
	Priority               string    `json:"priority"`
	LastRestocked          time.Time `json:"last_restocked"`
	QualityStatus          string    `json:"quality_status"`
}

// Available returns the quantity that can still be reserved. Derived, never stored.
func (i Item) Available() int {
	return i.CurrentStock - i.ReservedStock
}

// Overview is the high-level inventory summary for the dashboard.
type Overview struct {
	TotalItems    int     `json:"total_items"`
	Availability  float64 `json:"availability"`
	CriticalStock int     `json:"critical_stock"`
	TotalValue    float64 `json:"total_value"`
}

// StockAlert flags an item at or below its minimum stock level.
type StockAlert struct {
	Type         string `json:"type"`
	Severity     string `json:"severity"`
	ItemID       string `json:"item_id"`
	ItemName     string `json:"item"`
	Category     string `json:"category"`
	CurrentStock int    `json:"current_stock"`
	MinRequired  int    `json:"min_required"`
}

// ExpiryAlert flags an item whose batch expires within 30 days.
type ExpiryAlert struct {
	Type          string `json:"type"`
	Severity      string `json:"severity"`
	ItemID        string `json:"item_id"`
	ItemName      string `json:"item"`
	DaysRemaining int    `json:"days_remaining"`
	BatchNumber   string `json:"batch_number"`
	Quantity      int    `json:"quantity"`
}

// CategorySummary aggregates stock and value per category.
type CategorySummary struct {
	Category   string  `json:"category"`
	TotalStock int     `json:"total_stock"`
	TotalValue float64 `json:"total_value"`
	ItemCount  int     `json:"item_count"`
}

// StockLevel is the minimal per-item view consumed by the alert evaluator.
type StockLevel struct {
	ItemID    string
	ItemName  string
	Available int
}

// Severity labels used by the read-side stock and expiry predicates.
const (
	SeverityCritical = "Critical"
	SeverityWarning  = "Warning"
)

// Ledger owns the inventory collection. All mutations go through its
// reservation API under a single mutex; queries return copies.
type Ledger struct {
	mu    sync.RWMutex
	items map[string]*Item
	now   func() time.Time
}

// New creates a ledger seeded with the given items.
func New(items []Item) *Ledger {
	l := &Ledger{
		items: make(map[string]*Item, len(items)),
		now:   time.Now,
	}
	for i := range items {
		item := items[i]
		l.items[item.ID] = &item
	}
	slog.Info("Inventory ledger initialized", "items_count", len(l.items))
	return l
}

// Reserve places a hold on stock for a pending delivery. It fails if the item
// is unknown or the requested quantity exceeds what is still available.
func (l *Ledger) Reserve(itemID string, qty int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	item, exists := l.items[itemID]
	if !exists {
		return fmt.Errorf("%w: %s", ErrItemNotFound, itemID)
	}

	if qty > item.CurrentStock-item.ReservedStock {
		slog.Warn("Reservation rejected",
			"item_id", itemID,
			"requested", qty,
			"available", item.CurrentStock-item.ReservedStock)
		return fmt.Errorf("%w: item %s has %d available, requested %d",
			ErrInsufficientStock, itemID, item.CurrentStock-item.ReservedStock, qty)
	}

	item.ReservedStock += qty
	slog.Debug("Stock reserved",
		"item_id", itemID,
		"quantity", qty,
		"reserved_stock", item.ReservedStock)
	return nil
}

// Release returns reserved stock to the available pool, floored at zero.
// Used when a delivery is cancelled.
func (l *Ledger) Release(itemID string, qty int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	item, exists := l.items[itemID]
	if !exists {
		return fmt.Errorf("%w: %s", ErrItemNotFound, itemID)
	}

	item.ReservedStock -= qty
	if item.ReservedStock < 0 {
		item.ReservedStock = 0
	}
	slog.Debug("Reservation released",
		"item_id", itemID,
		"quantity", qty,
		"reserved_stock", item.ReservedStock)
	return nil
}

// Consume settles a completed delivery by deducting both reserved and
// physical stock. A negative result indicates a programming error in the
// caller and is rejected as an invariant violation.
func (l *Ledger) Consume(itemID string, qty int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	item, exists := l.items[itemID]
	if !exists {
		return fmt.Errorf("%w: %s", ErrItemNotFound, itemID)
	}

	if item.ReservedStock-qty < 0 || item.CurrentStock-qty < 0 {
		slog.Error("Consume would drive stock negative",
			"item_id", itemID,
			"quantity", qty,
			"current_stock", item.CurrentStock,
			"reserved_stock", item.ReservedStock)
		return fmt.Errorf("%w: item %s consume %d with current=%d reserved=%d",
			ErrInvariantViolation, itemID, qty, item.CurrentStock, item.ReservedStock)
	}

	item.ReservedStock -= qty
	item.CurrentStock -= qty
	slog.Info("Stock consumed",
		"item_id", itemID,
		"quantity", qty,
		"current_stock", item.CurrentStock,
		"reserved_stock", item.ReservedStock)
	return nil
}

// Restock increases physical stock and refreshes batch metadata.
func (l *Ledger) Restock(itemID string, qty int, batchNumber string, expiryDate *time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	item, exists := l.items[itemID]
	if !exists {
		return fmt.Errorf("%w: %s", ErrItemNotFound, itemID)
	}

	item.CurrentStock += qty
	item.LastRestocked = l.now()
	if batchNumber != "" {
		item.BatchNumber = batchNumber
	}
	if expiryDate != nil {
		item.ExpiryDate = *expiryDate
	}

	slog.Info("Item restocked",
		"item_id", itemID,
		"quantity", qty,
		"current_stock", item.CurrentStock,
		"batch_number", item.BatchNumber)
	return nil
}

// Get returns a copy of the item with the given id.
func (l *Ledger) Get(itemID string) (Item, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	item, exists := l.items[itemID]
	if !exists {
		return Item{}, fmt.Errorf("%w: %s", ErrItemNotFound, itemID)
	}
	return *item, nil
}

// List returns copies of all items sorted by id for deterministic output.
func (l *Ledger) List() []Item {
	l.mu.RLock()
	defer l.mu.RUnlock()

	items := make([]Item, 0, len(l.items))
	for _, item := range l.items {
		items = append(items, *item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items
}

// Overview returns high-level inventory statistics.
func (l *Ledger) Overview() Overview {
	l.mu.RLock()
	defer l.mu.RUnlock()

	total := len(l.items)
	available := 0
	critical := 0
	totalValue := 0.0
	for _, item := range l.items {
		if item.CurrentStock > item.MinStockLevel {
			available++
		} else {
			critical++
		}
		totalValue += float64(item.CurrentStock) * item.UnitCost
	}

	availability := 0.0
	if total > 0 {
		availability = float64(available) / float64(total) * 100
	}

	return Overview{
		TotalItems:    total,
		Availability:  availability,
		CriticalStock: critical,
		TotalValue:    totalValue,
	}
}

// LowStock lists items at or below their minimum stock level. Severity is
// Critical below half the minimum, Warning otherwise.
func (l *Ledger) LowStock() []StockAlert {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var alerts []StockAlert
	for _, item := range l.sortedItems() {
		if item.CurrentStock > item.MinStockLevel {
			continue
		}
		severity := SeverityWarning
		if float64(item.CurrentStock) < 0.5*float64(item.MinStockLevel) {
			severity = SeverityCritical
		}
		alerts = append(alerts, StockAlert{
			Type:         "Low Stock",
			Severity:     severity,
			ItemID:       item.ID,
			ItemName:     item.Name,
			Category:     item.Category,
			CurrentStock: item.CurrentStock,
			MinRequired:  item.MinStockLevel,
		})
	}
	return alerts
}

// ExpiringSoon lists items whose expiry date falls within the next 30 days.
// Severity is Critical within 7 days, Warning otherwise.
func (l *Ledger) ExpiringSoon() []ExpiryAlert {
	l.mu.RLock()
	defer l.mu.RUnlock()

	now := l.now()
	var alerts []ExpiryAlert
	for _, item := range l.sortedItems() {
		days := int(item.ExpiryDate.Sub(now).Hours() / 24)
		if days > 30 {
			continue
		}
		severity := SeverityWarning
		if days <= 7 {
			severity = SeverityCritical
		}
		alerts = append(alerts, ExpiryAlert{
			Type:          "Expiring Soon",
			Severity:      severity,
			ItemID:        item.ID,
			ItemName:      item.Name,
			DaysRemaining: days,
			BatchNumber:   item.BatchNumber,
			Quantity:      item.CurrentStock,
		})
	}
	return alerts
}

// ByCategory aggregates stock counts and value per category.
func (l *Ledger) ByCategory() []CategorySummary {
	l.mu.RLock()
	defer l.mu.RUnlock()

	byCategory := make(map[string]*CategorySummary)
	for _, item := range l.items {
		summary, exists := byCategory[item.Category]
		if !exists {
			summary = &CategorySummary{Category: item.Category}
			byCategory[item.Category] = summary
		}
		summary.TotalStock += item.CurrentStock
		summary.TotalValue += float64(item.CurrentStock) * item.UnitCost
		summary.ItemCount++
	}

	summaries := make([]CategorySummary, 0, len(byCategory))
	for _, summary := range byCategory {
		summaries = append(summaries, *summary)
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Category < summaries[j].Category })
	return summaries
}

// Search matches items by name or category, case-insensitive.
func (l *Ledger) Search(term string) []Item {
	l.mu.RLock()
	defer l.mu.RUnlock()

	needle := strings.ToLower(term)
	var matches []Item
	for _, item := range l.sortedItems() {
		if strings.Contains(strings.ToLower(item.Name), needle) ||
			strings.Contains(strings.ToLower(item.Category), needle) {
			matches = append(matches, item)
		}
	}
	return matches
}

// StockLevels returns the available quantity per item for threshold evaluation.
func (l *Ledger) StockLevels() []StockLevel {
	l.mu.RLock()
	defer l.mu.RUnlock()

	levels := make([]StockLevel, 0, len(l.items))
	for _, item := range l.sortedItems() {
		levels = append(levels, StockLevel{
			ItemID:    item.ID,
			ItemName:  item.Name,
			Available: item.Available(),
		})
	}
	return levels
}

// sortedItems returns item copies ordered by id. Callers must hold the lock.
func (l *Ledger) sortedItems() []Item {
	items := make([]Item, 0, len(l.items))
	for _, item := range l.items {
		items = append(items, *item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items
}
