package alerts

import (
	"fmt"
	"strconv"
	"strings"
)

// Thresholds are the configured numeric boundaries for condition evaluation.
type Thresholds struct {
	BatteryCritical      int
	BatteryLow           int
	StockCritical        int
	StockLow             int
	TemperatureDeviation float64
}

// DefaultThresholds returns the stock configuration.
func DefaultThresholds() Thresholds {
	return Thresholds{
		BatteryCritical:      15,
		BatteryLow:           25,
		StockCritical:        5,
		StockLow:             15,
		TemperatureDeviation: 2.0,
	}
}

// DroneReading is one drone's state as seen by the evaluator.
type DroneReading struct {
	ID      string
	Status  string
	Battery float64
	Zone    string
}

// StockReading is one inventory item's availability as seen by the evaluator.
type StockReading struct {
	ItemID    string
	ItemName  string
	Available int
}

// TemperatureReading is a cold-chain measurement taken from an active
// delivery's latest custody entry.
type TemperatureReading struct {
	DeliveryID   string
	ItemName     string
	RequiredBand string
	CurrentTemp  float64
}

// WeatherReading is the current weather as seen by the evaluator.
type WeatherReading struct {
	Condition    string
	WindSpeedKmh float64
}

// Snapshot bundles one evaluation round of external feed state.
type Snapshot struct {
	Drones       []DroneReading
	Stock        []StockReading
	Temperatures []TemperatureReading
	Weather      *WeatherReading
	Components   map[string]string
}

// alertSpec is a pending alert: evaluated but not yet created, so
// suppressed conditions never touch the engine.
type alertSpec struct {
	alertType string
	severity  string
	title     string
	message   string
	source    string
	metadata  map[string]any
}

// ConditionEvaluator turns feed snapshots into alerts using explicit
// threshold comparisons. It replaces the probabilistic trigger model of the
// original simulator and is deterministic for a given snapshot. A crossed
// condition raises once and stays suppressed on subsequent evaluations
// until it clears, so a periodic caller does not flood the engine.
type ConditionEvaluator struct {
	engine     *Engine
	thresholds Thresholds
	tripped    map[string]bool
}

// NewConditionEvaluator creates an evaluator raising alerts on the engine.
func NewConditionEvaluator(engine *Engine, thresholds Thresholds) *ConditionEvaluator {
	return &ConditionEvaluator{
		engine:     engine,
		thresholds: thresholds,
		tripped:    make(map[string]bool),
	}
}

// Evaluate checks every monitored dimension in the snapshot and raises one
// alert per newly crossed threshold.
func (c *ConditionEvaluator) Evaluate(snap Snapshot) []Alert {
	var raised []Alert
	active := make(map[string]bool)

	raise := func(key string, spec alertSpec) {
		active[key] = true
		if c.tripped[key] {
			return
		}
		c.tripped[key] = true
		raised = append(raised, c.engine.Create(
			spec.alertType, spec.severity, spec.title, spec.message, spec.source, spec.metadata))
	}

	for _, drone := range snap.Drones {
		if spec, ok := c.evaluateBattery(drone); ok {
			raise("battery:"+drone.ID, spec)
		}
	}
	for _, stock := range snap.Stock {
		if spec, ok := c.evaluateStock(stock); ok {
			raise("stock:"+stock.ItemID, spec)
		}
	}
	for _, reading := range snap.Temperatures {
		if spec, ok := c.evaluateTemperature(reading); ok {
			raise("temperature:"+reading.DeliveryID, spec)
		}
	}
	if snap.Weather != nil && snap.Weather.WindSpeedKmh >= 25 {
		raise("weather", alertSpec{
			alertType: TypeWeather,
			severity:  SeverityWarning,
			title:     "Weather Advisory",
			message: fmt.Sprintf("Adverse weather detected: %s (winds %.0f km/h). Flight operations may be impacted.",
				snap.Weather.Condition, snap.Weather.WindSpeedKmh),
			source:   "Weather Service",
			metadata: map[string]any{"condition": snap.Weather.Condition, "advisory_level": "caution"},
		})
	}
	for component, status := range snap.Components {
		if status == "OK" {
			continue
		}
		raise("component:"+component, alertSpec{
			alertType: TypeSystemHealth,
			severity:  SeverityInfo,
			title:     fmt.Sprintf("%s Status Update", component),
			message:   fmt.Sprintf("%s reporting status %s", component, status),
			source:    "System Monitor",
			metadata:  map[string]any{"system_component": component},
		})
	}

	// Conditions that stopped crossing their threshold re-arm
	for key := range c.tripped {
		if !active[key] {
			delete(c.tripped, key)
		}
	}

	return raised
}

func (c *ConditionEvaluator) evaluateBattery(drone DroneReading) (alertSpec, bool) {
	battery := int(drone.Battery)
	if battery >= c.thresholds.BatteryLow {
		return alertSpec{}, false
	}

	severity := SeverityWarning
	title := "Low Battery Alert"
	action := "Consider returning to base"
	if battery < c.thresholds.BatteryCritical {
		severity = SeverityCritical
		title = "Critical Battery Alert"
		action = "Immediate landing required"
	}

	return alertSpec{
		alertType: TypeDroneBattery,
		severity:  severity,
		title:     title,
		message:   fmt.Sprintf("Drone %s battery level at %d%%. %s.", drone.ID, battery, action),
		source:    drone.ID,
		metadata:  map[string]any{"drone_id": drone.ID, "battery_level": battery, "location": drone.Zone},
	}, true
}

func (c *ConditionEvaluator) evaluateStock(stock StockReading) (alertSpec, bool) {
	if stock.Available > c.thresholds.StockLow {
		return alertSpec{}, false
	}

	severity := SeverityWarning
	if stock.Available <= c.thresholds.StockCritical {
		severity = SeverityCritical
	}

	return alertSpec{
		alertType: TypeMedicalSupply,
		severity:  severity,
		title:     fmt.Sprintf("Low Stock Alert - %s", stock.ItemName),
		message:   fmt.Sprintf("%s stock is running low. Current level: %d units remaining.", stock.ItemName, stock.Available),
		source:    "Inventory System",
		metadata:  map[string]any{"item_id": stock.ItemID, "item_name": stock.ItemName, "stock_level": stock.Available},
	}, true
}

func (c *ConditionEvaluator) evaluateTemperature(reading TemperatureReading) (alertSpec, bool) {
	low, high, ok := parseTemperatureBand(reading.RequiredBand)
	if !ok {
		return alertSpec{}, false
	}

	deviation := 0.0
	if reading.CurrentTemp < low {
		deviation = low - reading.CurrentTemp
	} else if reading.CurrentTemp > high {
		deviation = reading.CurrentTemp - high
	}
	if deviation <= c.thresholds.TemperatureDeviation {
		return alertSpec{}, false
	}

	return alertSpec{
		alertType: TypeMedicalSupply,
		severity:  SeverityWarning,
		title:     fmt.Sprintf("Temperature Deviation - %s", reading.ItemName),
		message: fmt.Sprintf("Delivery %s reading %.1f°C against required %s (deviation %.1f°C).",
			reading.DeliveryID, reading.CurrentTemp, reading.RequiredBand, deviation),
		source:   "Temperature Monitor",
		metadata: map[string]any{"delivery_id": reading.DeliveryID, "current_temp": reading.CurrentTemp},
	}, true
}

// parseTemperatureBand reads bands like "2-8°C" or "-20°C". Room temperature
// items are not monitored and report ok=false.
func parseTemperatureBand(band string) (low, high float64, ok bool) {
	cleaned := strings.TrimSuffix(strings.TrimSpace(band), "°C")
	if cleaned == "" || strings.EqualFold(cleaned, "Room Temp") || strings.EqualFold(band, "Room Temp") {
		return 0, 0, false
	}

	// A range such as "2-8": split on the dash separating two non-negative bounds
	if idx := strings.Index(cleaned[1:], "-"); idx >= 0 {
		lowStr := cleaned[:idx+1]
		highStr := cleaned[idx+2:]
		lowVal, err1 := strconv.ParseFloat(lowStr, 64)
		highVal, err2 := strconv.ParseFloat(highStr, 64)
		if err1 == nil && err2 == nil {
			return lowVal, highVal, true
		}
		return 0, 0, false
	}

	point, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, 0, false
	}
	return point, point, true
}
