// Package sim runs the background simulation loop that stands in for real
// telemetry. Each tick perturbs the fleet, assembles a condition snapshot
// from the live stores and runs the alert evaluator over it.
package sim

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"drone-ops-api/internal/alerts"
	"drone-ops-api/internal/delivery"
	"drone-ops-api/internal/fleet"
	"drone-ops-api/internal/ledger"
)

// WeatherFeed supplies the current weather reading for a tick.
type WeatherFeed interface {
	Current() alerts.WeatherReading
}

// SimulatedWeather is a rng-driven weather feed. Most readings are calm;
// wind picks up occasionally to exercise the advisory path.
type SimulatedWeather struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSimulatedWeather creates a feed drawing from rng.
func NewSimulatedWeather(rng *rand.Rand) *SimulatedWeather {
	return &SimulatedWeather{rng: rng}
}

var weatherConditions = []string{"Clear", "Partly Cloudy", "Overcast", "Light Rain", "Stormy"}

// Current returns a fresh weather reading.
func (w *SimulatedWeather) Current() alerts.WeatherReading {
	w.mu.Lock()
	defer w.mu.Unlock()

	condition := weatherConditions[w.rng.Intn(len(weatherConditions))]
	wind := w.rng.Float64() * 20
	if condition == "Stormy" || condition == "Light Rain" {
		wind = 15 + w.rng.Float64()*25
	}
	return alerts.WeatherReading{Condition: condition, WindSpeedKmh: wind}
}

// HealthSource reports per-component status for the snapshot.
type HealthSource interface {
	SystemHealth() map[string]string
}

// Runner drives the simulation loop.
type Runner struct {
	interval   time.Duration
	fleet      *fleet.Manager
	deliveries *delivery.Manager
	inventory  *ledger.Ledger
	evaluator  *alerts.ConditionEvaluator
	weather    WeatherFeed
	health     HealthSource
	logger     *slog.Logger

	tickMu sync.Mutex
}

// NewRunner wires the loop. weather and health are optional; a nil feed
// simply leaves that dimension out of the snapshot.
func NewRunner(
	interval time.Duration,
	fleetMgr *fleet.Manager,
	deliveries *delivery.Manager,
	inventory *ledger.Ledger,
	evaluator *alerts.ConditionEvaluator,
	weather WeatherFeed,
	health HealthSource,
	logger *slog.Logger,
) *Runner {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Runner{
		interval:   interval,
		fleet:      fleetMgr,
		deliveries: deliveries,
		inventory:  inventory,
		evaluator:  evaluator,
		weather:    weather,
		health:     health,
		logger:     logger,
	}
}

// Run ticks until ctx is cancelled. It always returns nil; a failed tick
// is logged, never fatal.
func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("Simulation loop started", "interval", r.interval.String())
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Simulation loop stopped")
			return nil
		case <-ticker.C:
			r.Tick()
		}
	}
}

// Tick advances the simulation one round. If a previous tick is still in
// flight the round is skipped rather than queued.
func (r *Runner) Tick() {
	if !r.tickMu.TryLock() {
		r.logger.Warn("Simulation tick skipped, previous tick still running")
		return
	}
	defer r.tickMu.Unlock()

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("Simulation tick panicked", "panic", rec)
		}
	}()

	r.fleet.Simulate()

	raised := r.evaluator.Evaluate(r.buildSnapshot())
	if len(raised) > 0 {
		r.logger.Info("Simulation tick raised alerts", "count", len(raised))
	}
}

func (r *Runner) buildSnapshot() alerts.Snapshot {
	snap := alerts.Snapshot{}

	for _, row := range r.fleet.Statuses() {
		snap.Drones = append(snap.Drones, alerts.DroneReading{
			ID:      row.ID,
			Status:  row.Status,
			Battery: row.Battery,
			Zone:    row.Zone,
		})
	}

	for _, level := range r.inventory.StockLevels() {
		snap.Stock = append(snap.Stock, alerts.StockReading{
			ItemID:    level.ItemID,
			ItemName:  level.ItemName,
			Available: level.Available,
		})
	}

	// Latest custody temperature per in-flight delivery
	for _, order := range r.deliveries.Active() {
		for i := len(order.ChainOfCustody) - 1; i >= 0; i-- {
			entry := order.ChainOfCustody[i]
			if entry.Temperature == nil {
				continue
			}
			snap.Temperatures = append(snap.Temperatures, alerts.TemperatureReading{
				DeliveryID:   order.ID,
				ItemName:     order.ItemName,
				RequiredBand: order.TemperatureRequirement,
				CurrentTemp:  *entry.Temperature,
			})
			break
		}
	}

	if r.weather != nil {
		reading := r.weather.Current()
		snap.Weather = &reading
	}
	if r.health != nil {
		snap.Components = r.health.SystemHealth()
	}
	return snap
}
