package main

import (
	"context"
	"log/slog"
	"math/rand"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"drone-ops-api/internal/alerts"
	"drone-ops-api/internal/config"
	"drone-ops-api/internal/delivery"
	"drone-ops-api/internal/events"
	"drone-ops-api/internal/fleet"
	"drone-ops-api/internal/handlers"
	"drone-ops-api/internal/ledger"
	"drone-ops-api/internal/middleware"
	"drone-ops-api/internal/reporting"
	"drone-ops-api/internal/sim"
	"drone-ops-api/internal/telemetry"

	"github.com/gorilla/mux"
	"golang.org/x/sync/errgroup"
)

const dashboardCacheTTL = 2 * time.Second

// Known delivery stations around the base for flight-time estimation.
// Unknown destinations fall back to the configured fixed estimate.
var stations = map[string]delivery.Coordinates{
	"Rural Clinic A":    {Lat: 28.7041, Lon: 77.1025},
	"Rural Clinic B":    {Lat: 28.4595, Lon: 77.0266},
	"District Hospital": {Lat: 28.5355, Lon: 77.3910},
	"Field Station":     {Lat: 28.9845, Lon: 77.7064},
	"Zone Alpha":        {Lat: 28.6692, Lon: 77.4538},
	"Zone Beta":         {Lat: 28.4089, Lon: 77.3178},
	"Zone Gamma":        {Lat: 28.8386, Lon: 77.0822},
}

func main() {
	// Load configuration from .env file and environment variables
	cfg := config.LoadConfig()

	slog.Info("Starting Drone Operations API", "version", "1.0.0")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize OpenTelemetry telemetry system
	otelTelemetry := &telemetry.Telemetry{}
	otelTelemetry.InitMetrics("drone-ops-api", cfg.MetricsPort, ctx)
	slog.Info("OpenTelemetry telemetry initialized")

	opsTelemetry := telemetry.NewOpsTelemetry()
	if err := opsTelemetry.InitializeTelemetry(ctx); err != nil {
		slog.Error("Failed to initialize API telemetry", "error", err)
		return
	}

	// One seeded rng drives all simulated state so a fixed SIMULATION_SEED
	// reproduces the whole world.
	seed := time.Now().UnixNano()
	if cfg.SimulationSeed != "" {
		parsed, err := strconv.ParseInt(cfg.SimulationSeed, 10, 64)
		if err != nil {
			slog.Warn("Invalid SIMULATION_SEED, using time-based seed", "value", cfg.SimulationSeed)
		} else {
			seed = parsed
		}
	}
	// rand.Rand is not thread-safe, and the fleet manager and weather feed
	// draw from different goroutines under different mutexes. Each gets its
	// own source derived from the master seed.
	rng := rand.New(rand.NewSource(seed))
	weatherRng := rand.New(rand.NewSource(seed + 1))
	slog.Info("Simulation seeded", "seed", seed)

	// Domain services
	inventory := ledger.New(ledger.Seed(rng))
	deliveries := delivery.NewManager(inventory, buildEstimator(cfg))

	activityCapacity := intOrDefault(cfg.ActivityLogCapacity, 100)
	engine := alerts.NewEngine(activityCapacity)

	droneCount := intOrDefault(cfg.DroneCount, 15)
	fleetMgr := fleet.NewManager(droneCount, rng)

	maxEvents := intOrDefault(cfg.MaxEventsInStream, 10000)
	stream := events.NewStream(maxEvents, slog.Default())
	deliveries.SetEventPublisher(stream)
	engine.SetEventPublisher(stream)
	fleetMgr.SetEventPublisher(stream)

	reports := reporting.NewService(fleetMgr, deliveries, inventory, engine, dashboardCacheTTL)

	evaluator := alerts.NewConditionEvaluator(engine, alerts.Thresholds{
		BatteryCritical:      intOrDefault(cfg.BatteryCritical, 15),
		BatteryLow:           intOrDefault(cfg.BatteryLow, 25),
		StockCritical:        intOrDefault(cfg.StockCritical, 5),
		StockLow:             intOrDefault(cfg.StockLow, 15),
		TemperatureDeviation: floatOrDefault(cfg.TemperatureDeviation, 2.0),
	})

	interval, err := time.ParseDuration(cfg.SimulationInterval)
	if err != nil {
		slog.Warn("Invalid SIMULATION_INTERVAL, using 5s", "value", cfg.SimulationInterval)
		interval = 5 * time.Second
	}
	weather := sim.NewSimulatedWeather(weatherRng)
	runner := sim.NewRunner(interval, fleetMgr, deliveries, inventory, evaluator, weather, reports, slog.Default())

	// Handlers
	deliveryHandler := handlers.NewDeliveryHandler(deliveries, reports, opsTelemetry)
	inventoryHandler := handlers.NewInventoryHandler(inventory, reports, opsTelemetry)
	alertsHandler := handlers.NewAlertsHandler(engine, fleetMgr, reports, opsTelemetry)
	fleetHandler := handlers.NewFleetHandler(fleetMgr, reports)
	dashboardHandler := handlers.NewDashboardHandler(reports)
	eventsHandler := handlers.NewEventsHandler(stream)
	healthHandler := handlers.NewHealthHandler()

	r := mux.NewRouter()

	telemetryMiddleware := telemetry.NewMiddleware(opsTelemetry)
	r.Use(telemetryMiddleware.Handler)

	rateLimitConfig := middleware.ParseRateLimitConfig(cfg)
	var rateLimiter *middleware.RateLimiter
	if rateLimitConfig.Enabled {
		rateLimiter = middleware.NewRateLimiter(rateLimitConfig)
		r.Use(middleware.RateLimitMiddleware(rateLimiter))
		slog.Info("Rate limiting middleware enabled")
	} else {
		slog.Info("Rate limiting middleware disabled")
	}
	rateLimitStatusHandler := handlers.NewRateLimitStatusHandler(rateLimiter)

	// API routes - specific paths before parameterized ones
	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.AuthMiddleware)

	api.HandleFunc("/deliveries", deliveryHandler.CreateDelivery).Methods("POST")
	api.HandleFunc("/deliveries/active", deliveryHandler.ListActiveDeliveries).Methods("GET")
	api.HandleFunc("/deliveries/history", deliveryHandler.ListDeliveryHistory).Methods("GET")
	api.HandleFunc("/deliveries/metrics", deliveryHandler.GetSupplyChainMetrics).Methods("GET")
	api.HandleFunc("/deliveries/{deliveryId}/status", deliveryHandler.UpdateDeliveryStatus).Methods("PUT")

	api.HandleFunc("/inventory", inventoryHandler.ListInventory).Methods("GET")
	api.HandleFunc("/inventory/overview", inventoryHandler.GetInventoryOverview).Methods("GET")
	api.HandleFunc("/inventory/critical", inventoryHandler.GetCriticalStockAlerts).Methods("GET")
	api.HandleFunc("/inventory/categories", inventoryHandler.GetInventoryCategories).Methods("GET")
	api.HandleFunc("/inventory/{itemId}", inventoryHandler.GetInventoryItem).Methods("GET")

	api.HandleFunc("/alerts", alertsHandler.ListAlerts).Methods("GET")
	api.HandleFunc("/alerts/statistics", alertsHandler.GetAlertStatistics).Methods("GET")
	api.HandleFunc("/alerts/summary", alertsHandler.GetCriticalSummary).Methods("GET")
	api.HandleFunc("/alerts/{alertId}/acknowledge", alertsHandler.AcknowledgeAlert).Methods("POST")
	api.HandleFunc("/alerts/{alertId}/resolve", alertsHandler.ResolveAlert).Methods("POST")
	api.HandleFunc("/activities", alertsHandler.ListActivities).Methods("GET")

	api.HandleFunc("/fleet/overview", fleetHandler.GetFleetOverview).Methods("GET")
	api.HandleFunc("/fleet/status", fleetHandler.GetFleetStatus).Methods("GET")
	api.HandleFunc("/fleet/battery-distribution", fleetHandler.GetBatteryDistribution).Methods("GET")
	api.HandleFunc("/fleet/emergency-ready", fleetHandler.GetEmergencyReadyDrones).Methods("GET")
	api.HandleFunc("/fleet/{droneId}", fleetHandler.GetDroneDetails).Methods("GET")

	api.HandleFunc("/dashboard/kpis", dashboardHandler.GetKPIs).Methods("GET")
	api.HandleFunc("/dashboard/overview", dashboardHandler.GetDashboardOverview).Methods("GET")
	api.HandleFunc("/dashboard/missions", dashboardHandler.GetMissionStats).Methods("GET")
	api.HandleFunc("/dashboard/system-health", dashboardHandler.GetSystemHealth).Methods("GET")

	api.HandleFunc("/events", eventsHandler.GetEvents).Methods("GET")

	// Admin routes - require admin authentication
	admin := r.PathPrefix("/api/admin").Subrouter()
	admin.Use(middleware.AdminAuthMiddleware)
	admin.HandleFunc("/inventory/{itemId}/restock", inventoryHandler.RestockItem).Methods("POST")
	admin.HandleFunc("/fleet/{droneId}/status", fleetHandler.UpdateDroneStatus).Methods("PUT")
	admin.HandleFunc("/fleet/{droneId}/deploy", fleetHandler.DeployDrone).Methods("POST")
	admin.HandleFunc("/fleet/{droneId}/recall", fleetHandler.RecallDrone).Methods("POST")
	admin.HandleFunc("/emergency", alertsHandler.ActivateEmergency).Methods("POST")
	admin.HandleFunc("/rate-limit/status", rateLimitStatusHandler.GetRateLimitStatus).Methods("GET")
	admin.HandleFunc("/rate-limit/reset", rateLimitStatusHandler.ResetRateLimits).Methods("POST")

	// Health check endpoint (no auth required)
	r.HandleFunc("/health", healthHandler.Health).Methods("GET")

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		slog.Info("Server ready to accept connections",
			"address", server.Addr,
			"environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	group.Go(func() error {
		return runner.Run(groupCtx)
	})

	group.Go(func() error {
		<-groupCtx.Done()
		slog.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if rateLimiter != nil {
			rateLimiter.Stop()
		}
		otelTelemetry.Close()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		slog.Error("Server exited with error", "error", err)
		return
	}
	slog.Info("Server exited")
}

// buildEstimator prefers flight-time estimation when a cruise speed is
// configured, falling back to the fixed estimate otherwise.
func buildEstimator(cfg *config.Config) delivery.Estimator {
	fallback := time.Duration(intOrDefault(cfg.DeliveryEstimateMinutes, 30)) * time.Minute

	speed := floatOrDefault(cfg.DroneCruiseSpeedKmh, 60)
	if speed <= 0 {
		return delivery.FixedEstimator{Duration: fallback}
	}
	return delivery.FlightTimeEstimator{
		Base:     delivery.Coordinates{Lat: 28.6139, Lon: 77.2090},
		Stations: stations,
		SpeedKmh: speed,
		Default:  fallback,
	}
}

func intOrDefault(raw string, fallback int) int {
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func floatOrDefault(raw string, fallback float64) float64 {
	parsed, err := strconv.ParseFloat(raw, 64)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}
