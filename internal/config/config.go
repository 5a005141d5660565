package config

import (
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Port        string
	MetricsPort string
	LogLevel    string
	Environment string

	// Simulation loop
	SimulationInterval string
	DroneCount         string
	SimulationSeed     string

	// Alert thresholds
	BatteryCritical      string
	BatteryLow           string
	StockCritical        string
	StockLow             string
	TemperatureDeviation string
	ActivityLogCapacity  string

	// Delivery estimation
	DeliveryEstimateMinutes string
	DroneCruiseSpeedKmh     string

	// Events stream
	MaxEventsInStream string

	// Rate limiting
	RateLimitEnabled                string
	RateLimitType                   string
	RateLimitRequestsPerMinute      string
	RateLimitWindowMinutes          string
	RateLimitAdminRequestsPerMinute string
}

// LoadConfig loads configuration from .env file and environment variables
func LoadConfig() *Config {
	// Load .env file if it exists
	// This will not override existing environment variables
	err := godotenv.Load()
	if err != nil {
		slog.Warn("Could not load .env file, continuing with system environment variables only", "error", err)
	} else {
		slog.Info("Successfully loaded .env file")
	}

	config := &Config{
		Port:        getEnvWithDefault("PORT", "8080"),
		MetricsPort: getEnvWithDefault("METRICS_PORT", "9080"),
		LogLevel:    getEnvWithDefault("LOG_LEVEL", "info"),
		Environment: getEnvWithDefault("ENVIRONMENT", "development"),

		SimulationInterval: getEnvWithDefault("SIMULATION_INTERVAL", "5s"),
		DroneCount:         getEnvWithDefault("DRONE_COUNT", "15"),
		SimulationSeed:     getEnvWithDefault("SIMULATION_SEED", ""),

		BatteryCritical:      getEnvWithDefault("ALERT_BATTERY_CRITICAL", "15"),
		BatteryLow:           getEnvWithDefault("ALERT_BATTERY_LOW", "25"),
		StockCritical:        getEnvWithDefault("ALERT_STOCK_CRITICAL", "5"),
		StockLow:             getEnvWithDefault("ALERT_STOCK_LOW", "15"),
		TemperatureDeviation: getEnvWithDefault("ALERT_TEMPERATURE_DEVIATION", "2.0"),
		ActivityLogCapacity:  getEnvWithDefault("ACTIVITY_LOG_CAPACITY", "100"),

		DeliveryEstimateMinutes: getEnvWithDefault("DELIVERY_ESTIMATE_MINUTES", "30"),
		DroneCruiseSpeedKmh:     getEnvWithDefault("DRONE_CRUISE_SPEED_KMH", "60"),

		MaxEventsInStream: getEnvWithDefault("MAX_EVENTS_IN_STREAM", "10000"),

		RateLimitEnabled:                getEnvWithDefault("RATE_LIMIT_ENABLED", "true"),
		RateLimitType:                   getEnvWithDefault("RATE_LIMIT_TYPE", "ip"),
		RateLimitRequestsPerMinute:      getEnvWithDefault("RATE_LIMIT_REQUESTS_PER_MINUTE", "100"),
		RateLimitWindowMinutes:          getEnvWithDefault("RATE_LIMIT_WINDOW_MINUTES", "1"),
		RateLimitAdminRequestsPerMinute: getEnvWithDefault("RATE_LIMIT_ADMIN_REQUESTS_PER_MINUTE", "50"),
	}

	// Configure slog based on log level
	setupLogging(config.LogLevel)

	slog.Info("Configuration loaded",
		"port", config.Port,
		"metricsPort", config.MetricsPort,
		"environment", config.Environment,
		"logLevel", config.LogLevel,
		"simulationInterval", config.SimulationInterval,
		"droneCount", config.DroneCount,
		"batteryCritical", config.BatteryCritical,
		"batteryLow", config.BatteryLow,
		"stockCritical", config.StockCritical,
		"stockLow", config.StockLow,
		"temperatureDeviation", config.TemperatureDeviation,
		"deliveryEstimateMinutes", config.DeliveryEstimateMinutes,
		"maxEventsInStream", config.MaxEventsInStream)

	return config
}

// setupLogging configures the default slog logger for the requested level
func setupLogging(level string) {
	var slogLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		slogLevel = slog.LevelDebug
	case "warn", "warning":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}

	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slogLevel})
	slog.SetDefault(slog.New(handler))
}

// getEnvWithDefault gets an environment variable with a default fallback
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
