package telemetry

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	api "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

// Telemetry owns the OpenTelemetry meter provider and, in scraper mode,
// the Prometheus metrics server.
type Telemetry struct {
	server   *http.Server          // Only in "scraper" mode.
	Provider *metric.MeterProvider // OTLP gRPC otherwise.
	meter    api.Meter
	ctx      context.Context
}

var once sync.Once

// InitMetrics picks the exporter from METRICS_EXPORTER: "scraper" serves a
// Prometheus page on the metrics port, anything else pushes OTLP over gRPC
// to OTEL_EXPORTER_OTLP_METRICS_ENDPOINT (default localhost:4317).
func (t *Telemetry) InitMetrics(meterName, metricsPort string, ctx context.Context) {
	t.ctx = ctx

	once.Do(func() {
		if getEnvWithDefault("METRICS_EXPORTER", "scraper") == "scraper" {
			slog.Info("Starting metrics with scraper exporter")
			t.initScrapeMetrics(meterName, metricsPort)
		} else {
			slog.Info("Starting metrics with grpc exporter")
			t.initGRPCMetrics(meterName)
		}
	})
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Close flushes pending metrics and stops the scrape server if running.
func (t *Telemetry) Close() {
	if t.Provider != nil {
		_ = t.Provider.ForceFlush(t.ctx)
	}
	if t.server != nil {
		_ = t.server.Shutdown(t.ctx)
		slog.Info("Shutting down metrics server")
	}
}

func (t *Telemetry) initGRPCMetrics(meterName string) {
	exporter, err := otlpmetricgrpc.New(t.ctx)
	if err != nil {
		slog.Error("Creating GRPC exporter", "error", err)
		return
	}

	t.Provider = metric.NewMeterProvider(metric.WithReader(metric.NewPeriodicReader(exporter)))
	otel.SetMeterProvider(t.Provider)
	t.meter = t.Provider.Meter(meterName)
}

func (t *Telemetry) initScrapeMetrics(meterName, metricsPort string) {
	exporter, err := prometheus.New()
	if err != nil {
		slog.Error("Creating Prometheus scrape exporter", "error", err)
		return
	}

	t.Provider = metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(t.Provider)
	t.meter = t.Provider.Meter(meterName)

	go t.serveMetrics(metricsPort)
}

func (t *Telemetry) serveMetrics(metricsPort string) {
	slog.Info("Serving metrics", "address", ":"+metricsPort+"/metrics")

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	t.server = &http.Server{
		Addr:    ":" + metricsPort,
		Handler: mux,
	}

	if err := t.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Metrics server exited", "error", err)
	}
}
