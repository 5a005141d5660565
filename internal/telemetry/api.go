package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OpsTelemetry provides instruments for the operations API endpoints and
// the domain counters fed by the handlers.
type OpsTelemetry struct {
	meter metric.Meter

	requestCounter    metric.Int64Counter
	errorCounter      metric.Int64Counter
	durationHistogram metric.Float64Histogram

	deliveriesCreatedCounter metric.Int64Counter
	alertsRaisedCounter      metric.Int64Counter
	restockCounter           metric.Int64Counter
}

// RequestMetrics is the telemetry data collected for one request.
type RequestMetrics struct {
	Method       string
	Endpoint     string
	StatusCode   int
	Duration     time.Duration
	ErrorMessage string
	RequestID    string
	ClientIPType string // "internal", "external", "localhost", "unknown"
}

// NewOpsTelemetry creates an uninitialized telemetry holder.
func NewOpsTelemetry() *OpsTelemetry {
	return &OpsTelemetry{}
}

// InitializeTelemetry creates all instruments on the global meter provider.
func (t *OpsTelemetry) InitializeTelemetry(ctx context.Context) error {
	slog.Info("Initializing operations API telemetry")

	t.meter = otel.Meter("drone-ops-api")

	var err error

	t.requestCounter, err = t.meter.Int64Counter(
		"ops_api_requests_total",
		metric.WithDescription("Total number of API requests"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create request counter: %w", err)
	}

	t.errorCounter, err = t.meter.Int64Counter(
		"ops_api_errors_total",
		metric.WithDescription("Total number of API errors"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create error counter: %w", err)
	}

	t.durationHistogram, err = t.meter.Float64Histogram(
		"ops_api_request_duration_seconds",
		metric.WithDescription("Duration of API requests"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("failed to create duration histogram: %w", err)
	}

	t.deliveriesCreatedCounter, err = t.meter.Int64Counter(
		"ops_deliveries_created_total",
		metric.WithDescription("Total number of delivery orders created"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create deliveries counter: %w", err)
	}

	t.alertsRaisedCounter, err = t.meter.Int64Counter(
		"ops_alerts_raised_total",
		metric.WithDescription("Total number of alerts raised"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create alerts counter: %w", err)
	}

	t.restockCounter, err = t.meter.Int64Counter(
		"ops_restocks_total",
		metric.WithDescription("Total number of restock operations"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create restock counter: %w", err)
	}

	slog.Info("Operations API telemetry initialized successfully")
	return nil
}

// RegisterRequestReceived records a successful API request.
func (t *OpsTelemetry) RegisterRequestReceived(ctx context.Context, metrics RequestMetrics) {
	if t.requestCounter == nil {
		return
	}
	t.requestCounter.Add(ctx, 1, metric.WithAttributes(requestAttributes(metrics)...))
}

// RegisterRequestError records a failed API request.
func (t *OpsTelemetry) RegisterRequestError(ctx context.Context, metrics RequestMetrics) {
	if t.errorCounter == nil {
		return
	}

	attrs := append(requestAttributes(metrics),
		attribute.String("error_type", categorizeError(metrics.ErrorMessage)))
	t.errorCounter.Add(ctx, 1, metric.WithAttributes(attrs...))

	slog.Warn("Recorded API request error",
		"method", metrics.Method,
		"endpoint", metrics.Endpoint,
		"status_code", metrics.StatusCode,
		"request_id", metrics.RequestID,
		"error", metrics.ErrorMessage,
	)
}

// RegisterRequestDuration records the duration of an API request.
func (t *OpsTelemetry) RegisterRequestDuration(ctx context.Context, metrics RequestMetrics) {
	if t.durationHistogram == nil {
		return
	}
	t.durationHistogram.Record(ctx, metrics.Duration.Seconds(),
		metric.WithAttributes(requestAttributes(metrics)...))
}

// RecordDeliveryCreated bumps the delivery counter.
func (t *OpsTelemetry) RecordDeliveryCreated(ctx context.Context, priority string) {
	if t.deliveriesCreatedCounter == nil {
		return
	}
	t.deliveriesCreatedCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("priority", priority)))
}

// RecordAlertRaised bumps the alert counter.
func (t *OpsTelemetry) RecordAlertRaised(ctx context.Context, severity, alertType string) {
	if t.alertsRaisedCounter == nil {
		return
	}
	t.alertsRaisedCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("severity", severity),
		attribute.String("type", alertType)))
}

// RecordRestock bumps the restock counter.
func (t *OpsTelemetry) RecordRestock(ctx context.Context) {
	if t.restockCounter == nil {
		return
	}
	t.restockCounter.Add(ctx, 1)
}

// requestAttributes keeps the metric attribute set low-cardinality: method,
// route template, status code, normalized IP class. Never raw IPs or ids.
func requestAttributes(metrics RequestMetrics) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("method", metrics.Method),
		attribute.String("endpoint", metrics.Endpoint),
		attribute.Int("status_code", metrics.StatusCode),
	}
	if metrics.ClientIPType != "" {
		attrs = append(attrs, attribute.String("client_ip_type", metrics.ClientIPType))
	}
	return attrs
}

// categorizeError groups similar errors to prevent high cardinality.
func categorizeError(errorMessage string) string {
	if errorMessage == "" {
		return "unknown"
	}
	switch {
	case strings.Contains(errorMessage, "not found"):
		return "not_found"
	case strings.Contains(errorMessage, "invalid"):
		return "invalid_request"
	case strings.Contains(errorMessage, "unauthorized"):
		return "unauthorized"
	case strings.Contains(errorMessage, "forbidden"):
		return "forbidden"
	case strings.Contains(errorMessage, "conflict"):
		return "conflict"
	case strings.Contains(errorMessage, "rate limit"):
		return "rate_limited"
	case strings.Contains(errorMessage, "internal"):
		return "internal_error"
	default:
		return "other"
	}
}

// NormalizeClientIP categorizes client IPs to control cardinality.
func NormalizeClientIP(clientIP string) string {
	if clientIP == "" {
		return "unknown"
	}

	ip := net.ParseIP(clientIP)
	if ip == nil {
		return "invalid"
	}
	if ip.IsLoopback() {
		return "localhost"
	}
	if isPrivateIP(ip) {
		return "internal"
	}
	return "external"
}

var privateNetworks = func() []*net.IPNet {
	cidrs := []string{
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		"169.254.0.0/16",
		"fc00::/7",
		"fe80::/10",
	}
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, cidr := range cidrs {
		if _, network, err := net.ParseCIDR(cidr); err == nil {
			nets = append(nets, network)
		}
	}
	return nets
}()

func isPrivateIP(ip net.IP) bool {
	for _, network := range privateNetworks {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}
