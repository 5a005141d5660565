package telemetry

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type contextKey string

const requestIDKey contextKey = "telemetry_request_id"

// Middleware wraps HTTP handlers to tag each request with a request id and
// record request, error and duration metrics.
type Middleware struct {
	telemetry *OpsTelemetry
}

// NewMiddleware creates a telemetry middleware.
func NewMiddleware(telemetry *OpsTelemetry) *Middleware {
	return &Middleware{telemetry: telemetry}
}

// Handler returns the HTTP middleware function.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		r = r.WithContext(ctx)

		wrapper := &responseWriterWrapper{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(wrapper, r)

		metrics := RequestMetrics{
			Method:       r.Method,
			Endpoint:     endpointFromRequest(r),
			StatusCode:   wrapper.statusCode,
			Duration:     time.Since(start),
			RequestID:    requestID,
			ClientIPType: NormalizeClientIP(clientIP(r)),
		}

		if wrapper.statusCode >= 400 {
			metrics.ErrorMessage = errorMessage(wrapper.statusCode)
			m.telemetry.RegisterRequestError(ctx, metrics)
		} else {
			m.telemetry.RegisterRequestReceived(ctx, metrics)
		}
		m.telemetry.RegisterRequestDuration(ctx, metrics)
	})
}

// RequestIDFromContext returns the request id set by the middleware.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// responseWriterWrapper captures the status code written by a handler.
type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriterWrapper) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

// endpointFromRequest uses the mux route template so path parameters do not
// explode metric cardinality.
func endpointFromRequest(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if template, err := route.GetPathTemplate(); err == nil {
			return template
		}
	}
	return r.URL.Path
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		if len(ips) > 0 {
			ip := strings.TrimSpace(ips[0])
			if net.ParseIP(ip) != nil {
				return ip
			}
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		if net.ParseIP(xri) != nil {
			return xri
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func errorMessage(statusCode int) string {
	switch statusCode {
	case http.StatusBadRequest:
		return "bad request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "invalid entity"
	case http.StatusTooManyRequests:
		return "rate limit exceeded"
	case http.StatusInternalServerError:
		return "internal error"
	default:
		return "HTTP error " + strconv.Itoa(statusCode)
	}
}
