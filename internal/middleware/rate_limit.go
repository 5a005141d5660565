package middleware

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"drone-ops-api/internal/models"
)

// RateLimitType defines the scope rate limits are counted against.
type RateLimitType string

const (
	RateLimitTypeIP     RateLimitType = "ip"
	RateLimitTypeGlobal RateLimitType = "global"
	RateLimitTypeBoth   RateLimitType = "both"
)

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	Enabled                bool
	Type                   RateLimitType
	RequestsPerMinute      int
	WindowMinutes          int
	AdminRequestsPerMinute int
}

// rateLimitEntry is one fixed-window counter.
type rateLimitEntry struct {
	count     int
	resetTime time.Time
}

// RateLimiter counts requests per fixed window, per client IP and/or
// globally.
type RateLimiter struct {
	config        RateLimitConfig
	mu            sync.Mutex
	ipLimits      map[string]*rateLimitEntry
	globalLimit   rateLimitEntry
	cleanupTicker *time.Ticker
	stopCleanup   chan struct{}
}

// RateLimitInfo carries the limit state exposed via response headers.
type RateLimitInfo struct {
	Limit     int
	Remaining int
	ResetTime time.Time
}

// NewRateLimiter creates a rate limiter and starts its cleanup loop.
func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	rl := &RateLimiter{
		config:      config,
		ipLimits:    make(map[string]*rateLimitEntry),
		stopCleanup: make(chan struct{}),
	}

	rl.cleanupTicker = time.NewTicker(time.Minute)
	go rl.cleanupExpiredEntries()

	slog.Info("Rate limiter initialized",
		"enabled", config.Enabled,
		"type", config.Type,
		"requests_per_minute", config.RequestsPerMinute,
		"window_minutes", config.WindowMinutes,
		"admin_requests_per_minute", config.AdminRequestsPerMinute)

	return rl
}

// Stop stops the cleanup goroutine.
func (rl *RateLimiter) Stop() {
	if rl.cleanupTicker != nil {
		rl.cleanupTicker.Stop()
	}
	close(rl.stopCleanup)
}

func (rl *RateLimiter) cleanupExpiredEntries() {
	for {
		select {
		case <-rl.cleanupTicker.C:
			rl.mu.Lock()
			now := time.Now()
			for ip, entry := range rl.ipLimits {
				if now.After(entry.resetTime) {
					delete(rl.ipLimits, ip)
				}
			}
			if now.After(rl.globalLimit.resetTime) {
				rl.globalLimit = rateLimitEntry{}
			}
			rl.mu.Unlock()
		case <-rl.stopCleanup:
			return
		}
	}
}

// IsAllowed checks whether a request fits within the configured limits and
// consumes one slot if it does.
func (rl *RateLimiter) IsAllowed(clientIP string, isAdmin bool) (bool, *RateLimitInfo) {
	if !rl.config.Enabled {
		return true, &RateLimitInfo{Limit: -1, Remaining: -1}
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	window := time.Duration(rl.config.WindowMinutes) * time.Minute

	limit := rl.config.RequestsPerMinute
	if isAdmin && rl.config.AdminRequestsPerMinute > 0 {
		limit = rl.config.AdminRequestsPerMinute
	}

	ipAllowed, globalAllowed := true, true
	var ipInfo, globalInfo *RateLimitInfo

	if rl.config.Type == RateLimitTypeIP || rl.config.Type == RateLimitTypeBoth {
		entry, ok := rl.ipLimits[clientIP]
		if !ok {
			entry = &rateLimitEntry{}
			rl.ipLimits[clientIP] = entry
		}
		ipAllowed, ipInfo = consume(entry, limit, window, now)
	}
	if rl.config.Type == RateLimitTypeGlobal || rl.config.Type == RateLimitTypeBoth {
		globalAllowed, globalInfo = consume(&rl.globalLimit, limit, window, now)
	}

	switch rl.config.Type {
	case RateLimitTypeIP:
		return ipAllowed, ipInfo
	case RateLimitTypeGlobal:
		return globalAllowed, globalInfo
	default:
		// Both scopes must allow; report the tighter one
		info := ipInfo
		if globalInfo != nil && (ipInfo == nil || globalInfo.Remaining < ipInfo.Remaining) {
			info = globalInfo
		}
		return ipAllowed && globalAllowed, info
	}
}

// consume resets an expired window, then takes one slot if available.
func consume(entry *rateLimitEntry, limit int, window time.Duration, now time.Time) (bool, *RateLimitInfo) {
	if now.After(entry.resetTime) {
		entry.count = 0
		entry.resetTime = now.Add(window)
	}

	info := &RateLimitInfo{
		Limit:     limit,
		Remaining: limit - entry.count - 1,
		ResetTime: entry.resetTime,
	}
	if entry.count >= limit {
		info.Remaining = 0
		return false, info
	}

	entry.count++
	info.Remaining = limit - entry.count
	return true, info
}

// RateLimitMiddleware enforces rate limits on every route except health.
func RateLimitMiddleware(rateLimiter *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/health" {
				next.ServeHTTP(w, r)
				return
			}

			clientIP := getClientIP(r)
			isAdmin := strings.HasPrefix(r.URL.Path, "/api/admin")

			allowed, info := rateLimiter.IsAllowed(clientIP, isAdmin)
			setRateLimitHeaders(w, info)

			if !allowed {
				slog.Warn("Rate limit exceeded",
					"client_ip", clientIP,
					"path", r.URL.Path,
					"method", r.Method,
					"is_admin", isAdmin,
					"limit", info.Limit,
					"reset_time", info.ResetTime.Format(time.RFC3339))
				writeRateLimitErrorResponse(w, info)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// getClientIP extracts the client IP, honoring proxy headers.
func getClientIP(r *http.Request) string {
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

func setRateLimitHeaders(w http.ResponseWriter, info *RateLimitInfo) {
	if info.Limit >= 0 {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
		if !info.ResetTime.IsZero() {
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime.Unix(), 10))
		}
	}
}

func writeRateLimitErrorResponse(w http.ResponseWriter, info *RateLimitInfo) {
	if !info.ResetTime.IsZero() {
		w.Header().Set("Retry-After", fmt.Sprintf("%.0f", time.Until(info.ResetTime).Seconds()))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)

	json.NewEncoder(w).Encode(models.ErrorResponse{
		Code:    "rate_limit_exceeded",
		Message: "Rate limit exceeded. Please try again later.",
		Details: []models.ErrorDetail{
			{
				Field: "rate_limit",
				Issue: fmt.Sprintf("Exceeded %d requests per window.", info.Limit),
			},
		},
	})
}
