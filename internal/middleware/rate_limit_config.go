package middleware

import (
	"log/slog"
	"strconv"
	"strings"

	"drone-ops-api/internal/config"
)

// ParseRateLimitConfig builds the rate limiter settings from the string
// config, falling back to safe defaults on invalid values.
func ParseRateLimitConfig(cfg *config.Config) RateLimitConfig {
	rateLimitConfig := RateLimitConfig{
		Enabled:                parseBool(cfg.RateLimitEnabled, true),
		Type:                   parseRateLimitType(cfg.RateLimitType),
		RequestsPerMinute:      parseInt(cfg.RateLimitRequestsPerMinute, 100),
		WindowMinutes:          parseInt(cfg.RateLimitWindowMinutes, 1),
		AdminRequestsPerMinute: parseInt(cfg.RateLimitAdminRequestsPerMinute, 50),
	}

	if rateLimitConfig.RequestsPerMinute <= 0 {
		slog.Warn("Invalid rate limit requests per minute, using default",
			"configured", cfg.RateLimitRequestsPerMinute, "default", 100)
		rateLimitConfig.RequestsPerMinute = 100
	}
	if rateLimitConfig.WindowMinutes <= 0 {
		slog.Warn("Invalid rate limit window minutes, using default",
			"configured", cfg.RateLimitWindowMinutes, "default", 1)
		rateLimitConfig.WindowMinutes = 1
	}
	if rateLimitConfig.AdminRequestsPerMinute <= 0 {
		slog.Warn("Invalid admin rate limit requests per minute, using default",
			"configured", cfg.RateLimitAdminRequestsPerMinute, "default", 50)
		rateLimitConfig.AdminRequestsPerMinute = 50
	}

	slog.Info("Rate limiting configuration parsed",
		"enabled", rateLimitConfig.Enabled,
		"type", rateLimitConfig.Type,
		"requests_per_minute", rateLimitConfig.RequestsPerMinute,
		"window_minutes", rateLimitConfig.WindowMinutes,
		"admin_requests_per_minute", rateLimitConfig.AdminRequestsPerMinute)

	return rateLimitConfig
}

func parseBool(value string, defaultValue bool) bool {
	if value == "" {
		return defaultValue
	}
	switch strings.ToLower(value) {
	case "true", "1", "yes", "on", "enabled":
		return true
	case "false", "0", "no", "off", "disabled":
		return false
	default:
		slog.Warn("Invalid boolean value, using default", "value", value, "default", defaultValue)
		return defaultValue
	}
}

func parseInt(value string, defaultValue int) int {
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		slog.Warn("Invalid integer value, using default", "value", value, "default", defaultValue, "error", err)
		return defaultValue
	}
	return parsed
}

func parseRateLimitType(value string) RateLimitType {
	switch strings.ToLower(value) {
	case "", "ip":
		return RateLimitTypeIP
	case "global":
		return RateLimitTypeGlobal
	case "both":
		return RateLimitTypeBoth
	default:
		slog.Warn("Invalid rate limit type, using default", "value", value, "default", "ip")
		return RateLimitTypeIP
	}
}

// Stats reports current limiter state for the admin status endpoint.
func (rl *RateLimiter) Stats() map[string]any {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	stats := map[string]any{
		"enabled":                   rl.config.Enabled,
		"type":                      string(rl.config.Type),
		"requests_per_minute":       rl.config.RequestsPerMinute,
		"window_minutes":            rl.config.WindowMinutes,
		"admin_requests_per_minute": rl.config.AdminRequestsPerMinute,
		"active_ip_limits":          len(rl.ipLimits),
	}
	if rl.config.Type == RateLimitTypeGlobal || rl.config.Type == RateLimitTypeBoth {
		stats["global_count"] = rl.globalLimit.count
	}
	return stats
}

// Reset clears all counters.
func (rl *RateLimiter) Reset() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.ipLimits = make(map[string]*rateLimitEntry)
	rl.globalLimit = rateLimitEntry{}
	slog.Info("Rate limits reset")
}
