package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drone-ops-api/internal/config"
)

func TestRateLimiter_IPLimit(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{
		Enabled:           true,
		Type:              RateLimitTypeIP,
		RequestsPerMinute: 3,
		WindowMinutes:     1,
	})
	defer rl.Stop()

	for i := 0; i < 3; i++ {
		allowed, info := rl.IsAllowed("10.0.0.1", false)
		assert.True(t, allowed)
		assert.Equal(t, 3, info.Limit)
	}

	allowed, info := rl.IsAllowed("10.0.0.1", false)
	assert.False(t, allowed)
	assert.Zero(t, info.Remaining)

	// A different client has its own window
	allowed, _ = rl.IsAllowed("10.0.0.2", false)
	assert.True(t, allowed)
}

func TestRateLimiter_GlobalLimit(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{
		Enabled:           true,
		Type:              RateLimitTypeGlobal,
		RequestsPerMinute: 2,
		WindowMinutes:     1,
	})
	defer rl.Stop()

	allowed, _ := rl.IsAllowed("10.0.0.1", false)
	assert.True(t, allowed)
	allowed, _ = rl.IsAllowed("10.0.0.2", false)
	assert.True(t, allowed)
	allowed, _ = rl.IsAllowed("10.0.0.3", false)
	assert.False(t, allowed)
}

func TestRateLimiter_AdminLimit(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{
		Enabled:                true,
		Type:                   RateLimitTypeIP,
		RequestsPerMinute:      1,
		WindowMinutes:          1,
		AdminRequestsPerMinute: 5,
	})
	defer rl.Stop()

	_, info := rl.IsAllowed("10.0.0.1", true)
	assert.Equal(t, 5, info.Limit)
}

func TestRateLimiter_Disabled(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{Enabled: false})
	defer rl.Stop()

	for i := 0; i < 100; i++ {
		allowed, info := rl.IsAllowed("10.0.0.1", false)
		assert.True(t, allowed)
		assert.Equal(t, -1, info.Limit)
	}
}

func TestRateLimiter_Reset(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{
		Enabled:           true,
		Type:              RateLimitTypeIP,
		RequestsPerMinute: 1,
		WindowMinutes:     1,
	})
	defer rl.Stop()

	rl.IsAllowed("10.0.0.1", false)
	allowed, _ := rl.IsAllowed("10.0.0.1", false)
	require.False(t, allowed)

	rl.Reset()
	allowed, _ = rl.IsAllowed("10.0.0.1", false)
	assert.True(t, allowed)
}

func TestRateLimitMiddleware_SkipsHealth(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{
		Enabled:           true,
		Type:              RateLimitTypeIP,
		RequestsPerMinute: 1,
		WindowMinutes:     1,
	})
	defer rl.Stop()

	handler := RateLimitMiddleware(rl)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestRateLimitMiddleware_RejectsWithHeaders(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{
		Enabled:           true,
		Type:              RateLimitTypeIP,
		RequestsPerMinute: 1,
		WindowMinutes:     1,
	})
	defer rl.Stop()

	handler := RateLimitMiddleware(rl)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/deliveries", nil)
	req.RemoteAddr = "10.0.0.1:1234"

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Limit"))

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestGetClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.9:5555"
	assert.Equal(t, "10.0.0.9", getClientIP(req))

	req.Header.Set("X-Real-IP", "172.16.0.1")
	assert.Equal(t, "172.16.0.1", getClientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	assert.Equal(t, "203.0.113.7", getClientIP(req))
}

func TestAuthMiddleware(t *testing.T) {
	t.Setenv("API_KEYS", "alpha,beta")

	handler := AuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/deliveries", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/deliveries", nil)
	req.Header.Set("X-API-Key", "wrong")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req.Header.Set("X-API-Key", "beta")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminAuthMiddleware_PrefixFallback(t *testing.T) {
	t.Setenv("API_KEYS", "admin-root,viewer")
	t.Setenv("ADMIN_API_KEYS", "")

	handler := AdminAuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/admin/restock", nil)
	req.Header.Set("X-API-Key", "viewer")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req.Header.Set("X-API-Key", "admin-root")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestParseRateLimitConfig(t *testing.T) {
	cfg := ParseRateLimitConfig(&config.Config{
		RateLimitEnabled:                "yes",
		RateLimitType:                   "both",
		RateLimitRequestsPerMinute:      "20",
		RateLimitWindowMinutes:          "bogus",
		RateLimitAdminRequestsPerMinute: "-5",
	})
	assert.True(t, cfg.Enabled)
	assert.Equal(t, RateLimitTypeBoth, cfg.Type)
	assert.Equal(t, 20, cfg.RequestsPerMinute)
	assert.Equal(t, 1, cfg.WindowMinutes)
	assert.Equal(t, 50, cfg.AdminRequestsPerMinute)
}
