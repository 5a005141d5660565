package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"drone-ops-api/internal/models"
)

// AuthMiddleware provides API key authentication via the X-API-Key header.
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey := r.Header.Get("X-API-Key")
		if apiKey == "" {
			slog.Warn("Authentication failed: missing API key", "remote_addr", r.RemoteAddr)
			writeErrorResponse(w, http.StatusUnauthorized, "unauthorized", "API key required", nil)
			return
		}

		if !isValidAPIKey(apiKey) {
			slog.Warn("Authentication failed: invalid API key", "remote_addr", r.RemoteAddr)
			writeErrorResponse(w, http.StatusUnauthorized, "unauthorized", "Invalid API key", nil)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// isValidAPIKey checks the key against the comma-separated API_KEYS env var.
func isValidAPIKey(apiKey string) bool {
	apiKeysStr := os.Getenv("API_KEYS")
	if apiKeysStr == "" {
		apiKeysStr = "demo" // Default fallback
	}

	for _, validKey := range strings.Split(apiKeysStr, ",") {
		if strings.TrimSpace(validKey) == apiKey {
			return true
		}
	}
	return false
}

// AdminAuthMiddleware guards the operator endpoints (restock, deploy,
// emergency) behind admin keys.
func AdminAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey := r.Header.Get("X-API-Key")
		if apiKey == "" {
			slog.Warn("Admin authentication failed: missing API key", "remote_addr", r.RemoteAddr)
			writeErrorResponse(w, http.StatusUnauthorized, "unauthorized", "Admin API key required", nil)
			return
		}

		if !isValidAdminAPIKey(apiKey) {
			slog.Warn("Admin authentication failed: invalid admin API key", "remote_addr", r.RemoteAddr)
			writeErrorResponse(w, http.StatusForbidden, "forbidden", "Admin access required", nil)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// isValidAdminAPIKey checks the key against ADMIN_API_KEYS. With no admin
// keys configured, regular keys carrying an "admin-" prefix qualify.
func isValidAdminAPIKey(apiKey string) bool {
	adminKeysStr := os.Getenv("ADMIN_API_KEYS")
	if adminKeysStr == "" {
		if strings.HasPrefix(apiKey, "admin-") {
			return isValidAPIKey(apiKey)
		}
		return false
	}

	for _, validKey := range strings.Split(adminKeysStr, ",") {
		if strings.TrimSpace(validKey) == apiKey {
			return true
		}
	}
	return false
}

// writeErrorResponse is a helper function to write error responses
func writeErrorResponse(w http.ResponseWriter, statusCode int, code, message string, details []models.ErrorDetail) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(models.ErrorResponse{
		Code:    code,
		Message: message,
		Details: details,
	})
}
