package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"drone-ops-api/internal/alerts"
	"drone-ops-api/internal/delivery"
	"drone-ops-api/internal/fleet"
	"drone-ops-api/internal/ledger"
	"drone-ops-api/internal/models"
)

// writeJSONResponse is a helper function to write JSON responses
func writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
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

// writeDomainError maps domain sentinel errors onto HTTP status codes and
// the JSON error envelope.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrItemNotFound),
		errors.Is(err, delivery.ErrDeliveryNotFound),
		errors.Is(err, alerts.ErrAlertNotFound),
		errors.Is(err, fleet.ErrDroneNotFound):
		writeErrorResponse(w, http.StatusNotFound, "not_found", err.Error(), nil)

	case errors.Is(err, ledger.ErrInsufficientStock),
		errors.Is(err, delivery.ErrInvalidTransition),
		errors.Is(err, fleet.ErrDroneNotDeployable),
		errors.Is(err, fleet.ErrDroneNotRecallable):
		writeErrorResponse(w, http.StatusConflict, "conflict", err.Error(), nil)

	case errors.Is(err, delivery.ErrInvalidQuantity):
		writeErrorResponse(w, http.StatusBadRequest, "bad_request", err.Error(), nil)

	case errors.Is(err, ledger.ErrInvariantViolation):
		slog.Error("Stock invariant violation surfaced to API", "error", err)
		writeErrorResponse(w, http.StatusInternalServerError, "internal_error", "Internal inventory inconsistency", nil)

	default:
		slog.Error("Unhandled domain error", "error", err)
		writeErrorResponse(w, http.StatusInternalServerError, "internal_error", "Internal server error", nil)
	}
}
