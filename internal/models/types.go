package models

// ErrorResponse represents the standard error response format
type ErrorResponse struct {
	Code    string        `json:"code"`
	Message string        `json:"message"`
	Details []ErrorDetail `json:"details,omitempty"`
}

type ErrorDetail struct {
	Field string `json:"field"`
	Issue string `json:"issue"`
}

// SuccessResponse is the minimal body for operations that return no resource
type SuccessResponse struct {
	Success bool `json:"success"`
}

// Request types for delivery operations
type CreateDeliveryRequest struct {
	ItemID      string `json:"item_id"`
	Quantity    int    `json:"quantity"`
	Destination string `json:"destination"`
	Priority    string `json:"priority,omitempty"`
	DroneID     string `json:"drone_id,omitempty"`
}

type UpdateDeliveryStatusRequest struct {
	Status      string   `json:"status"`
	Location    string   `json:"location,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
}

// Request types for alert operations
type AcknowledgeAlertRequest struct {
	User string `json:"user"`
}

type ResolveAlertRequest struct {
	User  string `json:"user"`
	Notes string `json:"notes,omitempty"`
}

// Request types for inventory operations
type RestockRequest struct {
	Quantity    int    `json:"quantity"`
	BatchNumber string `json:"batch_number,omitempty"`
	ExpiryDate  string `json:"expiry_date,omitempty"`
}

// Request types for fleet operations
type DeployDroneRequest struct {
	MissionType string `json:"mission_type"`
	Destination string `json:"destination"`
	Priority    string `json:"priority,omitempty"`
}

type UpdateDroneStatusRequest struct {
	Status string `json:"status"`
}
