package api

import "github.com/satriahrh/voicerelay/domain/entities"

// HealthResponse represents the health check payload
type HealthResponse struct {
	Status      string `json:"status"`
	Service     string `json:"service"`
	Connections int    `json:"connections"`
}

// ConnectionsResponse lists the live relay connections
type ConnectionsResponse struct {
	Count       int                   `json:"count"`
	Connections []entities.Connection `json:"connections"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
