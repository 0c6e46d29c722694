package api

import "time"

// Response is the body of every successful operation.
type Response struct {
	Message string `json:"message"`
	Payload any    `json:"payload"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status    string    `json:"status"`
	Paired    bool      `json:"paired"`
	Timestamp time.Time `json:"timestamp"`
}
