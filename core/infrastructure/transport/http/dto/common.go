package dto

import "time"

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

// NewErrorResponse builds an ErrorResponse carrying message.
func NewErrorResponse(message string) ErrorResponse {
	return ErrorResponse{Status: StatusError, Error: message}
}

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// HealthResponse is the liveness body.
type HealthResponse struct {
	Status string `json:"status"`
}

// ReadyResponse is the readiness body.
type ReadyResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// ServerInfoResponse is returned by GET /.
type ServerInfoResponse struct {
	Name        string  `json:"name"`
	Version     string  `json:"version"`
	Status      string  `json:"status"`
	Uptime      float64 `json:"uptime"`
	Environment string  `json:"environment"`
}

// NewServerInfo reports uptime in seconds since started.
func NewServerInfo(name, version, environment string, started time.Time) ServerInfoResponse {
	return ServerInfoResponse{
		Name:        name,
		Version:     version,
		Status:      "running",
		Uptime:      time.Since(started).Seconds(),
		Environment: environment,
	}
}
