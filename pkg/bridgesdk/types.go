package bridgesdk

import "github.com/aussiebroadwan/webauth/pkg/identity"

// TokenRequest is the body of POST /v1/token and POST /v1/flow.
type TokenRequest struct {
	Config  identity.OAuthConfig        `json:"config"`
	Options identity.AuthRequestOptions `json:"options"`
}

// ErrorResponse is the body of every non-2xx bridge response.
type ErrorResponse struct {
	// Code is the identity error code, or a transport code such as
	// "invalid_request" or "rate_limit_exceeded"
	Code string `json:"code"`

	// Message is a human-readable description of the error
	Message string `json:"message,omitempty"`
}

// HealthResponse represents the response structure for health check endpoints.
// Used by both /livez and /readyz endpoints (readyz includes additional Checks field).
type HealthResponse struct {
	// Status indicates the overall health status (e.g., "ok")
	Status string `json:"status"`

	// Uptime is the service uptime duration as a string (e.g., "1h23m45s")
	Uptime string `json:"uptime,omitempty"`

	// Version is the service version string
	Version string `json:"version,omitempty"`

	// Checks is only set by /readyz
	Checks *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks represents the status of the bridge's dependencies.
type HealthChecks struct {
	// Store indicates the token store status
	Store string `json:"store"`

	// Providers is the number of providers registered since startup
	Providers int `json:"providers"`
}
