package identity

import (
	"fmt"
	"net/url"
)

// ============================================================================
// Error Codes
// ============================================================================

const (
	// Local failure codes raised by the flow itself.
	ErrorCodeConfiguration      = "configuration_error"
	ErrorCodeInvalidState       = "invalid_state"
	ErrorCodeUserInterrupted    = "user_interrupted"
	ErrorCodeAuth               = "auth_error"
	ErrorCodeURL                = "url_error"
	ErrorCodeInvalidURI         = "invalid_uri"
	ErrorCodeMethodNotSupported = "method_not_supported"
	ErrorCodeServerError        = "server_error"
	ErrorCodeResponseParse      = "response_parse"
	ErrorCodeFlowInProgress     = "flow_already_in_progress"

	// OAuth2 error codes per RFC 6749, surfaced verbatim from the provider.
	ErrorCodeInteractionRequired  = "interaction_required"
	ErrorCodeInvalidRequest       = "invalid_request"
	ErrorCodeInvalidClient        = "invalid_client"
	ErrorCodeInvalidGrant         = "invalid_grant"
	ErrorCodeUnauthorizedClient   = "unauthorized_client"
	ErrorCodeUnsupportedGrantType = "unsupported_grant_type"
	ErrorCodeInvalidScope         = "invalid_scope"
	ErrorCodeAccessDenied         = "access_denied"
)

// standardMessages is used when a provider reports one of these codes without
// an error_description.
var standardMessages = map[string]string{
	ErrorCodeInteractionRequired:  "User interaction is required to complete the authorization.",
	ErrorCodeInvalidRequest:       "The request is missing a required parameter or is otherwise malformed.",
	ErrorCodeInvalidClient:        "Client authentication failed.",
	ErrorCodeInvalidGrant:         "The authorization grant is invalid, expired, or revoked.",
	ErrorCodeUnauthorizedClient:   "The client is not authorized to use this grant type.",
	ErrorCodeUnsupportedGrantType: "The authorization grant type is not supported.",
	ErrorCodeInvalidScope:         "The requested scope is invalid, unknown, or malformed.",
}

// ============================================================================
// Error
// ============================================================================

// Error is the structured failure returned by every flow operation. Code is
// either one of the local codes above or an OAuth2 code reported by the
// provider.
type Error struct {
	// Code is the machine readable error kind (e.g. "invalid_state", "invalid_grant")
	Code string `json:"code"`

	// Message is a human readable description, may be empty
	Message string `json:"message,omitempty"`

	// StatusCode is the HTTP status observed when the error came from a response
	StatusCode int `json:"-"`

	// Err is the underlying cause, if any
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Code
	if e.Message != "" {
		msg = fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s (%v)", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error with the same code, so that
// errors.Is(err, ErrInvalidState) matches any invalid_state failure.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// ============================================================================
// Predefined Errors
// ============================================================================

var (
	// ErrConfiguration is returned when required OAuthConfig fields are missing.
	ErrConfiguration = &Error{Code: ErrorCodeConfiguration, Message: "invalid OAuth configuration"}

	// ErrInvalidState is returned when the redirect's state does not match the
	// value issued for the flow.
	ErrInvalidState = &Error{Code: ErrorCodeInvalidState, Message: "state parameter mismatch"}

	// ErrUserInterrupted is returned when the authorization surface is closed
	// before the redirect is observed.
	ErrUserInterrupted = &Error{Code: ErrorCodeUserInterrupted, Message: "authorization window was closed"}

	// ErrAuth covers non-interactive timeouts and malformed redirects.
	ErrAuth = &Error{Code: ErrorCodeAuth, Message: "authorization failed"}

	// ErrURL is returned when a non-redirect page answered with status >= 400.
	ErrURL = &Error{Code: ErrorCodeURL, Message: "authorization page returned an error status"}

	// ErrInvalidURI is returned when the token endpoint answers 404.
	ErrInvalidURI = &Error{Code: ErrorCodeInvalidURI, Message: "token endpoint not found"}

	// ErrMethodNotSupported is returned for other 4xx token endpoint answers.
	ErrMethodNotSupported = &Error{Code: ErrorCodeMethodNotSupported, Message: "token endpoint rejected the request"}

	// ErrServerError is returned when the token endpoint fails or is unreachable.
	ErrServerError = &Error{Code: ErrorCodeServerError, Message: "token endpoint error"}

	// ErrResponseParse is returned when the token response body cannot be decoded.
	ErrResponseParse = &Error{Code: ErrorCodeResponseParse, Message: "could not parse token response"}

	// ErrFlowInProgress is returned when a provider already has an in-flight flow.
	ErrFlowInProgress = &Error{Code: ErrorCodeFlowInProgress, Message: "an authorization flow is already in progress"}
)

// newError creates an error of the given kind with a specific message and cause.
func newError(kind *Error, message string, cause error) *Error {
	if message == "" {
		message = kind.Message
	}
	return &Error{Code: kind.Code, Message: message, Err: cause}
}

// errorFromParams maps an OAuth2 error response (redirect parameters or a
// decoded token response) to an *Error. The provider's error_description wins
// over the built-in message.
func errorFromParams(params url.Values, statusCode int) *Error {
	code := params.Get("error")
	message := params.Get("error_description")
	if message == "" {
		message = standardMessages[code]
	}
	return &Error{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}
