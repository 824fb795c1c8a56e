package identity

import (
	"strconv"
	"strings"
	"time"
)

// ResponseType selects the OAuth2 grant used by a provider.
type ResponseType string

const (
	// ResponseTypeToken is the implicit grant, the token arrives in the URL fragment.
	ResponseTypeToken ResponseType = "token"
	// ResponseTypeCode is the authorization code grant, exchanged at the token endpoint.
	ResponseTypeCode ResponseType = "code"
)

// DefaultExpiresIn is applied when a provider omits expires_in.
const DefaultExpiresIn = 3600

// OAuthConfig describes one provider registration. It is created once from
// the host manifest and never mutated.
type OAuthConfig struct {
	ClientID              string       `json:"client_id"`
	ClientSecret          string       `json:"client_secret,omitempty"`
	AuthorizationEndpoint string       `json:"authorization_endpoint"`
	TokenEndpoint         string       `json:"token_endpoint,omitempty"`
	RedirectURI           string       `json:"redirect_uri"`
	ResponseType          ResponseType `json:"response_type"`
	Scopes                []string     `json:"scopes,omitempty"`
	IncludeGrantedScopes  bool         `json:"include_granted_scopes,omitempty"`
}

// AuthRequestOptions are supplied per token request.
type AuthRequestOptions struct {
	// Interactive allows the flow to show the authorization surface to the user
	Interactive bool `json:"interactive"`

	// Scopes overrides the configured scopes for this request
	Scopes []string `json:"scopes,omitempty"`

	// LoginHint is forwarded as login_hint
	LoginHint string `json:"login_hint,omitempty"`

	// State replaces the generated anti-CSRF state value
	State string `json:"state,omitempty"`
}

// TokenInfo is the cached artifact produced by a successful flow.
type TokenInfo struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type,omitempty"`

	// ExpiresIn is the lifetime in seconds reported by the provider
	ExpiresIn int64 `json:"expires_in"`

	// ExpiresAt is the absolute expiry in epoch milliseconds, derived at mint time
	ExpiresAt int64 `json:"expires_at"`

	// Scopes is the requested scopes followed by the granted scopes, in order
	Scopes []string `json:"scopes,omitempty"`

	RefreshToken string `json:"refresh_token,omitempty"`
	IDToken      string `json:"id_token,omitempty"`

	// Subject is the unverified sub claim of IDToken
	Subject string `json:"subject,omitempty"`

	// Raw holds every response parameter keyed by its wire name
	Raw map[string]string `json:"raw,omitempty"`
}

// Expired reports whether the token is past its expiry at now. A token
// without ExpiresAt is always expired.
func (t *TokenInfo) Expired(now time.Time) bool {
	if t == nil || t.ExpiresAt == 0 {
		return true
	}
	return now.UnixMilli() > t.ExpiresAt
}

// Field returns a response value by its wire name (access_token) or by its
// camelCase mirror (accessToken).
func (t *TokenInfo) Field(name string) (string, bool) {
	if t == nil {
		return "", false
	}
	for _, f := range tokenFields {
		if f.wire == name || f.mirror == name {
			name = f.wire
			break
		}
	}
	v, ok := t.Raw[name]
	return v, ok
}

// tokenField declares how one response parameter maps onto TokenInfo.
type tokenField struct {
	wire   string
	mirror string
	assign func(t *TokenInfo, value string)
}

var tokenFields = []tokenField{
	{wire: "access_token", mirror: "accessToken", assign: func(t *TokenInfo, v string) { t.AccessToken = v }},
	{wire: "token_type", mirror: "tokenType", assign: func(t *TokenInfo, v string) { t.TokenType = v }},
	{wire: "expires_in", mirror: "expiresIn", assign: func(t *TokenInfo, v string) {
		if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil && n >= 0 {
			t.ExpiresIn = n
		}
	}},
	{wire: "refresh_token", mirror: "refreshToken", assign: func(t *TokenInfo, v string) { t.RefreshToken = v }},
	{wire: "id_token", mirror: "idToken", assign: func(t *TokenInfo, v string) { t.IDToken = v }},
	// scope is merged with the requested scopes separately
	{wire: "scope", mirror: "scope", assign: func(*TokenInfo, string) {}},
	{wire: "error_description", mirror: "errorDescription", assign: func(*TokenInfo, string) {}},
}
