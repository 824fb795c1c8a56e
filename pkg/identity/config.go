package identity

import (
	"fmt"
	"net/url"
	"strings"
)

// CacheKeyPrefix prefixes identity keys when they are used as token store keys.
const CacheKeyPrefix = "_oauth_cache_"

// IdentityKey returns the deterministic provider identity for a config:
// the encoded authorization endpoint and client id joined by "/".
func IdentityKey(cfg OAuthConfig) string {
	return encodeComponent(cfg.AuthorizationEndpoint) + "/" + encodeComponent(cfg.ClientID)
}

// CacheKey returns the token store key for a provider identity key.
func CacheKey(identityKey string) string {
	return CacheKeyPrefix + identityKey
}

// AssertOAuthOptions validates the static configuration. It fails with a
// configuration_error naming the first missing field.
func AssertOAuthOptions(cfg OAuthConfig) error {
	required := []requiredField{
		{"client_id", cfg.ClientID},
		{"authorization_endpoint", cfg.AuthorizationEndpoint},
		{"redirect_uri", cfg.RedirectURI},
	}

	switch cfg.ResponseType {
	case ResponseTypeToken:
	case ResponseTypeCode:
		required = append(required,
			requiredField{"client_secret", cfg.ClientSecret},
			requiredField{"token_endpoint", cfg.TokenEndpoint},
		)
	default:
		return newError(ErrConfiguration,
			fmt.Sprintf("unsupported response_type %q", cfg.ResponseType), nil)
	}

	for _, field := range required {
		if strings.TrimSpace(field.value) == "" {
			return newError(ErrConfiguration, field.name+" is required", nil)
		}
	}

	return nil
}

type requiredField struct {
	name  string
	value string
}

// encodeComponent percent-encodes a value for use inside a URL component,
// encoding spaces as %20 rather than '+'.
func encodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
