package identity

import (
	"strings"

	"github.com/aussiebroadwan/webauth/pkg/cryptox"
)

// StateLength is the number of alphanumeric characters in a generated state.
const StateLength = 12

// GenerateState returns a fresh random anti-CSRF state value.
func GenerateState() (string, error) {
	return cryptox.GenerateAlphanumeric(StateLength)
}

// ComputeAuthorizationURL builds the authorization request URL. Parameters
// are emitted in a fixed order so the result is deterministic:
//
//	client_id, redirect_uri, response_type, scope, state,
//	include_granted_scopes, login_hint, prompt
//
// scope is omitted when empty, include_granted_scopes only when enabled,
// login_hint only when set and prompt=none only for non-interactive requests.
func ComputeAuthorizationURL(cfg OAuthConfig, opts AuthRequestOptions, state string) string {
	type param struct{ key, value string }

	params := []param{
		{"client_id", cfg.ClientID},
		{"redirect_uri", cfg.RedirectURI},
		{"response_type", string(cfg.ResponseType)},
	}

	if scopes := requestedScopes(cfg, opts); len(scopes) > 0 {
		params = append(params, param{"scope", strings.Join(scopes, " ")})
	}

	params = append(params, param{"state", state})

	if cfg.IncludeGrantedScopes {
		params = append(params, param{"include_granted_scopes", "true"})
	}
	if opts.LoginHint != "" {
		params = append(params, param{"login_hint", opts.LoginHint})
	}
	if !opts.Interactive {
		params = append(params, param{"prompt", "none"})
	}

	var b strings.Builder
	b.WriteString(cfg.AuthorizationEndpoint)
	if strings.Contains(cfg.AuthorizationEndpoint, "?") {
		b.WriteByte('&')
	} else {
		b.WriteByte('?')
	}
	for i, p := range params {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(p.key)
		b.WriteByte('=')
		b.WriteString(encodeComponent(p.value))
	}

	return b.String()
}

// requestedScopes returns the per-request scopes when given, otherwise the
// configured scopes.
func requestedScopes(cfg OAuthConfig, opts AuthRequestOptions) []string {
	if len(opts.Scopes) > 0 {
		return opts.Scopes
	}
	return cfg.Scopes
}
