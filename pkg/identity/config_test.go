package identity

import (
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIdentityKey(t *testing.T) {
	t.Parallel()

	cfg := OAuthConfig{
		ClientID:              "my client",
		AuthorizationEndpoint: "https://auth.example.com/authorize",
	}
	key := IdentityKey(cfg)
	require.Equal(t, "https%3A%2F%2Fauth.example.com%2Fauthorize/my%20client", key)
	require.Equal(t, "_oauth_cache_"+key, CacheKey(key))

	other := cfg
	other.Scopes = []string{"ignored"}
	require.Equal(t, key, IdentityKey(other), "only endpoint and client id form the key")
}

func TestAssertOAuthOptions(t *testing.T) {
	t.Parallel()

	implicit := OAuthConfig{
		ClientID:              "c",
		AuthorizationEndpoint: "https://auth.example.com",
		RedirectURI:           "https://app.example.com/cb",
		ResponseType:          ResponseTypeToken,
	}
	code := implicit
	code.ResponseType = ResponseTypeCode
	code.ClientSecret = "s"
	code.TokenEndpoint = "https://auth.example.com/token"

	tests := []struct {
		name    string
		cfg     OAuthConfig
		wantErr string
	}{
		{"valid implicit", implicit, ""},
		{"valid code", code, ""},
		{"missing client id", func() OAuthConfig { c := implicit; c.ClientID = " "; return c }(), "client_id"},
		{"missing endpoint", func() OAuthConfig { c := implicit; c.AuthorizationEndpoint = ""; return c }(), "authorization_endpoint"},
		{"missing redirect", func() OAuthConfig { c := implicit; c.RedirectURI = ""; return c }(), "redirect_uri"},
		{"code missing secret", func() OAuthConfig { c := code; c.ClientSecret = ""; return c }(), "client_secret"},
		{"code missing token endpoint", func() OAuthConfig { c := code; c.TokenEndpoint = ""; return c }(), "token_endpoint"},
		{"unknown response type", func() OAuthConfig { c := implicit; c.ResponseType = "id_token"; return c }(), "response_type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := AssertOAuthOptions(tt.cfg)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrConfiguration)
			require.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestErrorFromParams(t *testing.T) {
	t.Parallel()

	t.Run("description wins", func(t *testing.T) {
		err := errorFromParams(url.Values{"error": {"invalid_scope"}, "error_description": {"nope"}}, 0)
		require.Equal(t, "invalid_scope", err.Code)
		require.Equal(t, "nope", err.Message)
	})

	t.Run("standard message", func(t *testing.T) {
		err := errorFromParams(url.Values{"error": {"invalid_grant"}}, 400)
		require.Equal(t, standardMessages[ErrorCodeInvalidGrant], err.Message)
		require.Equal(t, 400, err.StatusCode)
	})

	t.Run("unknown code has empty message", func(t *testing.T) {
		err := errorFromParams(url.Values{"error": {"access_denied"}}, 0)
		require.Equal(t, ErrorCodeAccessDenied, err.Code)
		require.Empty(t, err.Message)
		require.Equal(t, "access_denied", err.Error())
	})
}

func TestError_IsAndUnwrap(t *testing.T) {
	t.Parallel()

	cause := errors.New("dial tcp: refused")
	err := newError(ErrServerError, "", cause)

	require.ErrorIs(t, err, ErrServerError)
	require.ErrorIs(t, err, cause)
	require.NotErrorIs(t, err, ErrInvalidURI)
	require.Equal(t, ErrServerError.Message, err.Message)
	require.Contains(t, err.Error(), "dial tcp: refused")
}

func TestRedirectParams_SkipsUndecodablePairs(t *testing.T) {
	t.Parallel()

	params, err := redirectParams("https://app.example.com/cb#access_token=AT&bad=%zz&x;y=1&state=S", ResponseTypeToken)
	require.NoError(t, err)
	require.Equal(t, "AT", params.Get("access_token"))
	require.Equal(t, "S", params.Get("state"))
	require.False(t, params.Has("bad"))

	params, err = redirectParams("https://app.example.com/cb?code=C&state=S&junk=%G1", ResponseTypeCode)
	require.NoError(t, err)
	require.Equal(t, "C", params.Get("code"))
	require.Equal(t, "S", params.Get("state"))
}
