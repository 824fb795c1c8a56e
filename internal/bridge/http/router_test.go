package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/aussiebroadwan/webauth/internal/bridge"
	"github.com/aussiebroadwan/webauth/pkg/bridgesdk"
	"github.com/aussiebroadwan/webauth/pkg/identity"
	"github.com/aussiebroadwan/webauth/pkg/identity/identitytest"
	"github.com/aussiebroadwan/webauth/pkg/slogx"
	"github.com/stretchr/testify/require"
)

type pingerFunc func(context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func testConfig() identity.OAuthConfig {
	return identity.OAuthConfig{
		ClientID:              "client",
		AuthorizationEndpoint: "https://auth.example.com/authorize",
		RedirectURI:           "https://app.example.com/cb",
		ResponseType:          identity.ResponseTypeToken,
	}
}

func newServer(t *testing.T, script identitytest.Script, configure func(*Router)) (*httptest.Server, *bridgesdk.SDKClient) {
	t.Helper()

	registry := identity.NewRegistry(identity.NewMemoryTokenStore(), identitytest.NewSurface(script))
	r := NewRouter(bridge.New(registry, slogx.Discard()), "test", slogx.Discard())
	if configure != nil {
		configure(r)
	}
	r.ApplyRoutes()

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	client := bridgesdk.NewSDKClient(srv.URL)
	client.HTTPClient = srv.Client()
	return srv, client
}

func TestGetToken(t *testing.T) {
	t.Parallel()

	_, client := newServer(t, identitytest.ImplicitGrant("AT"), nil)

	token, err := client.GetToken(context.Background(), testConfig(), identity.AuthRequestOptions{Interactive: true})
	require.NoError(t, err)
	require.Equal(t, "AT", token.AccessToken)
	require.Equal(t, "Bearer", token.TokenType)
	require.Equal(t, int64(identity.DefaultExpiresIn), token.ExpiresIn)
}

func TestGetToken_NoContentWhenAbsent(t *testing.T) {
	t.Parallel()

	srv, client := newServer(t, identitytest.Closed(), nil)

	token, err := client.GetToken(context.Background(), testConfig(), identity.AuthRequestOptions{})
	require.NoError(t, err)
	require.Nil(t, token)

	resp, err := srv.Client().Post(srv.URL+"/v1/token", "application/json",
		strings.NewReader(`{"config":{"client_id":"client","authorization_endpoint":"https://a","redirect_uri":"https://b","response_type":"token"}}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
}

func TestLaunchWebFlow_ErrorStatuses(t *testing.T) {
	t.Parallel()

	badConfig := testConfig()
	badConfig.RedirectURI = ""

	tests := []struct {
		name       string
		script     identitytest.Script
		cfg        identity.OAuthConfig
		wantStatus int
		wantErr    error
	}{
		{"configuration", identitytest.ImplicitGrant("AT"), badConfig, http.StatusBadRequest, identity.ErrConfiguration},
		{"user closed", identitytest.Closed(), testConfig(), http.StatusConflict, identity.ErrUserInterrupted},
		{
			"state mismatch",
			identitytest.Redirect(func(string) string { return "https://app.example.com/cb#access_token=x&state=forged" }),
			testConfig(), http.StatusBadRequest, identity.ErrInvalidState,
		},
		{
			"provider error",
			identitytest.Redirect(func(string) string { return "https://app.example.com/cb#error=access_denied" }),
			testConfig(), http.StatusBadGateway, &identity.Error{Code: identity.ErrorCodeAccessDenied},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, client := newServer(t, tt.script, nil)

			token, err := client.LaunchWebFlow(context.Background(), tt.cfg, identity.AuthRequestOptions{})
			require.Nil(t, token)
			require.ErrorIs(t, err, tt.wantErr)

			var authErr *identity.Error
			require.True(t, errors.As(err, &authErr))
			require.Equal(t, tt.wantStatus, authErr.StatusCode)
		})
	}
}

func TestTokenEndpoints_MalformedBody(t *testing.T) {
	t.Parallel()

	srv, _ := newServer(t, nil, nil)

	for _, body := range []string{"{", `{"config":{},"extra":1}`} {
		resp, err := srv.Client().Post(srv.URL+"/v1/flow", "application/json", strings.NewReader(body))
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
	}

	resp, err := srv.Client().Post(srv.URL+"/v1/flow", "text/plain", strings.NewReader("{}"))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)
}

func TestTokenEndpoints_BridgeToken(t *testing.T) {
	t.Parallel()

	_, client := newServer(t, identitytest.ImplicitGrant("AT"), func(r *Router) { r.BridgeToken = "s3cret" })

	_, err := client.GetToken(context.Background(), testConfig(), identity.AuthRequestOptions{Interactive: true})
	var authErr *identity.Error
	require.ErrorAs(t, err, &authErr)
	require.Equal(t, http.StatusUnauthorized, authErr.StatusCode)
	require.Equal(t, "invalid_token", authErr.Code)

	client.Token = "s3cret"
	token, err := client.GetToken(context.Background(), testConfig(), identity.AuthRequestOptions{Interactive: true})
	require.NoError(t, err)
	require.Equal(t, "AT", token.AccessToken)

	health, err := client.GetLiveness(context.Background())
	require.NoError(t, err)
	require.Equal(t, "ok", health.Status)
}

func TestHealth(t *testing.T) {
	t.Parallel()

	var storeDown atomic.Bool
	_, client := newServer(t, nil, func(r *Router) {
		r.Store = pingerFunc(func(context.Context) error {
			if storeDown.Load() {
				return errors.New("database is locked")
			}
			return nil
		})
	})

	live, err := client.GetLiveness(context.Background())
	require.NoError(t, err)
	require.Equal(t, "ok", live.Status)
	require.Equal(t, "test", live.Version)
	require.Nil(t, live.Checks)

	ready, err := client.GetReadiness(context.Background())
	require.NoError(t, err)
	require.Equal(t, "ok", ready.Checks.Store)

	storeDown.Store(true)
	_, err = client.GetReadiness(context.Background())
	var authErr *identity.Error
	require.ErrorAs(t, err, &authErr)
	require.Equal(t, http.StatusServiceUnavailable, authErr.StatusCode)
}

func TestMetricsRoute(t *testing.T) {
	t.Parallel()

	srv, _ := newServer(t, nil, func(r *Router) {
		r.Metrics = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("m 1\n")) })
	})

	resp, err := srv.Client().Get(srv.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	srvNoMetrics, _ := newServer(t, nil, nil)
	resp, err = srvNoMetrics.Client().Get(srvNoMetrics.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}
