package bridge

import (
	"context"
	"testing"

	"github.com/aussiebroadwan/webauth/pkg/identity"
	"github.com/aussiebroadwan/webauth/pkg/identity/identitytest"
	"github.com/aussiebroadwan/webauth/pkg/slogx"
	"github.com/stretchr/testify/require"
)

func testConfig() identity.OAuthConfig {
	return identity.OAuthConfig{
		ClientID:              "client",
		AuthorizationEndpoint: "https://auth.example.com/authorize",
		RedirectURI:           "https://app.example.com/cb",
		ResponseType:          identity.ResponseTypeToken,
		Scopes:                []string{"read"},
	}
}

func newBridge(surface identity.Surface) *Bridge {
	return New(identity.NewRegistry(identity.NewMemoryTokenStore(), surface), slogx.Discard())
}

func TestGetToken_UsesCacheAfterFirstFlow(t *testing.T) {
	t.Parallel()

	surface := identitytest.NewSurface(identitytest.ImplicitGrant("AT"))
	b := newBridge(surface)
	req := Request{Config: testConfig(), Options: identity.AuthRequestOptions{Interactive: true}}

	first, err := b.GetToken(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, "AT", first.AccessToken)

	second, err := b.GetToken(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, first, second)

	require.Len(t, surface.Opens(), 1, "second call served from cache")
	require.Equal(t, 1, b.Registry.Len())
}

func TestGetToken_NonInteractiveFailureIsAbsent(t *testing.T) {
	t.Parallel()

	b := newBridge(identitytest.NewSurface(identitytest.Closed()))

	token, err := b.GetToken(context.Background(), Request{Config: testConfig()})
	require.NoError(t, err)
	require.Nil(t, token)
}

func TestLaunchWebFlow_ForcesInteractive(t *testing.T) {
	t.Parallel()

	var visible []bool
	surface := identitytest.NewSurface(func(authURL string, v bool) []identity.NavigationEvent {
		visible = append(visible, v)
		return identitytest.ImplicitGrant("AT")(authURL, v)
	})
	b := newBridge(surface)

	token, err := b.LaunchWebFlow(context.Background(), Request{Config: testConfig()})
	require.NoError(t, err)
	require.Equal(t, "AT", token.AccessToken)

	_, err = b.LaunchWebFlow(context.Background(), Request{Config: testConfig()})
	require.NoError(t, err)

	require.Equal(t, []bool{true, true}, visible, "flows always run and always visible")
	require.NotContains(t, surface.Opens()[0], "prompt=none")
}

func TestLaunchWebFlow_PropagatesErrors(t *testing.T) {
	t.Parallel()

	b := newBridge(identitytest.NewSurface(identitytest.Closed()))

	_, err := b.LaunchWebFlow(context.Background(), Request{Config: testConfig()})
	require.ErrorIs(t, err, identity.ErrUserInterrupted)

	cfg := testConfig()
	cfg.ClientID = ""
	_, err = b.LaunchWebFlow(context.Background(), Request{Config: cfg})
	require.ErrorIs(t, err, identity.ErrConfiguration)
}
