// Package identity is an embedded OAuth2 client for applications that host
// their own browsing surface.
//
// Instead of binding a loopback redirect listener, a Provider opens a
// host-controlled Surface (visible or hidden), points it at the
// authorization endpoint and watches its navigation events until the
// configured redirect URI appears. The grant is read from that URL in
// process: the fragment for the implicit (token) grant, the query for the
// code grant, which is then redeemed at the token endpoint.
//
// Tokens are cached per provider in a TokenStore under
// CacheKey(IdentityKey(cfg)) and reused while unexpired and covering the
// requested scopes.
//
// Basic usage:
//
//	reg := identity.NewRegistry(identity.NewMemoryTokenStore(), surface)
//	p := reg.GetOrCreate(identity.OAuthConfig{
//		ClientID:              "my-client",
//		AuthorizationEndpoint: "https://accounts.example.com/o/oauth2/auth",
//		RedirectURI:           "https://my-app.example.com/oauth2",
//		ResponseType:          identity.ResponseTypeToken,
//		Scopes:                []string{"profile"},
//	})
//
//	token, err := p.GetAuthToken(ctx, identity.AuthRequestOptions{Interactive: true})
//	if err != nil {
//		var authErr *identity.Error
//		if errors.As(err, &authErr) && authErr.Code == identity.ErrorCodeAccessDenied {
//			// the user declined
//		}
//	}
package identity
