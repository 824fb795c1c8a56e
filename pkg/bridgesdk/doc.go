// Package bridgesdk is a Go client for the webauth host bridge.
//
// The bridge runs the OAuth2 flows on behalf of its callers and answers with
// the resulting token:
//
//	client := bridgesdk.NewSDKClient("http://127.0.0.1:8080")
//	client.Token = os.Getenv("WEBAUTH_BRIDGE_TOKEN")
//
//	token, err := client.GetToken(ctx, cfg, identity.AuthRequestOptions{Interactive: true})
//	if err != nil {
//		var authErr *identity.Error
//		if errors.As(err, &authErr) && authErr.Code == identity.ErrorCodeUserInterrupted {
//			// the user closed the window
//		}
//		return err
//	}
//	if token == nil {
//		// a non-interactive request could not produce a token
//	}
//
// Errors answered by the bridge are decoded into *identity.Error carrying
// the HTTP status, so errors.Is works against the identity sentinels.
package bridgesdk
