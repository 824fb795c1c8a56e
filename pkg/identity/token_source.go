package identity

import (
	"context"
	"time"

	"golang.org/x/oauth2"
)

// OAuth2Token converts the token for use with golang.org/x/oauth2 clients.
// Raw response parameters are exposed through Extra.
func (t *TokenInfo) OAuth2Token() *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken:  t.AccessToken,
		TokenType:    t.TokenType,
		RefreshToken: t.RefreshToken,
		ExpiresIn:    t.ExpiresIn,
	}
	if t.ExpiresAt != 0 {
		tok.Expiry = time.UnixMilli(t.ExpiresAt)
	}

	if len(t.Raw) == 0 {
		return tok
	}
	extra := make(map[string]any, len(t.Raw))
	for k, v := range t.Raw {
		extra[k] = v
	}
	return tok.WithExtra(extra)
}

// TokenSource returns an oauth2.TokenSource backed by GetAuthToken. Tokens
// are reused until they near expiry.
func (p *Provider) TokenSource(ctx context.Context, opts AuthRequestOptions) oauth2.TokenSource {
	return oauth2.ReuseTokenSource(nil, &providerTokenSource{ctx: ctx, provider: p, opts: opts})
}

type providerTokenSource struct {
	ctx      context.Context
	provider *Provider
	opts     AuthRequestOptions
}

func (s *providerTokenSource) Token() (*oauth2.Token, error) {
	token, err := s.provider.GetAuthToken(s.ctx, s.opts)
	if err != nil {
		return nil, err
	}
	if token == nil {
		return nil, newError(ErrAuth, "no token available without interaction", nil)
	}
	return token.OAuth2Token(), nil
}
