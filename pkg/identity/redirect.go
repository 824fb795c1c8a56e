package identity

import (
	"context"
	"net/url"
	"strings"

	"github.com/aussiebroadwan/webauth/pkg/cryptox"
)

// completeFlow turns the observed redirect URL into a token.
func (p *Provider) completeFlow(ctx context.Context, flow *pendingExchange, redirect string) (*TokenInfo, error) {
	params, err := redirectParams(redirect, p.config.ResponseType)
	if err != nil {
		return nil, err
	}

	if params.Get("error") != "" {
		return nil, errorFromParams(params, 0)
	}

	if !cryptox.EqualTokens(params.Get("state"), flow.state) {
		p.logger.Warn("redirect state mismatch", "flow_id", flow.id)
		return nil, newError(ErrInvalidState, "", nil)
	}

	if p.config.ResponseType == ResponseTypeCode {
		code := params.Get("code")
		if code == "" {
			return nil, newError(ErrAuth, "redirect carried no authorization code", nil)
		}
		p.transition(StateExchangingCode)
		return p.exchangeCode(ctx, flow, code)
	}

	if params.Get("access_token") == "" {
		return nil, newError(ErrAuth, "redirect carried no access_token", nil)
	}
	return p.finalize(ctx, flow, params), nil
}

// finalize builds the token, stores it and returns it. A store failure is
// logged only; the token is still good.
func (p *Provider) finalize(ctx context.Context, flow *pendingExchange, params url.Values) *TokenInfo {
	p.transition(StateFinalizingToken)

	token := tokenFromParams(params, flow.requested, p.config.ClientID, p.now())
	if err := p.store.Set(ctx, CacheKey(p.key), token); err != nil {
		p.logger.Warn("token cache write failed", "flow_id", flow.id, "error", err)
	}

	p.logger.Info("web auth flow completed",
		"flow_id", flow.id,
		"fingerprint", cryptox.FingerprintToken(token.AccessToken),
		"expires_in", token.ExpiresIn,
	)
	return token
}

// redirectParams extracts the response parameters from a redirect URL: the
// fragment for the implicit grant, the query for the code grant. When the
// expected part has no error but the other part does, the other part wins.
// Pairs that fail to decode are skipped; the rest are kept.
func redirectParams(redirect string, grant ResponseType) (url.Values, error) {
	base, rawFragment, _ := strings.Cut(redirect, "#")
	u, err := url.Parse(base)
	if err != nil {
		return nil, newError(ErrAuth, "malformed redirect URL", err)
	}

	// ParseQuery reports the first bad pair but still returns every good one.
	fragment, _ := url.ParseQuery(rawFragment)
	query, _ := url.ParseQuery(u.RawQuery)

	primary, other := fragment, query
	if grant == ResponseTypeCode {
		primary, other = query, fragment
	}

	if primary.Get("error") == "" && other.Get("error") != "" {
		return other, nil
	}
	return primary, nil
}
