// Package bridge exposes the host operations get-token and launch-web-flow
// on top of an identity.Registry.
package bridge

import (
	"context"
	"log/slog"

	"github.com/aussiebroadwan/webauth/pkg/cryptox"
	"github.com/aussiebroadwan/webauth/pkg/identity"
)

// Request is the argument of both host operations.
type Request struct {
	Config  identity.OAuthConfig       `json:"config"`
	Options identity.AuthRequestOptions `json:"options"`
}

// Bridge dispatches host requests to the provider registered for the
// request's identity key.
type Bridge struct {
	Registry *identity.Registry
	Logger   *slog.Logger
}

func New(registry *identity.Registry, logger *slog.Logger) *Bridge {
	return &Bridge{Registry: registry, Logger: logger}
}

// GetToken returns a cached token when one satisfies the request, otherwise
// runs a flow. A nil token with a nil error means a non-interactive request
// could not produce a token.
func (b *Bridge) GetToken(ctx context.Context, req Request) (*identity.TokenInfo, error) {
	p := b.Registry.GetOrCreate(req.Config)
	token, err := p.GetAuthToken(ctx, req.Options)
	b.log(ctx, "get-token", p.Key(), token, err)
	return token, err
}

// LaunchWebFlow always shows the authorization surface, ignoring any cached
// token.
func (b *Bridge) LaunchWebFlow(ctx context.Context, req Request) (*identity.TokenInfo, error) {
	opts := req.Options
	opts.Interactive = true

	p := b.Registry.GetOrCreate(req.Config)
	token, err := p.LaunchWebAuthFlow(ctx, opts)
	b.log(ctx, "launch-web-flow", p.Key(), token, err)
	return token, err
}

func (b *Bridge) log(ctx context.Context, op, key string, token *identity.TokenInfo, err error) {
	switch {
	case err != nil:
		b.Logger.InfoContext(ctx, "bridge operation failed", "op", op, "provider", key, "error", err)
	case token == nil:
		b.Logger.InfoContext(ctx, "bridge operation returned no token", "op", op, "provider", key)
	default:
		b.Logger.DebugContext(ctx, "bridge operation succeeded", "op", op, "provider", key,
			"token", cryptox.FingerprintToken(token.AccessToken))
	}
}
