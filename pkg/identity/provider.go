package identity

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/aussiebroadwan/webauth/pkg/cryptox"
	"github.com/aussiebroadwan/webauth/pkg/idx"
)

// ProviderState is the position of a Provider in its token flow.
type ProviderState string

const (
	StateIdle             ProviderState = "idle"
	StateCheckingCache    ProviderState = "checking_cache"
	StateCachedValid      ProviderState = "cached_valid"
	StateLaunching        ProviderState = "launching"
	StateAwaitingRedirect ProviderState = "awaiting_redirect"
	StateExchangingCode   ProviderState = "exchanging_code"
	StateFinalizingToken  ProviderState = "finalizing_token"
	StateErrored          ProviderState = "errored"
)

// pendingExchange is the bookkeeping for the single in-flight flow.
type pendingExchange struct {
	id        idx.ID
	state     string
	requested []string
}

// Provider obtains and caches tokens for one OAuthConfig. At most one web
// flow runs at a time; a second concurrent flow fails with
// flow_already_in_progress.
type Provider struct {
	config     OAuthConfig
	key        string
	store      TokenStore
	surface    Surface
	httpClient *http.Client
	logger     *slog.Logger
	observer   Observer
	now        func() time.Time
	timeout    time.Duration

	mu      sync.Mutex
	pending *pendingExchange
	state   ProviderState
}

// ProviderOption customises a Provider.
type ProviderOption func(*Provider)

// WithHTTPClient sets the client used for the code exchange.
func WithHTTPClient(c *http.Client) ProviderOption {
	return func(p *Provider) { p.httpClient = c }
}

// WithLogger sets the provider logger.
func WithLogger(l *slog.Logger) ProviderOption {
	return func(p *Provider) { p.logger = l }
}

// WithClock overrides the time source used for expiry.
func WithClock(now func() time.Time) ProviderOption {
	return func(p *Provider) { p.now = now }
}

// WithNonInteractiveTimeout sets how long a hidden flow may idle on a
// non-redirect page.
func WithNonInteractiveTimeout(d time.Duration) ProviderOption {
	return func(p *Provider) { p.timeout = d }
}

// WithObserver registers an Observer for cache and flow events.
func WithObserver(o Observer) ProviderOption {
	return func(p *Provider) { p.observer = o }
}

// NewProvider creates a Provider for cfg. Configuration is validated lazily
// when a flow is launched.
func NewProvider(cfg OAuthConfig, store TokenStore, surface Surface, opts ...ProviderOption) *Provider {
	p := &Provider{
		config:     cfg,
		key:        IdentityKey(cfg),
		store:      store,
		surface:    surface,
		httpClient: http.DefaultClient,
		logger:     slog.Default(),
		observer:   nopObserver{},
		now:        time.Now,
		timeout:    DefaultNonInteractiveTimeout,
		state:      StateIdle,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With("provider", p.key)
	return p
}

// Key returns the provider identity key.
func (p *Provider) Key() string { return p.key }

// Config returns the provider configuration.
func (p *Provider) Config() OAuthConfig { return p.config }

// State returns the current flow state.
func (p *Provider) State() ProviderState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// GetAuthToken returns a cached token when it is unexpired and covers the
// requested scopes, otherwise it runs a web flow. A failed non-interactive
// flow yields (nil, nil).
func (p *Provider) GetAuthToken(ctx context.Context, opts AuthRequestOptions) (*TokenInfo, error) {
	requested := requestedScopes(p.config, opts)

	p.setIdleState(StateCheckingCache)
	cached, err := p.store.Get(ctx, CacheKey(p.key))
	if err != nil {
		p.logger.Warn("token cache read failed", "error", err)
		cached = nil
	}

	if cached != nil && !cached.Expired(p.now()) && IsTokenAuthorized(cached, requested) {
		p.setIdleState(StateCachedValid)
		p.observer.CacheLookup(true)
		p.logger.Debug("using cached token", "fingerprint", cryptox.FingerprintToken(cached.AccessToken))
		p.setIdleState(StateIdle)
		return cached, nil
	}
	p.setIdleState(StateIdle)
	p.observer.CacheLookup(false)

	token, err := p.LaunchWebAuthFlow(ctx, opts)
	if err != nil {
		if !opts.Interactive {
			p.logger.Info("non-interactive flow failed", "error", err)
			return nil, nil
		}
		return nil, err
	}
	return token, nil
}

// LaunchWebAuthFlow always runs a web flow, ignoring the cache.
func (p *Provider) LaunchWebAuthFlow(ctx context.Context, opts AuthRequestOptions) (*TokenInfo, error) {
	if err := AssertOAuthOptions(p.config); err != nil {
		return nil, err
	}

	state := opts.State
	if state == "" {
		s, err := GenerateState()
		if err != nil {
			return nil, newError(ErrAuth, "could not generate state", err)
		}
		state = s
	}

	flow, err := p.begin(state, requestedScopes(p.config, opts))
	if err != nil {
		return nil, err
	}
	defer p.finish(flow)

	start := p.now()
	token, err := p.runFlow(ctx, flow, opts)

	var errCode string
	if err != nil {
		p.transition(StateErrored)
		errCode = ErrorCodeAuth
		var e *Error
		if errors.As(err, &e) {
			errCode = e.Code
		}
		p.logger.Info("web auth flow failed", "flow_id", flow.id, "code", errCode)
	}
	p.observer.FlowCompleted(p.config.ResponseType, errCode, p.now().Sub(start))

	return token, err
}

func (p *Provider) runFlow(ctx context.Context, flow *pendingExchange, opts AuthRequestOptions) (*TokenInfo, error) {
	p.transition(StateLaunching)
	authURL := ComputeAuthorizationURL(p.config, opts, flow.state)

	p.logger.Info("starting web auth flow",
		"flow_id", flow.id,
		"response_type", p.config.ResponseType,
		"interactive", opts.Interactive,
	)

	ctrl := &surfaceController{
		surface:     p.surface,
		redirectURI: p.config.RedirectURI,
		timeout:     p.timeout,
		logger:      p.logger.With("flow_id", flow.id),
	}

	p.transition(StateAwaitingRedirect)
	redirect, err := ctrl.run(ctx, authURL, opts.Interactive)
	if err != nil {
		return nil, err
	}

	return p.completeFlow(ctx, flow, redirect)
}

// begin claims the pending slot.
func (p *Provider) begin(state string, requested []string) (*pendingExchange, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pending != nil {
		return nil, newError(ErrFlowInProgress, "", nil)
	}
	p.pending = &pendingExchange{
		id:        idx.New(),
		state:     state,
		requested: requested,
	}
	return p.pending, nil
}

// finish releases the pending slot held by flow.
func (p *Provider) finish(flow *pendingExchange) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pending == flow {
		p.pending = nil
		p.state = StateIdle
	}
}

func (p *Provider) transition(s ProviderState) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
	p.logger.Debug("provider state", "state", s)
}

// setIdleState records cache-check progress unless a flow owns the state.
func (p *Provider) setIdleState(s ProviderState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pending == nil {
		p.state = s
	}
}
