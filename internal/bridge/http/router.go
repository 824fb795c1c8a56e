package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/webauth/internal/bridge"
	"github.com/aussiebroadwan/webauth/pkg/httpx"
	"github.com/aussiebroadwan/webauth/pkg/slogx"
)

// Pinger reports whether the token store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	bridge       *bridge.Bridge
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	// Store is pinged by /readyz. Nil for the in-memory store.
	Store Pinger
	// Metrics is served on /metrics when set.
	Metrics http.Handler
	// BridgeToken guards the token operations when set.
	BridgeToken string
	// TokenLimit rate limits the token operations per client IP.
	TokenLimit httpx.RateLimitConfig
}

func NewRouter(b *bridge.Bridge, buildVersion string, logger *slog.Logger) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		bridge:       b,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		logger:       logger,
		TokenLimit:   httpx.ModerateLimit,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

// ApplyRoutes registers every endpoint. Optional fields must be set first.
func (r *Router) ApplyRoutes() {
	r.registerTokens()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerTokens() {
	h := &TokenHandler{Bridge: r.bridge}

	secured := func(fn http.HandlerFunc) http.Handler {
		return httpx.Chain(fn,
			httpx.BearerTokenMiddleware(r.BridgeToken),
			httpx.RateLimitByIP(r.TokenLimit),
		)
	}

	r.Mux.Handle("POST /v1/token", secured(h.HandleGetToken))
	r.Mux.Handle("POST /v1/flow", secured(h.HandleLaunchWebFlow))
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.Store, r.bridge),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	if r.Metrics != nil {
		r.Mux.Handle("GET /metrics",
			httpx.Chain(r.Metrics,
				httpx.RateLimitByIP(httpx.LenientLimit),
			),
		)
	}
}
