package identity

import (
	"slices"
	"sync"
)

// Registry hands out one Provider per identity key. Providers share the
// registry's store, surface and options.
type Registry struct {
	store   TokenStore
	surface Surface
	opts    []ProviderOption

	mu        sync.Mutex
	providers map[string]*Provider
}

// NewRegistry creates an empty registry.
func NewRegistry(store TokenStore, surface Surface, opts ...ProviderOption) *Registry {
	return &Registry{
		store:     store,
		surface:   surface,
		opts:      opts,
		providers: make(map[string]*Provider),
	}
}

// GetOrCreate returns the provider for cfg's identity key, creating it on
// first use. A later config with the same key reuses the first provider.
func (r *Registry) GetOrCreate(cfg OAuthConfig) *Provider {
	key := IdentityKey(cfg)

	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.providers[key]; ok {
		return p
	}
	p := NewProvider(cfg, r.store, r.surface, r.opts...)
	r.providers[key] = p
	return p
}

// Len returns the number of providers created so far.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.providers)
}

// Keys returns the identity keys of all providers, sorted.
func (r *Registry) Keys() []string {
	r.mu.Lock()
	keys := make([]string, 0, len(r.providers))
	for k := range r.providers {
		keys = append(keys, k)
	}
	r.mu.Unlock()

	slices.Sort(keys)
	return keys
}
