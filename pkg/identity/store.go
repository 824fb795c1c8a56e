package identity

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"
)

// TokenStore persists one cached token per key. Get returns (nil, nil) when
// nothing is stored; absence is never an error.
type TokenStore interface {
	Get(ctx context.Context, key string) (*TokenInfo, error)
	Set(ctx context.Context, key string, token *TokenInfo) error
}

// MemoryTokenStore is a process-local TokenStore.
type MemoryTokenStore struct {
	mu     sync.RWMutex
	tokens map[string]TokenInfo
}

// NewMemoryTokenStore returns an empty in-memory store.
func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{tokens: make(map[string]TokenInfo)}
}

// Get returns a deep copy of the stored token.
func (s *MemoryTokenStore) Get(_ context.Context, key string) (*TokenInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	token, ok := s.tokens[key]
	if !ok {
		return nil, nil
	}
	return cloneToken(token), nil
}

// Set replaces the token stored under key.
func (s *MemoryTokenStore) Set(_ context.Context, key string, token *TokenInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if token == nil {
		delete(s.tokens, key)
		return nil
	}
	s.tokens[key] = *cloneToken(*token)
	return nil
}

// cloneToken copies token so that no slice or map is shared with it.
func cloneToken(token TokenInfo) *TokenInfo {
	token.Scopes = slices.Clone(token.Scopes)
	token.Raw = maps.Clone(token.Raw)
	return &token
}

// DeleteExpiredTokens drops every token expired at now and returns how many
// were removed.
func (s *MemoryTokenStore) DeleteExpiredTokens(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for key, token := range s.tokens {
		if token.Expired(now) {
			delete(s.tokens, key)
			removed++
		}
	}
	return removed, nil
}
