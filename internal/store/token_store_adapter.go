package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/webauth/pkg/cryptox"
	"github.com/aussiebroadwan/webauth/pkg/identity"
)

// TokenStoreAdapter adapts a Store to identity.TokenStore. Tokens are
// serialised to JSON and sealed before they reach the driver, so drivers
// never see token material.
type TokenStoreAdapter struct {
	store  Store
	sealer *cryptox.Sealer
	logger *slog.Logger
	now    func() time.Time
}

// NewTokenStoreAdapter creates an adapter sealing with sealer.
func NewTokenStoreAdapter(store Store, sealer *cryptox.Sealer, logger *slog.Logger) *TokenStoreAdapter {
	return &TokenStoreAdapter{
		store:  store,
		sealer: sealer,
		logger: logger,
		now:    time.Now,
	}
}

// Get returns the token under key. Missing records and records that can no
// longer be opened (key rotated, corrupted) are reported as absent.
func (a *TokenStoreAdapter) Get(ctx context.Context, key string) (*identity.TokenInfo, error) {
	rec, err := a.store.Tokens().GetToken(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get token: %w", err)
	}

	plain, err := a.sealer.Open(rec.Blob)
	if err != nil {
		a.logger.Warn("discarding unreadable cached token", "key", key, "error", err)
		return nil, nil
	}

	var token identity.TokenInfo
	if err := json.Unmarshal(plain, &token); err != nil {
		a.logger.Warn("discarding malformed cached token", "key", key, "error", err)
		return nil, nil
	}
	return &token, nil
}

// Set seals and stores token under key. A nil token deletes the record.
func (a *TokenStoreAdapter) Set(ctx context.Context, key string, token *identity.TokenInfo) error {
	if token == nil {
		if err := a.store.Tokens().DeleteToken(ctx, key); err != nil && !errors.Is(err, ErrNotFound) {
			return fmt.Errorf("delete token: %w", err)
		}
		return nil
	}

	plain, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("encode token: %w", err)
	}
	blob, err := a.sealer.Seal(plain)
	if err != nil {
		return fmt.Errorf("seal token: %w", err)
	}

	rec := CachedToken{
		Key:       key,
		Blob:      blob,
		UpdatedAt: a.now().UTC(),
	}
	if token.ExpiresAt != 0 {
		rec.ExpiresAt = time.UnixMilli(token.ExpiresAt).UTC()
	}

	if err := a.store.Tokens().PutToken(ctx, rec); err != nil {
		return fmt.Errorf("put token: %w", err)
	}
	return nil
}

// DeleteExpiredTokens forwards to the driver.
func (a *TokenStoreAdapter) DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	return a.store.Tokens().DeleteExpiredTokens(ctx, now)
}
