package file

import (
	"context"
	"time"

	"github.com/aussiebroadwan/webauth/internal/store"
)

type tokensRepo struct {
	s *Store
}

func (r *tokensRepo) GetToken(ctx context.Context, key string) (store.CachedToken, error) {
	var out store.CachedToken
	err := r.s.view(ctx, func(doc *document) error {
		t, ok := doc.Tokens[key]
		if !ok {
			return store.ErrNotFound
		}
		out = t
		return nil
	})
	return out, err
}

func (r *tokensRepo) PutToken(ctx context.Context, t store.CachedToken) error {
	return r.s.update(ctx, func(doc *document) (bool, error) {
		doc.Tokens[t.Key] = t
		return true, nil
	})
}

func (r *tokensRepo) DeleteToken(ctx context.Context, key string) error {
	return r.s.update(ctx, func(doc *document) (bool, error) {
		if _, ok := doc.Tokens[key]; !ok {
			return false, store.ErrNotFound
		}
		delete(doc.Tokens, key)
		return true, nil
	})
}

func (r *tokensRepo) DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	var removed int64
	err := r.s.update(ctx, func(doc *document) (bool, error) {
		for key, t := range doc.Tokens {
			if t.ExpiresAt.Before(now) {
				delete(doc.Tokens, key)
				removed++
			}
		}
		return removed > 0, nil
	})
	return removed, err
}
