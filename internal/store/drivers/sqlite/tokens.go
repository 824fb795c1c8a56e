package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/webauth/internal/store"
)

type tokensRepo struct {
	db *sql.DB
}

const getToken = `
SELECT cache_key, blob, expires_at, updated_at
FROM cached_tokens
WHERE cache_key = ?`

func (r *tokensRepo) GetToken(ctx context.Context, key string) (store.CachedToken, error) {
	var (
		t                    store.CachedToken
		expiresAt, updatedAt int64
	)
	err := r.db.QueryRowContext(ctx, getToken, key).Scan(&t.Key, &t.Blob, &expiresAt, &updatedAt)
	if err != nil {
		return store.CachedToken{}, mapNotFound(err)
	}
	t.ExpiresAt = fromMillis(expiresAt)
	t.UpdatedAt = fromMillis(updatedAt)
	return t, nil
}

const putToken = `
INSERT INTO cached_tokens (cache_key, blob, expires_at, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (cache_key) DO UPDATE SET
    blob       = excluded.blob,
    expires_at = excluded.expires_at,
    updated_at = excluded.updated_at`

func (r *tokensRepo) PutToken(ctx context.Context, t store.CachedToken) error {
	_, err := r.db.ExecContext(ctx, putToken, t.Key, t.Blob, toMillis(t.ExpiresAt), toMillis(t.UpdatedAt))
	return err
}

const deleteToken = `DELETE FROM cached_tokens WHERE cache_key = ?`

func (r *tokensRepo) DeleteToken(ctx context.Context, key string) error {
	res, err := r.db.ExecContext(ctx, deleteToken, key)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

const deleteExpiredTokens = `DELETE FROM cached_tokens WHERE expires_at < ?`

func (r *tokensRepo) DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, deleteExpiredTokens, now.UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
