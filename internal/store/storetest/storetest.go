// Package storetest holds the behaviour every store driver must share.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/aussiebroadwan/webauth/internal/store"
	"github.com/stretchr/testify/require"
)

// Options tunes the suite for driver limitations.
type Options struct {
	// PurgeUnsupported expects DeleteExpiredTokens to fail with
	// store.ErrUnsupported.
	PurgeUnsupported bool
}

// RunTokens exercises the Tokens repository of a fresh store built by
// newStore.
func RunTokens(t *testing.T, newStore func(t *testing.T) store.Store, opts Options) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	t.Run("get missing", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Tokens().GetToken(ctx, "_oauth_cache_missing")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("put get replace", func(t *testing.T) {
		s := newStore(t)
		key := "_oauth_cache_https%3A%2F%2Fauth.example.com/client"

		first := store.CachedToken{
			Key:       key,
			Blob:      []byte{0x01, 0x02, 0x03},
			ExpiresAt: now.Add(time.Hour),
			UpdatedAt: now,
		}
		require.NoError(t, s.Tokens().PutToken(ctx, first))

		got, err := s.Tokens().GetToken(ctx, key)
		require.NoError(t, err)
		require.Equal(t, first.Blob, got.Blob)
		require.True(t, first.ExpiresAt.Equal(got.ExpiresAt))
		require.True(t, first.UpdatedAt.Equal(got.UpdatedAt))

		second := first
		second.Blob = []byte{0x09}
		second.UpdatedAt = now.Add(time.Minute)
		require.NoError(t, s.Tokens().PutToken(ctx, second))

		got, err = s.Tokens().GetToken(ctx, key)
		require.NoError(t, err)
		require.Equal(t, []byte{0x09}, got.Blob)
	})

	t.Run("delete", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Tokens().PutToken(ctx, store.CachedToken{Key: "k", Blob: []byte("x"), UpdatedAt: now}))

		require.NoError(t, s.Tokens().DeleteToken(ctx, "k"))
		_, err := s.Tokens().GetToken(ctx, "k")
		require.ErrorIs(t, err, store.ErrNotFound)

		require.ErrorIs(t, s.Tokens().DeleteToken(ctx, "k"), store.ErrNotFound)
	})

	t.Run("delete expired", func(t *testing.T) {
		s := newStore(t)
		put := func(key string, expiresAt time.Time) {
			require.NoError(t, s.Tokens().PutToken(ctx, store.CachedToken{
				Key: key, Blob: []byte(key), ExpiresAt: expiresAt, UpdatedAt: now,
			}))
		}
		put("live", now.Add(time.Hour))
		put("dead", now.Add(-time.Hour))
		put("no-expiry", time.Time{})

		n, err := s.Tokens().DeleteExpiredTokens(ctx, now)
		if opts.PurgeUnsupported {
			require.ErrorIs(t, err, store.ErrUnsupported)
			return
		}
		require.NoError(t, err)
		require.Equal(t, int64(2), n)

		_, err = s.Tokens().GetToken(ctx, "live")
		require.NoError(t, err)
		_, err = s.Tokens().GetToken(ctx, "dead")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("ping", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Ping(ctx))
	})
}
