package store

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound    = errors.New("store: not found")
	ErrUnsupported = errors.New("store: operation not supported by driver")
)

// Store is the root data access interface implemented by each driver
// (sqlite, file, keyring). Token access goes through the Tokens
// sub-repository.
type Store interface {
	Tokens() Tokens

	// Ping verifies the backing storage is reachable.
	Ping(ctx context.Context) error

	// Close releases any underlying resources.
	Close() error
}

// CachedToken is one sealed token record. Blob is opaque to drivers.
type CachedToken struct {
	Key       string    `json:"key"`
	Blob      []byte    `json:"blob"`
	ExpiresAt time.Time `json:"expires_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Tokens interface {
	// GetToken returns the record stored under key or ErrNotFound.
	GetToken(ctx context.Context, key string) (CachedToken, error)

	// PutToken inserts or replaces the record with t.Key.
	PutToken(ctx context.Context, t CachedToken) error

	// DeleteToken removes the record under key, ErrNotFound if absent.
	DeleteToken(ctx context.Context, key string) error

	// DeleteExpiredTokens removes records whose expiry is before now and
	// reports how many went. Drivers that cannot enumerate their records
	// return ErrUnsupported.
	DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error)
}
