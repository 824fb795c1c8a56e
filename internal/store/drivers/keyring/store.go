// Package keyring stores sealed tokens in the operating system keychain
// (macOS Keychain, Windows Credential Manager, Secret Service on Linux).
package keyring

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/webauth/internal/store"
	"github.com/zalando/go-keyring"
)

// DefaultService is the keychain service name entries are filed under.
const DefaultService = "webauth"

const (
	probeKey    = "webauth-probe"
	masterKeyID = "webauth-master-key"
)

type Store struct {
	service string
}

// NewStore returns a keychain-backed store filing entries under service.
func NewStore(service string) *Store {
	if service == "" {
		service = DefaultService
	}
	return &Store{service: service}
}

func (s *Store) Tokens() store.Tokens { return &tokensRepo{service: s.service} }

// Ping writes and removes a probe entry to check the keychain is usable.
func (s *Store) Ping(context.Context) error {
	if err := keyring.Set(s.service, probeKey, "ok"); err != nil {
		return fmt.Errorf("keyring unavailable: %w", err)
	}
	_ = keyring.Delete(s.service, probeKey)
	return nil
}

func (s *Store) Close() error { return nil }

// MasterKey returns the sealing key material kept in the keychain, creating
// a random one on first use.
func (s *Store) MasterKey() ([]byte, error) {
	secret, err := keyring.Get(s.service, masterKeyID)
	if err == nil {
		return []byte(secret), nil
	}
	if !errors.Is(err, keyring.ErrNotFound) {
		return nil, fmt.Errorf("read master key: %w", err)
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("generate master key: %w", err)
	}
	secret = base64.RawURLEncoding.EncodeToString(raw)
	if err := keyring.Set(s.service, masterKeyID, secret); err != nil {
		return nil, fmt.Errorf("store master key: %w", err)
	}
	return []byte(secret), nil
}

type tokensRepo struct {
	service string
}

func (r *tokensRepo) GetToken(_ context.Context, key string) (store.CachedToken, error) {
	secret, err := keyring.Get(r.service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return store.CachedToken{}, store.ErrNotFound
	}
	if err != nil {
		return store.CachedToken{}, err
	}

	var t store.CachedToken
	if err := json.Unmarshal([]byte(secret), &t); err != nil {
		return store.CachedToken{}, fmt.Errorf("decode keyring entry: %w", err)
	}
	t.Key = key
	return t, nil
}

func (r *tokensRepo) PutToken(_ context.Context, t store.CachedToken) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encode keyring entry: %w", err)
	}
	return keyring.Set(r.service, t.Key, string(data))
}

func (r *tokensRepo) DeleteToken(_ context.Context, key string) error {
	err := keyring.Delete(r.service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return store.ErrNotFound
	}
	return err
}

// DeleteExpiredTokens is unsupported: keychains cannot list entries of a
// service portably.
func (r *tokensRepo) DeleteExpiredTokens(context.Context, time.Time) (int64, error) {
	return 0, store.ErrUnsupported
}
