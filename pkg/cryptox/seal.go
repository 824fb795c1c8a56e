package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/hkdf"
)

// sealInfo binds derived keys to their use.
const sealInfo = "webauth token cache v1"

// masterKeySize is the number of random bytes written to a new key file.
const masterKeySize = 32

// ErrCiphertextTooShort is returned by Open for input shorter than a nonce.
var ErrCiphertextTooShort = errors.New("cryptox: ciphertext too short")

// Sealer encrypts and authenticates blobs with AES-256-GCM.
// Output format: [12-byte nonce][ciphertext][16-byte tag].
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer derives an AES-256 key from arbitrary key material with
// HKDF-SHA256.
func NewSealer(keyMaterial []byte) (*Sealer, error) {
	if len(keyMaterial) == 0 {
		return nil, errors.New("cryptox: empty key material")
	}

	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, keyMaterial, nil, []byte(sealInfo)), key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}

	return &Sealer{aead: aead}, nil
}

// LoadSealer builds a Sealer from, in order: the literal key when set, the
// key file at path (created with a fresh random key if missing), or an
// ephemeral random key when both are empty. Ephemeral keys do not survive a
// restart, so anything sealed with them is unreadable afterwards.
func LoadSealer(key, path string) (*Sealer, error) {
	switch {
	case key != "":
		return NewSealer([]byte(key))
	case path != "":
		material, err := loadOrGenerateKeyFile(path)
		if err != nil {
			return nil, err
		}
		return NewSealer(material)
	default:
		material := make([]byte, masterKeySize)
		if _, err := rand.Read(material); err != nil {
			return nil, fmt.Errorf("generate ephemeral key: %w", err)
		}
		return NewSealer(material)
	}
}

// Seal encrypts plaintext with a random nonce.
func (s *Sealer) Seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return s.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Open decrypts data produced by Seal, failing if it was tampered with or
// sealed under a different key.
func (s *Sealer) Open(sealed []byte) ([]byte, error) {
	n := s.aead.NonceSize()
	if len(sealed) < n {
		return nil, ErrCiphertextTooShort
	}

	plaintext, err := s.aead.Open(nil, sealed[:n], sealed[n:], nil)
	if err != nil {
		return nil, fmt.Errorf("decryption failed: %w", err)
	}
	return plaintext, nil
}

func loadOrGenerateKeyFile(path string) ([]byte, error) {
	path = filepath.Clean(path)

	data, err := os.ReadFile(path)
	if err == nil {
		material := strings.TrimSpace(string(data))
		if material == "" {
			return nil, fmt.Errorf("master key file %s is empty", path)
		}
		return []byte(material), nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read master key file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create master key dir: %w", err)
	}

	raw := make([]byte, masterKeySize)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("generate master key: %w", err)
	}
	material := base64.RawURLEncoding.EncodeToString(raw)

	if err := os.WriteFile(path, []byte(material), 0o600); err != nil {
		return nil, fmt.Errorf("write master key file: %w", err)
	}
	return []byte(material), nil
}
