// Package sealed wraps a SessionStore so that values are encrypted at rest.
// Keys stay readable; values are AES-256-GCM sealed with a key derived
// from a passphrase and a per-store salt kept in the wrapped store.
package sealed

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/iudanet/mailguard/internal/client/storage"
	"github.com/iudanet/mailguard/internal/crypto"
)

// keySalt is not part of storage.SessionKeys, so logout keeps it.
const keySalt = "seal_salt"

type Storage struct {
	inner storage.SessionStore
	key   []byte
}

var _ storage.SessionStore = (*Storage)(nil)

// New derives the sealing key, creating and persisting a salt on first use.
func New(ctx context.Context, inner storage.SessionStore, passphrase string) (*Storage, error) {
	salt, err := loadOrCreateSalt(ctx, inner)
	if err != nil {
		return nil, err
	}

	key, err := crypto.DeriveKey(passphrase, salt)
	if err != nil {
		return nil, fmt.Errorf("failed to derive store key: %w", err)
	}

	return &Storage{inner: inner, key: key}, nil
}

func loadOrCreateSalt(ctx context.Context, inner storage.SessionStore) ([]byte, error) {
	encoded, err := inner.Get(ctx, keySalt)
	if err == nil {
		salt, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("failed to decode store salt: %w", err)
		}
		return salt, nil
	}
	if !errors.Is(err, storage.ErrKeyNotFound) {
		return nil, fmt.Errorf("failed to read store salt: %w", err)
	}

	salt, err := crypto.GenerateSalt()
	if err != nil {
		return nil, err
	}
	if err := inner.Set(ctx, keySalt, base64.StdEncoding.EncodeToString(salt)); err != nil {
		return nil, fmt.Errorf("failed to save store salt: %w", err)
	}
	return salt, nil
}

func (s *Storage) Get(ctx context.Context, key string) (string, error) {
	sealed, err := s.inner.Get(ctx, key)
	if err != nil {
		return "", err
	}
	plain, err := crypto.Open(sealed, s.key)
	if err != nil {
		return "", fmt.Errorf("failed to open %q: %w", key, err)
	}
	return string(plain), nil
}

func (s *Storage) Set(ctx context.Context, key, value string) error {
	sealed, err := crypto.Seal([]byte(value), s.key)
	if err != nil {
		return fmt.Errorf("failed to seal %q: %w", key, err)
	}
	return s.inner.Set(ctx, key, sealed)
}

func (s *Storage) Delete(ctx context.Context, keys ...string) error {
	return s.inner.Delete(ctx, keys...)
}

func (s *Storage) Close() error {
	return s.inner.Close()
}
